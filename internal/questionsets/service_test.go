package questionsets

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/easyq-dev/easyq-backend/internal/subscriptions"
	"github.com/easyq-dev/easyq-backend/pkg/db/models"
	pkgerrors "github.com/easyq-dev/easyq-backend/pkg/errors"
	"github.com/easyq-dev/easyq-backend/pkg/logger"
	"github.com/easyq-dev/easyq-backend/pkg/pagination"
)

type fakeRepository struct {
	createFn     func(ctx context.Context, set *models.QuestionSet) error
	listByUserFn func(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.QuestionSet, int64, error)
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Create(ctx context.Context, set *models.QuestionSet) error {
	if f.createFn != nil {
		return f.createFn(ctx, set)
	}
	return nil
}

func (f *fakeRepository) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.QuestionSet, int64, error) {
	if f.listByUserFn != nil {
		return f.listByUserFn(ctx, userID, params)
	}
	return nil, 0, nil
}

type fakeQuota struct {
	usage *subscriptions.Usage
	err   error
}

func (f *fakeQuota) TrackUsage(ctx context.Context, userID uuid.UUID) (*subscriptions.Usage, error) {
	return f.usage, f.err
}

func testService(t *testing.T, repo Repository, quota QuotaTracker) *Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
	svc, err := NewService(ServiceParams{Repo: repo, Quota: quota, Logger: logg})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func eligibleUsage(limit, used int) *subscriptions.Usage {
	return &subscriptions.Usage{
		Subscription: &models.Subscription{
			ID:      uuid.New(),
			EndDate: time.Now().Add(24 * time.Hour),
		},
		CurrentUsage: used,
		Limit:        limit,
		Remaining:    limit - used,
	}
}

func TestCreateRecordsQuotaSubscription(t *testing.T) {
	usage := eligibleUsage(30, 5)

	var created *models.QuestionSet
	repo := &fakeRepository{
		createFn: func(ctx context.Context, set *models.QuestionSet) error {
			set.ID = uuid.New()
			created = set
			return nil
		},
	}
	svc := testService(t, repo, &fakeQuota{usage: usage})

	userID := uuid.New()
	result, err := svc.Create(context.Background(), userID, CreateInput{
		Title:         "  Algebra midterm ",
		Subject:       "Math",
		QuestionCount: 25,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if created == nil {
		t.Fatal("repo create not called")
	}
	if created.SubscriptionID != usage.Subscription.ID {
		t.Fatal("question set must record the quota subscription")
	}
	if created.Title != "Algebra midterm" {
		t.Fatalf("unexpected title %q", created.Title)
	}
	if result.Usage.CurrentUsage != 6 || result.Usage.Remaining != 24 {
		t.Fatalf("unexpected post-creation usage %+v", result.Usage)
	}
}

func TestCreateRejectedWhenQuotaExceeded(t *testing.T) {
	quotaErr := pkgerrors.New(pkgerrors.CodeQuotaExceeded, "question limit reached").
		WithDetails(subscriptions.QuotaExceededDetails{Limit: 30, Current: 30})

	created := false
	repo := &fakeRepository{
		createFn: func(ctx context.Context, set *models.QuestionSet) error {
			created = true
			return nil
		},
	}
	svc := testService(t, repo, &fakeQuota{err: quotaErr})

	_, err := svc.Create(context.Background(), uuid.New(), CreateInput{Title: "Over quota"})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeQuotaExceeded {
		t.Fatalf("expected quota exceeded, got %v", err)
	}
	if created {
		t.Fatal("no row may be written when quota is exceeded")
	}
}

func TestCreateRejectedWithoutEligibleSubscription(t *testing.T) {
	svc := testService(t, &fakeRepository{}, &fakeQuota{})

	_, err := svc.Create(context.Background(), uuid.New(), CreateInput{Title: "No subscription"})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := testService(t, &fakeRepository{}, &fakeQuota{usage: eligibleUsage(30, 0)})

	if _, err := svc.Create(context.Background(), uuid.New(), CreateInput{Title: "   "}); err == nil {
		t.Fatal("expected error for empty title")
	}
	if _, err := svc.Create(context.Background(), uuid.New(), CreateInput{Title: "x", QuestionCount: -1}); err == nil {
		t.Fatal("expected error for negative question count")
	}
}

func TestListReturnsUserRows(t *testing.T) {
	userID := uuid.New()
	repo := &fakeRepository{
		listByUserFn: func(ctx context.Context, uid uuid.UUID, params pagination.Params) ([]models.QuestionSet, int64, error) {
			if uid != userID {
				t.Fatalf("unexpected user id %s", uid)
			}
			return []models.QuestionSet{{ID: uuid.New()}}, 1, nil
		},
	}
	svc := testService(t, repo, &fakeQuota{})

	rows, page, err := svc.List(context.Background(), userID, pagination.Params{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 || page.Total != 1 {
		t.Fatalf("unexpected result %d rows, total %d", len(rows), page.Total)
	}
}
