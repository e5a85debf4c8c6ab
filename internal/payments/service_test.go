package payments

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/easyq-dev/easyq-backend/pkg/db/models"
	"github.com/easyq-dev/easyq-backend/pkg/enums"
	pkgerrors "github.com/easyq-dev/easyq-backend/pkg/errors"
	"github.com/easyq-dev/easyq-backend/pkg/logger"
	"github.com/easyq-dev/easyq-backend/pkg/pagination"
)

type fakeRepository struct {
	findByIDFn                func(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	updateFn                  func(ctx context.Context, payment *models.Payment) error
	listFn                    func(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Payment, int64, error)
	findSubsByPaymentFn       func(ctx context.Context, paymentID uuid.UUID) ([]models.Subscription, error)
	findSubscriptionByIDFn    func(ctx context.Context, id uuid.UUID) (*models.Subscription, error)
	updateSubscriptionFn      func(ctx context.Context, sub *models.Subscription) error
	deactivateOtherSubsFn     func(ctx context.Context, userID, exceptID uuid.UUID) error
	hasSelectedFn             func(ctx context.Context, userID uuid.UUID, now time.Time) (bool, error)
	findUserFn                func(ctx context.Context, userID uuid.UUID) (*models.User, error)
	updateCurrentPackageFn    func(ctx context.Context, userID uuid.UUID, displayName string) error
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (f *fakeRepository) Update(ctx context.Context, payment *models.Payment) error {
	if f.updateFn != nil {
		return f.updateFn(ctx, payment)
	}
	return nil
}

func (f *fakeRepository) List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Payment, int64, error) {
	if f.listFn != nil {
		return f.listFn(ctx, filter, params)
	}
	return nil, 0, nil
}

func (f *fakeRepository) FindSubscriptionsByPayment(ctx context.Context, paymentID uuid.UUID) ([]models.Subscription, error) {
	if f.findSubsByPaymentFn != nil {
		return f.findSubsByPaymentFn(ctx, paymentID)
	}
	return nil, nil
}

func (f *fakeRepository) FindSubscriptionByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	if f.findSubscriptionByIDFn != nil {
		return f.findSubscriptionByIDFn(ctx, id)
	}
	return nil, nil
}

func (f *fakeRepository) UpdateSubscription(ctx context.Context, sub *models.Subscription) error {
	if f.updateSubscriptionFn != nil {
		return f.updateSubscriptionFn(ctx, sub)
	}
	return nil
}

func (f *fakeRepository) DeactivateOtherSubscriptions(ctx context.Context, userID, exceptID uuid.UUID) error {
	if f.deactivateOtherSubsFn != nil {
		return f.deactivateOtherSubsFn(ctx, userID, exceptID)
	}
	return nil
}

func (f *fakeRepository) HasSelectedSubscription(ctx context.Context, userID uuid.UUID, now time.Time) (bool, error) {
	if f.hasSelectedFn != nil {
		return f.hasSelectedFn(ctx, userID, now)
	}
	return false, nil
}

func (f *fakeRepository) FindUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	if f.findUserFn != nil {
		return f.findUserFn(ctx, userID)
	}
	return nil, nil
}

func (f *fakeRepository) UpdateUserCurrentPackage(ctx context.Context, userID uuid.UUID, displayName string) error {
	if f.updateCurrentPackageFn != nil {
		return f.updateCurrentPackageFn(ctx, userID, displayName)
	}
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func testService(t *testing.T, repo Repository) *Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
	svc, err := NewService(ServiceParams{Repo: repo, Tx: stubTxRunner{}, Logger: logg})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func pendingPayment() *models.Payment {
	return &models.Payment{
		ID:         uuid.New(),
		UserID:     uuid.New(),
		PackageID:  uuid.New(),
		Status:     enums.PaymentStatusPending,
		FinalPrice: decimal.NewFromInt(500),
		Package:    &models.Package{ID: uuid.New(), Slug: "premium", DisplayName: "Premium"},
	}
}

func TestVerifyPaymentCompletedActivatesLinkedSubscriptions(t *testing.T) {
	payment := pendingPayment()
	linked := models.Subscription{
		ID:        uuid.New(),
		UserID:    payment.UserID,
		PaymentID: payment.ID,
	}

	var savedPayment *models.Payment
	var savedSubs []models.Subscription
	currentPackage := ""
	repo := &fakeRepository{
		findByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
			return payment, nil
		},
		updateFn: func(ctx context.Context, p *models.Payment) error {
			savedPayment = p
			return nil
		},
		findSubsByPaymentFn: func(ctx context.Context, paymentID uuid.UUID) ([]models.Subscription, error) {
			return []models.Subscription{linked}, nil
		},
		updateSubscriptionFn: func(ctx context.Context, sub *models.Subscription) error {
			savedSubs = append(savedSubs, *sub)
			return nil
		},
		updateCurrentPackageFn: func(ctx context.Context, uid uuid.UUID, name string) error {
			currentPackage = name
			return nil
		},
	}
	svc := testService(t, repo)

	notes := "bkash ref checked"
	result, err := svc.VerifyPayment(context.Background(), payment.ID, enums.PaymentStatusCompleted, &notes)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	if savedPayment == nil || savedPayment.Status != enums.PaymentStatusCompleted {
		t.Fatalf("payment must be completed, got %+v", savedPayment)
	}
	if savedPayment.Notes == nil || *savedPayment.Notes != notes {
		t.Fatal("notes must be recorded")
	}
	if len(savedSubs) != 1 || !savedSubs[0].IsActive {
		t.Fatalf("linked subscription must be activated, got %+v", savedSubs)
	}
	if !savedSubs[0].UserActive {
		t.Fatal("first activated subscription must become the selection")
	}
	if currentPackage != "Premium" {
		t.Fatalf("unexpected current package %q", currentPackage)
	}
	if !result.Changed {
		t.Fatal("expected changed result")
	}
}

func TestVerifyPaymentCompletedKeepsExistingSelection(t *testing.T) {
	payment := pendingPayment()
	linked := models.Subscription{ID: uuid.New(), UserID: payment.UserID, PaymentID: payment.ID}

	var savedSub *models.Subscription
	repo := &fakeRepository{
		findByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
			return payment, nil
		},
		findSubsByPaymentFn: func(ctx context.Context, paymentID uuid.UUID) ([]models.Subscription, error) {
			return []models.Subscription{linked}, nil
		},
		hasSelectedFn: func(ctx context.Context, userID uuid.UUID, now time.Time) (bool, error) {
			return true, nil
		},
		updateSubscriptionFn: func(ctx context.Context, sub *models.Subscription) error {
			savedSub = sub
			return nil
		},
	}
	svc := testService(t, repo)

	if _, err := svc.VerifyPayment(context.Background(), payment.ID, enums.PaymentStatusCompleted, nil); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if savedSub == nil || !savedSub.IsActive {
		t.Fatal("subscription must be activated")
	}
	if savedSub.UserActive {
		t.Fatal("existing selection must not be stolen")
	}
}

func TestVerifyPaymentFailedLeavesSubscriptionsUntouched(t *testing.T) {
	payment := pendingPayment()

	subLookups := 0
	subWrites := 0
	repo := &fakeRepository{
		findByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
			return payment, nil
		},
		findSubsByPaymentFn: func(ctx context.Context, paymentID uuid.UUID) ([]models.Subscription, error) {
			subLookups++
			return nil, nil
		},
		updateSubscriptionFn: func(ctx context.Context, sub *models.Subscription) error {
			subWrites++
			return nil
		},
	}
	svc := testService(t, repo)

	result, err := svc.VerifyPayment(context.Background(), payment.ID, enums.PaymentStatusFailed, nil)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if payment.Status != enums.PaymentStatusFailed {
		t.Fatalf("payment must be failed, got %s", payment.Status)
	}
	if subLookups != 0 || subWrites != 0 {
		t.Fatal("failed verification must not touch subscriptions")
	}
	if !result.Changed {
		t.Fatal("expected changed result")
	}
}

func TestVerifyPaymentSameStatusIsNoOp(t *testing.T) {
	payment := pendingPayment()
	payment.Status = enums.PaymentStatusCompleted

	writes := 0
	repo := &fakeRepository{
		findByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
			return payment, nil
		},
		updateFn: func(ctx context.Context, p *models.Payment) error {
			writes++
			return nil
		},
	}
	svc := testService(t, repo)

	result, err := svc.VerifyPayment(context.Background(), payment.ID, enums.PaymentStatusCompleted, nil)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if result.Changed {
		t.Fatal("same-status verification must be a no-op")
	}
	if result.Message != "no changes made" {
		t.Fatalf("unexpected message %q", result.Message)
	}
	if writes != 0 {
		t.Fatal("no-op must not write")
	}
}

func TestVerifyPaymentSameStatusStillSavesNotes(t *testing.T) {
	payment := pendingPayment()
	payment.Status = enums.PaymentStatusCompleted
	oldNotes := "first review"
	payment.Notes = &oldNotes

	writes := 0
	repo := &fakeRepository{
		findByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
			return payment, nil
		},
		updateFn: func(ctx context.Context, p *models.Payment) error {
			writes++
			return nil
		},
	}
	svc := testService(t, repo)

	notes := "checked against bank statement"
	result, err := svc.VerifyPayment(context.Background(), payment.ID, enums.PaymentStatusCompleted, &notes)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if result.Changed {
		t.Fatal("status must stay a no-op")
	}
	if writes != 1 {
		t.Fatalf("notes update must be persisted once, got %d writes", writes)
	}
	if payment.Notes == nil || *payment.Notes != notes {
		t.Fatalf("notes must be replaced, got %v", payment.Notes)
	}
}

func TestVerifyPaymentNotFound(t *testing.T) {
	svc := testService(t, &fakeRepository{})

	_, err := svc.VerifyPayment(context.Background(), uuid.New(), enums.PaymentStatusCompleted, nil)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestVerifySubscriptionActivateRequiresCompletedPayment(t *testing.T) {
	sub := &models.Subscription{
		ID:      uuid.New(),
		UserID:  uuid.New(),
		Payment: &models.Payment{Status: enums.PaymentStatusPending},
		Package: &models.Package{DisplayName: "Premium"},
	}
	writes := 0
	repo := &fakeRepository{
		findSubscriptionByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
			return sub, nil
		},
		updateSubscriptionFn: func(ctx context.Context, s *models.Subscription) error {
			writes++
			return nil
		},
	}
	svc := testService(t, repo)

	_, err := svc.VerifySubscription(context.Background(), sub.ID, true)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if writes != 0 || sub.IsActive {
		t.Fatal("rejected activation must not mutate the subscription")
	}
}

func TestVerifySubscriptionActivateDemotesOthers(t *testing.T) {
	sub := &models.Subscription{
		ID:      uuid.New(),
		UserID:  uuid.New(),
		EndDate: time.Now().Add(24 * time.Hour),
		Payment: &models.Payment{Status: enums.PaymentStatusCompleted},
		Package: &models.Package{DisplayName: "Premium"},
	}

	var demotedExcept uuid.UUID
	var saved *models.Subscription
	currentPackage := ""
	repo := &fakeRepository{
		findSubscriptionByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
			return sub, nil
		},
		deactivateOtherSubsFn: func(ctx context.Context, userID, exceptID uuid.UUID) error {
			demotedExcept = exceptID
			return nil
		},
		updateSubscriptionFn: func(ctx context.Context, s *models.Subscription) error {
			saved = s
			return nil
		},
		updateCurrentPackageFn: func(ctx context.Context, uid uuid.UUID, name string) error {
			currentPackage = name
			return nil
		},
	}
	svc := testService(t, repo)

	result, err := svc.VerifySubscription(context.Background(), sub.ID, true)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if demotedExcept != sub.ID {
		t.Fatal("all other subscriptions must be demoted in the same transaction")
	}
	if saved == nil || !saved.IsActive || !saved.UserActive {
		t.Fatalf("subscription must be activated and selected, got %+v", saved)
	}
	if currentPackage != "Premium" {
		t.Fatalf("unexpected current package %q", currentPackage)
	}
	if !result.Changed {
		t.Fatal("expected changed result")
	}
}

func TestVerifySubscriptionSameStateIsNoOp(t *testing.T) {
	sub := &models.Subscription{
		ID:       uuid.New(),
		UserID:   uuid.New(),
		IsActive: true,
		Payment:  &models.Payment{Status: enums.PaymentStatusCompleted},
	}
	writes := 0
	repo := &fakeRepository{
		findSubscriptionByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
			return sub, nil
		},
		updateSubscriptionFn: func(ctx context.Context, s *models.Subscription) error {
			writes++
			return nil
		},
	}
	svc := testService(t, repo)

	result, err := svc.VerifySubscription(context.Background(), sub.ID, true)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if result.Changed || result.Message != "no changes made" {
		t.Fatalf("expected no-op, got %+v", result)
	}
	if writes != 0 {
		t.Fatal("no-op must not write")
	}
}

func TestVerifySubscriptionDeactivateClearsSelection(t *testing.T) {
	sub := &models.Subscription{
		ID:         uuid.New(),
		UserID:     uuid.New(),
		IsActive:   true,
		UserActive: true,
		Payment:    &models.Payment{Status: enums.PaymentStatusCompleted},
	}
	var saved *models.Subscription
	repo := &fakeRepository{
		findSubscriptionByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
			return sub, nil
		},
		updateSubscriptionFn: func(ctx context.Context, s *models.Subscription) error {
			saved = s
			return nil
		},
	}
	svc := testService(t, repo)

	if _, err := svc.VerifySubscription(context.Background(), sub.ID, false); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if saved == nil || saved.IsActive || saved.UserActive {
		t.Fatalf("deactivation must clear both flags, got %+v", saved)
	}
}

func TestListPassesFilterThrough(t *testing.T) {
	status := enums.PaymentStatusPending
	repo := &fakeRepository{
		listFn: func(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Payment, int64, error) {
			if filter.Status == nil || *filter.Status != status {
				t.Fatalf("unexpected status filter %+v", filter.Status)
			}
			if filter.Search != "TX-100" {
				t.Fatalf("unexpected search %q", filter.Search)
			}
			return []models.Payment{{ID: uuid.New()}}, 1, nil
		},
	}
	svc := testService(t, repo)

	rows, page, err := svc.List(context.Background(), ListFilter{Status: &status, Search: "TX-100"}, pagination.Params{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 || page.Total != 1 {
		t.Fatalf("unexpected result %d rows, total %d", len(rows), page.Total)
	}
}
