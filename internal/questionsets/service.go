package questionsets

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/easyq-dev/easyq-backend/internal/subscriptions"
	"github.com/easyq-dev/easyq-backend/pkg/db/models"
	pkgerrors "github.com/easyq-dev/easyq-backend/pkg/errors"
	"github.com/easyq-dev/easyq-backend/pkg/logger"
	"github.com/easyq-dev/easyq-backend/pkg/metrics"
	"github.com/easyq-dev/easyq-backend/pkg/pagination"
)

// QuotaTracker gates question set creation against the caller's subscription.
type QuotaTracker interface {
	TrackUsage(ctx context.Context, userID uuid.UUID) (*subscriptions.Usage, error)
}

// ServiceParams groups dependencies for the question set service.
type ServiceParams struct {
	Repo    Repository
	Quota   QuotaTracker
	Metrics *metrics.BillingMetrics
	Logger  *logger.Logger
}

// Service creates and lists question sets, enforcing the quota before every
// insert.
type Service struct {
	repo    Repository
	quota   QuotaTracker
	metrics *metrics.BillingMetrics
	logg    *logger.Logger
}

// NewService builds the question set service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("question sets repository required")
	}
	if params.Quota == nil {
		return nil, errors.New("quota tracker required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	return &Service{
		repo:    params.Repo,
		quota:   params.Quota,
		metrics: params.Metrics,
		logg:    params.Logger,
	}, nil
}

// CreateInput captures a new question set request.
type CreateInput struct {
	Title         string
	Subject       string
	QuestionCount int
}

// CreateResult pairs the created row with the post-creation usage snapshot.
type CreateResult struct {
	QuestionSet *models.QuestionSet  `json:"question_set"`
	Usage       *subscriptions.Usage `json:"usage"`
}

// Create checks the quota and inserts the question set, recording which
// subscription it counts against. The subscription id is fixed at creation so
// later switches do not move historical usage.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*CreateResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if input.QuestionCount < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "question count must not be negative")
	}

	usage, err := s.quota.TrackUsage(ctx, userID)
	if err != nil {
		return nil, err
	}
	if usage == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no active subscription")
	}

	set := &models.QuestionSet{
		UserID:         userID,
		SubscriptionID: usage.Subscription.ID,
		Title:          input.Title,
		Subject:        strings.TrimSpace(input.Subject),
		QuestionCount:  input.QuestionCount,
	}
	if err := s.repo.Create(ctx, set); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create question set")
	}

	if s.metrics != nil {
		s.metrics.IncQuestionSetCreated()
	}
	s.logg.Info(s.logg.WithSubscriptionID(s.logg.WithUserID(ctx, userID.String()), set.SubscriptionID.String()), "question set created")

	usage.CurrentUsage++
	if usage.Remaining > 0 {
		usage.Remaining--
	}
	return &CreateResult{QuestionSet: set, Usage: usage}, nil
}

// List returns the caller's question sets, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.QuestionSet, pagination.Result, error) {
	if userID == uuid.Nil {
		return nil, pagination.Result{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	rows, total, err := s.repo.ListByUser(ctx, userID, params)
	if err != nil {
		return nil, pagination.Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list question sets")
	}
	return rows, pagination.NewResult(params, total), nil
}
