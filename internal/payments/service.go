package payments

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/easyq-dev/easyq-backend/pkg/db/models"
	"github.com/easyq-dev/easyq-backend/pkg/enums"
	pkgerrors "github.com/easyq-dev/easyq-backend/pkg/errors"
	"github.com/easyq-dev/easyq-backend/pkg/logger"
	"github.com/easyq-dev/easyq-backend/pkg/metrics"
	"github.com/easyq-dev/easyq-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Notifier delivers best-effort verification outcome notifications.
type Notifier interface {
	PaymentReviewed(ctx context.Context, user *models.User, payment *models.Payment, pkg *models.Package)
	SubscriptionActivated(ctx context.Context, user *models.User, sub *models.Subscription, pkg *models.Package)
}

// ServiceParams groups dependencies for the verification service.
type ServiceParams struct {
	Repo     Repository
	Tx       txRunner
	Notifier Notifier
	Metrics  *metrics.BillingMetrics
	Logger   *logger.Logger
}

// Service owns the admin-side payment and subscription verification
// workflows plus the administrative payment listing.
type Service struct {
	repo     Repository
	tx       txRunner
	notifier Notifier
	metrics  *metrics.BillingMetrics
	logg     *logger.Logger
}

// NewService builds the verification service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("payments repository required")
	}
	if params.Tx == nil {
		return nil, errors.New("transaction runner required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	return &Service{
		repo:     params.Repo,
		tx:       params.Tx,
		notifier: params.Notifier,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

// VerifyResult reports the outcome of a verification request.
type VerifyResult struct {
	Payment      *models.Payment      `json:"payment,omitempty"`
	Subscription *models.Subscription `json:"subscription,omitempty"`
	Changed      bool                 `json:"changed"`
	Message      string               `json:"message"`
}

// VerifyPayment moves a payment to the requested status. Only the transition
// to completed activates the linked subscriptions and repoints the user's
// current package; failed and refunded leave subscription flags untouched.
// Requesting the current status is an idempotent no-op.
func (s *Service) VerifyPayment(ctx context.Context, paymentID uuid.UUID, newStatus enums.PaymentStatus, notes *string) (*VerifyResult, error) {
	if paymentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	if !newStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status")
	}

	payment, err := s.repo.FindByID(ctx, paymentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find payment")
	}
	if payment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}

	if payment.Status == newStatus {
		// Status is a no-op, but fresh notes still land.
		if applyNotes(payment, notes) {
			if err := s.repo.Update(ctx, payment); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment notes")
			}
		}
		return &VerifyResult{Payment: payment, Changed: false, Message: "no changes made"}, nil
	}

	var activated []models.Subscription
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		payment.Status = newStatus
		applyNotes(payment, notes)
		if err := repo.Update(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment")
		}

		if newStatus != enums.PaymentStatusCompleted {
			return nil
		}

		subs, err := repo.FindSubscriptionsByPayment(ctx, payment.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find linked subscriptions")
		}

		now := time.Now().UTC()
		selected, err := repo.HasSelectedSubscription(ctx, payment.UserID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check selected subscription")
		}

		for i := range subs {
			sub := &subs[i]
			sub.IsActive = true
			if !selected {
				sub.UserActive = true
				selected = true
			}
			if err := repo.UpdateSubscription(ctx, sub); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "activate subscription")
			}
			activated = append(activated, *sub)
		}

		if payment.Package != nil {
			if err := repo.UpdateUserCurrentPackage(ctx, payment.UserID, payment.Package.DisplayName); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update current package")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncVerification(newStatus.String())
	}
	s.logg.Info(s.logg.WithUserID(ctx, payment.UserID.String()), "payment verified as "+newStatus.String())

	s.notifyReviewed(ctx, payment, activated)

	result := &VerifyResult{Payment: payment, Changed: true, Message: "payment updated"}
	if len(activated) > 0 {
		result.Subscription = &activated[0]
	}
	return result, nil
}

// applyNotes overwrites the payment notes when the request carries new
// content. Blank or unchanged notes are ignored.
func applyNotes(payment *models.Payment, notes *string) bool {
	if notes == nil {
		return false
	}
	trimmed := strings.TrimSpace(*notes)
	if trimmed == "" {
		return false
	}
	if payment.Notes != nil && *payment.Notes == trimmed {
		return false
	}
	payment.Notes = &trimmed
	return true
}

// VerifySubscription flips the admin approval gate directly. Activation
// demands a completed payment, demotes every other active subscription of the
// user in the same transaction, and selects the subscription when the user
// has none selected. Same-state requests are no-ops.
func (s *Service) VerifySubscription(ctx context.Context, subscriptionID uuid.UUID, isActive bool) (*VerifyResult, error) {
	if subscriptionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription id is required")
	}

	sub, err := s.repo.FindSubscriptionByID(ctx, subscriptionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find subscription")
	}
	if sub == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
	}

	if sub.IsActive == isActive {
		return &VerifyResult{Subscription: sub, Changed: false, Message: "no changes made"}, nil
	}

	if isActive && (sub.Payment == nil || !sub.Payment.IsCompleted()) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "payment has not been completed")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		sub.IsActive = isActive
		if isActive {
			if err := repo.DeactivateOtherSubscriptions(ctx, sub.UserID, sub.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate other subscriptions")
			}
			now := time.Now().UTC()
			selected, err := repo.HasSelectedSubscription(ctx, sub.UserID, now)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check selected subscription")
			}
			if !selected {
				sub.UserActive = true
			}
		} else {
			sub.UserActive = false
		}

		if err := repo.UpdateSubscription(ctx, sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update subscription")
		}

		if isActive && sub.Package != nil {
			if err := repo.UpdateUserCurrentPackage(ctx, sub.UserID, sub.Package.DisplayName); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update current package")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithSubscriptionID(s.logg.WithUserID(ctx, sub.UserID.String()), sub.ID.String()), "subscription verification updated")

	if isActive {
		s.notifyActivated(ctx, sub)
	}

	return &VerifyResult{Subscription: sub, Changed: true, Message: "subscription updated"}, nil
}

// List returns the paginated administrative payment table.
func (s *Service) List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Payment, pagination.Result, error) {
	rows, total, err := s.repo.List(ctx, filter, params)
	if err != nil {
		return nil, pagination.Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	return rows, pagination.NewResult(params, total), nil
}

func (s *Service) notifyReviewed(ctx context.Context, payment *models.Payment, activated []models.Subscription) {
	if s.notifier == nil || payment.Package == nil {
		return
	}
	user, err := s.repo.FindUser(ctx, payment.UserID)
	if err != nil || user == nil {
		if err != nil {
			s.logg.Warn(ctx, "load user for verification notification: "+err.Error())
		}
		return
	}
	s.notifier.PaymentReviewed(ctx, user, payment, payment.Package)
	for i := range activated {
		s.notifier.SubscriptionActivated(ctx, user, &activated[i], payment.Package)
	}
}

func (s *Service) notifyActivated(ctx context.Context, sub *models.Subscription) {
	if s.notifier == nil || sub.Package == nil {
		return
	}
	user, err := s.repo.FindUser(ctx, sub.UserID)
	if err != nil || user == nil {
		if err != nil {
			s.logg.Warn(ctx, "load user for activation notification: "+err.Error())
		}
		return
	}
	s.notifier.SubscriptionActivated(ctx, user, sub, sub.Package)
}
