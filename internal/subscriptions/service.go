package subscriptions

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/easyq-dev/easyq-backend/internal/packages"
	"github.com/easyq-dev/easyq-backend/pkg/config"
	"github.com/easyq-dev/easyq-backend/pkg/db/models"
	"github.com/easyq-dev/easyq-backend/pkg/enums"
	pkgerrors "github.com/easyq-dev/easyq-backend/pkg/errors"
	"github.com/easyq-dev/easyq-backend/pkg/logger"
	"github.com/easyq-dev/easyq-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Notifier delivers best-effort user notifications. Failures never surface.
type Notifier interface {
	PaymentSubmitted(ctx context.Context, user *models.User, payment *models.Payment, pkg *models.Package)
	SubscriptionActivated(ctx context.Context, user *models.User, sub *models.Subscription, pkg *models.Package)
}

// ServiceParams groups dependencies for the subscription lifecycle service.
type ServiceParams struct {
	Repo     Repository
	Packages packages.Repository
	Tx       txRunner
	Notifier Notifier
	Metrics  *metrics.BillingMetrics
	Logger   *logger.Logger
	Billing  config.BillingConfig
}

// Service owns the purchase, switch, quota and active-resolution operations.
type Service struct {
	repo     Repository
	packages packages.Repository
	tx       txRunner
	notifier Notifier
	metrics  *metrics.BillingMetrics
	logg     *logger.Logger
	billing  config.BillingConfig
}

// NewService builds the subscription service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("subscriptions repository required")
	}
	if params.Packages == nil {
		return nil, errors.New("packages repository required")
	}
	if params.Tx == nil {
		return nil, errors.New("transaction runner required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Billing.FreePackageSlug == "" {
		params.Billing.FreePackageSlug = "free"
	}
	return &Service{
		repo:     params.Repo,
		packages: params.Packages,
		tx:       params.Tx,
		notifier: params.Notifier,
		metrics:  params.Metrics,
		logg:     params.Logger,
		billing:  params.Billing,
	}, nil
}

// PurchaseInput captures a purchase or repurchase request.
type PurchaseInput struct {
	PackageID       uuid.UUID
	PhoneNumber     *string
	TransactionID   *string
	Method          enums.PaymentMethod
	ReplaceExisting bool
}

// PurchaseResult is the bundle returned to the caller after a purchase.
type PurchaseResult struct {
	Subscription     *models.Subscription `json:"subscription"`
	Payment          *models.Payment      `json:"payment"`
	Package          *models.Package      `json:"package"`
	IsActive         bool                 `json:"is_active"`
	IsFree           bool                 `json:"is_free"`
	IsRepurchase     bool                 `json:"is_repurchase"`
	NewQuestionLimit *int                 `json:"new_question_limit,omitempty"`
}

// ActiveSubscriptionConflictDetails is attached to the conflict error so the
// caller can render a replace-confirmation prompt.
type ActiveSubscriptionConflictDetails struct {
	CurrentPackage string `json:"current_package"`
}

// Purchase creates a Payment plus Subscription pair, or extends an existing
// free subscription on repurchase. Paid subscriptions start unapproved and
// wait for admin verification; free packages activate immediately and are
// exclusive.
func (s *Service) Purchase(ctx context.Context, userID uuid.UUID, input PurchaseInput) (*PurchaseResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.PackageID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "package id is required")
	}

	pkg, err := s.packages.FindByID(ctx, input.PackageID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find package")
	}
	if pkg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "package not found")
	}
	if !pkg.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "package is no longer available")
	}

	isFree := pkg.IsFree()
	if !isFree && !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if !isFree && input.Method == enums.PaymentMethodFree {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method not allowed for paid packages")
	}

	now := time.Now().UTC()

	samePackageSub, err := s.repo.FindCurrentByPackage(ctx, userID, pkg.ID, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find package subscription")
	}
	if isFree && samePackageSub != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "free package already used")
	}

	activeSub, err := s.repo.FindAdminActive(ctx, userID, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find active subscription")
	}
	if activeSub != nil && activeSub.PackageID != pkg.ID && !input.ReplaceExisting && samePackageSub == nil {
		conflicting := activeSub.Package != nil && !activeSub.Package.IsFree()
		if conflicting {
			current := ""
			if activeSub.Package != nil {
				current = activeSub.Package.DisplayName
			}
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "an active subscription already exists").
				WithDetails(ActiveSubscriptionConflictDetails{CurrentPackage: current})
		}
	}

	transactionID := normalizeTransactionID(input.TransactionID)
	if transactionID != nil {
		existing, err := s.repo.FindPaymentByTransactionID(ctx, *transactionID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check transaction id")
		}
		if existing != nil {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "transaction id already used")
		}
	}

	startDate := now
	endDate := pkg.Duration.EndDateFrom(startDate)

	result := &PurchaseResult{Package: pkg, IsFree: isFree}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		payment := buildPayment(userID, pkg, input, isFree, transactionID)
		if err := repo.CreatePayment(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
		}
		result.Payment = payment

		var existingFree *models.Subscription
		if isFree {
			latest, err := repo.FindLatestByPackage(ctx, userID, pkg.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find free subscription")
			}
			existingFree = latest
		}

		switch {
		case existingFree != nil:
			// Expired free grant: extend the one existing row instead of
			// creating a second free subscription.
			existing := existingFree
			existing.QuestionLimit += pkg.NumberOfQuestions
			if endDate.After(existing.EndDate) {
				existing.EndDate = endDate
			}
			existing.IsActive = true
			existing.UserActive = true
			if err := repo.DeactivateOthers(ctx, userID, existing.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate other subscriptions")
			}
			if err := repo.UpdateSubscription(ctx, existing); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "extend free subscription")
			}
			if err := repo.UpdateUserCurrentPackage(ctx, userID, pkg.DisplayName); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update current package")
			}
			result.Subscription = existing
			result.IsActive = true
			result.IsRepurchase = true
			limit := existing.QuestionLimit
			result.NewQuestionLimit = &limit

		case !isFree && samePackageSub != nil:
			// Paid repurchase: a fresh row awaiting its own admin approval.
			sub := &models.Subscription{
				UserID:        userID,
				PackageID:     pkg.ID,
				PaymentID:     payment.ID,
				StartDate:     startDate,
				EndDate:       endDate,
				QuestionLimit: pkg.NumberOfQuestions,
			}
			if err := repo.CreateSubscription(ctx, sub); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create subscription")
			}
			result.Subscription = sub
			result.IsRepurchase = true

		default:
			if isFree {
				if err := repo.DeactivateOthers(ctx, userID, uuid.Nil); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate other subscriptions")
				}
			}
			sub := &models.Subscription{
				UserID:        userID,
				PackageID:     pkg.ID,
				PaymentID:     payment.ID,
				StartDate:     startDate,
				EndDate:       endDate,
				IsActive:      isFree,
				UserActive:    isFree,
				QuestionLimit: pkg.NumberOfQuestions,
			}
			if err := repo.CreateSubscription(ctx, sub); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create subscription")
			}
			if isFree {
				if err := repo.UpdateUserCurrentPackage(ctx, userID, pkg.DisplayName); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update current package")
				}
			}
			result.Subscription = sub
			result.IsActive = isFree
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncPurchase(pkg.Slug)
	}
	s.logg.Info(s.logg.WithPackageSlug(s.logg.WithUserID(ctx, userID.String()), pkg.Slug), "subscription purchased")

	s.notifyPurchase(ctx, userID, result)

	return result, nil
}

func (s *Service) notifyPurchase(ctx context.Context, userID uuid.UUID, result *PurchaseResult) {
	if s.notifier == nil {
		return
	}
	user, err := s.repo.FindUser(ctx, userID)
	if err != nil || user == nil {
		if err != nil {
			s.logg.Warn(ctx, "load user for purchase notification: "+err.Error())
		}
		return
	}
	if result.IsFree {
		s.notifier.SubscriptionActivated(ctx, user, result.Subscription, result.Package)
		return
	}
	s.notifier.PaymentSubmitted(ctx, user, result.Payment, result.Package)
}

func buildPayment(userID uuid.UUID, pkg *models.Package, input PurchaseInput, isFree bool, transactionID *string) *models.Payment {
	finalPrice := pkg.FinalPrice()
	discount := pkg.Price.Sub(finalPrice)

	payment := &models.Payment{
		UserID:      userID,
		PackageID:   pkg.ID,
		Price:       pkg.Price,
		Discount:    discount,
		FinalPrice:  finalPrice,
		PhoneNumber: input.PhoneNumber,
		Currency:    pkg.Currency,
		Status:      enums.PaymentStatusPending,
		Method:      input.Method,
	}
	if isFree {
		payment.Status = enums.PaymentStatusCompleted
		payment.Method = enums.PaymentMethodFree
		payment.TransactionID = nil
	} else {
		payment.TransactionID = transactionID
	}
	return payment
}

func normalizeTransactionID(raw *string) *string {
	if raw == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*raw)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
