package subscriptions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/easyq-dev/easyq-backend/pkg/db/models"
	"github.com/easyq-dev/easyq-backend/pkg/enums"
	pkgerrors "github.com/easyq-dev/easyq-backend/pkg/errors"
)

// Usage is the quota snapshot for one subscription. CurrentUsage is always a
// live count of question sets, never a cached counter.
type Usage struct {
	Subscription *models.Subscription `json:"subscription"`
	CurrentUsage int                  `json:"current_usage"`
	Limit        int                  `json:"limit"`
	Remaining    int                  `json:"remaining"`
}

// QuotaExceededDetails rides on the quota error so clients can render an
// upgrade prompt.
type QuotaExceededDetails struct {
	Limit   int `json:"limit"`
	Current int `json:"current"`
}

// TrackUsage checks the caller's quota against their currently selected
// subscription. Returns nil when no eligible subscription exists; the caller
// decides how to handle that. The check is advisory-then-enforced with no row
// locking, so concurrent creations near the boundary can overshoot slightly.
func (s *Service) TrackUsage(ctx context.Context, userID uuid.UUID) (*Usage, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	now := time.Now().UTC()
	sub, err := s.repo.FindUserActive(ctx, userID, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find selected subscription")
	}
	if sub == nil {
		return nil, nil
	}

	return s.usageFor(ctx, sub, true)
}

func (s *Service) usageFor(ctx context.Context, sub *models.Subscription, enforce bool) (*Usage, error) {
	limit := sub.QuestionLimit
	if limit <= 0 && sub.Package != nil {
		limit = sub.Package.NumberOfQuestions
	}

	used, err := s.repo.CountUsage(ctx, sub.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count question sets")
	}

	current := int(used)
	if enforce && current >= limit {
		if s.metrics != nil {
			s.metrics.IncQuotaDenied()
		}
		return nil, pkgerrors.New(pkgerrors.CodeQuotaExceeded, "question limit reached").
			WithDetails(QuotaExceededDetails{Limit: limit, Current: current})
	}

	remaining := limit - current
	if remaining < 0 {
		remaining = 0
	}
	return &Usage{
		Subscription: sub,
		CurrentUsage: current,
		Limit:        limit,
		Remaining:    remaining,
	}, nil
}

// ActiveResult is the dashboard read model: the resolved current subscription
// plus every switchable sibling, each with live usage.
type ActiveResult struct {
	Current         *Usage  `json:"current"`
	Subscriptions   []Usage `json:"subscriptions"`
	AutoProvisioned bool    `json:"auto_provisioned"`
}

// GetActive resolves the subscription to display, healing missing state along
// the way: promote an approved subscription when none is selected, or
// provision the free package for users with nothing usable.
func (s *Service) GetActive(ctx context.Context, userID uuid.UUID) (*ActiveResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	now := time.Now().UTC()

	current, err := s.repo.FindUserActive(ctx, userID, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find selected subscription")
	}

	result := &ActiveResult{}

	if current == nil {
		current, err = s.promoteMostRecent(ctx, userID, now)
		if err != nil {
			return nil, err
		}
	}
	if current == nil {
		current, err = s.provisionFree(ctx, userID, now)
		if err != nil {
			return nil, err
		}
		result.AutoProvisioned = true
	}

	usage, err := s.usageFor(ctx, current, false)
	if err != nil {
		return nil, err
	}
	result.Current = usage

	siblings, err := s.repo.ListEligible(ctx, userID, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list subscriptions")
	}
	result.Subscriptions = make([]Usage, 0, len(siblings))
	for i := range siblings {
		u, err := s.usageFor(ctx, &siblings[i], false)
		if err != nil {
			return nil, err
		}
		result.Subscriptions = append(result.Subscriptions, *u)
	}

	return result, nil
}

// promoteMostRecent selects the newest approved unexpired subscription when
// the user has eligible subscriptions but none selected.
func (s *Service) promoteMostRecent(ctx context.Context, userID uuid.UUID, now time.Time) (*models.Subscription, error) {
	candidate, err := s.repo.FindAdminActive(ctx, userID, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find approved subscription")
	}
	if candidate == nil {
		return nil, nil
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.ClearUserActive(ctx, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear current selection")
		}
		candidate.UserActive = true
		if err := repo.UpdateSubscription(ctx, candidate); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "promote subscription")
		}
		if candidate.Package != nil {
			if err := repo.UpdateUserCurrentPackage(ctx, userID, candidate.Package.DisplayName); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update current package")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithSubscriptionID(s.logg.WithUserID(ctx, userID.String()), candidate.ID.String()), "subscription promoted")
	return candidate, nil
}

// provisionFree guarantees every user ends up with exactly one free
// subscription when nothing else is usable.
func (s *Service) provisionFree(ctx context.Context, userID uuid.UUID, now time.Time) (*models.Subscription, error) {
	freePkg, err := s.packages.FindBySlug(ctx, s.billing.FreePackageSlug)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find free package")
	}
	if freePkg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "free package is not configured")
	}

	existing, err := s.repo.FindLatestByPackage(ctx, userID, freePkg.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find free subscription")
	}

	var provisioned *models.Subscription
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if existing != nil && !existing.IsExpired(now) {
			existing.IsActive = true
			existing.UserActive = true
			if err := repo.ClearUserActive(ctx, userID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear current selection")
			}
			if err := repo.UpdateSubscription(ctx, existing); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reactivate free subscription")
			}
			provisioned = existing
		} else {
			payment := &models.Payment{
				UserID:     userID,
				PackageID:  freePkg.ID,
				Price:      freePkg.Price,
				Discount:   freePkg.Price.Sub(freePkg.FinalPrice()),
				FinalPrice: freePkg.FinalPrice(),
				Currency:   freePkg.Currency,
				Method:     enums.PaymentMethodFree,
				Status:     enums.PaymentStatusCompleted,
			}
			if err := repo.CreatePayment(ctx, payment); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create free payment")
			}
			sub := &models.Subscription{
				UserID:        userID,
				PackageID:     freePkg.ID,
				PaymentID:     payment.ID,
				StartDate:     now,
				EndDate:       freePkg.Duration.EndDateFrom(now),
				IsActive:      true,
				UserActive:    true,
				QuestionLimit: freePkg.NumberOfQuestions,
				Package:       freePkg,
				Payment:       payment,
			}
			if err := repo.ClearUserActive(ctx, userID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear current selection")
			}
			if err := repo.CreateSubscription(ctx, sub); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create free subscription")
			}
			provisioned = sub
		}

		if err := repo.UpdateUserCurrentPackage(ctx, userID, freePkg.DisplayName); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update current package")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithUserID(ctx, userID.String()), "free subscription provisioned")
	return provisioned, nil
}
