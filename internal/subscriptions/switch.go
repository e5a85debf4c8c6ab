package subscriptions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/easyq-dev/easyq-backend/pkg/db/models"
	pkgerrors "github.com/easyq-dev/easyq-backend/pkg/errors"
)

// Switch makes the target subscription the one the user draws quota from.
// Only admin-approved, unexpired subscriptions backed by a completed payment
// are switchable; ineligible targets leave every flag untouched.
func (s *Service) Switch(ctx context.Context, userID, subscriptionID uuid.UUID) (*models.Subscription, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if subscriptionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription id is required")
	}

	sub, err := s.repo.FindByID(ctx, subscriptionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find subscription")
	}
	if sub == nil || sub.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
	}

	now := time.Now().UTC()
	if !sub.IsEligible(now) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "subscription is not eligible for selection")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.ClearUserActive(ctx, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear current selection")
		}
		sub.UserActive = true
		if err := repo.UpdateSubscription(ctx, sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "select subscription")
		}
		if sub.Package != nil {
			if err := repo.UpdateUserCurrentPackage(ctx, userID, sub.Package.DisplayName); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update current package")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithSubscriptionID(s.logg.WithUserID(ctx, userID.String()), sub.ID.String()), "subscription switched")
	return sub, nil
}
