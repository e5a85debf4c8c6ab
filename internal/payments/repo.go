package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/easyq-dev/easyq-backend/pkg/db/models"
	"github.com/easyq-dev/easyq-backend/pkg/enums"
	"github.com/easyq-dev/easyq-backend/pkg/pagination"
)

// Repository exposes payment persistence plus the subscription and user rows
// the verification transitions mutate alongside.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	Update(ctx context.Context, payment *models.Payment) error
	List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Payment, int64, error)

	FindSubscriptionsByPayment(ctx context.Context, paymentID uuid.UUID) ([]models.Subscription, error)
	FindSubscriptionByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error)
	UpdateSubscription(ctx context.Context, sub *models.Subscription) error
	DeactivateOtherSubscriptions(ctx context.Context, userID, exceptID uuid.UUID) error
	// HasSelectedSubscription reports whether the user already has an
	// eligible user_active subscription.
	HasSelectedSubscription(ctx context.Context, userID uuid.UUID, now time.Time) (bool, error)

	FindUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
	UpdateUserCurrentPackage(ctx context.Context, userID uuid.UUID, displayName string) error
}

// ListFilter narrows the admin payment listing. Search matches transaction id
// or phone number.
type ListFilter struct {
	Status *enums.PaymentStatus
	UserID *uuid.UUID
	Search string
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payment repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Preload("Package").
		Where("id = ?", id).
		First(&payment).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

func (r *repository) Update(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Save(payment).Error
}

func (r *repository) List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Payment, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Payment{})

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("transaction_id ILIKE ? OR phone_number ILIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Payment
	err := query.
		Preload("Package").
		Order(params.OrderClause("created_at", "final_price", "status")).
		Offset(params.Offset()).
		Limit(pagination.NormalizeLimit(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repository) FindSubscriptionsByPayment(ctx context.Context, paymentID uuid.UUID) ([]models.Subscription, error) {
	var rows []models.Subscription
	err := r.db.WithContext(ctx).
		Preload("Package").
		Where("payment_id = ?", paymentID).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) FindSubscriptionByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).
		Preload("Package").
		Preload("Payment").
		Where("id = ?", id).
		First(&sub).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *repository) UpdateSubscription(ctx context.Context, sub *models.Subscription) error {
	return r.db.WithContext(ctx).Save(sub).Error
}

func (r *repository) DeactivateOtherSubscriptions(ctx context.Context, userID, exceptID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("user_id = ? AND id <> ? AND is_active = ?", userID, exceptID, true).
		Updates(map[string]any{"is_active": false, "user_active": false}).Error
}

func (r *repository) HasSelectedSubscription(ctx context.Context, userID uuid.UUID, now time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Joins("JOIN payments ON payments.id = subscriptions.payment_id AND payments.status = ?", enums.PaymentStatusCompleted).
		Where("subscriptions.user_id = ? AND subscriptions.user_active = ? AND subscriptions.is_active = ? AND subscriptions.end_date > ?", userID, true, true, now).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) FindUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *repository) UpdateUserCurrentPackage(ctx context.Context, userID uuid.UUID, displayName string) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("current_package", displayName).Error
}
