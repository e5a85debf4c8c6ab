package subscriptions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/easyq-dev/easyq-backend/pkg/db/models"
	"github.com/easyq-dev/easyq-backend/pkg/enums"
	"github.com/easyq-dev/easyq-backend/pkg/pagination"
)

// Repository exposes subscription persistence plus the payment and user rows
// the lifecycle operations touch in the same transaction.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateSubscription(ctx context.Context, sub *models.Subscription) error
	UpdateSubscription(ctx context.Context, sub *models.Subscription) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error)

	// FindUserActive returns the subscription the user currently draws quota
	// from: user_active, admin-approved, unexpired, payment completed.
	FindUserActive(ctx context.Context, userID uuid.UUID, now time.Time) (*models.Subscription, error)
	// FindAdminActive returns the most recent admin-approved unexpired
	// subscription regardless of user selection.
	FindAdminActive(ctx context.Context, userID uuid.UUID, now time.Time) (*models.Subscription, error)
	// FindCurrentByPackage returns an unexpired subscription for the given
	// package backed by a completed payment.
	FindCurrentByPackage(ctx context.Context, userID, packageID uuid.UUID, now time.Time) (*models.Subscription, error)
	// FindLatestByPackage returns the newest subscription for the package
	// with a completed payment, expired or not.
	FindLatestByPackage(ctx context.Context, userID, packageID uuid.UUID) (*models.Subscription, error)
	// ListEligible returns every switchable subscription, newest first.
	ListEligible(ctx context.Context, userID uuid.UUID, now time.Time) ([]models.Subscription, error)

	DeactivateOthers(ctx context.Context, userID uuid.UUID, exceptID uuid.UUID) error
	ClearUserActive(ctx context.Context, userID uuid.UUID) error

	CountUsage(ctx context.Context, subscriptionID uuid.UUID) (int64, error)

	CreatePayment(ctx context.Context, payment *models.Payment) error
	FindPaymentByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error)

	FindUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
	UpdateUserCurrentPackage(ctx context.Context, userID uuid.UUID, displayName string) error

	List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Subscription, int64, error)
}

// ListFilter narrows the admin subscription listing.
type ListFilter struct {
	UserID   *uuid.UUID
	IsActive *bool
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a subscription repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateSubscription(ctx context.Context, sub *models.Subscription) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

func (r *repository) UpdateSubscription(ctx context.Context, sub *models.Subscription) error {
	return r.db.WithContext(ctx).Save(sub).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
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

func (r *repository) FindUserActive(ctx context.Context, userID uuid.UUID, now time.Time) (*models.Subscription, error) {
	return r.firstEligible(ctx, now, func(q *gorm.DB) *gorm.DB {
		return q.Where("subscriptions.user_id = ? AND subscriptions.user_active = ?", userID, true)
	})
}

func (r *repository) FindAdminActive(ctx context.Context, userID uuid.UUID, now time.Time) (*models.Subscription, error) {
	return r.firstEligible(ctx, now, func(q *gorm.DB) *gorm.DB {
		return q.Where("subscriptions.user_id = ?", userID)
	})
}

func (r *repository) FindCurrentByPackage(ctx context.Context, userID, packageID uuid.UUID, now time.Time) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).
		Preload("Package").
		Preload("Payment").
		Joins("JOIN payments ON payments.id = subscriptions.payment_id AND payments.status = ?", enums.PaymentStatusCompleted).
		Where("subscriptions.user_id = ? AND subscriptions.package_id = ? AND subscriptions.end_date > ?", userID, packageID, now).
		Order("subscriptions.created_at DESC").
		First(&sub).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *repository) FindLatestByPackage(ctx context.Context, userID, packageID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).
		Preload("Package").
		Preload("Payment").
		Joins("JOIN payments ON payments.id = subscriptions.payment_id AND payments.status = ?", enums.PaymentStatusCompleted).
		Where("subscriptions.user_id = ? AND subscriptions.package_id = ?", userID, packageID).
		Order("subscriptions.created_at DESC").
		First(&sub).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *repository) ListEligible(ctx context.Context, userID uuid.UUID, now time.Time) ([]models.Subscription, error) {
	var rows []models.Subscription
	err := r.db.WithContext(ctx).
		Preload("Package").
		Preload("Payment").
		Joins("JOIN payments ON payments.id = subscriptions.payment_id AND payments.status = ?", enums.PaymentStatusCompleted).
		Where("subscriptions.user_id = ? AND subscriptions.is_active = ? AND subscriptions.end_date > ?", userID, true, now).
		Order("subscriptions.created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) DeactivateOthers(ctx context.Context, userID uuid.UUID, exceptID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("user_id = ? AND id <> ? AND is_active = ?", userID, exceptID, true).
		Updates(map[string]any{"is_active": false, "user_active": false}).Error
}

func (r *repository) ClearUserActive(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("user_id = ? AND user_active = ?", userID, true).
		Update("user_active", false).Error
}

func (r *repository) CountUsage(ctx context.Context, subscriptionID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.QuestionSet{}).
		Where("subscription_id = ?", subscriptionID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) FindPaymentByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		First(&payment).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
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

func (r *repository) List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Subscription, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Subscription{})

	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Subscription
	err := query.
		Preload("Package").
		Preload("Payment").
		Order(params.OrderClause("created_at", "end_date", "start_date")).
		Offset(params.Offset()).
		Limit(pagination.NormalizeLimit(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repository) firstEligible(ctx context.Context, now time.Time, scope func(*gorm.DB) *gorm.DB) (*models.Subscription, error) {
	var sub models.Subscription
	query := r.db.WithContext(ctx).
		Preload("Package").
		Preload("Payment").
		Joins("JOIN payments ON payments.id = subscriptions.payment_id AND payments.status = ?", enums.PaymentStatusCompleted).
		Where("subscriptions.is_active = ? AND subscriptions.end_date > ?", true, now)

	err := scope(query).
		Order("subscriptions.created_at DESC").
		First(&sub).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}
