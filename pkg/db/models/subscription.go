package models

import (
	"time"

	"github.com/google/uuid"
)

// Subscription binds a user to a package through a payment. IsActive is the
// admin approval gate; UserActive marks the subscription the user currently
// draws quota from (at most one per user among eligible subscriptions).
// QuestionLimit is subscription-specific: same-package repurchases raise it
// past the package default, and it never decreases.
type Subscription struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	PackageID     uuid.UUID `gorm:"column:package_id;type:uuid;not null"`
	PaymentID     uuid.UUID `gorm:"column:payment_id;type:uuid;not null"`
	StartDate     time.Time `gorm:"column:start_date;not null"`
	EndDate       time.Time `gorm:"column:end_date;not null"`
	IsActive      bool      `gorm:"column:is_active;not null;default:false"`
	UserActive    bool      `gorm:"column:user_active;not null;default:false"`
	QuestionLimit int       `gorm:"column:question_limit;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`

	Package *Package `gorm:"foreignKey:PackageID"`
	Payment *Payment `gorm:"foreignKey:PaymentID"`
}

// IsExpired reports whether the subscription window has closed. Expiration is
// always derived from EndDate, never stored.
func (s Subscription) IsExpired(now time.Time) bool {
	return !s.EndDate.After(now)
}

// IsEligible reports whether the subscription can be selected or drawn
// against: admin-approved, unexpired, and backed by a completed payment.
func (s Subscription) IsEligible(now time.Time) bool {
	return s.IsActive && !s.IsExpired(now) && s.Payment != nil && s.Payment.IsCompleted()
}
