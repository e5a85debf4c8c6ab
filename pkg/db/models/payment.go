package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/easyq-dev/easyq-backend/pkg/enums"
)

// Payment records one purchase attempt against a package. Status transitions
// are admin-driven except for system-generated free-package payments, which
// are born completed.
type Payment struct {
	ID            uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	PackageID     uuid.UUID           `gorm:"column:package_id;type:uuid;not null"`
	Price         decimal.Decimal     `gorm:"column:price;type:numeric(12,2);not null"`
	Discount      decimal.Decimal     `gorm:"column:discount;type:numeric(12,2);not null;default:0"`
	FinalPrice    decimal.Decimal     `gorm:"column:final_price;type:numeric(12,2);not null"`
	PhoneNumber   *string             `gorm:"column:phone_number"`
	TransactionID *string             `gorm:"column:transaction_id;uniqueIndex"`
	Method        enums.PaymentMethod `gorm:"column:method;type:payment_method;not null"`
	Status        enums.PaymentStatus `gorm:"column:status;type:payment_status;not null;default:'pending'"`
	Currency      string              `gorm:"column:currency;not null;default:'BDT'"`
	Notes         *string             `gorm:"column:notes"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`

	Package *Package `gorm:"foreignKey:PackageID"`
}

// IsCompleted reports whether the payment has been verified as completed.
func (p Payment) IsCompleted() bool {
	return p.Status == enums.PaymentStatusCompleted
}
