package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	dbtypes "github.com/easyq-dev/easyq-backend/pkg/db/types"
	"github.com/easyq-dev/easyq-backend/pkg/enums"
)

// Package describes a purchasable question-bank plan.
type Package struct {
	ID                uuid.UUID             `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Slug              string                `gorm:"column:slug;not null;uniqueIndex"`
	DisplayName       string                `gorm:"column:display_name;not null"`
	Price             decimal.Decimal       `gorm:"column:price;type:numeric(12,2);not null"`
	OfferPrice        *decimal.Decimal      `gorm:"column:offer_price;type:numeric(12,2)"`
	Currency          string                `gorm:"column:currency;not null;default:'BDT'"`
	Duration          enums.PackageDuration `gorm:"column:duration;type:package_duration;not null"`
	NumberOfQuestions int                   `gorm:"column:number_of_questions;not null"`
	Features          dbtypes.FeatureMap    `gorm:"column:features;type:jsonb;default:'{}'"`
	Limits            dbtypes.LimitMap      `gorm:"column:limits;type:jsonb;default:'{}'"`
	IsActive          bool                  `gorm:"column:is_active;not null;default:true"`
	SortOrder         int                   `gorm:"column:sort_order;not null;default:0"`
	CreatedAt         time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// FinalPrice returns the effective purchase price (offer price when present).
func (p Package) FinalPrice() decimal.Decimal {
	if p.OfferPrice != nil {
		return *p.OfferPrice
	}
	return p.Price
}

// IsFree reports whether the package costs nothing to purchase.
func (p Package) IsFree() bool {
	return p.FinalPrice().IsZero()
}
