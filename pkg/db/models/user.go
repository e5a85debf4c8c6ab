package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/easyq-dev/easyq-backend/pkg/enums"
)

// User represents the canonical identity entity. CurrentPackage is a
// denormalized display string; it is only written inside the same transaction
// that flips subscription flags.
type User struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email          string         `gorm:"type:text;not null;uniqueIndex"`
	Phone          *string        `gorm:"column:phone"`
	DisplayName    string         `gorm:"column:display_name;not null"`
	Role           enums.UserRole `gorm:"column:role;type:user_role;not null;default:'user'"`
	CurrentPackage string         `gorm:"column:current_package;not null;default:''"`
	IsActive       bool           `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
