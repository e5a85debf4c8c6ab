package models

import (
	"time"

	"github.com/google/uuid"
)

// QuestionSet is one generated exam paper. SubscriptionID is fixed at creation
// time so the set keeps counting against the subscription that paid for it
// even if the user later switches.
type QuestionSet struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	SubscriptionID uuid.UUID `gorm:"column:subscription_id;type:uuid;not null;index"`
	Title          string    `gorm:"column:title;not null"`
	Subject        string    `gorm:"column:subject;not null;default:''"`
	QuestionCount  int       `gorm:"column:question_count;not null;default:0"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
