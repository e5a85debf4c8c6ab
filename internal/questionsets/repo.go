package questionsets

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/easyq-dev/easyq-backend/pkg/db/models"
	"github.com/easyq-dev/easyq-backend/pkg/pagination"
)

// Repository exposes question set persistence operations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, set *models.QuestionSet) error
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.QuestionSet, int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a question set repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, set *models.QuestionSet) error {
	return r.db.WithContext(ctx).Create(set).Error
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.QuestionSet, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.QuestionSet{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.QuestionSet
	err := query.
		Order(params.OrderClause("created_at", "title")).
		Offset(params.Offset()).
		Limit(pagination.NormalizeLimit(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
