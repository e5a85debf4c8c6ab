package packages

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/easyq-dev/easyq-backend/pkg/db/models"
	"github.com/easyq-dev/easyq-backend/pkg/pagination"
)

// Repository exposes package persistence operations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, pkg *models.Package) error
	Update(ctx context.Context, pkg *models.Package) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Package, error)
	FindBySlug(ctx context.Context, slug string) (*models.Package, error)
	ListActive(ctx context.Context) ([]models.Package, error)
	List(ctx context.Context, params pagination.Params) ([]models.Package, int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a package repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, pkg *models.Package) error {
	return r.db.WithContext(ctx).Create(pkg).Error
}

func (r *repository) Update(ctx context.Context, pkg *models.Package) error {
	return r.db.WithContext(ctx).Save(pkg).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Package, error) {
	var pkg models.Package
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&pkg).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &pkg, nil
}

func (r *repository) FindBySlug(ctx context.Context, slug string) (*models.Package, error) {
	var pkg models.Package
	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&pkg).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &pkg, nil
}

func (r *repository) ListActive(ctx context.Context) ([]models.Package, error) {
	var rows []models.Package
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_order ASC").
		Order("price ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) List(ctx context.Context, params pagination.Params) ([]models.Package, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Package{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Package
	err := query.
		Order(params.OrderClause("sort_order", "created_at", "price", "display_name")).
		Offset(params.Offset()).
		Limit(pagination.NormalizeLimit(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
