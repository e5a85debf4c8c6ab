package packages

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/easyq-dev/easyq-backend/pkg/db"
	"github.com/easyq-dev/easyq-backend/pkg/db/models"
	dbtypes "github.com/easyq-dev/easyq-backend/pkg/db/types"
	"github.com/easyq-dev/easyq-backend/pkg/enums"
	pkgerrors "github.com/easyq-dev/easyq-backend/pkg/errors"
	"github.com/easyq-dev/easyq-backend/pkg/logger"
	"github.com/easyq-dev/easyq-backend/pkg/pagination"
)

// ServiceParams groups dependencies for the package catalog service.
type ServiceParams struct {
	Repo   Repository
	Logger *logger.Logger
}

// Service manages the purchasable package catalog.
type Service struct {
	repo Repository
	logg *logger.Logger
}

// NewService builds the catalog service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{repo: params.Repo, logg: params.Logger}, nil
}

// ListCatalog returns the publicly visible packages in display order.
func (s *Service) ListCatalog(ctx context.Context) ([]models.Package, error) {
	rows, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list packages")
	}
	return rows, nil
}

// GetBySlug returns one catalog entry.
func (s *Service) GetBySlug(ctx context.Context, slug string) (*models.Package, error) {
	trimmed := strings.TrimSpace(slug)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "package slug is required")
	}

	pkg, err := s.repo.FindBySlug(ctx, trimmed)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find package")
	}
	if pkg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "package not found")
	}
	return pkg, nil
}

// CreatePackageInput captures the admin create payload.
type CreatePackageInput struct {
	Slug              string
	DisplayName       string
	Price             decimal.Decimal
	OfferPrice        *decimal.Decimal
	Currency          string
	Duration          enums.PackageDuration
	NumberOfQuestions int
	Features          dbtypes.FeatureMap
	Limits            dbtypes.LimitMap
	SortOrder         int
}

// Create adds a new package to the catalog.
func (s *Service) Create(ctx context.Context, input CreatePackageInput) (*models.Package, error) {
	if err := validateCreate(&input); err != nil {
		return nil, err
	}

	pkg := &models.Package{
		Slug:              input.Slug,
		DisplayName:       input.DisplayName,
		Price:             input.Price,
		OfferPrice:        input.OfferPrice,
		Currency:          input.Currency,
		Duration:          input.Duration,
		NumberOfQuestions: input.NumberOfQuestions,
		Features:          input.Features,
		Limits:            input.Limits,
		IsActive:          true,
		SortOrder:         input.SortOrder,
	}

	if err := s.repo.Create(ctx, pkg); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "package slug already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create package")
	}

	s.logg.Info(s.logg.WithPackageSlug(ctx, pkg.Slug), "package created")
	return pkg, nil
}

// UpdatePackageInput captures the admin partial-update payload. Nil fields
// are left untouched. Slug is immutable once created.
type UpdatePackageInput struct {
	DisplayName       *string
	Price             *decimal.Decimal
	OfferPrice        *decimal.Decimal
	ClearOfferPrice   bool
	Currency          *string
	Duration          *enums.PackageDuration
	NumberOfQuestions *int
	Features          dbtypes.FeatureMap
	Limits            dbtypes.LimitMap
	IsActive          *bool
	SortOrder         *int
}

// Update applies a partial update to an existing package. Deactivation is the
// only removal path; there is no hard delete because subscriptions keep
// referencing their package forever.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdatePackageInput) (*models.Package, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "package id is required")
	}

	pkg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find package")
	}
	if pkg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "package not found")
	}

	applyUpdate(pkg, input)

	if pkg.NumberOfQuestions <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "number of questions must be positive")
	}
	if pkg.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	if pkg.OfferPrice != nil && pkg.OfferPrice.GreaterThan(pkg.Price) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "offer price must not exceed price")
	}
	if !pkg.Duration.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid package duration")
	}

	if err := s.repo.Update(ctx, pkg); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update package")
	}

	s.logg.Info(s.logg.WithPackageSlug(ctx, pkg.Slug), "package updated")
	return pkg, nil
}

// List returns all packages for the admin table, inactive ones included.
func (s *Service) List(ctx context.Context, params pagination.Params) ([]models.Package, pagination.Result, error) {
	rows, total, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pagination.Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list packages")
	}
	return rows, pagination.NewResult(params, total), nil
}

func validateCreate(input *CreatePackageInput) error {
	input.Slug = strings.ToLower(strings.TrimSpace(input.Slug))
	input.DisplayName = strings.TrimSpace(input.DisplayName)
	input.Currency = strings.ToUpper(strings.TrimSpace(input.Currency))

	if input.Slug == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "package slug is required")
	}
	if input.DisplayName == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "display name is required")
	}
	if input.Price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	if input.OfferPrice != nil && input.OfferPrice.GreaterThan(input.Price) {
		return pkgerrors.New(pkgerrors.CodeValidation, "offer price must not exceed price")
	}
	if !input.Duration.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid package duration")
	}
	if input.NumberOfQuestions <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "number of questions must be positive")
	}
	if input.Currency == "" {
		input.Currency = "BDT"
	}
	return nil
}

func applyUpdate(pkg *models.Package, input UpdatePackageInput) {
	if input.DisplayName != nil {
		pkg.DisplayName = strings.TrimSpace(*input.DisplayName)
	}
	if input.Price != nil {
		pkg.Price = *input.Price
	}
	if input.ClearOfferPrice {
		pkg.OfferPrice = nil
	} else if input.OfferPrice != nil {
		pkg.OfferPrice = input.OfferPrice
	}
	if input.Currency != nil {
		pkg.Currency = strings.ToUpper(strings.TrimSpace(*input.Currency))
	}
	if input.Duration != nil {
		pkg.Duration = *input.Duration
	}
	if input.NumberOfQuestions != nil {
		pkg.NumberOfQuestions = *input.NumberOfQuestions
	}
	if input.Features != nil {
		pkg.Features = input.Features
	}
	if input.Limits != nil {
		pkg.Limits = input.Limits
	}
	if input.IsActive != nil {
		pkg.IsActive = *input.IsActive
	}
	if input.SortOrder != nil {
		pkg.SortOrder = *input.SortOrder
	}
}
