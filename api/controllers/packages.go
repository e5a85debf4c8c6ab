package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/easyq-dev/easyq-backend/api/responses"
	"github.com/easyq-dev/easyq-backend/pkg/db/models"
	dbtypes "github.com/easyq-dev/easyq-backend/pkg/db/types"
	"github.com/easyq-dev/easyq-backend/pkg/enums"
	pkgerrors "github.com/easyq-dev/easyq-backend/pkg/errors"
	"github.com/easyq-dev/easyq-backend/pkg/logger"
)

type packageCatalogService interface {
	ListCatalog(ctx context.Context) ([]models.Package, error)
	GetBySlug(ctx context.Context, slug string) (*models.Package, error)
}

// PackagesCatalog lists purchasable packages ordered for storefront display.
func PackagesCatalog(svc packageCatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "package service unavailable"))
			return
		}

		rows, err := svc.ListCatalog(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]packageResponse, 0, len(rows))
		for i := range rows {
			out = append(out, packageResponseFromModel(&rows[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

func PackageBySlug(svc packageCatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "package service unavailable"))
			return
		}

		slug := strings.TrimSpace(chi.URLParam(r, "slug"))
		if slug == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "package slug is required"))
			return
		}

		pkg, err := svc.GetBySlug(r.Context(), slug)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, packageResponseFromModel(pkg))
	}
}

type packageResponse struct {
	ID                uuid.UUID             `json:"id"`
	Slug              string                `json:"slug"`
	DisplayName       string                `json:"display_name"`
	Price             decimal.Decimal       `json:"price"`
	OfferPrice        *decimal.Decimal      `json:"offer_price,omitempty"`
	FinalPrice        decimal.Decimal       `json:"final_price"`
	Currency          string                `json:"currency"`
	Duration          enums.PackageDuration `json:"duration"`
	NumberOfQuestions int                   `json:"number_of_questions"`
	Features          dbtypes.FeatureMap    `json:"features"`
	Limits            dbtypes.LimitMap      `json:"limits"`
	IsActive          bool                  `json:"is_active"`
	SortOrder         int                   `json:"sort_order"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
}

func packageResponseFromModel(m *models.Package) packageResponse {
	return packageResponse{
		ID:                m.ID,
		Slug:              m.Slug,
		DisplayName:       m.DisplayName,
		Price:             m.Price,
		OfferPrice:        m.OfferPrice,
		FinalPrice:        m.FinalPrice(),
		Currency:          m.Currency,
		Duration:          m.Duration,
		NumberOfQuestions: m.NumberOfQuestions,
		Features:          m.Features,
		Limits:            m.Limits,
		IsActive:          m.IsActive,
		SortOrder:         m.SortOrder,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}
