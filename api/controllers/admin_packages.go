package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/easyq-dev/easyq-backend/api/responses"
	"github.com/easyq-dev/easyq-backend/api/validators"
	"github.com/easyq-dev/easyq-backend/internal/packages"
	"github.com/easyq-dev/easyq-backend/pkg/db/models"
	dbtypes "github.com/easyq-dev/easyq-backend/pkg/db/types"
	"github.com/easyq-dev/easyq-backend/pkg/enums"
	pkgerrors "github.com/easyq-dev/easyq-backend/pkg/errors"
	"github.com/easyq-dev/easyq-backend/pkg/logger"
	"github.com/easyq-dev/easyq-backend/pkg/pagination"
)

type adminPackageCreateRequest struct {
	Slug              string             `json:"slug" validate:"required"`
	DisplayName       string             `json:"display_name" validate:"required"`
	Price             decimal.Decimal    `json:"price"`
	OfferPrice        *decimal.Decimal   `json:"offer_price"`
	Currency          string             `json:"currency"`
	Duration          string             `json:"duration" validate:"required"`
	NumberOfQuestions int                `json:"number_of_questions" validate:"required,min=1"`
	Features          dbtypes.FeatureMap `json:"features"`
	Limits            dbtypes.LimitMap   `json:"limits"`
	SortOrder         int                `json:"sort_order"`
}

type packageAdminService interface {
	Create(ctx context.Context, input packages.CreatePackageInput) (*models.Package, error)
	Update(ctx context.Context, id uuid.UUID, input packages.UpdatePackageInput) (*models.Package, error)
	List(ctx context.Context, params pagination.Params) ([]models.Package, pagination.Result, error)
}

// AdminPackageCreate adds a package to the catalog.
func AdminPackageCreate(svc packageAdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "package service unavailable"))
			return
		}

		var payload adminPackageCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		duration, err := enums.ParsePackageDuration(strings.TrimSpace(payload.Duration))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid package duration"))
			return
		}

		created, err := svc.Create(r.Context(), packages.CreatePackageInput{
			Slug:              payload.Slug,
			DisplayName:       payload.DisplayName,
			Price:             payload.Price,
			OfferPrice:        payload.OfferPrice,
			Currency:          payload.Currency,
			Duration:          duration,
			NumberOfQuestions: payload.NumberOfQuestions,
			Features:          payload.Features,
			Limits:            payload.Limits,
			SortOrder:         payload.SortOrder,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, packageResponseFromModel(created))
	}
}

type adminPackageUpdateRequest struct {
	DisplayName       *string            `json:"display_name"`
	Price             *decimal.Decimal   `json:"price"`
	OfferPrice        *decimal.Decimal   `json:"offer_price"`
	ClearOfferPrice   bool               `json:"clear_offer_price"`
	Currency          *string            `json:"currency"`
	Duration          *string            `json:"duration"`
	NumberOfQuestions *int               `json:"number_of_questions"`
	Features          dbtypes.FeatureMap `json:"features"`
	Limits            dbtypes.LimitMap   `json:"limits"`
	IsActive          *bool              `json:"is_active"`
	SortOrder         *int               `json:"sort_order"`
}

// AdminPackageUpdate applies a partial update. Deactivation via is_active is
// the only removal path; packages are never hard-deleted.
func AdminPackageUpdate(svc packageAdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "package service unavailable"))
			return
		}

		packageID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "packageId")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid package id"))
			return
		}

		var payload adminPackageUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := packages.UpdatePackageInput{
			DisplayName:       payload.DisplayName,
			Price:             payload.Price,
			OfferPrice:        payload.OfferPrice,
			ClearOfferPrice:   payload.ClearOfferPrice,
			Currency:          payload.Currency,
			NumberOfQuestions: payload.NumberOfQuestions,
			Features:          payload.Features,
			Limits:            payload.Limits,
			IsActive:          payload.IsActive,
			SortOrder:         payload.SortOrder,
		}

		if payload.Duration != nil {
			duration, parseErr := enums.ParsePackageDuration(strings.TrimSpace(*payload.Duration))
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid package duration"))
				return
			}
			input.Duration = &duration
		}

		updated, err := svc.Update(r.Context(), packageID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, packageResponseFromModel(updated))
	}
}

type adminPackageListResponse struct {
	Items      []packageResponse `json:"items"`
	Pagination pagination.Result `json:"pagination"`
}

// AdminPackageList returns every package, active or not, for the admin table.
func AdminPackageList(svc packageAdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "package service unavailable"))
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, meta, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]packageResponse, 0, len(rows))
		for i := range rows {
			out = append(out, packageResponseFromModel(&rows[i]))
		}
		responses.WriteSuccess(w, adminPackageListResponse{Items: out, Pagination: meta})
	}
}
