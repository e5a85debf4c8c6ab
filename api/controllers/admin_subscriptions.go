package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/easyq-dev/easyq-backend/api/responses"
	"github.com/easyq-dev/easyq-backend/api/validators"
	"github.com/easyq-dev/easyq-backend/internal/subscriptions"
	"github.com/easyq-dev/easyq-backend/pkg/db/models"
	pkgerrors "github.com/easyq-dev/easyq-backend/pkg/errors"
	"github.com/easyq-dev/easyq-backend/pkg/logger"
	"github.com/easyq-dev/easyq-backend/pkg/pagination"
)

type adminSubscriptionVerifyRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// AdminSubscriptionVerify flips the admin approval gate on one subscription.
// Activation requires the backing payment to be completed.
func AdminSubscriptionVerify(svc paymentAdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		subscriptionID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "subscriptionId")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid subscription id"))
			return
		}

		var payload adminSubscriptionVerifyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.VerifySubscription(r.Context(), subscriptionID, *payload.IsActive)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, verifyResponseFromResult(result))
	}
}

type adminSubscriptionListResponse struct {
	Items      []subscriptionResponse `json:"items"`
	Pagination pagination.Result      `json:"pagination"`
}

// AdminSubscriptionList returns subscriptions for review, filterable by user
// and approval state.
type subscriptionAdminService interface {
	ListAdmin(ctx context.Context, filter subscriptions.ListFilter, params pagination.Params) ([]models.Subscription, pagination.Result, error)
}

func AdminSubscriptionList(svc subscriptionAdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var filter subscriptions.ListFilter

		if raw := strings.TrimSpace(r.URL.Query().Get("user_id")); raw != "" {
			userID, parseErr := uuid.Parse(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid user_id"))
				return
			}
			filter.UserID = &userID
		}

		isActive, err := validators.ParseQueryBool(r, "is_active")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter.IsActive = isActive

		rows, meta, err := svc.ListAdmin(r.Context(), filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]subscriptionResponse, 0, len(rows))
		for i := range rows {
			out = append(out, subscriptionResponseFromModel(&rows[i]))
		}
		responses.WriteSuccess(w, adminSubscriptionListResponse{Items: out, Pagination: meta})
	}
}
