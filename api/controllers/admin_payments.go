package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/easyq-dev/easyq-backend/api/responses"
	"github.com/easyq-dev/easyq-backend/api/validators"
	"github.com/easyq-dev/easyq-backend/internal/payments"
	"github.com/easyq-dev/easyq-backend/pkg/db/models"
	"github.com/easyq-dev/easyq-backend/pkg/enums"
	pkgerrors "github.com/easyq-dev/easyq-backend/pkg/errors"
	"github.com/easyq-dev/easyq-backend/pkg/logger"
	"github.com/easyq-dev/easyq-backend/pkg/pagination"
)

type adminPaymentVerifyRequest struct {
	Status string  `json:"status" validate:"required"`
	Notes  *string `json:"notes"`
}

type paymentAdminService interface {
	VerifyPayment(ctx context.Context, paymentID uuid.UUID, newStatus enums.PaymentStatus, notes *string) (*payments.VerifyResult, error)
	VerifySubscription(ctx context.Context, subscriptionID uuid.UUID, isActive bool) (*payments.VerifyResult, error)
	List(ctx context.Context, filter payments.ListFilter, params pagination.Params) ([]models.Payment, pagination.Result, error)
}

// AdminPaymentVerify moves a payment to the requested status. Completing a
// payment activates its subscriptions; failed and refunded leave them alone.
func AdminPaymentVerify(svc paymentAdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		paymentID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "paymentId")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment id"))
			return
		}

		var payload adminPaymentVerifyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParsePaymentStatus(strings.TrimSpace(payload.Status))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status"))
			return
		}

		result, err := svc.VerifyPayment(r.Context(), paymentID, status, payload.Notes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, verifyResponseFromResult(result))
	}
}

type adminPaymentListResponse struct {
	Items      []paymentResponse `json:"items"`
	Pagination pagination.Result `json:"pagination"`
}

// AdminPaymentList returns payments for review, filterable by status, user
// and a transaction-id or phone-number search.
func AdminPaymentList(svc paymentAdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := payments.ListFilter{
			Search: strings.TrimSpace(r.URL.Query().Get("search")),
		}

		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, parseErr := enums.ParsePaymentStatus(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status"))
				return
			}
			filter.Status = &status
		}

		if raw := strings.TrimSpace(r.URL.Query().Get("user_id")); raw != "" {
			userID, parseErr := uuid.Parse(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid user_id"))
				return
			}
			filter.UserID = &userID
		}

		rows, meta, err := svc.List(r.Context(), filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]paymentResponse, 0, len(rows))
		for i := range rows {
			out = append(out, paymentResponseFromModel(&rows[i]))
		}
		responses.WriteSuccess(w, adminPaymentListResponse{Items: out, Pagination: meta})
	}
}

type verifyResponse struct {
	Payment      *paymentResponse      `json:"payment,omitempty"`
	Subscription *subscriptionResponse `json:"subscription,omitempty"`
	Changed      bool                  `json:"changed"`
	Message      string                `json:"message"`
}

func verifyResponseFromResult(result *payments.VerifyResult) verifyResponse {
	out := verifyResponse{
		Changed: result.Changed,
		Message: result.Message,
	}
	if result.Payment != nil {
		payment := paymentResponseFromModel(result.Payment)
		out.Payment = &payment
	}
	if result.Subscription != nil {
		sub := subscriptionResponseFromModel(result.Subscription)
		out.Subscription = &sub
	}
	return out
}
