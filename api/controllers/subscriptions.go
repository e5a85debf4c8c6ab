package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/easyq-dev/easyq-backend/api/middleware"
	"github.com/easyq-dev/easyq-backend/api/responses"
	"github.com/easyq-dev/easyq-backend/api/validators"
	"github.com/easyq-dev/easyq-backend/internal/subscriptions"
	"github.com/easyq-dev/easyq-backend/pkg/db/models"
	"github.com/easyq-dev/easyq-backend/pkg/enums"
	pkgerrors "github.com/easyq-dev/easyq-backend/pkg/errors"
	"github.com/easyq-dev/easyq-backend/pkg/logger"
)

type subscriptionPurchaseRequest struct {
	PackageID       string  `json:"package_id" validate:"required,uuid"`
	PhoneNumber     *string `json:"phone_number"`
	TransactionID   *string `json:"transaction_id"`
	Method          string  `json:"method"`
	ReplaceExisting bool    `json:"replace_existing"`
}

func (req subscriptionPurchaseRequest) toInput() (subscriptions.PurchaseInput, error) {
	packageID, err := uuid.Parse(strings.TrimSpace(req.PackageID))
	if err != nil {
		return subscriptions.PurchaseInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid package_id")
	}

	input := subscriptions.PurchaseInput{
		PackageID:       packageID,
		PhoneNumber:     req.PhoneNumber,
		TransactionID:   req.TransactionID,
		ReplaceExisting: req.ReplaceExisting,
	}

	if raw := strings.TrimSpace(req.Method); raw != "" {
		method, parseErr := enums.ParsePaymentMethod(raw)
		if parseErr != nil {
			return subscriptions.PurchaseInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
		}
		input.Method = method
	}

	return input, nil
}

type subscriptionService interface {
	Purchase(ctx context.Context, userID uuid.UUID, input subscriptions.PurchaseInput) (*subscriptions.PurchaseResult, error)
	GetActive(ctx context.Context, userID uuid.UUID) (*subscriptions.ActiveResult, error)
	Switch(ctx context.Context, userID, subscriptionID uuid.UUID) (*models.Subscription, error)
}

// SubscriptionPurchase handles package purchase requests for the
// authenticated user.
func SubscriptionPurchase(svc subscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		userID, err := authenticatedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload subscriptionPurchaseRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Purchase(r.Context(), userID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, purchaseResponseFromResult(result))
	}
}

// SubscriptionActive returns the resolved current subscription with live
// usage plus every switchable sibling.
func SubscriptionActive(svc subscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		userID, err := authenticatedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.GetActive(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, activeResponseFromResult(result))
	}
}

type subscriptionSwitchRequest struct {
	SubscriptionID string `json:"subscription_id" validate:"required,uuid"`
}

// SubscriptionSwitch points the user's selection at a different eligible
// subscription.
func SubscriptionSwitch(svc subscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		userID, err := authenticatedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload subscriptionSwitchRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		subscriptionID, err := uuid.Parse(strings.TrimSpace(payload.SubscriptionID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid subscription_id"))
			return
		}

		sub, err := svc.Switch(r.Context(), userID, subscriptionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, subscriptionResponseFromModel(sub))
	}
}

func authenticatedUserID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	return userID, nil
}

type subscriptionResponse struct {
	ID            uuid.UUID        `json:"id"`
	UserID        uuid.UUID        `json:"user_id"`
	PackageID     uuid.UUID        `json:"package_id"`
	PaymentID     uuid.UUID        `json:"payment_id"`
	StartDate     time.Time        `json:"start_date"`
	EndDate       time.Time        `json:"end_date"`
	IsActive      bool             `json:"is_active"`
	UserActive    bool             `json:"user_active"`
	QuestionLimit int              `json:"question_limit"`
	IsExpired     bool             `json:"is_expired"`
	CreatedAt     time.Time        `json:"created_at"`
	Package       *packageResponse `json:"package,omitempty"`
	Payment       *paymentResponse `json:"payment,omitempty"`
}

func subscriptionResponseFromModel(m *models.Subscription) subscriptionResponse {
	out := subscriptionResponse{
		ID:            m.ID,
		UserID:        m.UserID,
		PackageID:     m.PackageID,
		PaymentID:     m.PaymentID,
		StartDate:     m.StartDate,
		EndDate:       m.EndDate,
		IsActive:      m.IsActive,
		UserActive:    m.UserActive,
		QuestionLimit: m.QuestionLimit,
		IsExpired:     m.IsExpired(time.Now().UTC()),
		CreatedAt:     m.CreatedAt,
	}
	if m.Package != nil {
		pkg := packageResponseFromModel(m.Package)
		out.Package = &pkg
	}
	if m.Payment != nil {
		payment := paymentResponseFromModel(m.Payment)
		out.Payment = &payment
	}
	return out
}

type paymentResponse struct {
	ID            uuid.UUID           `json:"id"`
	UserID        uuid.UUID           `json:"user_id"`
	PackageID     uuid.UUID           `json:"package_id"`
	Price         decimal.Decimal     `json:"price"`
	Discount      decimal.Decimal     `json:"discount"`
	FinalPrice    decimal.Decimal     `json:"final_price"`
	PhoneNumber   *string             `json:"phone_number,omitempty"`
	TransactionID *string             `json:"transaction_id,omitempty"`
	Method        enums.PaymentMethod `json:"method"`
	Status        enums.PaymentStatus `json:"status"`
	Currency      string              `json:"currency"`
	Notes         *string             `json:"notes,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	Package       *packageResponse    `json:"package,omitempty"`
}

func paymentResponseFromModel(m *models.Payment) paymentResponse {
	out := paymentResponse{
		ID:            m.ID,
		UserID:        m.UserID,
		PackageID:     m.PackageID,
		Price:         m.Price,
		Discount:      m.Discount,
		FinalPrice:    m.FinalPrice,
		PhoneNumber:   m.PhoneNumber,
		TransactionID: m.TransactionID,
		Method:        m.Method,
		Status:        m.Status,
		Currency:      m.Currency,
		Notes:         m.Notes,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
	if m.Package != nil {
		pkg := packageResponseFromModel(m.Package)
		out.Package = &pkg
	}
	return out
}

type purchaseResponse struct {
	Subscription     subscriptionResponse `json:"subscription"`
	Payment          paymentResponse      `json:"payment"`
	Package          packageResponse      `json:"package"`
	IsActive         bool                 `json:"is_active"`
	IsFree           bool                 `json:"is_free"`
	IsRepurchase     bool                 `json:"is_repurchase"`
	NewQuestionLimit *int                 `json:"new_question_limit,omitempty"`
}

func purchaseResponseFromResult(result *subscriptions.PurchaseResult) purchaseResponse {
	return purchaseResponse{
		Subscription:     subscriptionResponseFromModel(result.Subscription),
		Payment:          paymentResponseFromModel(result.Payment),
		Package:          packageResponseFromModel(result.Package),
		IsActive:         result.IsActive,
		IsFree:           result.IsFree,
		IsRepurchase:     result.IsRepurchase,
		NewQuestionLimit: result.NewQuestionLimit,
	}
}

type usageResponse struct {
	Subscription subscriptionResponse `json:"subscription"`
	CurrentUsage int                  `json:"current_usage"`
	Limit        int                  `json:"limit"`
	Remaining    int                  `json:"remaining"`
}

func usageResponseFromUsage(u *subscriptions.Usage) usageResponse {
	return usageResponse{
		Subscription: subscriptionResponseFromModel(u.Subscription),
		CurrentUsage: u.CurrentUsage,
		Limit:        u.Limit,
		Remaining:    u.Remaining,
	}
}

type activeResponse struct {
	Current         *usageResponse  `json:"current"`
	Subscriptions   []usageResponse `json:"subscriptions"`
	AutoProvisioned bool            `json:"auto_provisioned"`
}

func activeResponseFromResult(result *subscriptions.ActiveResult) activeResponse {
	out := activeResponse{
		Subscriptions:   make([]usageResponse, 0, len(result.Subscriptions)),
		AutoProvisioned: result.AutoProvisioned,
	}
	if result.Current != nil {
		current := usageResponseFromUsage(result.Current)
		out.Current = &current
	}
	for i := range result.Subscriptions {
		out.Subscriptions = append(out.Subscriptions, usageResponseFromUsage(&result.Subscriptions[i]))
	}
	return out
}
