package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/easyq-dev/easyq-backend/api/middleware"
	"github.com/easyq-dev/easyq-backend/internal/subscriptions"
	"github.com/easyq-dev/easyq-backend/pkg/db/models"
	"github.com/easyq-dev/easyq-backend/pkg/enums"
	pkgerrors "github.com/easyq-dev/easyq-backend/pkg/errors"
)

type stubSubscriptionService struct {
	purchaseFn  func(ctx context.Context, userID uuid.UUID, input subscriptions.PurchaseInput) (*subscriptions.PurchaseResult, error)
	getActiveFn func(ctx context.Context, userID uuid.UUID) (*subscriptions.ActiveResult, error)
	switchFn    func(ctx context.Context, userID, subscriptionID uuid.UUID) (*models.Subscription, error)
}

func (s stubSubscriptionService) Purchase(ctx context.Context, userID uuid.UUID, input subscriptions.PurchaseInput) (*subscriptions.PurchaseResult, error) {
	return s.purchaseFn(ctx, userID, input)
}

func (s stubSubscriptionService) GetActive(ctx context.Context, userID uuid.UUID) (*subscriptions.ActiveResult, error) {
	return s.getActiveFn(ctx, userID)
}

func (s stubSubscriptionService) Switch(ctx context.Context, userID, subscriptionID uuid.UUID) (*models.Subscription, error) {
	return s.switchFn(ctx, userID, subscriptionID)
}

func authedRequest(method, target, body string, userID uuid.UUID) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	return req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
}

func sampleSubscription(userID uuid.UUID) *models.Subscription {
	pkg := catalogPackage("standard")
	now := time.Now().UTC()
	return &models.Subscription{
		ID:            uuid.New(),
		UserID:        userID,
		PackageID:     pkg.ID,
		PaymentID:     uuid.New(),
		StartDate:     now,
		EndDate:       now.Add(30 * 24 * time.Hour),
		IsActive:      true,
		UserActive:    true,
		QuestionLimit: 30,
		Package:       &pkg,
	}
}

func TestSubscriptionPurchaseCreated(t *testing.T) {
	userID := uuid.New()
	packageID := uuid.New()
	var gotInput subscriptions.PurchaseInput

	svc := stubSubscriptionService{
		purchaseFn: func(ctx context.Context, gotUser uuid.UUID, input subscriptions.PurchaseInput) (*subscriptions.PurchaseResult, error) {
			if gotUser != userID {
				t.Fatalf("expected user %s got %s", userID, gotUser)
			}
			gotInput = input
			pkg := catalogPackage("standard")
			pkg.ID = input.PackageID
			sub := sampleSubscription(gotUser)
			sub.IsActive = false
			sub.UserActive = false
			return &subscriptions.PurchaseResult{
				Subscription: sub,
				Payment: &models.Payment{
					ID:         uuid.New(),
					UserID:     gotUser,
					PackageID:  input.PackageID,
					Price:      decimal.NewFromInt(500),
					FinalPrice: decimal.NewFromInt(400),
					Method:     input.Method,
					Status:     enums.PaymentStatusPending,
				},
				Package: &pkg,
			}, nil
		},
	}

	body := `{"package_id":"` + packageID.String() + `","phone_number":"01711111111","transaction_id":"TX1","method":"bkash"}`
	req := authedRequest(http.MethodPost, "/api/v1/subscriptions", body, userID)
	rec := httptest.NewRecorder()
	SubscriptionPurchase(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	if gotInput.PackageID != packageID {
		t.Fatalf("expected package %s got %s", packageID, gotInput.PackageID)
	}
	if gotInput.Method != enums.PaymentMethodBkash {
		t.Fatalf("expected method bkash got %s", gotInput.Method)
	}

	var envelope struct {
		Data purchaseResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if envelope.Data.Payment.Status != enums.PaymentStatusPending {
		t.Fatalf("expected pending payment got %s", envelope.Data.Payment.Status)
	}
}

func TestSubscriptionPurchaseConflictCarriesDetails(t *testing.T) {
	svc := stubSubscriptionService{
		purchaseFn: func(ctx context.Context, userID uuid.UUID, input subscriptions.PurchaseInput) (*subscriptions.PurchaseResult, error) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "an active subscription already exists").
				WithDetails(subscriptions.ActiveSubscriptionConflictDetails{CurrentPackage: "Standard"})
		},
	}

	body := `{"package_id":"` + uuid.NewString() + `","method":"nagad"}`
	req := authedRequest(http.MethodPost, "/api/v1/subscriptions", body, uuid.New())
	rec := httptest.NewRecorder()
	SubscriptionPurchase(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", rec.Code)
	}

	var envelope struct {
		Error struct {
			Details struct {
				CurrentPackage string `json:"current_package"`
			} `json:"details"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if envelope.Error.Details.CurrentPackage != "Standard" {
		t.Fatalf("expected conflict details, got %+v", envelope.Error)
	}
}

func TestSubscriptionPurchaseRejectsBadPackageID(t *testing.T) {
	svc := stubSubscriptionService{
		purchaseFn: func(ctx context.Context, userID uuid.UUID, input subscriptions.PurchaseInput) (*subscriptions.PurchaseResult, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	}

	req := authedRequest(http.MethodPost, "/api/v1/subscriptions", `{"package_id":"not-a-uuid"}`, uuid.New())
	rec := httptest.NewRecorder()
	SubscriptionPurchase(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestSubscriptionPurchaseRequiresAuth(t *testing.T) {
	svc := stubSubscriptionService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/subscriptions", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	SubscriptionPurchase(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestSubscriptionActiveReturnsUsage(t *testing.T) {
	userID := uuid.New()
	svc := stubSubscriptionService{
		getActiveFn: func(ctx context.Context, gotUser uuid.UUID) (*subscriptions.ActiveResult, error) {
			sub := sampleSubscription(gotUser)
			return &subscriptions.ActiveResult{
				Current: &subscriptions.Usage{
					Subscription: sub,
					CurrentUsage: 12,
					Limit:        30,
					Remaining:    18,
				},
				Subscriptions:   []subscriptions.Usage{{Subscription: sub, CurrentUsage: 12, Limit: 30, Remaining: 18}},
				AutoProvisioned: true,
			}, nil
		},
	}

	req := authedRequest(http.MethodGet, "/api/v1/subscriptions/active", "", userID)
	rec := httptest.NewRecorder()
	SubscriptionActive(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}

	var envelope struct {
		Data activeResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if envelope.Data.Current == nil || envelope.Data.Current.Remaining != 18 {
		t.Fatalf("unexpected current usage %+v", envelope.Data.Current)
	}
	if !envelope.Data.AutoProvisioned {
		t.Fatal("expected auto_provisioned flag")
	}
}

func TestSubscriptionSwitchRejectsBadID(t *testing.T) {
	svc := stubSubscriptionService{
		switchFn: func(ctx context.Context, userID, subscriptionID uuid.UUID) (*models.Subscription, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	}

	req := authedRequest(http.MethodPost, "/api/v1/subscriptions/switch", `{"subscription_id":"nope"}`, uuid.New())
	rec := httptest.NewRecorder()
	SubscriptionSwitch(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestSubscriptionSwitchReturnsSubscription(t *testing.T) {
	userID := uuid.New()
	targetID := uuid.New()
	svc := stubSubscriptionService{
		switchFn: func(ctx context.Context, gotUser, subscriptionID uuid.UUID) (*models.Subscription, error) {
			if subscriptionID != targetID {
				t.Fatalf("expected subscription %s got %s", targetID, subscriptionID)
			}
			sub := sampleSubscription(gotUser)
			sub.ID = subscriptionID
			return sub, nil
		},
	}

	body := `{"subscription_id":"` + targetID.String() + `"}`
	req := authedRequest(http.MethodPost, "/api/v1/subscriptions/switch", body, userID)
	rec := httptest.NewRecorder()
	SubscriptionSwitch(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}

	var envelope struct {
		Data subscriptionResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if envelope.Data.ID != targetID {
		t.Fatalf("expected subscription %s got %s", targetID, envelope.Data.ID)
	}
	if !envelope.Data.UserActive {
		t.Fatal("expected user_active subscription")
	}
}
