package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/easyq-dev/easyq-backend/api/responses"
	"github.com/easyq-dev/easyq-backend/api/validators"
	"github.com/easyq-dev/easyq-backend/internal/questionsets"
	"github.com/easyq-dev/easyq-backend/pkg/db/models"
	pkgerrors "github.com/easyq-dev/easyq-backend/pkg/errors"
	"github.com/easyq-dev/easyq-backend/pkg/logger"
	"github.com/easyq-dev/easyq-backend/pkg/pagination"
)

type questionSetCreateRequest struct {
	Title         string `json:"title" validate:"required"`
	Subject       string `json:"subject"`
	QuestionCount int    `json:"question_count" validate:"min=0"`
}

type questionSetService interface {
	Create(ctx context.Context, userID uuid.UUID, input questionsets.CreateInput) (*questionsets.CreateResult, error)
	List(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.QuestionSet, pagination.Result, error)
}

// QuestionSetCreate generates a question set, charging it against the
// caller's selected subscription quota.
func QuestionSetCreate(svc questionSetService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "question set service unavailable"))
			return
		}

		userID, err := authenticatedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload questionSetCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Create(r.Context(), userID, questionsets.CreateInput{
			Title:         payload.Title,
			Subject:       payload.Subject,
			QuestionCount: payload.QuestionCount,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, questionSetCreateResponse{
			QuestionSet: questionSetResponseFromModel(result.QuestionSet),
			Usage:       usageResponseFromUsage(result.Usage),
		})
	}
}

// QuestionSetList returns the caller's question sets, newest first by
// default.
func QuestionSetList(svc questionSetService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "question set service unavailable"))
			return
		}

		userID, err := authenticatedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, meta, err := svc.List(r.Context(), userID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]questionSetResponse, 0, len(rows))
		for i := range rows {
			out = append(out, questionSetResponseFromModel(&rows[i]))
		}
		responses.WriteSuccess(w, questionSetListResponse{Items: out, Pagination: meta})
	}
}

type questionSetResponse struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"user_id"`
	SubscriptionID uuid.UUID `json:"subscription_id"`
	Title          string    `json:"title"`
	Subject        string    `json:"subject"`
	QuestionCount  int       `json:"question_count"`
	CreatedAt      time.Time `json:"created_at"`
}

func questionSetResponseFromModel(m *models.QuestionSet) questionSetResponse {
	return questionSetResponse{
		ID:             m.ID,
		UserID:         m.UserID,
		SubscriptionID: m.SubscriptionID,
		Title:          m.Title,
		Subject:        m.Subject,
		QuestionCount:  m.QuestionCount,
		CreatedAt:      m.CreatedAt,
	}
}

type questionSetCreateResponse struct {
	QuestionSet questionSetResponse `json:"question_set"`
	Usage       usageResponse       `json:"usage"`
}

type questionSetListResponse struct {
	Items      []questionSetResponse `json:"items"`
	Pagination pagination.Result     `json:"pagination"`
}
