package subscriptions

import (
	"context"

	"github.com/easyq-dev/easyq-backend/pkg/db/models"
	pkgerrors "github.com/easyq-dev/easyq-backend/pkg/errors"
	"github.com/easyq-dev/easyq-backend/pkg/pagination"
)

// ListAdmin returns the paginated administrative subscription table.
func (s *Service) ListAdmin(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Subscription, pagination.Result, error) {
	rows, total, err := s.repo.List(ctx, filter, params)
	if err != nil {
		return nil, pagination.Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list subscriptions")
	}
	return rows, pagination.NewResult(params, total), nil
}
