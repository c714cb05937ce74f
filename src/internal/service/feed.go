package service

import (
	"context"
	"errors"

	"github.com/drainworks/sewer-dispatch-service/src/internal/api/apiErrors"
	"github.com/drainworks/sewer-dispatch-service/src/internal/model"
	"github.com/drainworks/sewer-dispatch-service/src/internal/store"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 200
)

func (s *Service) GetStats(ctx context.Context) (store.DashboardStats, error) {
	return s.repo.GetDashboardStats(ctx)
}

func (s *Service) ListActivity(ctx context.Context, limit int) ([]model.ActivityEntry, error) {
	return s.repo.ListActivity(ctx, clampLimit(limit))
}

// GetUserNotifications returns the activity feed scoped to incidents the
// user reported.
func (s *Service) GetUserNotifications(ctx context.Context, userID string, limit int) ([]model.ActivityEntry, error) {
	if _, err := s.repo.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, apiErrors.APIError{Code: apiErrors.NotFound, Message: "user not found"}
		}
		return nil, err
	}
	return s.repo.ListActivityForReporter(ctx, userID, clampLimit(limit))
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultActivityLimit
	}
	if limit > maxActivityLimit {
		return maxActivityLimit
	}
	return limit
}
