package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/drainworks/sewer-dispatch-service/src/internal/api/apiErrors"
	"github.com/drainworks/sewer-dispatch-service/src/internal/model"
)

func (s *Service) GetJobCard(ctx context.Context, jobCardID string) (model.JobCard, error) {
	card, err := s.repo.GetJobCard(ctx, jobCardID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.JobCard{}, apiErrors.APIError{Code: apiErrors.NotFound, Message: "job card not found"}
		}
		return model.JobCard{}, err
	}
	return card, nil
}

func (s *Service) ListJobCards(ctx context.Context) ([]model.JobCard, error) {
	return s.repo.ListJobCards(ctx)
}

func (s *Service) ListJobCardsForTeam(ctx context.Context, teamID string) ([]model.JobCard, error) {
	if _, err := s.repo.GetTeam(ctx, teamID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, apiErrors.APIError{Code: apiErrors.NotFound, Message: "team not found"}
		}
		return nil, err
	}
	return s.repo.ListJobCardsForTeam(ctx, teamID)
}

// UpdateJobCardStatus advances a card along assigned -> in_progress ->
// completed. Completed cards reject every further change.
func (s *Service) UpdateJobCardStatus(ctx context.Context, jobCardID string, next model.JobCardStatus, actorID string) (model.JobCard, error) {
	if !model.IsValidJobCardStatus(next) {
		return model.JobCard{}, apiErrors.APIError{Code: apiErrors.ValidationError, Message: "invalid job card status"}
	}

	card, err := s.GetJobCard(ctx, jobCardID)
	if err != nil {
		return model.JobCard{}, err
	}

	if card.Status == model.JobCardCompleted {
		return model.JobCard{}, apiErrors.APIError{Code: apiErrors.InvalidState, Message: "job card is completed and cannot be modified"}
	}
	if card.SupersededAt != nil {
		return model.JobCard{}, apiErrors.APIError{Code: apiErrors.InvalidState, Message: "job card was superseded by a reassignment"}
	}
	if !card.Status.CanTransition(next) {
		return model.JobCard{}, apiErrors.APIError{
			Code:    apiErrors.InvalidState,
			Message: fmt.Sprintf("cannot move job card from %s to %s", card.Status, next),
		}
	}

	updated, err := s.repo.UpdateJobCardStatus(ctx, jobCardID, card.Status, next)
	if err != nil {
		return model.JobCard{}, s.mapStateErr(err, "job card not found", "job card status changed concurrently")
	}

	s.appendActivity(ctx, model.ActivityEntry{
		IncidentID: card.IncidentID,
		ActorID:    actorID,
		Kind:       "job_card_updated",
		Message:    fmt.Sprintf("Job card for incident moved from %s to %s", card.Status, next),
	})

	s.log.Info("job card status updated",
		zap.String("job_card", jobCardID),
		zap.String("from", string(card.Status)),
		zap.String("to", string(next)))
	return updated, nil
}
