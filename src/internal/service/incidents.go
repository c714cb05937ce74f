package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/drainworks/sewer-dispatch-service/src/internal/api/apiErrors"
	"github.com/drainworks/sewer-dispatch-service/src/internal/model"
	"github.com/drainworks/sewer-dispatch-service/src/internal/store"
)

type ReportIncidentInput struct {
	Description     string
	Category        string
	Priority        model.Priority
	Location        string
	Latitude        *float64
	Longitude       *float64
	ReporterContact string
	ReporterID      string
}

func (s *Service) ReportIncident(ctx context.Context, in ReportIncidentInput) (model.Incident, error) {
	if strings.TrimSpace(in.Description) == "" {
		return model.Incident{}, apiErrors.APIError{Code: apiErrors.ValidationError, Message: "description is required"}
	}
	if in.Priority == "" {
		in.Priority = model.PriorityP2
	}
	if !model.IsValidPriority(in.Priority) {
		return model.Incident{}, apiErrors.APIError{Code: apiErrors.ValidationError, Message: "priority must be one of P0, P1, P2"}
	}

	inc := model.Incident{
		IncidentID:      uuid.New().String(),
		Description:     in.Description,
		Category:        in.Category,
		Priority:        in.Priority,
		Status:          model.IncidentReported,
		Location:        in.Location,
		Latitude:        in.Latitude,
		Longitude:       in.Longitude,
		ReporterContact: in.ReporterContact,
		ReporterID:      in.ReporterID,
	}

	if err := s.repo.CreateIncident(ctx, &inc); err != nil {
		return model.Incident{}, err
	}

	s.appendActivity(ctx, model.ActivityEntry{
		IncidentID: inc.IncidentID,
		ActorID:    in.ReporterID,
		Kind:       "incident_reported",
		Message:    fmt.Sprintf("Incident %s reported: %s", inc.IncidentNumber, inc.Category),
	})

	s.log.Info("incident reported",
		zap.String("incident", inc.IncidentID),
		zap.String("number", inc.IncidentNumber),
		zap.String("priority", string(inc.Priority)))
	return inc, nil
}

func (s *Service) GetIncident(ctx context.Context, incidentID string) (model.Incident, error) {
	inc, err := s.repo.GetIncident(ctx, incidentID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Incident{}, apiErrors.APIError{Code: apiErrors.NotFound, Message: "incident not found"}
		}
		return model.Incident{}, err
	}
	return inc, nil
}

// ListIncidents returns incidents filtered by allocation state. view is one
// of "", "unallocated" or "allocated".
func (s *Service) ListIncidents(ctx context.Context, view string) ([]model.Incident, error) {
	var filter store.IncidentFilter
	switch view {
	case "":
	case "unallocated":
		allocated := false
		filter.Allocated = &allocated
	case "allocated":
		allocated := true
		filter.Allocated = &allocated
	default:
		return nil, apiErrors.APIError{Code: apiErrors.ValidationError, Message: "unknown incident view"}
	}
	return s.repo.ListIncidents(ctx, filter)
}

type UpdateIncidentInput struct {
	Description     *string
	Category        *string
	Priority        *model.Priority
	Location        *string
	Latitude        *float64
	Longitude       *float64
	ReporterContact *string
	Status          *model.IncidentStatus
}

// UpdateIncident applies field changes and, when a status is supplied, walks
// the incident forward one step. Resolving stamps resolved_at.
func (s *Service) UpdateIncident(ctx context.Context, incidentID string, in UpdateIncidentInput, actorID string) (model.Incident, error) {
	inc, err := s.GetIncident(ctx, incidentID)
	if err != nil {
		return model.Incident{}, err
	}

	if in.Status != nil && *in.Status != inc.Status {
		next := *in.Status
		if !model.IsValidIncidentStatus(next) {
			return model.Incident{}, apiErrors.APIError{Code: apiErrors.ValidationError, Message: "invalid incident status"}
		}
		if !inc.Status.CanTransition(next) {
			return model.Incident{}, apiErrors.APIError{
				Code:    apiErrors.InvalidState,
				Message: fmt.Sprintf("cannot move incident from %s to %s", inc.Status, next),
			}
		}

		var resolvedAt *time.Time
		if next == model.IncidentResolved {
			now := time.Now().UTC()
			resolvedAt = &now
		}
		if err := s.repo.UpdateIncidentStatus(ctx, incidentID, inc.Status, next, resolvedAt); err != nil {
			return model.Incident{}, s.mapStateErr(err, "incident not found", "incident status changed concurrently")
		}

		s.appendActivity(ctx, model.ActivityEntry{
			IncidentID: inc.IncidentID,
			ActorID:    actorID,
			Kind:       "status_changed",
			Message:    fmt.Sprintf("Incident %s moved from %s to %s", inc.IncidentNumber, inc.Status, next),
		})
	}

	if in.Description != nil {
		if strings.TrimSpace(*in.Description) == "" {
			return model.Incident{}, apiErrors.APIError{Code: apiErrors.ValidationError, Message: "description cannot be empty"}
		}
		inc.Description = *in.Description
	}
	if in.Category != nil {
		inc.Category = *in.Category
	}
	if in.Priority != nil {
		if !model.IsValidPriority(*in.Priority) {
			return model.Incident{}, apiErrors.APIError{Code: apiErrors.ValidationError, Message: "priority must be one of P0, P1, P2"}
		}
		inc.Priority = *in.Priority
	}
	if in.Location != nil {
		inc.Location = *in.Location
	}
	if in.Latitude != nil {
		inc.Latitude = in.Latitude
	}
	if in.Longitude != nil {
		inc.Longitude = in.Longitude
	}
	if in.ReporterContact != nil {
		inc.ReporterContact = *in.ReporterContact
	}

	if err := s.repo.UpdateIncident(ctx, inc); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Incident{}, apiErrors.APIError{Code: apiErrors.NotFound, Message: "incident not found"}
		}
		return model.Incident{}, err
	}

	return s.GetIncident(ctx, incidentID)
}

type AllocateInput struct {
	IncidentID               string
	TeamID                   string
	Priority                 model.Priority
	Description              string
	EstimatedDurationMinutes int
	IdempotencyKey           string
}

// Allocate creates a job card for a reported incident and moves the incident
// to verified in one transaction. Replaying the same idempotency key returns
// the original card.
func (s *Service) Allocate(ctx context.Context, in AllocateInput, actorID string) (model.JobCard, error) {
	if in.IdempotencyKey != "" {
		card, err := s.repo.GetJobCardByIdempotencyKey(ctx, in.IdempotencyKey)
		if err == nil {
			s.log.Info("allocation replayed", zap.String("key", in.IdempotencyKey), zap.String("job_card", card.JobCardID))
			return card, nil
		}
		if !errors.Is(err, model.ErrNotFound) {
			return model.JobCard{}, err
		}
	}

	if strings.TrimSpace(in.Description) == "" {
		return model.JobCard{}, apiErrors.APIError{Code: apiErrors.ValidationError, Message: "job card description is required"}
	}
	if in.EstimatedDurationMinutes <= 0 {
		return model.JobCard{}, apiErrors.APIError{Code: apiErrors.ValidationError, Message: "estimated duration must be positive"}
	}

	inc, err := s.repo.GetIncident(ctx, in.IncidentID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.JobCard{}, apiErrors.APIError{Code: apiErrors.NotFound, Message: "incident not found"}
		}
		return model.JobCard{}, err
	}
	if inc.Status != model.IncidentReported {
		return model.JobCard{}, apiErrors.APIError{
			Code:    apiErrors.InvalidState,
			Message: fmt.Sprintf("incident %s is %s, only reported incidents can be allocated", inc.IncidentNumber, inc.Status),
		}
	}

	team, err := s.repo.GetTeam(ctx, in.TeamID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.JobCard{}, apiErrors.APIError{Code: apiErrors.NotFound, Message: "team not found"}
		}
		return model.JobCard{}, err
	}

	if in.Priority == "" {
		in.Priority = inc.Priority
	}
	if !model.IsValidPriority(in.Priority) {
		return model.JobCard{}, apiErrors.APIError{Code: apiErrors.ValidationError, Message: "priority must be one of P0, P1, P2"}
	}

	card := model.JobCard{
		JobCardID:                uuid.New().String(),
		IncidentID:               inc.IncidentID,
		TeamID:                   team.TeamID,
		Priority:                 in.Priority,
		Description:              in.Description,
		EstimatedDurationMinutes: in.EstimatedDurationMinutes,
		Status:                   model.JobCardAssigned,
	}
	entry := model.ActivityEntry{
		IncidentID: inc.IncidentID,
		ActorID:    actorID,
		Kind:       "allocated",
		Message:    fmt.Sprintf("Incident %s allocated to team %s", inc.IncidentNumber, team.TeamName),
	}

	if err := s.repo.CreateAllocation(ctx, card, entry, in.IdempotencyKey); err != nil {
		return model.JobCard{}, s.mapStateErr(err, "incident not found", "incident is no longer open for allocation")
	}

	s.log.Info("incident allocated",
		zap.String("incident", inc.IncidentID),
		zap.String("team", team.TeamID),
		zap.String("job_card", card.JobCardID))

	created, err := s.repo.GetJobCard(ctx, card.JobCardID)
	if err != nil {
		return card, nil
	}
	return created, nil
}

// Unassign returns an incident to reported and supersedes its live job card.
func (s *Service) Unassign(ctx context.Context, incidentID, actorID string) (model.Incident, error) {
	inc, err := s.GetIncident(ctx, incidentID)
	if err != nil {
		return model.Incident{}, err
	}

	msg := fmt.Sprintf("Incident %s returned to the unallocated queue", inc.IncidentNumber)
	card, err := s.repo.GetActiveJobCardForIncident(ctx, incidentID)
	switch {
	case err == nil:
		msg = fmt.Sprintf("Incident %s returned to the unallocated queue, superseding job card %s", inc.IncidentNumber, card.JobCardID)
	case !errors.Is(err, model.ErrNotFound):
		return model.Incident{}, err
	}

	entry := model.ActivityEntry{
		IncidentID: inc.IncidentID,
		ActorID:    actorID,
		Kind:       "unassigned",
		Message:    msg,
	}
	if err := s.repo.UnassignIncident(ctx, incidentID, entry); err != nil {
		return model.Incident{}, s.mapStateErr(err, "incident not found", "incident cannot be unassigned")
	}

	return s.GetIncident(ctx, incidentID)
}

func (s *Service) appendActivity(ctx context.Context, e model.ActivityEntry) {
	if err := s.repo.AppendActivity(ctx, e); err != nil {
		s.log.Warn("append activity failed", zap.String("kind", e.Kind), zap.Error(err))
	}
}

func (s *Service) mapStateErr(err error, notFoundMsg, invalidMsg string) error {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return apiErrors.APIError{Code: apiErrors.NotFound, Message: notFoundMsg}
	case errors.Is(err, model.ErrInvalidState):
		return apiErrors.APIError{Code: apiErrors.InvalidState, Message: invalidMsg}
	default:
		return err
	}
}
