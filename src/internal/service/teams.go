package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/drainworks/sewer-dispatch-service/src/internal/api/apiErrors"
	"github.com/drainworks/sewer-dispatch-service/src/internal/model"
)

type CreateTeamInput struct {
	TeamName       string
	Description    string
	Specialization string
	LeaderID       string
	MemberIDs      []string
}

// CreateTeam registers a team. The leader must be an existing user and is
// always part of the member list.
func (s *Service) CreateTeam(ctx context.Context, in CreateTeamInput) (model.Team, error) {
	if strings.TrimSpace(in.TeamName) == "" {
		return model.Team{}, apiErrors.APIError{Code: apiErrors.ValidationError, Message: "team name is required"}
	}

	if _, err := s.repo.GetUserByID(ctx, in.LeaderID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Team{}, apiErrors.APIError{Code: apiErrors.NotFound, Message: "leader user not found"}
		}
		return model.Team{}, err
	}

	members := make([]model.TeamMember, 0, len(in.MemberIDs)+1)
	seen := map[string]bool{}
	for _, id := range append([]string{in.LeaderID}, in.MemberIDs...) {
		if seen[id] {
			continue
		}
		seen[id] = true
		u, err := s.repo.GetUserByID(ctx, id)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.Team{}, apiErrors.APIError{Code: apiErrors.NotFound, Message: "member user not found: " + id}
			}
			return model.Team{}, err
		}
		members = append(members, model.TeamMember{
			UserID:    u.UserID,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Email:     u.Email,
			Role:      u.Role,
		})
	}

	t := model.Team{
		TeamID:         uuid.New().String(),
		TeamName:       strings.TrimSpace(in.TeamName),
		Description:    in.Description,
		Specialization: in.Specialization,
		LeaderID:       in.LeaderID,
		Members:        members,
	}

	created, err := s.repo.CreateTeam(ctx, t)
	if err != nil {
		if errors.Is(err, model.ErrConflict) {
			return model.Team{}, apiErrors.APIError{Code: apiErrors.TeamExists, Message: "a team with this name already exists"}
		}
		return model.Team{}, err
	}

	s.log.Info("team created", zap.String("team", created.TeamID), zap.String("name", created.TeamName))
	return created, nil
}

func (s *Service) GetTeam(ctx context.Context, teamID string) (model.Team, error) {
	t, err := s.repo.GetTeam(ctx, teamID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Team{}, apiErrors.APIError{Code: apiErrors.NotFound, Message: "team not found"}
		}
		return model.Team{}, err
	}
	return t, nil
}

func (s *Service) ListTeams(ctx context.Context) ([]model.Team, error) {
	return s.repo.ListTeams(ctx)
}

type UpdateTeamInput struct {
	TeamName       *string
	Description    *string
	Specialization *string
}

func (s *Service) UpdateTeam(ctx context.Context, teamID string, in UpdateTeamInput) (model.Team, error) {
	t, err := s.GetTeam(ctx, teamID)
	if err != nil {
		return model.Team{}, err
	}

	if in.TeamName != nil {
		name := strings.TrimSpace(*in.TeamName)
		if name == "" {
			return model.Team{}, apiErrors.APIError{Code: apiErrors.ValidationError, Message: "team name cannot be empty"}
		}
		if name != t.TeamName {
			if existing, err := s.repo.GetTeamByName(ctx, name); err == nil && existing.TeamID != teamID {
				return model.Team{}, apiErrors.APIError{Code: apiErrors.TeamExists, Message: "a team with this name already exists"}
			} else if err != nil && !errors.Is(err, model.ErrNotFound) {
				return model.Team{}, err
			}
		}
		t.TeamName = name
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Specialization != nil {
		t.Specialization = *in.Specialization
	}

	if err := s.repo.UpdateTeam(ctx, t); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Team{}, apiErrors.APIError{Code: apiErrors.NotFound, Message: "team not found"}
		}
		return model.Team{}, err
	}
	return s.GetTeam(ctx, teamID)
}

// DeleteTeam removes a team. Teams that still hold active job cards cannot
// be deleted; completed or superseded cards are detached and kept.
func (s *Service) DeleteTeam(ctx context.Context, teamID string) error {
	if _, err := s.GetTeam(ctx, teamID); err != nil {
		return err
	}

	active, err := s.repo.CountActiveJobCardsForTeam(ctx, teamID)
	if err != nil {
		return err
	}
	if active > 0 {
		return apiErrors.APIError{
			Code:    apiErrors.TeamHasWork,
			Message: fmt.Sprintf("team still has %d active job cards", active),
		}
	}

	if err := s.repo.DeleteTeam(ctx, teamID); err != nil {
		switch {
		case errors.Is(err, model.ErrConflict):
			return apiErrors.APIError{Code: apiErrors.TeamHasWork, Message: "team still has active job cards"}
		case errors.Is(err, model.ErrNotFound):
			return apiErrors.APIError{Code: apiErrors.NotFound, Message: "team not found"}
		}
		return err
	}

	s.log.Info("team deleted", zap.String("team", teamID))
	return nil
}

func (s *Service) AddTeamMember(ctx context.Context, teamID, userID string) (model.Team, error) {
	if _, err := s.GetTeam(ctx, teamID); err != nil {
		return model.Team{}, err
	}
	if _, err := s.repo.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Team{}, apiErrors.APIError{Code: apiErrors.NotFound, Message: "user not found"}
		}
		return model.Team{}, err
	}

	if err := s.repo.AddTeamMember(ctx, teamID, userID); err != nil {
		if errors.Is(err, model.ErrConflict) {
			return model.Team{}, apiErrors.APIError{Code: apiErrors.AlreadyMember, Message: "user is already a member of this team"}
		}
		return model.Team{}, err
	}
	return s.GetTeam(ctx, teamID)
}

func (s *Service) RemoveTeamMember(ctx context.Context, teamID, userID string) (model.Team, error) {
	t, err := s.GetTeam(ctx, teamID)
	if err != nil {
		return model.Team{}, err
	}
	if t.LeaderID == userID {
		return model.Team{}, apiErrors.APIError{Code: apiErrors.InvalidState, Message: "assign a new leader before removing the current one"}
	}

	if err := s.repo.RemoveTeamMember(ctx, teamID, userID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Team{}, apiErrors.APIError{Code: apiErrors.NotFound, Message: "user is not a member of this team"}
		}
		return model.Team{}, err
	}
	return s.GetTeam(ctx, teamID)
}

// SetTeamLeader promotes a member to leader, adding them to the team first
// if needed.
func (s *Service) SetTeamLeader(ctx context.Context, teamID, userID string) (model.Team, error) {
	t, err := s.GetTeam(ctx, teamID)
	if err != nil {
		return model.Team{}, err
	}
	if _, err := s.repo.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Team{}, apiErrors.APIError{Code: apiErrors.NotFound, Message: "user not found"}
		}
		return model.Team{}, err
	}

	isMember := false
	for _, m := range t.Members {
		if m.UserID == userID {
			isMember = true
			break
		}
	}
	if !isMember {
		if err := s.repo.AddTeamMember(ctx, teamID, userID); err != nil && !errors.Is(err, model.ErrConflict) {
			return model.Team{}, err
		}
	}

	if err := s.repo.SetTeamLeader(ctx, teamID, userID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Team{}, apiErrors.APIError{Code: apiErrors.NotFound, Message: "team not found"}
		}
		return model.Team{}, err
	}

	s.log.Info("team leader changed", zap.String("team", teamID), zap.String("leader", userID))
	return s.GetTeam(ctx, teamID)
}
