package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/drainworks/sewer-dispatch-service/src/internal/service"
)

type createTeamRequest struct {
	TeamName       string   `json:"team_name" validate:"required"`
	Description    string   `json:"description"`
	Specialization string   `json:"specialization"`
	LeaderID       string   `json:"leader_id" validate:"required"`
	MemberIDs      []string `json:"member_ids"`
}

type updateTeamRequest struct {
	TeamName       *string `json:"team_name"`
	Description    *string `json:"description"`
	Specialization *string `json:"specialization"`
}

type teamMemberRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

func (h *Handler) createTeam(w http.ResponseWriter, r *http.Request) {
	var req createTeamRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		handleSvcError(w, err)
		return
	}

	team, err := h.svc.CreateTeam(r.Context(), service.CreateTeamInput{
		TeamName:       req.TeamName,
		Description:    req.Description,
		Specialization: req.Specialization,
		LeaderID:       req.LeaderID,
		MemberIDs:      req.MemberIDs,
	})
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"team": team})
}

func (h *Handler) listTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.svc.ListTeams(r.Context())
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"teams": teams})
}

func (h *Handler) getTeam(w http.ResponseWriter, r *http.Request) {
	team, err := h.svc.GetTeam(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"team": team})
}

func (h *Handler) updateTeam(w http.ResponseWriter, r *http.Request) {
	var req updateTeamRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		handleSvcError(w, err)
		return
	}

	team, err := h.svc.UpdateTeam(r.Context(), chi.URLParam(r, "id"), service.UpdateTeamInput{
		TeamName:       req.TeamName,
		Description:    req.Description,
		Specialization: req.Specialization,
	})
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"team": team})
}

func (h *Handler) deleteTeam(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteTeam(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleSvcError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listTeamMembers(w http.ResponseWriter, r *http.Request) {
	team, err := h.svc.GetTeam(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"team_id": team.TeamID, "members": team.Members})
}

func (h *Handler) addTeamMember(w http.ResponseWriter, r *http.Request) {
	var req teamMemberRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		handleSvcError(w, err)
		return
	}

	team, err := h.svc.AddTeamMember(r.Context(), chi.URLParam(r, "id"), req.UserID)
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"team": team})
}

func (h *Handler) removeTeamMember(w http.ResponseWriter, r *http.Request) {
	team, err := h.svc.RemoveTeamMember(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "memberID"))
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"team": team})
}

func (h *Handler) setTeamLeader(w http.ResponseWriter, r *http.Request) {
	var req teamMemberRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		handleSvcError(w, err)
		return
	}

	team, err := h.svc.SetTeamLeader(r.Context(), chi.URLParam(r, "id"), req.UserID)
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"team": team})
}
