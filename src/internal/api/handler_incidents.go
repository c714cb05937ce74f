package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/drainworks/sewer-dispatch-service/src/internal/model"
	"github.com/drainworks/sewer-dispatch-service/src/internal/service"
)

type reportIncidentRequest struct {
	Description     string   `json:"description" validate:"required"`
	Category        string   `json:"category"`
	Priority        string   `json:"priority" validate:"omitempty,oneof=P0 P1 P2"`
	Location        string   `json:"location"`
	Latitude        *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude       *float64 `json:"longitude" validate:"omitempty,longitude"`
	ReporterContact string   `json:"reporter_contact"`
}

type updateIncidentRequest struct {
	Description     *string  `json:"description"`
	Category        *string  `json:"category"`
	Priority        *string  `json:"priority" validate:"omitempty,oneof=P0 P1 P2"`
	Location        *string  `json:"location"`
	Latitude        *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude       *float64 `json:"longitude" validate:"omitempty,longitude"`
	ReporterContact *string  `json:"reporter_contact"`
	Status          *string  `json:"status" validate:"omitempty,oneof=reported verified in_progress resolved"`
}

type allocateRequest struct {
	IncidentID               string `json:"incident_id"`
	TeamID                   string `json:"team_id" validate:"required"`
	Priority                 string `json:"priority" validate:"omitempty,oneof=P0 P1 P2"`
	Description              string `json:"description" validate:"required"`
	EstimatedDurationMinutes int    `json:"estimated_duration_minutes" validate:"required,gt=0"`
}

func (h *Handler) reportIncident(w http.ResponseWriter, r *http.Request) {
	var req reportIncidentRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		handleSvcError(w, err)
		return
	}

	var reporterID string
	if claims := claimsFrom(r); claims != nil {
		reporterID = claims.UserID
	}

	inc, err := h.svc.ReportIncident(r.Context(), service.ReportIncidentInput{
		Description:     req.Description,
		Category:        req.Category,
		Priority:        model.Priority(req.Priority),
		Location:        req.Location,
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		ReporterContact: req.ReporterContact,
		ReporterID:      reporterID,
	})
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"incident": inc})
}

func (h *Handler) listIncidents(w http.ResponseWriter, r *http.Request) {
	h.writeIncidentList(w, r, "")
}

func (h *Handler) listUnallocatedIncidents(w http.ResponseWriter, r *http.Request) {
	h.writeIncidentList(w, r, "unallocated")
}

func (h *Handler) listAllocatedIncidents(w http.ResponseWriter, r *http.Request) {
	h.writeIncidentList(w, r, "allocated")
}

func (h *Handler) writeIncidentList(w http.ResponseWriter, r *http.Request, view string) {
	incidents, err := h.svc.ListIncidents(r.Context(), view)
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"incidents": incidents})
}

func (h *Handler) getIncident(w http.ResponseWriter, r *http.Request) {
	inc, err := h.svc.GetIncident(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"incident": inc})
}

func (h *Handler) updateIncident(w http.ResponseWriter, r *http.Request) {
	var req updateIncidentRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		handleSvcError(w, err)
		return
	}

	in := service.UpdateIncidentInput{
		Description:     req.Description,
		Category:        req.Category,
		Location:        req.Location,
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		ReporterContact: req.ReporterContact,
	}
	if req.Priority != nil {
		p := model.Priority(*req.Priority)
		in.Priority = &p
	}
	if req.Status != nil {
		s := model.IncidentStatus(*req.Status)
		in.Status = &s
	}

	inc, err := h.svc.UpdateIncident(r.Context(), chi.URLParam(r, "id"), in, actorID(r))
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"incident": inc})
}

func (h *Handler) allocateIncident(w http.ResponseWriter, r *http.Request) {
	h.allocate(w, r, chi.URLParam(r, "id"))
}

// allocateJobCard is the body-addressed variant of allocation used by the
// dispatch console.
func (h *Handler) allocateJobCard(w http.ResponseWriter, r *http.Request) {
	h.allocate(w, r, "")
}

func (h *Handler) allocate(w http.ResponseWriter, r *http.Request, incidentID string) {
	var req allocateRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		handleSvcError(w, err)
		return
	}
	if incidentID == "" {
		incidentID = req.IncidentID
	}

	card, err := h.svc.Allocate(r.Context(), service.AllocateInput{
		IncidentID:               incidentID,
		TeamID:                   req.TeamID,
		Priority:                 model.Priority(req.Priority),
		Description:              req.Description,
		EstimatedDurationMinutes: req.EstimatedDurationMinutes,
		IdempotencyKey:           r.Header.Get("Idempotency-Key"),
	}, actorID(r))
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"job_card": card})
}

func (h *Handler) unassignIncident(w http.ResponseWriter, r *http.Request) {
	inc, err := h.svc.Unassign(r.Context(), chi.URLParam(r, "id"), actorID(r))
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"incident": inc})
}

func actorID(r *http.Request) string {
	if claims := claimsFrom(r); claims != nil {
		return claims.UserID
	}
	return ""
}
