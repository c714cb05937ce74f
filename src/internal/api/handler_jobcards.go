package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/drainworks/sewer-dispatch-service/src/internal/model"
)

type jobCardStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=assigned in_progress completed"`
}

func (h *Handler) listJobCards(w http.ResponseWriter, r *http.Request) {
	cards, err := h.svc.ListJobCards(r.Context())
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"job_cards": cards})
}

func (h *Handler) getJobCard(w http.ResponseWriter, r *http.Request) {
	card, err := h.svc.GetJobCard(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"job_card": card})
}

func (h *Handler) listTeamJobCards(w http.ResponseWriter, r *http.Request) {
	teamID := chi.URLParam(r, "teamID")
	cards, err := h.svc.ListJobCardsForTeam(r.Context(), teamID)
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"team_id": teamID, "job_cards": cards})
}

func (h *Handler) updateJobCardStatus(w http.ResponseWriter, r *http.Request) {
	var req jobCardStatusRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		handleSvcError(w, err)
		return
	}

	card, err := h.svc.UpdateJobCardStatus(r.Context(), chi.URLParam(r, "id"), model.JobCardStatus(req.Status), actorID(r))
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"job_card": card})
}

func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.GetStats(r.Context())
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) getActivity(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.svc.ListActivity(r.Context(), limit)
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"activity": entries})
}

func (h *Handler) getUserNotifications(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.svc.GetUserNotifications(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": entries})
}
