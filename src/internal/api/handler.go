package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/drainworks/sewer-dispatch-service/src/internal/api/apiErrors"
	"github.com/drainworks/sewer-dispatch-service/src/internal/auth"
	"github.com/drainworks/sewer-dispatch-service/src/internal/config"
	"github.com/drainworks/sewer-dispatch-service/src/internal/service"
)

type Handler struct {
	svc      *service.Service
	log      *zap.Logger
	validate *validator.Validate
	cfg      *config.Config
}

func NewHandler(svc *service.Service, logger *zap.Logger, cfg *config.Config) *Handler {
	return &Handler{
		svc:      svc,
		log:      logger,
		validate: validator.New(),
		cfg:      cfg,
	}
}

func RegisterRoutes(r *chi.Mux, h *Handler, authSvc *auth.Service) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/login", withTimeout(h.login))
		r.Post("/submit", withTimeout(h.register))
		r.Get("/health", h.health)
		r.Get("/config", h.clientConfig)

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(authSvc))

			r.Route("/incidents", func(r chi.Router) {
				r.With(RequirePermission("create_incidents")).Post("/", withTimeout(h.reportIncident))
				r.Get("/", withTimeout(h.listIncidents))
				r.Get("/unallocated", withTimeout(h.listUnallocatedIncidents))
				r.Get("/allocated", withTimeout(h.listAllocatedIncidents))
				r.Get("/{id}", withTimeout(h.getIncident))
				r.Put("/{id}", withTimeout(h.updateIncident))
				r.With(RequirePermission("allocate_jobs")).Post("/{id}/allocate", withTimeout(h.allocateIncident))
				r.With(RequirePermission("allocate_jobs")).Post("/{id}/unassign", withTimeout(h.unassignIncident))
			})

			r.Route("/job-cards", func(r chi.Router) {
				r.With(RequirePermission("allocate_jobs")).Post("/allocate", withTimeout(h.allocateJobCard))
				r.Get("/", withTimeout(h.listJobCards))
				r.Get("/{id}", withTimeout(h.getJobCard))
				r.Get("/team/{teamID}", withTimeout(h.listTeamJobCards))
				r.With(RequirePermission("update_job_progress")).Put("/{id}/status", withTimeout(h.updateJobCardStatus))
			})

			r.Route("/teams", func(r chi.Router) {
				r.With(RequirePermission("manage_teams")).Post("/", withTimeout(h.createTeam))
				r.Get("/", withTimeout(h.listTeams))
				r.Get("/{id}", withTimeout(h.getTeam))
				r.With(RequirePermission("manage_teams")).Put("/{id}", withTimeout(h.updateTeam))
				r.With(RequirePermission("manage_teams")).Delete("/{id}", withTimeout(h.deleteTeam))
				r.Get("/{id}/members", withTimeout(h.listTeamMembers))
				r.With(RequirePermission("manage_teams")).Post("/{id}/members", withTimeout(h.addTeamMember))
				r.With(RequirePermission("manage_teams")).Delete("/{id}/members/{memberID}", withTimeout(h.removeTeamMember))
				r.With(RequirePermission("manage_teams")).Put("/{id}/leader", withTimeout(h.setTeamLeader))
			})

			r.Get("/stats", withTimeout(h.getStats))
			r.Get("/activity", withTimeout(h.getActivity))
			r.With(RequirePermission("manage_users")).Get("/users", withTimeout(h.listUsers))
			r.Get("/users/{id}/notifications", withTimeout(h.getUserNotifications))
		})
	})
}

func withTimeout(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		next(w, r.WithContext(ctx))
	}
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "OK"})
}

// clientConfig serves the settings the reporting clients need before login.
func (h *Handler) clientConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"apiBaseUrl":       h.cfg.APIBaseURL,
		"uploadPath":       h.cfg.UploadPath,
		"maxFileSize":      h.cfg.MaxFileSize,
		"allowedFileTypes": h.cfg.AllowedFileTypes,
	})
}

func (h *Handler) decodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apiErrors.APIError{Code: apiErrors.ValidationError, Message: "invalid request body"}
	}
	if err := h.validate.Struct(dst); err != nil {
		return apiErrors.APIError{Code: apiErrors.ValidationError, Message: err.Error()}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, code int, errCode apiErrors.ErrorCode, message string) {
	writeJSON(w, code, map[string]any{
		"error": map[string]any{"code": errCode, "message": message},
	})
}

func handleSvcError(w http.ResponseWriter, err error) {
	var e apiErrors.APIError
	switch {
	case errors.As(err, &e):
		switch e.Code {
		case apiErrors.EmailExists:
			writeError(w, http.StatusConflict, e.Code, e.Message)
		case apiErrors.TeamExists:
			writeError(w, http.StatusConflict, e.Code, e.Message)
		case apiErrors.AlreadyMember:
			writeError(w, http.StatusConflict, e.Code, e.Message)
		case apiErrors.TeamHasWork:
			writeError(w, http.StatusConflict, e.Code, e.Message)
		case apiErrors.InvalidState:
			writeError(w, http.StatusConflict, e.Code, e.Message)
		case apiErrors.ValidationError:
			writeError(w, http.StatusBadRequest, e.Code, e.Message)
		case apiErrors.NotFound:
			writeError(w, http.StatusNotFound, e.Code, e.Message)
		case apiErrors.AuthError:
			writeError(w, http.StatusUnauthorized, e.Code, e.Message)
		case apiErrors.Forbidden:
			writeError(w, http.StatusForbidden, e.Code, e.Message)
		default:
			writeError(w, http.StatusInternalServerError, apiErrors.InternalError, e.Message)
		}
	default:
		writeError(w, http.StatusInternalServerError, apiErrors.InternalError, err.Error())
	}
}
