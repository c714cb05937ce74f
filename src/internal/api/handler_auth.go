package api

import (
	"errors"
	"net/http"

	"github.com/drainworks/sewer-dispatch-service/src/internal/api/apiErrors"
	"github.com/drainworks/sewer-dispatch-service/src/internal/model"
	"github.com/drainworks/sewer-dispatch-service/src/internal/service"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	Role      string `json:"role" validate:"omitempty,oneof=citizen technician team_leader manager admin"`
}

// loginUserView is the shape the dispatch clients expect back from /login.
type loginUserView struct {
	ID    string     `json:"id"`
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
	Name  string     `json:"name"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		handleSvcError(w, err)
		return
	}

	token, user, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		var apiErr apiErrors.APIError
		if errors.As(err, &apiErr) && apiErr.Code == apiErrors.AuthError {
			writeJSON(w, http.StatusUnauthorized, map[string]any{
				"success": false,
				"error":   map[string]any{"code": apiErr.Code, "message": apiErr.Message},
			})
			return
		}
		handleSvcError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"token":   token,
		"user": loginUserView{
			ID:    user.UserID,
			Email: user.Email,
			Role:  user.Role,
			Name:  user.FullName(),
		},
	})
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context())
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		handleSvcError(w, err)
		return
	}

	user, err := h.svc.Register(r.Context(), service.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Role:      model.Role(req.Role),
	})
	if err != nil {
		handleSvcError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"user": user})
}
