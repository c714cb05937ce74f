package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/drainworks/sewer-dispatch-service/src/internal/api/apiErrors"
	"github.com/drainworks/sewer-dispatch-service/src/internal/auth"
	"github.com/drainworks/sewer-dispatch-service/src/internal/model"
	"github.com/drainworks/sewer-dispatch-service/src/internal/store"
)

type Service struct {
	repo store.Repository
	auth *auth.Service
	log  *zap.Logger
}

func NewService(repo store.Repository, authSvc *auth.Service, logger *zap.Logger) *Service {
	return &Service{
		repo: repo,
		auth: authSvc,
		log:  logger,
	}
}

type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Role      model.Role
}

// Register creates a new user account. Duplicate emails conflict and leave
// the existing record untouched.
func (s *Service) Register(ctx context.Context, in RegisterInput) (model.User, error) {
	if in.Role == "" {
		in.Role = model.RoleCitizen
	}
	if !model.IsValidRole(in.Role) {
		return model.User{}, apiErrors.APIError{Code: apiErrors.ValidationError, Message: "invalid role"}
	}
	if err := s.auth.ValidatePassword(in.Password); err != nil {
		return model.User{}, apiErrors.APIError{Code: apiErrors.ValidationError, Message: err.Error()}
	}

	hash, err := s.auth.HashPassword(in.Password)
	if err != nil {
		return model.User{}, err
	}

	u := model.User{
		UserID:       uuid.New().String(),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: hash,
		Role:         in.Role,
	}

	if err := s.repo.CreateUser(ctx, u); err != nil {
		if errors.Is(err, model.ErrConflict) {
			return model.User{}, apiErrors.APIError{Code: apiErrors.EmailExists, Message: "email already registered"}
		}
		return model.User{}, err
	}

	s.log.Info("user registered", zap.String("user", u.UserID), zap.String("role", string(u.Role)))
	return u, nil
}

// Login verifies credentials and issues a token. The same error comes back
// for an unknown email and a wrong password.
func (s *Service) Login(ctx context.Context, email, password string) (string, model.User, error) {
	u, err := s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return "", model.User{}, apiErrors.APIError{Code: apiErrors.AuthError, Message: "invalid email or password"}
		}
		return "", model.User{}, err
	}

	if !s.auth.CheckPassword(password, u.PasswordHash) {
		return "", model.User{}, apiErrors.APIError{Code: apiErrors.AuthError, Message: "invalid email or password"}
	}

	token, err := s.auth.GenerateToken(u)
	if err != nil {
		return "", model.User{}, err
	}

	s.log.Info("user logged in", zap.String("user", u.UserID))
	return token, u, nil
}

// ListUsers serves the dispatch console's user picker. Password hashes never
// leave the store query.
func (s *Service) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.repo.ListUsers(ctx)
}
