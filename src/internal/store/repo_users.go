package store

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/drainworks/sewer-dispatch-service/src/internal/model"
)

func (r *Repositories) CreateUser(ctx context.Context, u model.User) error {
	r.Log.Debug("CreateUser: start", zap.String("email", u.Email))

	tx, err := r.BeginTx(ctx)
	if err != nil {
		r.Log.Error("CreateUser: begin tx failed", zap.Error(err))
		return err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			r.Log.Warn("CreateUser: rollback failed", zap.Error(err))
		}
	}()

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email=$1)`, u.Email).Scan(&exists); err != nil {
		r.Log.Error("CreateUser: check email exists failed", zap.Error(err))
		return err
	}
	if exists {
		r.Log.Debug("CreateUser: email conflict", zap.String("email", u.Email))
		return model.ErrConflict
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO users(user_id, first_name, last_name, email, password_hash, role) VALUES($1,$2,$3,$4,$5,$6)`,
		u.UserID, u.FirstName, u.LastName, u.Email, u.PasswordHash, u.Role); err != nil {
		r.Log.Error("CreateUser: insert failed", zap.Error(err))
		return err
	}

	if err := tx.Commit(); err != nil {
		r.Log.Error("CreateUser: commit failed", zap.Error(err))
		return err
	}

	r.Log.Info("CreateUser: success", zap.String("user", u.UserID))
	return nil
}

func (r *Repositories) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	r.Log.Debug("GetUserByEmail: start", zap.String("email", email))
	var u model.User
	if err := r.DB.QueryRowContext(ctx,
		`SELECT user_id, first_name, last_name, email, password_hash, role, created_at FROM users WHERE email=$1`, email).
		Scan(&u.UserID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.Log.Debug("GetUserByEmail: not found", zap.String("email", email))
			return model.User{}, model.ErrNotFound
		}
		r.Log.Error("GetUserByEmail: query failed", zap.Error(err))
		return model.User{}, err
	}
	return u, nil
}

// ListUsers returns all accounts without their password hashes.
func (r *Repositories) ListUsers(ctx context.Context) ([]model.User, error) {
	r.Log.Debug("ListUsers: start")

	rows, err := r.DB.QueryContext(ctx,
		`SELECT user_id, first_name, last_name, email, role, created_at FROM users ORDER BY created_at`)
	if err != nil {
		r.Log.Error("ListUsers: query failed", zap.Error(err))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			r.Log.Error("ListUsers: close rows failed", zap.Error(err))
		}
	}()

	users := make([]model.User, 0)
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.UserID, &u.FirstName, &u.LastName, &u.Email, &u.Role, &u.CreatedAt); err != nil {
			r.Log.Error("ListUsers: scan failed", zap.Error(err))
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		r.Log.Error("ListUsers: rows error", zap.Error(err))
		return nil, err
	}
	return users, nil
}

func (r *Repositories) GetUserByID(ctx context.Context, userID string) (model.User, error) {
	r.Log.Debug("GetUserByID: start", zap.String("user", userID))
	var u model.User
	if err := r.DB.QueryRowContext(ctx,
		`SELECT user_id, first_name, last_name, email, password_hash, role, created_at FROM users WHERE user_id=$1`, userID).
		Scan(&u.UserID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.Log.Debug("GetUserByID: not found", zap.String("user", userID))
			return model.User{}, model.ErrNotFound
		}
		r.Log.Error("GetUserByID: query failed", zap.Error(err))
		return model.User{}, err
	}
	return u, nil
}
