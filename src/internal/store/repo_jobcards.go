package store

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/drainworks/sewer-dispatch-service/src/internal/model"
)

const jobCardColumns = `job_card_id, incident_id, team_id, priority, description,
	estimated_duration_minutes, status, created_at, superseded_at`

func scanJobCard(row interface{ Scan(...any) error }) (model.JobCard, error) {
	var c model.JobCard
	var teamID sql.NullString
	var supersededAt sql.NullTime
	err := row.Scan(&c.JobCardID, &c.IncidentID, &teamID, &c.Priority, &c.Description,
		&c.EstimatedDurationMinutes, &c.Status, &c.CreatedAt, &supersededAt)
	if err != nil {
		return model.JobCard{}, err
	}
	// team_id is NULL on cards whose team was deleted after the work closed.
	if teamID.Valid {
		c.TeamID = teamID.String
	}
	if supersededAt.Valid {
		t := supersededAt.Time
		c.SupersededAt = &t
	}
	return c, nil
}

func (r *Repositories) GetJobCard(ctx context.Context, jobCardID string) (model.JobCard, error) {
	r.Log.Debug("GetJobCard: start", zap.String("job_card", jobCardID))
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+jobCardColumns+` FROM job_cards WHERE job_card_id=$1`, jobCardID)
	card, err := scanJobCard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.Log.Debug("GetJobCard: not found", zap.String("job_card", jobCardID))
			return model.JobCard{}, model.ErrNotFound
		}
		r.Log.Error("GetJobCard: query failed", zap.Error(err))
		return model.JobCard{}, err
	}
	return card, nil
}

func (r *Repositories) GetJobCardByIdempotencyKey(ctx context.Context, key string) (model.JobCard, error) {
	r.Log.Debug("GetJobCardByIdempotencyKey: start")
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+jobCardColumns+` FROM job_cards
		WHERE job_card_id = (SELECT job_card_id FROM allocation_keys WHERE idempotency_key=$1)`, key)
	card, err := scanJobCard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.JobCard{}, model.ErrNotFound
		}
		r.Log.Error("GetJobCardByIdempotencyKey: query failed", zap.Error(err))
		return model.JobCard{}, err
	}
	return card, nil
}

func (r *Repositories) GetActiveJobCardForIncident(ctx context.Context, incidentID string) (model.JobCard, error) {
	r.Log.Debug("GetActiveJobCardForIncident: start", zap.String("incident", incidentID))
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+jobCardColumns+` FROM job_cards WHERE incident_id=$1 AND superseded_at IS NULL`, incidentID)
	card, err := scanJobCard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.JobCard{}, model.ErrNotFound
		}
		r.Log.Error("GetActiveJobCardForIncident: query failed", zap.Error(err))
		return model.JobCard{}, err
	}
	return card, nil
}

func (r *Repositories) listJobCards(ctx context.Context, query string, args ...any) ([]model.JobCard, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			r.Log.Error("listJobCards: close rows failed", zap.Error(err))
		}
	}()

	cards := make([]model.JobCard, 0)
	for rows.Next() {
		card, err := scanJobCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

func (r *Repositories) ListJobCards(ctx context.Context) ([]model.JobCard, error) {
	r.Log.Debug("ListJobCards: start")
	cards, err := r.listJobCards(ctx,
		`SELECT `+jobCardColumns+` FROM job_cards ORDER BY created_at DESC`)
	if err != nil {
		r.Log.Error("ListJobCards: query failed", zap.Error(err))
		return nil, err
	}
	return cards, nil
}

func (r *Repositories) ListJobCardsForTeam(ctx context.Context, teamID string) ([]model.JobCard, error) {
	r.Log.Debug("ListJobCardsForTeam: start", zap.String("team", teamID))
	cards, err := r.listJobCards(ctx,
		`SELECT `+jobCardColumns+` FROM job_cards WHERE team_id=$1 ORDER BY created_at DESC`, teamID)
	if err != nil {
		r.Log.Error("ListJobCardsForTeam: query failed", zap.Error(err))
		return nil, err
	}
	return cards, nil
}

// UpdateJobCardStatus applies a guarded transition: the expected current
// status is part of the WHERE clause, so a stale or concurrent update fails
// with ErrInvalidState instead of clobbering.
func (r *Repositories) UpdateJobCardStatus(ctx context.Context, jobCardID string, from, to model.JobCardStatus) (model.JobCard, error) {
	r.Log.Debug("UpdateJobCardStatus: start",
		zap.String("job_card", jobCardID), zap.String("from", string(from)), zap.String("to", string(to)))

	res, err := r.DB.ExecContext(ctx,
		`UPDATE job_cards SET status=$3 WHERE job_card_id=$1 AND status=$2 AND superseded_at IS NULL`,
		jobCardID, from, to)
	if err != nil {
		r.Log.Error("UpdateJobCardStatus: update failed", zap.Error(err))
		return model.JobCard{}, err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		var exists bool
		if err := r.DB.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM job_cards WHERE job_card_id=$1)`, jobCardID).Scan(&exists); err != nil {
			return model.JobCard{}, err
		}
		if !exists {
			return model.JobCard{}, model.ErrNotFound
		}
		r.Log.Debug("UpdateJobCardStatus: lost transition race", zap.String("job_card", jobCardID))
		return model.JobCard{}, model.ErrInvalidState
	}

	card, err := r.GetJobCard(ctx, jobCardID)
	if err != nil {
		return model.JobCard{}, err
	}

	r.invalidateStatsCache(ctx)
	r.Log.Info("UpdateJobCardStatus: success", zap.String("job_card", jobCardID), zap.String("status", string(to)))
	return card, nil
}
