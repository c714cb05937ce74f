package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/drainworks/sewer-dispatch-service/src/internal/model"
)

const incidentColumns = `incident_id, incident_number, description, category, priority, status,
	location, latitude, longitude, reporter_contact, reporter_id, assigned_team_id, created_at, resolved_at`

func scanIncident(row interface{ Scan(...any) error }) (model.Incident, error) {
	var inc model.Incident
	var reporterID sql.NullString
	var teamID sql.NullString
	var resolvedAt sql.NullTime
	err := row.Scan(
		&inc.IncidentID, &inc.IncidentNumber, &inc.Description, &inc.Category, &inc.Priority, &inc.Status,
		&inc.Location, &inc.Latitude, &inc.Longitude, &inc.ReporterContact, &reporterID, &teamID,
		&inc.CreatedAt, &resolvedAt)
	if err != nil {
		return model.Incident{}, err
	}
	if reporterID.Valid {
		inc.ReporterID = reporterID.String
	}
	if teamID.Valid {
		t := teamID.String
		inc.AssignedTeamID = &t
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		inc.ResolvedAt = &t
	}
	return inc, nil
}

// CreateIncident inserts the incident and assigns it the next human-readable
// incident number from the DB sequence.
func (r *Repositories) CreateIncident(ctx context.Context, inc *model.Incident) error {
	r.Log.Debug("CreateIncident: start", zap.String("category", inc.Category))

	var reporterID any
	if inc.ReporterID != "" {
		reporterID = inc.ReporterID
	}

	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO incidents(incident_id, incident_number, description, category, priority, status,
			location, latitude, longitude, reporter_contact, reporter_id)
		VALUES($1, 'INC-' || lpad(nextval('incident_number_seq')::text, 4, '0'), $2, $3, $4, 'reported', $5, $6, $7, $8, $9)
		RETURNING incident_number, created_at`,
		inc.IncidentID, inc.Description, inc.Category, inc.Priority,
		inc.Location, inc.Latitude, inc.Longitude, inc.ReporterContact, reporterID).
		Scan(&inc.IncidentNumber, &inc.CreatedAt)
	if err != nil {
		r.Log.Error("CreateIncident: insert failed", zap.Error(err))
		return err
	}
	inc.Status = model.IncidentReported

	r.invalidateStatsCache(ctx)
	r.Log.Info("CreateIncident: success", zap.String("incident", inc.IncidentID), zap.String("number", inc.IncidentNumber))
	return nil
}

func (r *Repositories) GetIncident(ctx context.Context, incidentID string) (model.Incident, error) {
	r.Log.Debug("GetIncident: start", zap.String("incident", incidentID))
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+incidentColumns+` FROM incidents WHERE incident_id=$1`, incidentID)
	inc, err := scanIncident(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.Log.Debug("GetIncident: not found", zap.String("incident", incidentID))
			return model.Incident{}, model.ErrNotFound
		}
		r.Log.Error("GetIncident: query failed", zap.Error(err))
		return model.Incident{}, err
	}
	return inc, nil
}

func (r *Repositories) ListIncidents(ctx context.Context, filter IncidentFilter) ([]model.Incident, error) {
	r.Log.Debug("ListIncidents: start")

	query := `SELECT ` + incidentColumns + ` FROM incidents`
	if filter.Allocated != nil {
		if *filter.Allocated {
			query += ` WHERE assigned_team_id IS NOT NULL`
		} else {
			query += ` WHERE assigned_team_id IS NULL`
		}
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		r.Log.Error("ListIncidents: query failed", zap.Error(err))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			r.Log.Error("ListIncidents: close rows failed", zap.Error(err))
		}
	}()

	incidents := make([]model.Incident, 0)
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			r.Log.Error("ListIncidents: scan failed", zap.Error(err))
			return nil, err
		}
		incidents = append(incidents, inc)
	}
	if err := rows.Err(); err != nil {
		r.Log.Error("ListIncidents: rows error", zap.Error(err))
		return nil, err
	}
	return incidents, nil
}

func (r *Repositories) UpdateIncident(ctx context.Context, inc model.Incident) error {
	r.Log.Debug("UpdateIncident: start", zap.String("incident", inc.IncidentID))
	res, err := r.DB.ExecContext(ctx, `
		UPDATE incidents SET description=$2, category=$3, priority=$4, location=$5,
			latitude=$6, longitude=$7, reporter_contact=$8
		WHERE incident_id=$1`,
		inc.IncidentID, inc.Description, inc.Category, inc.Priority, inc.Location,
		inc.Latitude, inc.Longitude, inc.ReporterContact)
	if err != nil {
		r.Log.Error("UpdateIncident: update failed", zap.Error(err))
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return model.ErrNotFound
	}
	r.Log.Info("UpdateIncident: success", zap.String("incident", inc.IncidentID))
	return nil
}

// UpdateIncidentStatus applies a guarded status transition. The previous
// status is part of the WHERE clause so a concurrent transition loses cleanly
// instead of overwriting.
func (r *Repositories) UpdateIncidentStatus(ctx context.Context, incidentID string, from, to model.IncidentStatus, resolvedAt *time.Time) error {
	r.Log.Debug("UpdateIncidentStatus: start",
		zap.String("incident", incidentID), zap.String("from", string(from)), zap.String("to", string(to)))

	res, err := r.DB.ExecContext(ctx,
		`UPDATE incidents SET status=$3, resolved_at=COALESCE($4, resolved_at) WHERE incident_id=$1 AND status=$2`,
		incidentID, from, to, resolvedAt)
	if err != nil {
		r.Log.Error("UpdateIncidentStatus: update failed", zap.Error(err))
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		var exists bool
		if err := r.DB.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM incidents WHERE incident_id=$1)`, incidentID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return model.ErrNotFound
		}
		r.Log.Debug("UpdateIncidentStatus: lost transition race", zap.String("incident", incidentID))
		return model.ErrInvalidState
	}

	r.invalidateStatsCache(ctx)
	r.Log.Info("UpdateIncidentStatus: success", zap.String("incident", incidentID), zap.String("status", string(to)))
	return nil
}

// CreateAllocation binds an incident to a team in one transaction: the job
// card is created, the incident moves reported -> verified, and the activity
// entry is appended. The incident row is locked so a concurrent allocate
// observes the new status and fails with ErrInvalidState.
func (r *Repositories) CreateAllocation(ctx context.Context, card model.JobCard, entry model.ActivityEntry, idempotencyKey string) error {
	r.Log.Debug("CreateAllocation: start",
		zap.String("incident", card.IncidentID), zap.String("team", card.TeamID))

	tx, err := r.BeginTx(ctx)
	if err != nil {
		r.Log.Error("CreateAllocation: begin tx failed", zap.Error(err))
		return err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			r.Log.Warn("CreateAllocation: rollback failed", zap.Error(err))
		}
	}()

	var status model.IncidentStatus
	if err := tx.QueryRowContext(ctx,
		`SELECT status FROM incidents WHERE incident_id=$1 FOR UPDATE`, card.IncidentID).Scan(&status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ErrNotFound
		}
		r.Log.Error("CreateAllocation: select for update failed", zap.Error(err))
		return err
	}
	if status != model.IncidentReported {
		r.Log.Debug("CreateAllocation: incident not in reported state",
			zap.String("incident", card.IncidentID), zap.String("status", string(status)))
		return model.ErrInvalidState
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO job_cards(job_card_id, incident_id, team_id, priority, description, estimated_duration_minutes, status)
		VALUES($1,$2,$3,$4,$5,$6,'assigned')`,
		card.JobCardID, card.IncidentID, card.TeamID, card.Priority, card.Description, card.EstimatedDurationMinutes); err != nil {
		r.Log.Error("CreateAllocation: insert job card failed", zap.Error(err))
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE incidents SET status='verified', assigned_team_id=$2 WHERE incident_id=$1`,
		card.IncidentID, card.TeamID); err != nil {
		r.Log.Error("CreateAllocation: update incident failed", zap.Error(err))
		return err
	}

	if err := appendActivityTx(ctx, tx, entry); err != nil {
		r.Log.Error("CreateAllocation: append activity failed", zap.Error(err))
		return err
	}

	if idempotencyKey != "" {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO allocation_keys(idempotency_key, job_card_id) VALUES($1,$2)`,
			idempotencyKey, card.JobCardID); err != nil {
			r.Log.Error("CreateAllocation: insert idempotency key failed", zap.Error(err))
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		r.Log.Error("CreateAllocation: commit failed", zap.Error(err))
		return err
	}

	r.invalidateStatsCache(ctx)
	r.Log.Info("CreateAllocation: success",
		zap.String("incident", card.IncidentID), zap.String("team", card.TeamID), zap.String("job_card", card.JobCardID))
	return nil
}

// UnassignIncident reverts the incident to reported and supersedes any live
// job card, preserving it for history.
func (r *Repositories) UnassignIncident(ctx context.Context, incidentID string, entry model.ActivityEntry) error {
	r.Log.Debug("UnassignIncident: start", zap.String("incident", incidentID))

	tx, err := r.BeginTx(ctx)
	if err != nil {
		r.Log.Error("UnassignIncident: begin tx failed", zap.Error(err))
		return err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			r.Log.Warn("UnassignIncident: rollback failed", zap.Error(err))
		}
	}()

	var status model.IncidentStatus
	if err := tx.QueryRowContext(ctx,
		`SELECT status FROM incidents WHERE incident_id=$1 FOR UPDATE`, incidentID).Scan(&status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ErrNotFound
		}
		r.Log.Error("UnassignIncident: select for update failed", zap.Error(err))
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE incidents SET status='reported', assigned_team_id=NULL, resolved_at=NULL WHERE incident_id=$1`,
		incidentID); err != nil {
		r.Log.Error("UnassignIncident: update incident failed", zap.Error(err))
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE job_cards SET superseded_at=now() WHERE incident_id=$1 AND superseded_at IS NULL`,
		incidentID); err != nil {
		r.Log.Error("UnassignIncident: supersede job cards failed", zap.Error(err))
		return err
	}

	if err := appendActivityTx(ctx, tx, entry); err != nil {
		r.Log.Error("UnassignIncident: append activity failed", zap.Error(err))
		return err
	}

	if err := tx.Commit(); err != nil {
		r.Log.Error("UnassignIncident: commit failed", zap.Error(err))
		return err
	}

	r.invalidateStatsCache(ctx)
	r.Log.Info("UnassignIncident: success", zap.String("incident", incidentID))
	return nil
}
