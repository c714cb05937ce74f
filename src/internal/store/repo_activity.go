package store

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/drainworks/sewer-dispatch-service/src/internal/model"
)

func appendActivityTx(ctx context.Context, tx *sql.Tx, e model.ActivityEntry) error {
	var incidentID, actorID any
	if e.IncidentID != "" {
		incidentID = e.IncidentID
	}
	if e.ActorID != "" {
		actorID = e.ActorID
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO activity_log(incident_id, actor_id, kind, message) VALUES($1,$2,$3,$4)`,
		incidentID, actorID, e.Kind, e.Message)
	return err
}

// AppendActivity is best-effort from the caller's perspective: failures are
// logged, never fatal to the triggering operation.
func (r *Repositories) AppendActivity(ctx context.Context, e model.ActivityEntry) error {
	r.Log.Debug("AppendActivity: start", zap.String("kind", e.Kind))

	var incidentID, actorID any
	if e.IncidentID != "" {
		incidentID = e.IncidentID
	}
	if e.ActorID != "" {
		actorID = e.ActorID
	}
	if _, err := r.DB.ExecContext(ctx,
		`INSERT INTO activity_log(incident_id, actor_id, kind, message) VALUES($1,$2,$3,$4)`,
		incidentID, actorID, e.Kind, e.Message); err != nil {
		r.Log.Error("AppendActivity: insert failed", zap.Error(err))
		return err
	}
	return nil
}

func (r *Repositories) scanActivity(rows *sql.Rows) ([]model.ActivityEntry, error) {
	defer func() {
		if err := rows.Close(); err != nil {
			r.Log.Error("scanActivity: close rows failed", zap.Error(err))
		}
	}()

	entries := make([]model.ActivityEntry, 0)
	for rows.Next() {
		var e model.ActivityEntry
		var incidentID, actorID sql.NullString
		if err := rows.Scan(&e.EntryID, &incidentID, &actorID, &e.Kind, &e.Message, &e.CreatedAt); err != nil {
			return nil, err
		}
		if incidentID.Valid {
			e.IncidentID = incidentID.String
		}
		if actorID.Valid {
			e.ActorID = actorID.String
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *Repositories) ListActivity(ctx context.Context, limit int) ([]model.ActivityEntry, error) {
	r.Log.Debug("ListActivity: start", zap.Int("limit", limit))
	rows, err := r.DB.QueryContext(ctx, `
		SELECT entry_id, incident_id, actor_id, kind, message, created_at
		FROM activity_log ORDER BY entry_id DESC LIMIT $1`, limit)
	if err != nil {
		r.Log.Error("ListActivity: query failed", zap.Error(err))
		return nil, err
	}
	return r.scanActivity(rows)
}

// ListActivityForReporter backs per-user notifications: the feed rows for
// incidents the given user reported.
func (r *Repositories) ListActivityForReporter(ctx context.Context, userID string, limit int) ([]model.ActivityEntry, error) {
	r.Log.Debug("ListActivityForReporter: start", zap.String("user", userID), zap.Int("limit", limit))
	rows, err := r.DB.QueryContext(ctx, `
		SELECT a.entry_id, a.incident_id, a.actor_id, a.kind, a.message, a.created_at
		FROM activity_log a
		JOIN incidents i ON i.incident_id = a.incident_id
		WHERE i.reporter_id = $1
		ORDER BY a.entry_id DESC LIMIT $2`, userID, limit)
	if err != nil {
		r.Log.Error("ListActivityForReporter: query failed", zap.Error(err))
		return nil, err
	}
	return r.scanActivity(rows)
}
