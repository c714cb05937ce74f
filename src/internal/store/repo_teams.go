package store

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/drainworks/sewer-dispatch-service/src/internal/model"
)

func (r *Repositories) CreateTeam(ctx context.Context, t model.Team) (model.Team, error) {
	r.Log.Debug("CreateTeam: start", zap.String("team", t.TeamName))

	tx, err := r.BeginTx(ctx)
	if err != nil {
		r.Log.Error("CreateTeam: begin tx failed", zap.Error(err))
		return model.Team{}, err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			r.Log.Warn("CreateTeam: rollback failed", zap.Error(err))
		}
	}()

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM teams WHERE team_name=$1)`, t.TeamName).Scan(&exists); err != nil {
		r.Log.Error("CreateTeam: check name exists failed", zap.Error(err))
		return model.Team{}, err
	}
	if exists {
		r.Log.Debug("CreateTeam: name conflict", zap.String("team", t.TeamName))
		return model.Team{}, model.ErrConflict
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO teams(team_id, team_name, description, specialization, leader_id) VALUES($1,$2,$3,$4,$5)`,
		t.TeamID, t.TeamName, t.Description, t.Specialization, t.LeaderID); err != nil {
		r.Log.Error("CreateTeam: insert team failed", zap.Error(err))
		return model.Team{}, err
	}

	for _, m := range t.Members {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO team_members(team_id, user_id) VALUES($1,$2)`, t.TeamID, m.UserID); err != nil {
			r.Log.Error("CreateTeam: insert member failed", zap.String("user", m.UserID), zap.Error(err))
			return model.Team{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		r.Log.Error("CreateTeam: commit failed", zap.Error(err))
		return model.Team{}, err
	}

	r.Log.Info("CreateTeam: success", zap.String("team", t.TeamName), zap.Int("members", len(t.Members)))
	return t, nil
}

func (r *Repositories) scanTeamMembers(ctx context.Context, teamID string) ([]model.TeamMember, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT u.user_id, u.first_name, u.last_name, u.email, u.role
		FROM team_members tm
		JOIN users u ON u.user_id = tm.user_id
		WHERE tm.team_id=$1
		ORDER BY u.last_name, u.first_name`, teamID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			r.Log.Error("scanTeamMembers: close rows failed", zap.Error(err))
		}
	}()

	var members []model.TeamMember
	for rows.Next() {
		var m model.TeamMember
		if err := rows.Scan(&m.UserID, &m.FirstName, &m.LastName, &m.Email, &m.Role); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *Repositories) GetTeam(ctx context.Context, teamID string) (model.Team, error) {
	r.Log.Debug("GetTeam: start", zap.String("team", teamID))
	var t model.Team
	if err := r.DB.QueryRowContext(ctx,
		`SELECT team_id, team_name, description, specialization, leader_id, created_at FROM teams WHERE team_id=$1`, teamID).
		Scan(&t.TeamID, &t.TeamName, &t.Description, &t.Specialization, &t.LeaderID, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.Log.Debug("GetTeam: not found", zap.String("team", teamID))
			return model.Team{}, model.ErrNotFound
		}
		r.Log.Error("GetTeam: query failed", zap.Error(err))
		return model.Team{}, err
	}

	members, err := r.scanTeamMembers(ctx, teamID)
	if err != nil {
		r.Log.Error("GetTeam: query members failed", zap.Error(err))
		return model.Team{}, err
	}
	t.Members = members
	return t, nil
}

func (r *Repositories) GetTeamByName(ctx context.Context, name string) (model.Team, error) {
	r.Log.Debug("GetTeamByName: start", zap.String("team", name))
	var t model.Team
	if err := r.DB.QueryRowContext(ctx,
		`SELECT team_id, team_name, description, specialization, leader_id, created_at FROM teams WHERE team_name=$1`, name).
		Scan(&t.TeamID, &t.TeamName, &t.Description, &t.Specialization, &t.LeaderID, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Team{}, model.ErrNotFound
		}
		r.Log.Error("GetTeamByName: query failed", zap.Error(err))
		return model.Team{}, err
	}
	return t, nil
}

func (r *Repositories) ListTeams(ctx context.Context) ([]model.Team, error) {
	r.Log.Debug("ListTeams: start")
	rows, err := r.DB.QueryContext(ctx,
		`SELECT team_id, team_name, description, specialization, leader_id, created_at FROM teams ORDER BY team_name`)
	if err != nil {
		r.Log.Error("ListTeams: query failed", zap.Error(err))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			r.Log.Error("ListTeams: close rows failed", zap.Error(err))
		}
	}()

	teams := make([]model.Team, 0)
	for rows.Next() {
		var t model.Team
		if err := rows.Scan(&t.TeamID, &t.TeamName, &t.Description, &t.Specialization, &t.LeaderID, &t.CreatedAt); err != nil {
			r.Log.Error("ListTeams: scan failed", zap.Error(err))
			return nil, err
		}
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		r.Log.Error("ListTeams: rows error", zap.Error(err))
		return nil, err
	}

	for i := range teams {
		members, err := r.scanTeamMembers(ctx, teams[i].TeamID)
		if err != nil {
			r.Log.Error("ListTeams: query members failed", zap.String("team", teams[i].TeamID), zap.Error(err))
			return nil, err
		}
		teams[i].Members = members
	}
	return teams, nil
}

func (r *Repositories) UpdateTeam(ctx context.Context, t model.Team) error {
	r.Log.Debug("UpdateTeam: start", zap.String("team", t.TeamID))
	res, err := r.DB.ExecContext(ctx,
		`UPDATE teams SET team_name=$2, description=$3, specialization=$4 WHERE team_id=$1`,
		t.TeamID, t.TeamName, t.Description, t.Specialization)
	if err != nil {
		r.Log.Error("UpdateTeam: update failed", zap.Error(err))
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return model.ErrNotFound
	}
	r.Log.Info("UpdateTeam: success", zap.String("team", t.TeamID))
	return nil
}

func (r *Repositories) DeleteTeam(ctx context.Context, teamID string) error {
	r.Log.Debug("DeleteTeam: start", zap.String("team", teamID))

	tx, err := r.BeginTx(ctx)
	if err != nil {
		r.Log.Error("DeleteTeam: begin tx failed", zap.Error(err))
		return err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			r.Log.Warn("DeleteTeam: rollback failed", zap.Error(err))
		}
	}()

	var active int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM job_cards WHERE team_id=$1 AND superseded_at IS NULL AND status <> 'completed'`, teamID).
		Scan(&active); err != nil {
		r.Log.Error("DeleteTeam: count active cards failed", zap.Error(err))
		return err
	}
	if active > 0 {
		r.Log.Debug("DeleteTeam: active job cards present", zap.String("team", teamID), zap.Int("active", active))
		return model.ErrConflict
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM teams WHERE team_id=$1`, teamID)
	if err != nil {
		r.Log.Error("DeleteTeam: delete failed", zap.Error(err))
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return model.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		r.Log.Error("DeleteTeam: commit failed", zap.Error(err))
		return err
	}
	r.Log.Info("DeleteTeam: success", zap.String("team", teamID))
	return nil
}

func (r *Repositories) AddTeamMember(ctx context.Context, teamID, userID string) error {
	r.Log.Debug("AddTeamMember: start", zap.String("team", teamID), zap.String("user", userID))

	var member bool
	if err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM team_members WHERE team_id=$1 AND user_id=$2)`, teamID, userID).Scan(&member); err != nil {
		r.Log.Error("AddTeamMember: check membership failed", zap.Error(err))
		return err
	}
	if member {
		r.Log.Debug("AddTeamMember: already a member", zap.String("user", userID))
		return model.ErrConflict
	}

	if _, err := r.DB.ExecContext(ctx,
		`INSERT INTO team_members(team_id, user_id) VALUES($1,$2)`, teamID, userID); err != nil {
		r.Log.Error("AddTeamMember: insert failed", zap.Error(err))
		return err
	}
	r.Log.Info("AddTeamMember: success", zap.String("team", teamID), zap.String("user", userID))
	return nil
}

func (r *Repositories) RemoveTeamMember(ctx context.Context, teamID, userID string) error {
	r.Log.Debug("RemoveTeamMember: start", zap.String("team", teamID), zap.String("user", userID))
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM team_members WHERE team_id=$1 AND user_id=$2`, teamID, userID)
	if err != nil {
		r.Log.Error("RemoveTeamMember: delete failed", zap.Error(err))
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return model.ErrNotFound
	}
	r.Log.Info("RemoveTeamMember: success", zap.String("team", teamID), zap.String("user", userID))
	return nil
}

func (r *Repositories) SetTeamLeader(ctx context.Context, teamID, userID string) error {
	r.Log.Debug("SetTeamLeader: start", zap.String("team", teamID), zap.String("user", userID))
	res, err := r.DB.ExecContext(ctx,
		`UPDATE teams SET leader_id=$2 WHERE team_id=$1`, teamID, userID)
	if err != nil {
		r.Log.Error("SetTeamLeader: update failed", zap.Error(err))
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return model.ErrNotFound
	}
	r.Log.Info("SetTeamLeader: success", zap.String("team", teamID), zap.String("leader", userID))
	return nil
}

func (r *Repositories) CountActiveJobCardsForTeam(ctx context.Context, teamID string) (int, error) {
	r.Log.Debug("CountActiveJobCardsForTeam: start", zap.String("team", teamID))
	var count int
	if err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM job_cards WHERE team_id=$1 AND superseded_at IS NULL AND status <> 'completed'`, teamID).
		Scan(&count); err != nil {
		r.Log.Error("CountActiveJobCardsForTeam: query failed", zap.Error(err))
		return 0, err
	}
	return count, nil
}
