package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/drainworks/sewer-dispatch-service/src/internal/model"
)

// IncidentFilter narrows incident listings by allocation state.
type IncidentFilter struct {
	Allocated *bool
}

type Repository interface {
	CreateUser(ctx context.Context, u model.User) error
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	GetUserByID(ctx context.Context, userID string) (model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)

	CreateTeam(ctx context.Context, t model.Team) (model.Team, error)
	GetTeam(ctx context.Context, teamID string) (model.Team, error)
	GetTeamByName(ctx context.Context, name string) (model.Team, error)
	ListTeams(ctx context.Context) ([]model.Team, error)
	UpdateTeam(ctx context.Context, t model.Team) error
	DeleteTeam(ctx context.Context, teamID string) error
	AddTeamMember(ctx context.Context, teamID, userID string) error
	RemoveTeamMember(ctx context.Context, teamID, userID string) error
	SetTeamLeader(ctx context.Context, teamID, userID string) error
	CountActiveJobCardsForTeam(ctx context.Context, teamID string) (int, error)

	CreateIncident(ctx context.Context, inc *model.Incident) error
	GetIncident(ctx context.Context, incidentID string) (model.Incident, error)
	ListIncidents(ctx context.Context, filter IncidentFilter) ([]model.Incident, error)
	UpdateIncident(ctx context.Context, inc model.Incident) error
	UpdateIncidentStatus(ctx context.Context, incidentID string, from, to model.IncidentStatus, resolvedAt *time.Time) error
	CreateAllocation(ctx context.Context, card model.JobCard, entry model.ActivityEntry, idempotencyKey string) error
	UnassignIncident(ctx context.Context, incidentID string, entry model.ActivityEntry) error

	GetJobCard(ctx context.Context, jobCardID string) (model.JobCard, error)
	GetJobCardByIdempotencyKey(ctx context.Context, key string) (model.JobCard, error)
	GetActiveJobCardForIncident(ctx context.Context, incidentID string) (model.JobCard, error)
	ListJobCards(ctx context.Context) ([]model.JobCard, error)
	ListJobCardsForTeam(ctx context.Context, teamID string) ([]model.JobCard, error)
	UpdateJobCardStatus(ctx context.Context, jobCardID string, from, to model.JobCardStatus) (model.JobCard, error)

	AppendActivity(ctx context.Context, e model.ActivityEntry) error
	ListActivity(ctx context.Context, limit int) ([]model.ActivityEntry, error)
	ListActivityForReporter(ctx context.Context, userID string, limit int) ([]model.ActivityEntry, error)

	GetDashboardStats(ctx context.Context) (DashboardStats, error)
}

type Repositories struct {
	DB    *sql.DB
	Log   *zap.Logger
	cache *StatsCache
}

func NewRepositories(db *sql.DB, logger *zap.Logger, redisClient *redis.Client, cacheTTL time.Duration) *Repositories {
	var cache *StatsCache
	if redisClient != nil {
		cache = NewStatsCache(redisClient, cacheTTL)
	}
	return &Repositories{
		DB:    db,
		Log:   logger,
		cache: cache,
	}
}

func (r *Repositories) BeginTx(ctx context.Context) (*sql.Tx, error) {
	r.Log.Debug("BeginTx called")
	return r.DB.BeginTx(ctx, &sql.TxOptions{})
}
