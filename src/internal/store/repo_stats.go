package store

import (
	"context"

	"go.uber.org/zap"
)

// DashboardStats is the payload behind GET /stats.
type DashboardStats struct {
	IncidentsByStatus   map[string]int `json:"incidents_by_status"`
	IncidentsByPriority map[string]int `json:"incidents_by_priority"`
	JobCardsByStatus    map[string]int `json:"job_cards_by_status"`
}

func (r *Repositories) queryCountMap(ctx context.Context, query string, logPrefix string) (map[string]int, error) {
	r.Log.Debug(logPrefix + ": start")
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		r.Log.Error(logPrefix+": query failed", zap.Error(err))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			r.Log.Info(logPrefix+": close rows failed", zap.Error(err))
		}
	}()

	result := make(map[string]int)
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			r.Log.Error(logPrefix+": scan failed", zap.Error(err))
			return nil, err
		}
		result[key] = count
	}

	r.Log.Debug(logPrefix+": success", zap.Int("items", len(result)))
	return result, rows.Err()
}

func (r *Repositories) GetIncidentStatusCounts(ctx context.Context) (map[string]int, error) {
	query := `
		SELECT status, COUNT(*)
		FROM incidents
		GROUP BY status
	`
	return r.queryCountMap(ctx, query, "GetIncidentStatusCounts")
}

func (r *Repositories) GetIncidentPriorityCounts(ctx context.Context) (map[string]int, error) {
	query := `
		SELECT priority, COUNT(*)
		FROM incidents
		GROUP BY priority
	`
	return r.queryCountMap(ctx, query, "GetIncidentPriorityCounts")
}

func (r *Repositories) GetJobCardStatusCounts(ctx context.Context) (map[string]int, error) {
	query := `
		SELECT status, COUNT(*)
		FROM job_cards
		WHERE superseded_at IS NULL
		GROUP BY status
	`
	return r.queryCountMap(ctx, query, "GetJobCardStatusCounts")
}

// GetDashboardStats assembles the stats payload, serving from the Redis
// cache when fresh and falling back to SQL on a miss or cache error.
func (r *Repositories) GetDashboardStats(ctx context.Context) (DashboardStats, error) {
	if r.cache != nil {
		var cached DashboardStats
		hit, err := r.cache.Get(ctx, &cached)
		if err != nil {
			r.Log.Warn("GetDashboardStats: cache read failed", zap.Error(err))
		} else if hit {
			r.Log.Debug("GetDashboardStats: cache hit")
			return cached, nil
		}
	}

	byStatus, err := r.GetIncidentStatusCounts(ctx)
	if err != nil {
		return DashboardStats{}, err
	}
	byPriority, err := r.GetIncidentPriorityCounts(ctx)
	if err != nil {
		return DashboardStats{}, err
	}
	cardsByStatus, err := r.GetJobCardStatusCounts(ctx)
	if err != nil {
		return DashboardStats{}, err
	}

	stats := DashboardStats{
		IncidentsByStatus:   byStatus,
		IncidentsByPriority: byPriority,
		JobCardsByStatus:    cardsByStatus,
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, stats); err != nil {
			r.Log.Warn("GetDashboardStats: cache write failed", zap.Error(err))
		}
	}
	return stats, nil
}

func (r *Repositories) invalidateStatsCache(ctx context.Context) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Invalidate(ctx); err != nil {
		r.Log.Warn("invalidateStatsCache: failed", zap.Error(err))
	}
}
