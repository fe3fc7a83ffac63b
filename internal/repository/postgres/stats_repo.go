// internal/repository/postgres/stats_repo.go
package postgres

import (
	"context"
)

// StatsRepository answers dashboard counters. Each method returns the
// gateway status so a failed widget can render empty.
type StatsRepository struct {
	gw *Gateway
}

func NewStatsRepository(gw *Gateway) *StatsRepository {
	return &StatsRepository{gw: gw}
}

func (r *StatsRepository) ActiveUsersByRole(ctx context.Context, roleName string) (int64, Status) {
	return r.gw.Count(ctx, TableUsers,
		"is_active = TRUE AND role_id = (SELECT id FROM roles WHERE name = ?)", roleName)
}

func (r *StatsRepository) Licenses(ctx context.Context, status string) (int64, Status) {
	if status == "" {
		return r.gw.Count(ctx, TableLicenses, "")
	}
	return r.gw.Count(ctx, TableLicenses, "status = ?", status)
}

func (r *StatsRepository) PendingSubmissions(ctx context.Context) (int64, Status) {
	return r.gw.Count(ctx, TableSubmissions, "status IN ('pending', 'in_review')")
}

func (r *StatsRepository) ContractsByNotary(ctx context.Context, notaryID int64, status string) (int64, Status) {
	if status == "" {
		return r.gw.Count(ctx, TableContracts, "notary_id = ?", notaryID)
	}
	return r.gw.Count(ctx, TableContracts, "notary_id = ? AND status = ?", notaryID, status)
}

func (r *StatsRepository) Regions(ctx context.Context, table string) (int64, Status) {
	return r.gw.Count(ctx, table, "")
}

// RecentLogins returns the newest access-log rows as generic rows.
func (r *StatsRepository) RecentLogins(ctx context.Context, limit int) ([]Row, Status) {
	return r.gw.Select(ctx, `
		SELECT l.action, l.ip_address, l.created_at, COALESCE(u.username, '') AS username
		FROM log_access l
		LEFT JOIN users u ON u.id = l.user_id
		WHERE l.action = 'login'
		ORDER BY l.created_at DESC
		LIMIT ?`, limit)
}
