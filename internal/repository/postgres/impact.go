package postgres

import (
	"context"
	"fmt"

	"github.com/MichaelKMarwa/recupio/internal/domain"
	"github.com/MichaelKMarwa/recupio/pkg/database"
)

const impactSums = `SELECT COALESCE(SUM(carbon_offset), 0)::float8,
	COALESCE(SUM(trees_equivalent), 0)::float8,
	COALESCE(SUM(landfill_reduction), 0)::float8
	FROM impact_metrics`

// ImpactRepository implements repository.ImpactRepository using PostgreSQL.
type ImpactRepository struct {
	db database.DBTX
}

// NewImpactRepository creates a new PostgreSQL-backed impact repository.
func NewImpactRepository(db database.DBTX) *ImpactRepository {
	return &ImpactRepository{db: db}
}

// UserSummary sums the user's impact.
func (r *ImpactRepository) UserSummary(ctx context.Context, userID string) (*domain.ImpactSummary, error) {
	return r.sum(ctx, impactSums+` WHERE user_id = $1`, userID)
}

// CommunitySummary sums the impact of every drop-off.
func (r *ImpactRepository) CommunitySummary(ctx context.Context) (*domain.ImpactSummary, error) {
	return r.sum(ctx, impactSums)
}

func (r *ImpactRepository) sum(ctx context.Context, query string, args ...any) (*domain.ImpactSummary, error) {
	var s domain.ImpactSummary
	if err := r.db.QueryRow(ctx, query, args...).Scan(&s.CarbonOffset, &s.TreesEquivalent, &s.LandfillReduction); err != nil {
		return nil, fmt.Errorf("sum impact metrics: %w", err)
	}
	return &s, nil
}
