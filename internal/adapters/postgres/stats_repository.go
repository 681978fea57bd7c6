package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"pythia/internal/domain/stats"
	"pythia/pkg/errors"
)

// Compile-time check
var _ stats.Repository = (*StatsRepository)(nil)

// StatsRepository implements stats.Repository using sqlx
type StatsRepository struct {
	db *sqlx.DB
}

// NewStatsRepository creates a new stats repository
func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// UpsertMarketStats inserts or accumulates one market's rolling aggregate.
// Trade count and volume add onto the stored row; price and question replace.
func (r *StatsRepository) UpsertMarketStats(ctx context.Context, s *stats.MarketStats) error {
	query := `
		INSERT INTO market_stats (
			condition_id, question, trade_count, volume_24h, last_price, updated_at
		) VALUES (
			:condition_id, :question, :trade_count, :volume_24h, :last_price, :updated_at
		)
		ON CONFLICT (condition_id) DO UPDATE SET
			question    = EXCLUDED.question,
			trade_count = market_stats.trade_count + EXCLUDED.trade_count,
			volume_24h  = market_stats.volume_24h + EXCLUDED.volume_24h,
			last_price  = EXCLUDED.last_price,
			updated_at  = EXCLUDED.updated_at`

	_, err := r.db.NamedExecContext(ctx, query, s)
	return err
}

// MarketStatsByCondition retrieves one market's aggregate
func (r *StatsRepository) MarketStatsByCondition(ctx context.Context, conditionID string) (*stats.MarketStats, error) {
	var s stats.MarketStats
	err := r.db.GetContext(ctx, &s,
		`SELECT * FROM market_stats WHERE condition_id = $1`, conditionID)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrNotFound, "no stats for condition %s", conditionID)
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// TopMarketStats retrieves the most traded markets by 24h volume
func (r *StatsRepository) TopMarketStats(ctx context.Context, limit int) ([]stats.MarketStats, error) {
	var out []stats.MarketStats
	err := r.db.SelectContext(ctx, &out,
		`SELECT * FROM market_stats ORDER BY volume_24h DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpsertCategoryStats replaces one category's aggregate
func (r *StatsRepository) UpsertCategoryStats(ctx context.Context, s *stats.CategoryStats) error {
	query := `
		INSERT INTO category_stats (
			category, market_count, total_volume, total_liquidity, updated_at
		) VALUES (
			:category, :market_count, :total_volume, :total_liquidity, :updated_at
		)
		ON CONFLICT (category) DO UPDATE SET
			market_count    = EXCLUDED.market_count,
			total_volume    = EXCLUDED.total_volume,
			total_liquidity = EXCLUDED.total_liquidity,
			updated_at      = EXCLUDED.updated_at`

	_, err := r.db.NamedExecContext(ctx, query, s)
	return err
}

// ListCategoryStats retrieves every category aggregate, largest volume first
func (r *StatsRepository) ListCategoryStats(ctx context.Context) ([]stats.CategoryStats, error) {
	var out []stats.CategoryStats
	err := r.db.SelectContext(ctx, &out,
		`SELECT * FROM category_stats ORDER BY total_volume DESC`)
	if err != nil {
		return nil, err
	}
	return out, nil
}
