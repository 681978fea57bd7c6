package stats

import "context"

// Repository defines storage for market and category statistics.
type Repository interface {
	UpsertMarketStats(ctx context.Context, s *MarketStats) error
	MarketStatsByCondition(ctx context.Context, conditionID string) (*MarketStats, error)
	TopMarketStats(ctx context.Context, limit int) ([]MarketStats, error)

	UpsertCategoryStats(ctx context.Context, s *CategoryStats) error
	ListCategoryStats(ctx context.Context) ([]CategoryStats, error)
}
