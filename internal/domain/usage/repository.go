package usage

import (
	"context"
	"time"
)

// Repository defines operations for model usage accounting.
type Repository interface {
	// Store buffers a usage row for batch insertion.
	Store(ctx context.Context, u *ModelUsage) error

	// DailyTokens returns total tokens spent on a given day.
	DailyTokens(ctx context.Context, day time.Time) (uint64, error)

	// ComponentTotals returns token totals grouped by component for a range.
	ComponentTotals(ctx context.Context, from, to time.Time) (map[string]uint64, error)
}
