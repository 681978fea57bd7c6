package streamstats

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"pythia/internal/domain/stats"
)

// Tick is one trade observed on the market stream. Price and size stay
// decimal until flush so long sessions do not accumulate float drift.
type Tick struct {
	ConditionID string
	Question    string
	Price       decimal.Decimal
	Size        decimal.Decimal
}

type bucket struct {
	question  string
	trades    int64
	volume    decimal.Decimal
	lastPrice decimal.Decimal
}

// Aggregator folds stream ticks into per-market rolling aggregates. Safe
// for one writer (the stream reader) and one drainer (the flush tick).
type Aggregator struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{buckets: make(map[string]*bucket)}
}

// Observe folds one tick into its market's bucket.
func (a *Aggregator) Observe(t Tick) {
	if t.ConditionID == "" {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	b, ok := a.buckets[t.ConditionID]
	if !ok {
		b = &bucket{question: t.Question}
		a.buckets[t.ConditionID] = b
	}
	b.trades++
	b.volume = b.volume.Add(t.Price.Mul(t.Size))
	b.lastPrice = t.Price
}

// Drain returns the accumulated aggregates and resets the buckets. The
// returned rows carry deltas since the previous drain, not totals.
func (a *Aggregator) Drain() []stats.MarketStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.buckets) == 0 {
		return nil
	}
	now := time.Now().UTC()
	rows := make([]stats.MarketStats, 0, len(a.buckets))
	for conditionID, b := range a.buckets {
		volume, _ := b.volume.Float64()
		lastPrice, _ := b.lastPrice.Float64()
		rows = append(rows, stats.MarketStats{
			ConditionID: conditionID,
			Question:    b.question,
			TradeCount:  b.trades,
			Volume24h:   volume,
			LastPrice:   lastPrice,
			UpdatedAt:   now,
		})
	}
	a.buckets = make(map[string]*bucket)
	return rows
}
