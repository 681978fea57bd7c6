// Package snapshot periodically refreshes the derived views of the market
// catalog: it warms the market list cache, recomputes per-category
// statistics, and keeps the question-embedding table current for the
// semantic recommender.
package snapshot

import (
	"context"
	"time"

	"github.com/pgvector/pgvector-go"

	"pythia/internal/domain/market"
	"pythia/internal/domain/stats"
	"pythia/internal/workers"
	"pythia/pkg/errors"
	"pythia/pkg/logger"
)

const workerName = "snapshot"

// embedBatchSize bounds one embeddings API call.
const embedBatchSize = 64

// Catalog is the upstream slice the snapshot reads. Fetching through the
// cache-wired client doubles as cache warming.
type Catalog interface {
	Markets(ctx context.Context, q market.Query) ([]market.Market, error)
}

// Embedder generates question vectors; optional.
type Embedder interface {
	GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// Config configures the snapshot worker.
type Config struct {
	Enabled  bool
	Interval time.Duration
	Markets  int
}

// Worker refreshes catalog-derived state once per interval.
type Worker struct {
	*workers.BaseWorker

	cfg        Config
	catalog    Catalog
	stats      stats.Repository           // nil skips category stats
	embedder   Embedder                   // nil skips embeddings
	embeddings market.EmbeddingRepository // nil skips embeddings
}

// New creates the snapshot worker. statsRepo, embedder and embeddings may
// each be nil; the corresponding refresh step is skipped.
func New(cfg Config, catalog Catalog, statsRepo stats.Repository, embedder Embedder, embeddings market.EmbeddingRepository, log *logger.Logger) *Worker {
	if cfg.Markets <= 0 {
		cfg.Markets = 100
	}
	return &Worker{
		BaseWorker: workers.NewBaseWorker(workerName, cfg.Interval, cfg.Enabled, log),
		cfg:        cfg,
		catalog:    catalog,
		stats:      statsRepo,
		embedder:   embedder,
		embeddings: embeddings,
	}
}

// Run performs one snapshot pass. The market fetch is load-bearing; the
// downstream refreshes are each best-effort so one bad leg does not stale
// the others.
func (w *Worker) Run(ctx context.Context) error {
	start := time.Now()

	markets, err := w.catalog.Markets(ctx, market.Query{Limit: w.cfg.Markets})
	if err != nil {
		w.RecordError(err, time.Since(start))
		return errors.Wrap(err, "snapshot market fetch failed")
	}
	w.Log().Infow("Snapshot fetched markets", "count", len(markets))

	if w.stats != nil {
		if err := w.refreshCategoryStats(ctx, markets); err != nil {
			w.Log().Warnf("Category stats refresh incomplete: %v", err)
		}
	}
	if w.embedder != nil && w.embeddings != nil {
		if err := w.refreshEmbeddings(ctx, markets); err != nil {
			w.Log().Warnf("Embedding refresh incomplete: %v", err)
		}
	}

	w.RecordRun(time.Since(start))
	return nil
}

func (w *Worker) refreshCategoryStats(ctx context.Context, markets []market.Market) error {
	rows := AggregateCategories(markets)
	var lastErr error
	for i := range rows {
		if err := w.stats.UpsertCategoryStats(ctx, &rows[i]); err != nil {
			lastErr = err
		}
	}
	w.Log().Debugw("Category stats refreshed", "categories", len(rows))
	return lastErr
}

func (w *Worker) refreshEmbeddings(ctx context.Context, markets []market.Market) error {
	// Only markets with both a question and a condition id are indexable.
	indexable := make([]market.Market, 0, len(markets))
	for _, m := range markets {
		if m.Question != "" && m.ConditionID != "" {
			indexable = append(indexable, m)
		}
	}

	var lastErr error
	for from := 0; from < len(indexable); from += embedBatchSize {
		to := from + embedBatchSize
		if to > len(indexable) {
			to = len(indexable)
		}
		batch := indexable[from:to]

		texts := make([]string, len(batch))
		for i, m := range batch {
			texts[i] = m.Question
		}
		vectors, err := w.embedder.GenerateBatchEmbeddings(ctx, texts)
		if err != nil {
			return errors.Wrap(err, "embedding generation failed")
		}
		if len(vectors) != len(batch) {
			return errors.Wrapf(errors.ErrExternal, "embedding count mismatch: %d texts, %d vectors", len(batch), len(vectors))
		}

		now := time.Now().UTC()
		for i, m := range batch {
			e := &market.Embedding{
				ConditionID: m.ConditionID,
				Question:    m.Question,
				Category:    m.Category,
				Vector:      pgvector.NewVector(vectors[i]),
				UpdatedAt:   now,
			}
			if err := w.embeddings.Upsert(ctx, e); err != nil {
				lastErr = err
			}
		}
	}
	return lastErr
}

// AggregateCategories folds a market list into per-category totals.
// Uncategorized markets group under "uncategorized".
func AggregateCategories(markets []market.Market) []stats.CategoryStats {
	now := time.Now().UTC()
	byCategory := make(map[string]*stats.CategoryStats)
	order := make([]string, 0)

	for _, m := range markets {
		category := m.Category
		if category == "" {
			category = "uncategorized"
		}
		row, ok := byCategory[category]
		if !ok {
			row = &stats.CategoryStats{Category: category, UpdatedAt: now}
			byCategory[category] = row
			order = append(order, category)
		}
		row.MarketCount++
		row.TotalVolume += m.Volume
		row.TotalLiquidity += m.Liquidity
	}

	out := make([]stats.CategoryStats, 0, len(order))
	for _, category := range order {
		out = append(out, *byCategory[category])
	}
	return out
}
