package clickhouse

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"pythia/internal/domain/usage"
	"pythia/pkg/clickhouse"
	"pythia/pkg/errors"
	"pythia/pkg/logger"
)

// Compile-time check
var _ usage.Repository = (*UsageRepository)(nil)

// UsageRepository implements usage.Repository for ClickHouse.
// Rows are buffered through a batch writer: single-row inserts are
// inefficient in ClickHouse, and usage accounting tolerates a few seconds
// of delay.
type UsageRepository struct {
	conn        driver.Conn
	batchWriter *clickhouse.BatchWriter
}

// NewUsageRepository creates a new usage repository with a batch writer
func NewUsageRepository(conn driver.Conn) *UsageRepository {
	repo := &UsageRepository{conn: conn}

	repo.batchWriter = clickhouse.NewBatchWriter(clickhouse.BatchWriterConfig{
		FlushFunc:    repo.flushBatch,
		TableName:    "model_usage",
		MaxBatchSize: 500,
		MaxAge:       5 * time.Second,
	})

	return repo
}

// Start begins the background flush loop
func (r *UsageRepository) Start(ctx context.Context) {
	r.batchWriter.Start(ctx)
}

// Stop gracefully shuts down the batch writer
func (r *UsageRepository) Stop(ctx context.Context) error {
	return r.batchWriter.Stop(ctx)
}

// Store buffers a usage row for batch insertion
func (r *UsageRepository) Store(ctx context.Context, u *usage.ModelUsage) error {
	return r.batchWriter.Add(ctx, u)
}

// flushBatch performs one batch INSERT for all buffered rows
func (r *UsageRepository) flushBatch(ctx context.Context, batch []interface{}) error {
	if len(batch) == 0 {
		return nil
	}

	log := logger.Get().With("component", "model_usage_batch")

	query := `
		INSERT INTO model_usage (
			timestamp, event_id, session_id, component,
			provider, model,
			prompt_tokens, completion_tokens, total_tokens,
			tool_calls, latency_ms, created_at
		) VALUES (
			?, ?, ?, ?,
			?, ?,
			?, ?, ?,
			?, ?, ?
		)
	`

	stmt, err := r.conn.PrepareBatch(ctx, query)
	if err != nil {
		return errors.Wrap(err, "failed to prepare batch")
	}
	defer stmt.Close()

	appended := 0
	for _, item := range batch {
		u, ok := item.(*usage.ModelUsage)
		if !ok {
			log.Warnf("Skipping invalid item type: %T", item)
			continue
		}

		err := stmt.Append(
			u.Timestamp, u.EventID, u.SessionID, u.Component,
			u.Provider, u.Model,
			u.PromptTokens, u.CompletionTokens, u.TotalTokens,
			u.ToolCalls, u.LatencyMs, u.CreatedAt,
		)
		if err != nil {
			return errors.Wrap(err, "failed to append to batch")
		}
		appended++
	}

	if err := stmt.Send(); err != nil {
		return errors.Wrap(err, "failed to send batch")
	}

	log.Debugf("Batch inserted %d usage rows", appended)
	return nil
}

// DailyTokens returns total tokens spent on a given day
func (r *UsageRepository) DailyTokens(ctx context.Context, day time.Time) (uint64, error) {
	query := `
		SELECT sum(total_tokens) as total
		FROM model_usage
		WHERE toDate(timestamp) = toDate(?)
	`

	var total uint64
	if err := r.conn.QueryRow(ctx, query, day).Scan(&total); err != nil {
		return 0, errors.Wrap(err, "failed to get daily tokens")
	}
	return total, nil
}

// ComponentTotals returns token totals grouped by component for a time range
func (r *UsageRepository) ComponentTotals(ctx context.Context, from, to time.Time) (map[string]uint64, error) {
	query := `
		SELECT component, sum(total_tokens) as total
		FROM model_usage
		WHERE timestamp BETWEEN ? AND ?
		GROUP BY component
		ORDER BY total DESC
	`

	rows, err := r.conn.Query(ctx, query, from, to)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query component totals")
	}
	defer rows.Close()

	totals := make(map[string]uint64)
	for rows.Next() {
		var component string
		var total uint64
		if err := rows.Scan(&component, &total); err != nil {
			return nil, errors.Wrap(err, "failed to scan component total")
		}
		totals[component] = total
	}

	return totals, nil
}
