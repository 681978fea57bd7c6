package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"

	"pythia/internal/domain/market"
)

// Compile-time check
var _ market.EmbeddingRepository = (*EmbeddingRepository)(nil)

// EmbeddingRepository implements market.EmbeddingRepository using sqlx and
// pgvector. The market_embeddings table holds one row per condition id.
type EmbeddingRepository struct {
	db *sqlx.DB
}

// NewEmbeddingRepository creates a new embedding repository
func NewEmbeddingRepository(db *sqlx.DB) *EmbeddingRepository {
	return &EmbeddingRepository{db: db}
}

// Upsert inserts or refreshes one market's embedding
func (r *EmbeddingRepository) Upsert(ctx context.Context, e *market.Embedding) error {
	query := `
		INSERT INTO market_embeddings (
			condition_id, question, category, embedding, updated_at
		) VALUES (
			$1, $2, $3, $4, $5
		)
		ON CONFLICT (condition_id) DO UPDATE SET
			question   = EXCLUDED.question,
			category   = EXCLUDED.category,
			embedding  = EXCLUDED.embedding,
			updated_at = EXCLUDED.updated_at`

	_, err := r.db.ExecContext(ctx, query,
		e.ConditionID, e.Question, e.Category, e.Vector, e.UpdatedAt,
	)
	return err
}

// SimilarToCondition finds the nearest neighbors of a stored market by
// cosine distance, excluding the market itself. An unknown condition id
// returns an empty result, not an error.
func (r *EmbeddingRepository) SimilarToCondition(ctx context.Context, conditionID string, limit int) ([]market.SimilarMarket, error) {
	var out []market.SimilarMarket

	query := `
		SELECT m.condition_id, m.question, m.category,
		       1 - (m.embedding <=> ref.embedding) AS similarity
		FROM market_embeddings m
		JOIN market_embeddings ref ON ref.condition_id = $1
		WHERE m.condition_id <> $1
		ORDER BY m.embedding <=> ref.embedding
		LIMIT $2`

	err := r.db.SelectContext(ctx, &out, query, conditionID, limit)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SimilarToVector finds the nearest stored markets to an ad-hoc query vector
func (r *EmbeddingRepository) SimilarToVector(ctx context.Context, vec pgvector.Vector, limit int) ([]market.SimilarMarket, error) {
	var out []market.SimilarMarket

	query := `
		SELECT condition_id, question, category,
		       1 - (embedding <=> $1) AS similarity
		FROM market_embeddings
		ORDER BY embedding <=> $1
		LIMIT $2`

	err := r.db.SelectContext(ctx, &out, query, vec, limit)
	if err != nil {
		return nil, err
	}
	return out, nil
}
