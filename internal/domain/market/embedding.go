package market

import (
	"context"
	"time"

	"github.com/pgvector/pgvector-go"
)

// Embedding is the stored vector for one market's question text, maintained
// by the snapshot worker and queried by the semantic recommendation engine.
type Embedding struct {
	ConditionID string          `db:"condition_id" json:"condition_id"`
	Question    string          `db:"question" json:"question"`
	Category    string          `db:"category" json:"category"`
	Vector      pgvector.Vector `db:"embedding" json:"-"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// SimilarMarket is one semantic neighbor of a reference market.
type SimilarMarket struct {
	ConditionID string  `db:"condition_id" json:"condition_id"`
	Question    string  `db:"question" json:"question"`
	Category    string  `db:"category" json:"category"`
	Similarity  float64 `db:"similarity" json:"similarity"`
}

// EmbeddingRepository stores market embeddings and answers nearest-neighbor
// lookups.
type EmbeddingRepository interface {
	Upsert(ctx context.Context, e *Embedding) error
	SimilarToCondition(ctx context.Context, conditionID string, limit int) ([]SimilarMarket, error)
	SimilarToVector(ctx context.Context, vec pgvector.Vector, limit int) ([]SimilarMarket, error)
}
