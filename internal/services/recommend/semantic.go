package recommend

import (
	"context"

	"pythia/internal/domain/market"
	"pythia/pkg/errors"
	"pythia/pkg/logger"
)

// SemanticEngine recommends by embedding similarity over market questions.
// The snapshot worker keeps the vector table current; lookups here are a
// single nearest-neighbor query against it.
type SemanticEngine struct {
	repo     market.EmbeddingRepository
	fallback Engine // used when the reference market has no stored vector
	log      *logger.Logger
}

// NewSemanticEngine creates an embeddings-backed engine. fallback may be
// nil; without one, unindexed markets yield empty results.
func NewSemanticEngine(repo market.EmbeddingRepository, fallback Engine, log *logger.Logger) *SemanticEngine {
	return &SemanticEngine{
		repo:     repo,
		fallback: fallback,
		log:      log.With("service", "recommend_semantic"),
	}
}

// Similar returns up to limit semantic neighbors of the reference market.
func (e *SemanticEngine) Similar(ctx context.Context, conditionID string, limit int) ([]market.Market, error) {
	if limit <= 0 {
		limit = 5
	}

	neighbors, err := e.repo.SimilarToCondition(ctx, conditionID, limit)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) && e.fallback != nil {
			e.log.Debugf("No embedding for %s, falling back to rule engine", conditionID)
			return e.fallback.Similar(ctx, conditionID, limit)
		}
		return nil, errors.Wrap(err, "vector lookup failed")
	}

	out := make([]market.Market, 0, len(neighbors))
	for _, n := range neighbors {
		out = append(out, market.Market{
			ConditionID: n.ConditionID,
			Question:    n.Question,
			Category:    n.Category,
		})
	}
	return out, nil
}
