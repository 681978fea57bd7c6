// Package recommend finds markets related to a reference market. Two
// engines exist: a deterministic rule engine scoring category and slug
// overlap, and a semantic engine backed by question embeddings.
package recommend

import (
	"context"
	"sort"
	"strings"

	"pythia/internal/domain/market"
	"pythia/pkg/errors"
	"pythia/pkg/logger"
)

// candidatePool is how many markets the rule engine scores against.
const candidatePool = 100

// Engine answers "which markets are similar to this one".
type Engine interface {
	Similar(ctx context.Context, conditionID string, limit int) ([]market.Market, error)
}

// Catalog is the slice of the upstream client the rule engine needs.
type Catalog interface {
	MarketByCondition(ctx context.Context, conditionID string) (*market.Market, error)
	Markets(ctx context.Context, q market.Query) ([]market.Market, error)
}

// RuleEngine scores candidates on category match and shared slug tokens.
// Same inputs always produce the same ordering.
type RuleEngine struct {
	catalog Catalog
	log     *logger.Logger
}

// NewRuleEngine creates the default recommendation engine.
func NewRuleEngine(catalog Catalog, log *logger.Logger) *RuleEngine {
	return &RuleEngine{
		catalog: catalog,
		log:     log.With("service", "recommend"),
	}
}

// Similar returns up to limit markets related to the given condition id,
// best match first.
func (e *RuleEngine) Similar(ctx context.Context, conditionID string, limit int) ([]market.Market, error) {
	if limit <= 0 {
		limit = 5
	}

	target, err := e.catalog.MarketByCondition(ctx, conditionID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve reference market")
	}

	candidates, err := e.catalog.Markets(ctx, market.Query{Limit: candidatePool})
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch candidate markets")
	}

	targetTokens := slugTokens(target.Slug)

	type scored struct {
		m     market.Market
		score int
	}
	ranked := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		if c.ConditionID == target.ConditionID {
			continue
		}
		score := 0
		if c.Category != "" && c.Category == target.Category {
			score += 2
		}
		for tok := range slugTokens(c.Slug) {
			if targetTokens[tok] {
				score++
			}
		}
		if score > 0 {
			ranked = append(ranked, scored{m: c, score: score})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].m.Volume > ranked[j].m.Volume
	})

	out := make([]market.Market, 0, limit)
	for _, r := range ranked {
		if len(out) == limit {
			break
		}
		out = append(out, r.m)
	}
	return out, nil
}

// slugTokens splits a market slug into its meaningful words. Short tokens
// ("a", "of", dates split to two digits) carry no signal and are dropped.
func slugTokens(slug string) map[string]bool {
	tokens := make(map[string]bool)
	for _, tok := range strings.Split(strings.ToLower(slug), "-") {
		if len(tok) >= 3 {
			tokens[tok] = true
		}
	}
	return tokens
}
