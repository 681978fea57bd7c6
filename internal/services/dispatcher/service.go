// Package dispatcher answers a query subset without a model round-trip:
// fixed keywords route to the stats repository, the recommender or the
// regex query parser. It backs the Telegram transport when no AI provider
// is configured and the /agent/quick route always.
package dispatcher

import (
	"context"
	"regexp"
	"strings"

	"pythia/internal/domain/market"
	"pythia/internal/domain/stats"
	"pythia/internal/format"
	"pythia/internal/parser"
	"pythia/internal/services/recommend"
	"pythia/pkg/errors"
	"pythia/pkg/logger"
)

const (
	topStatsLimit  = 10
	recommendLimit = 5
)

var (
	conditionIDRe = regexp.MustCompile(`0x[0-9a-fA-F]{8,}`)
	aboveVolumeRe = regexp.MustCompile(`above volume\s+(\d+(?:\.\d+)?[km]?)`)
)

// Markets is the slice of the upstream client the dispatcher lists from.
type Markets interface {
	Markets(ctx context.Context, q market.Query) ([]market.Market, error)
	Events(ctx context.Context, q market.Query) ([]market.Event, error)
	MarketsAboveVolume(ctx context.Context, minVolume float64) ([]market.Market, error)
}

// Intelligence produces market analysis reports.
type Intelligence interface {
	Analyze(ctx context.Context, conditionID string) (market.IntelligenceReport, error)
}

// Service routes keyword queries. Stats, recommendations and intelligence
// are optional; without them the matching routes report the feature as
// unavailable instead of failing.
type Service struct {
	markets      Markets
	stats        stats.Repository // nil when postgres is not wired
	recommend    recommend.Engine // nil when no engine is wired
	intelligence Intelligence     // nil disables analyze queries
	log          *logger.Logger
}

// NewService creates the keyword dispatcher.
func NewService(markets Markets, statsRepo stats.Repository, engine recommend.Engine, intel Intelligence, log *logger.Logger) *Service {
	return &Service{
		markets:      markets,
		stats:        statsRepo,
		recommend:    engine,
		intelligence: intel,
		log:          log.With("service", "dispatcher"),
	}
}

// Handle answers one query with rendered text. Routing is first match
// wins: stats keywords, then recommendations, then volume screens, then
// the generic market listing.
func (s *Service) Handle(ctx context.Context, text string) (string, error) {
	lower := strings.ToLower(text)

	switch {
	case strings.Contains(lower, "market stats"):
		return s.marketStats(ctx)
	case strings.Contains(lower, "category stats"):
		return s.categoryStats(ctx)
	case strings.Contains(lower, "analyze") || strings.Contains(lower, "intelligence"):
		return s.analyze(ctx, text)
	case strings.Contains(lower, "recommend") || strings.Contains(lower, "similar to"):
		return s.similar(ctx, text)
	case aboveVolumeRe.MatchString(lower):
		return s.aboveVolume(ctx, lower)
	case strings.Contains(lower, "events"):
		return s.events(ctx, lower)
	default:
		return s.list(ctx, lower)
	}
}

func (s *Service) marketStats(ctx context.Context) (string, error) {
	if s.stats == nil {
		return "Market statistics are not enabled.", nil
	}
	rows, err := s.stats.TopMarketStats(ctx, topStatsLimit)
	if err != nil {
		return "", errors.Wrap(err, "failed to load market stats")
	}
	return format.MarketStats(rows), nil
}

func (s *Service) categoryStats(ctx context.Context) (string, error) {
	if s.stats == nil {
		return "Category statistics are not enabled.", nil
	}
	rows, err := s.stats.ListCategoryStats(ctx)
	if err != nil {
		return "", errors.Wrap(err, "failed to load category stats")
	}
	return format.CategoryStats(rows), nil
}

func (s *Service) analyze(ctx context.Context, text string) (string, error) {
	if s.intelligence == nil {
		return "Market analysis is not enabled.", nil
	}
	conditionID := conditionIDRe.FindString(text)
	if conditionID == "" {
		return "Please include the condition id (0x...) of the market to analyze.", nil
	}
	report, err := s.intelligence.Analyze(ctx, conditionID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return "Market not found: " + conditionID, nil
		}
		return "", errors.Wrap(err, "market analysis failed")
	}
	return format.MarketIntelligence(report), nil
}

func (s *Service) events(ctx context.Context, lower string) (string, error) {
	events, err := s.markets.Events(ctx, parser.ParseMarketQuery(lower))
	if err != nil {
		return "", errors.Wrap(err, "event listing failed")
	}
	return format.Events(events), nil
}

func (s *Service) similar(ctx context.Context, text string) (string, error) {
	if s.recommend == nil {
		return "Recommendations are not enabled.", nil
	}
	conditionID := conditionIDRe.FindString(text)
	if conditionID == "" {
		return "Please include the condition id (0x...) of the market to find similar ones.", nil
	}
	similar, err := s.recommend.Similar(ctx, conditionID, recommendLimit)
	if err != nil {
		return "", errors.Wrap(err, "recommendation lookup failed")
	}
	if len(similar) == 0 {
		return "No similar markets found.", nil
	}
	return format.Markets(similar), nil
}

func (s *Service) aboveVolume(ctx context.Context, lower string) (string, error) {
	m := aboveVolumeRe.FindStringSubmatch(lower)
	minVolume := parser.HumanNumber(m[1])
	markets, err := s.markets.MarketsAboveVolume(ctx, minVolume)
	if err != nil {
		return "", errors.Wrap(err, "volume screen failed")
	}
	return format.Markets(markets), nil
}

func (s *Service) list(ctx context.Context, lower string) (string, error) {
	q := parser.ParseMarketQuery(lower)
	markets, err := s.markets.Markets(ctx, q)
	if err != nil {
		return "", errors.Wrap(err, "market listing failed")
	}
	return format.Markets(markets), nil
}
