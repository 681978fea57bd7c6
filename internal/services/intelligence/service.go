// Package intelligence derives a deterministic health, risk and confidence
// read for one market. No model calls: the same market snapshot always
// produces the same report.
package intelligence

import (
	"context"
	"fmt"
	"time"

	"pythia/internal/domain/market"
	"pythia/internal/services/recommend"
	"pythia/pkg/errors"
	"pythia/pkg/logger"
)

// Liquidity/volume thresholds for the health and risk bands.
const (
	healthyRatio  = 0.1
	moderateRatio = 0.02

	lowRiskLiquidity  = 50_000
	lowRiskVolume     = 100_000
	highRiskLiquidity = 5_000
	highRiskVolume    = 10_000
)

// similarLimit caps the related-market section of a report.
const similarLimit = 5

// Service builds intelligence reports.
type Service struct {
	catalog   recommend.Catalog
	recommend recommend.Engine // nil disables the similar-markets section
	log       *logger.Logger
}

// NewService creates the intelligence service. engine may be nil.
func NewService(catalog recommend.Catalog, engine recommend.Engine, log *logger.Logger) *Service {
	return &Service{
		catalog:   catalog,
		recommend: engine,
		log:       log.With("service", "intelligence"),
	}
}

// Analyze fetches the market and derives its report. Only the market fetch
// can fail; the recommendation leg is best-effort.
func (s *Service) Analyze(ctx context.Context, conditionID string) (market.IntelligenceReport, error) {
	m, err := s.catalog.MarketByCondition(ctx, conditionID)
	if err != nil {
		return market.IntelligenceReport{}, errors.Wrapf(err, "failed to load market %s", conditionID)
	}

	report := market.IntelligenceReport{
		Market:     *m,
		Health:     healthOf(*m),
		RiskLevel:  riskOf(*m),
		Confidence: confidenceOf(*m),
	}
	report.Insights = insightsOf(*m, report)

	if s.recommend != nil {
		similar, err := s.recommend.Similar(ctx, conditionID, similarLimit)
		if err != nil {
			s.log.Warnf("Similar-market lookup failed for %s: %v", conditionID, err)
		} else {
			report.Similar = similar
		}
	}

	return report, nil
}

// healthOf bands the liquidity/volume ratio. Closed and inactive states
// dominate: a dead market is not "thin", it is dead.
func healthOf(m market.Market) string {
	if m.Closed {
		return market.HealthClosed
	}
	if !m.Active {
		return market.HealthInactive
	}
	if m.Volume <= 0 {
		return market.HealthThin
	}
	switch ratio := m.Liquidity / m.Volume; {
	case ratio >= healthyRatio:
		return market.HealthHealthy
	case ratio >= moderateRatio:
		return market.HealthModerate
	default:
		return market.HealthThin
	}
}

func riskOf(m market.Market) string {
	switch {
	case m.Liquidity >= lowRiskLiquidity && m.Volume >= lowRiskVolume:
		return market.RiskLow
	case m.Liquidity < highRiskLiquidity || m.Volume < highRiskVolume:
		return market.RiskHigh
	default:
		return market.RiskMedium
	}
}

// confidenceOf scores 0-100 from data completeness (40), liquidity depth
// (30) and a parseable future end date (30).
func confidenceOf(m market.Market) int {
	score := 0
	if m.Question != "" && m.ConditionID != "" && m.Category != "" && m.EndDate != "" && m.Volume > 0 && m.Liquidity > 0 {
		score += 40
	}
	switch {
	case m.Liquidity >= 50_000:
		score += 30
	case m.Liquidity >= 10_000:
		score += 20
	case m.Liquidity >= 1_000:
		score += 10
	}
	if end, ok := parseEndDate(m.EndDate); ok && end.After(time.Now()) {
		score += 30
	}
	return score
}

func insightsOf(m market.Market, r market.IntelligenceReport) []string {
	insights := []string{
		fmt.Sprintf("Liquidity profile is %s relative to traded volume.", r.Health),
		fmt.Sprintf("Overall risk is rated %s.", r.RiskLevel),
	}
	switch {
	case m.Closed:
		insights = append(insights, "This market has resolved; figures are final.")
	case !m.Active:
		insights = append(insights, "This market is not currently active.")
	case r.RiskLevel == market.RiskHigh:
		insights = append(insights, "Thin books amplify price impact; expect slippage on size.")
	case r.RiskLevel == market.RiskLow:
		insights = append(insights, "Deep liquidity supports larger positions with limited slippage.")
	}
	if r.Confidence < 50 {
		insights = append(insights, "Upstream data for this market is incomplete; treat the analysis as indicative.")
	}
	return insights
}

// parseEndDate accepts the two timestamp shapes gamma emits.
func parseEndDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
