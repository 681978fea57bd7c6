package format

import (
	"fmt"
	"strings"

	"pythia/internal/domain/market"
)

// MarketIntelligence renders an intelligence report as readable text.
func MarketIntelligence(r market.IntelligenceReport) string {
	lines := []string{
		fmt.Sprintf("Market Analysis: %s\n", r.Market.Question),
		"   - Health: " + r.Health,
		"   - Risk Level: " + strings.ToUpper(r.RiskLevel),
		fmt.Sprintf("   - Confidence: %d/100", r.Confidence),
	}
	if len(r.Insights) > 0 {
		lines = append(lines, "\nInsights:")
		for _, insight := range r.Insights {
			lines = append(lines, "  - "+insight)
		}
	}
	if len(r.Similar) > 0 {
		lines = append(lines, "\nSimilar Markets:")
		for _, m := range r.Similar {
			lines = append(lines, fmt.Sprintf("  - %s (Volume: %s)", m.Question, money(m.Volume)))
		}
	}
	return strings.Join(lines, "\n")
}
