package format

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pythia/internal/domain/market"
)

func TestMarketIntelligence(t *testing.T) {
	r := market.IntelligenceReport{
		Market:     market.Market{Question: "Will it rain tomorrow?"},
		Health:     market.HealthHealthy,
		RiskLevel:  market.RiskLow,
		Confidence: 85,
		Insights:   []string{"Deep liquidity relative to volume.", "Low risk profile."},
		Similar: []market.Market{
			{Question: "Will it snow tomorrow?", Volume: 1500},
		},
	}

	want := "Market Analysis: Will it rain tomorrow?\n\n" +
		"   - Health: healthy\n" +
		"   - Risk Level: LOW\n" +
		"   - Confidence: 85/100\n\n" +
		"Insights:\n" +
		"  - Deep liquidity relative to volume.\n" +
		"  - Low risk profile.\n\n" +
		"Similar Markets:\n" +
		"  - Will it snow tomorrow? (Volume: $1,500.00)"
	assert.Equal(t, want, MarketIntelligence(r))
}

func TestMarketIntelligence_MinimalReport(t *testing.T) {
	r := market.IntelligenceReport{
		Market:    market.Market{Question: "Q"},
		Health:    market.HealthThin,
		RiskLevel: market.RiskHigh,
	}

	got := MarketIntelligence(r)
	assert.Contains(t, got, "Risk Level: HIGH")
	assert.NotContains(t, got, "Insights:")
	assert.NotContains(t, got, "Similar Markets:")
}
