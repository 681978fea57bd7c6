package format

import (
	"fmt"
	"strings"

	"pythia/internal/domain/stats"
)

// MarketStats renders the tracked-market activity leaderboard.
func MarketStats(rows []stats.MarketStats) string {
	if len(rows) == 0 {
		return "No market statistics collected yet."
	}
	lines := []string{"Market Activity:\n"}
	for i, row := range rows {
		lines = append(lines, fmt.Sprintf(
			"%d. %s\n   - Trades: %d\n   - 24h Volume: %s\n   - Last Price: $%s\n",
			i+1, orNA(row.Question), row.TradeCount,
			money(row.Volume24h), fixed2(row.LastPrice)))
	}
	return strings.Join(lines, "\n")
}

// CategoryStats renders per-category market counts and money totals.
func CategoryStats(rows []stats.CategoryStats) string {
	if len(rows) == 0 {
		return "No category statistics collected yet."
	}
	lines := []string{"Category Overview:\n"}
	for _, row := range rows {
		lines = append(lines, fmt.Sprintf(
			"- %s: %d markets, volume %s, liquidity %s",
			orNA(row.Category), row.MarketCount,
			money(row.TotalVolume), money(row.TotalLiquidity)))
	}
	return strings.Join(lines, "\n")
}
