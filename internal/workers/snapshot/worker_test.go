package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pythia/internal/domain/market"
)

func TestAggregateCategories(t *testing.T) {
	markets := []market.Market{
		{ConditionID: "0xA", Category: "Politics", Volume: 100, Liquidity: 10},
		{ConditionID: "0xB", Category: "Politics", Volume: 50, Liquidity: 5},
		{ConditionID: "0xC", Category: "Sports", Volume: 30, Liquidity: 3},
		{ConditionID: "0xD", Volume: 7, Liquidity: 1},
	}

	rows := AggregateCategories(markets)
	require.Len(t, rows, 3)

	byName := make(map[string]int)
	for i, row := range rows {
		byName[row.Category] = i
	}

	politics := rows[byName["Politics"]]
	assert.Equal(t, int64(2), politics.MarketCount)
	assert.InDelta(t, 150.0, politics.TotalVolume, 1e-9)
	assert.InDelta(t, 15.0, politics.TotalLiquidity, 1e-9)

	sports := rows[byName["Sports"]]
	assert.Equal(t, int64(1), sports.MarketCount)

	other, ok := byName["uncategorized"]
	require.True(t, ok, "markets without a category group under uncategorized")
	assert.InDelta(t, 7.0, rows[other].TotalVolume, 1e-9)
}

func TestAggregateCategoriesEmpty(t *testing.T) {
	assert.Empty(t, AggregateCategories(nil))
}
