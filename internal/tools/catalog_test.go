package tools

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_AllToolsPresent(t *testing.T) {
	names := make([]string, 0, len(Catalog()))
	for _, d := range Catalog() {
		names = append(names, d.Name)
	}

	assert.Equal(t, []string{
		"get_markets",
		"get_trades_for_condition",
		"get_trader_details",
		"get_order_book",
		"get_top_holders",
		"get_top_traders_by_pnl",
		"get_closed_positions_for_user",
	}, names)
}

func TestLookup(t *testing.T) {
	d, ok := Lookup(ToolGetOrderBook)
	require.True(t, ok)
	assert.Equal(t, "get_order_book", d.Name)
	assert.Contains(t, d.Description, "order book")

	_, ok = Lookup("get_weather")
	assert.False(t, ok)
}

func TestRequired(t *testing.T) {
	tests := []struct {
		tool     string
		required []string
	}{
		{ToolGetMarkets, nil},
		{ToolGetTrades, []string{"condition_id"}},
		{ToolGetTraderDetails, []string{"address"}},
		{ToolGetOrderBook, []string{"market_id"}},
		{ToolGetTopHolders, []string{"condition_id"}},
		{ToolGetTopTraders, nil},
		{ToolGetClosedPositions, []string{"address"}},
		{"no_such_tool", nil},
	}

	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			assert.Equal(t, tt.required, Required(tt.tool))
		})
	}
}

func TestChatTools(t *testing.T) {
	defs := ChatTools()
	require.Len(t, defs, len(Catalog()))

	byName := make(map[string]int)
	for i, def := range defs {
		assert.Equal(t, "function", def.Type)
		byName[def.Function.Name] = i

		params := def.Function.Parameters
		assert.Equal(t, "object", params["type"])
		_, ok := params["properties"].(map[string]interface{})
		assert.True(t, ok, "properties must be an object for %s", def.Function.Name)

		// Providers reject "required": null, so the list is always present.
		required, ok := params["required"].([]string)
		require.True(t, ok, "required must be a string list for %s", def.Function.Name)
		assert.NotNil(t, required)
	}

	trades := defs[byName["get_trades_for_condition"]]
	assert.Equal(t, []string{"condition_id"}, trades.Function.Parameters["required"])

	props := trades.Function.Parameters["properties"].(map[string]interface{})
	limit := props["limit"].(map[string]interface{})
	assert.Equal(t, 100, limit["default"])

	topTraders := defs[byName["get_top_traders_by_pnl"]]
	assert.Empty(t, topTraders.Function.Parameters["required"])
	assert.Empty(t, topTraders.Function.Parameters["properties"])
}

func TestChatTools_SerializesCleanly(t *testing.T) {
	raw, err := json.Marshal(ChatTools())
	require.NoError(t, err)

	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Len(t, decoded, 7)

	first := decoded[0]["function"].(map[string]interface{})
	assert.Equal(t, "get_markets", first["name"])
	params := first["parameters"].(map[string]interface{})
	assert.Equal(t, []interface{}{}, params["required"])
}
