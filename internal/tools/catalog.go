package tools

import (
	"pythia/internal/adapters/ai"
)

// Tool names accepted by the agent executor.
const (
	ToolGetMarkets         = "get_markets"
	ToolGetTrades          = "get_trades_for_condition"
	ToolGetTraderDetails   = "get_trader_details"
	ToolGetOrderBook       = "get_order_book"
	ToolGetTopHolders      = "get_top_holders"
	ToolGetTopTraders      = "get_top_traders_by_pnl"
	ToolGetClosedPositions = "get_closed_positions_for_user"
)

// Descriptor describes one callable tool: its name, what it does, and the
// JSON schema of its arguments.
type Descriptor struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
	Required    []string
}

// catalog enumerates every tool the planner may select. The set is static:
// adding a tool means adding a descriptor here and a case to the executor.
var catalog = []Descriptor{
	{
		Name:        ToolGetMarkets,
		Description: "Get a list of top markets with essential data. Use for general queries about markets.",
		Parameters: map[string]interface{}{
			"limit": map[string]interface{}{
				"type":        "number",
				"default":     5,
				"description": "Number of markets to return.",
			},
		},
	},
	{
		Name:        ToolGetTrades,
		Description: "Get trades for a specific market condition. Requires a conditionId.",
		Parameters: map[string]interface{}{
			"condition_id": map[string]interface{}{
				"type":        "string",
				"description": "The unique identifier for the market condition.",
			},
			"limit": map[string]interface{}{
				"type":        "number",
				"default":     100,
				"description": "Number of trades to return.",
			},
		},
		Required: []string{"condition_id"},
	},
	{
		Name:        ToolGetTraderDetails,
		Description: "Get a summary of a trader's activity, including positions and trade history.",
		Parameters: map[string]interface{}{
			"address": map[string]interface{}{
				"type":        "string",
				"description": "The public key (0x...) of the trader.",
			},
		},
		Required: []string{"address"},
	},
	{
		Name:        ToolGetOrderBook,
		Description: "Get a summary of the order book for a specific market ID, including top bids and asks, tick size, and minimum order size.",
		Parameters: map[string]interface{}{
			"market_id": map[string]interface{}{
				"type":        "string",
				"description": "The unique identifier for the market (e.g., a number like '618023').",
			},
		},
		Required: []string{"market_id"},
	},
	{
		Name:        ToolGetTopHolders,
		Description: "Get the top 5 holders for a specific market condition, separated by YES and NO outcomes.",
		Parameters: map[string]interface{}{
			"condition_id": map[string]interface{}{
				"type":        "string",
				"description": "The unique identifier for the market condition.",
			},
		},
		Required: []string{"condition_id"},
	},
	{
		Name:        ToolGetTopTraders,
		Description: "Get the top 5 traders by profit and loss (PNL), summarizing their total PNL and most profitable market.",
		Parameters:  map[string]interface{}{},
	},
	{
		Name:        ToolGetClosedPositions,
		Description: "Get a list of closed positions for a specific trader, showing the market and realized PNL.",
		Parameters: map[string]interface{}{
			"address": map[string]interface{}{
				"type":        "string",
				"description": "The public key (0x...) of the trader.",
			},
		},
		Required: []string{"address"},
	},
}

// Catalog returns descriptors for every available tool.
func Catalog() []Descriptor {
	return catalog
}

// Lookup returns the descriptor for name, or false when no such tool exists.
func Lookup(name string) (Descriptor, bool) {
	for _, d := range catalog {
		if d.Name == name {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Required returns the required argument names for a tool. Unknown tools
// have no required arguments.
func Required(name string) []string {
	d, ok := Lookup(name)
	if !ok {
		return nil
	}
	return d.Required
}

// ChatTools converts the catalog into the wire format of a chat completion
// request. Required is always a list, never nil, so providers that validate
// the schema strictly accept it.
func ChatTools() []ai.ToolDefinition {
	defs := make([]ai.ToolDefinition, 0, len(catalog))
	for _, d := range catalog {
		required := d.Required
		if required == nil {
			required = []string{}
		}
		defs = append(defs, ai.ToolDefinition{
			Type: "function",
			Function: ai.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters: map[string]interface{}{
					"type":       "object",
					"properties": d.Parameters,
					"required":   required,
				},
			},
		})
	}
	return defs
}
