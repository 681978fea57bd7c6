package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"

	"pythia/internal/domain/market"
)

// OrderBook fetches both outcome books for a market. Failures never surface
// as Go errors here: the order book render treats upstream failure as a
// terminal display state, so errors are carried in-band on the book or the
// individual outcome records. The second return value is the resolved
// condition id for session write-back, empty whenever the book carries a
// top-level error.
func (c *Client) OrderBook(ctx context.Context, marketID string) (market.OrderBook, string) {
	params := url.Values{"condition_ids": []string{marketID}}

	var raw interface{}
	if err := c.getJSON(ctx, apiGamma, c.gammaURL, "/markets", params, &raw); err != nil {
		c.log.Warnf("Order book market lookup failed for %s: %v", marketID, err)
		return market.OrderBook{Error: fmt.Sprintf("Failed to look up market %s for the order book.", marketID)}, ""
	}

	entries := decodeList(raw, "markets")
	if len(entries) == 0 {
		return market.OrderBook{Error: fmt.Sprintf("No market found for id %s.", marketID)}, ""
	}

	entry := entries[0]
	tokens := clobTokenIDs(entry)
	if len(tokens) < 2 {
		return market.OrderBook{Error: fmt.Sprintf("Order book tokens are not available for market %s.", marketID)}, ""
	}

	// Token order follows the upstream outcome order: yes first, no second.
	book := market.OrderBook{
		Yes: c.outcomeBook(ctx, tokens[0]),
		No:  c.outcomeBook(ctx, tokens[1]),
	}
	return book, stringField(entry, "conditionId")
}

// clobTokenIDs extracts the market's CLOB token ids. The gamma API encodes
// them as a JSON string array inside a string field, but some payloads carry
// a real array.
func clobTokenIDs(obj map[string]interface{}) []string {
	switch v := obj["clobTokenIds"].(type) {
	case string:
		var tokens []string
		if err := json.Unmarshal([]byte(v), &tokens); err == nil {
			return tokens
		}
	case []interface{}:
		tokens := make([]string, 0, len(v))
		for _, t := range v {
			if s, ok := t.(string); ok {
				tokens = append(tokens, s)
			}
		}
		return tokens
	}
	return nil
}

func (c *Client) outcomeBook(ctx context.Context, tokenID string) *market.OutcomeBook {
	var raw struct {
		Market       string `json:"market"`
		TickSize     string `json:"tick_size"`
		MinOrderSize string `json:"min_order_size"`
		Bids         []struct {
			Price string `json:"price"`
			Size  string `json:"size"`
		} `json:"bids"`
		Asks []struct {
			Price string `json:"price"`
			Size  string `json:"size"`
		} `json:"asks"`
	}

	params := url.Values{"token_id": []string{tokenID}}
	if err := c.getJSON(ctx, apiClob, c.clobURL, "/book", params, &raw); err != nil {
		c.log.Warnf("Order book fetch failed for token %s: %v", tokenID, err)
		return &market.OutcomeBook{Error: "Failed to fetch the order book for this outcome."}
	}

	book := &market.OutcomeBook{
		Market:       raw.Market,
		TickSize:     decFloat(raw.TickSize),
		MinOrderSize: decFloat(raw.MinOrderSize),
		Bids:         make([]market.BookLevel, 0, len(raw.Bids)),
		Asks:         make([]market.BookLevel, 0, len(raw.Asks)),
	}
	for _, lvl := range raw.Bids {
		book.Bids = append(book.Bids, market.BookLevel{Price: decFloat(lvl.Price), Size: decFloat(lvl.Size)})
	}
	for _, lvl := range raw.Asks {
		book.Asks = append(book.Asks, market.BookLevel{Price: decFloat(lvl.Price), Size: decFloat(lvl.Size)})
	}
	return book
}

// decFloat parses the CLOB's decimal-string fields. Exact decimal parsing
// first, float conversion second: "0.001" style tick sizes survive intact.
func decFloat(value string) float64 {
	if value == "" {
		return 0
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return 0
	}
	f, _ := d.Float64()
	return f
}
