package polymarket

import (
	"context"
	"net/url"
	"strconv"
)

// MarketTokens pairs a market's condition id with its CLOB outcome token
// ids, the subscription keys of the market websocket stream.
type MarketTokens struct {
	ConditionID string
	Question    string
	TokenIDs    []string
}

// TopMarketTokens resolves the CLOB token ids of the highest-volume open
// markets. Entries without a condition id or tokens are skipped: they
// cannot be subscribed to.
func (c *Client) TopMarketTokens(ctx context.Context, limit int) ([]MarketTokens, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("active", "true")
	params.Set("closed", "false")
	params.Set("order", "volumeNum")
	params.Set("ascending", "false")

	var raw interface{}
	if err := c.getJSON(ctx, apiGamma, c.gammaURL, "/markets", params, &raw); err != nil {
		return nil, err
	}

	entries := decodeList(raw, "markets")
	out := make([]MarketTokens, 0, len(entries))
	for _, entry := range entries {
		conditionID := stringField(entry, "conditionId")
		tokens := clobTokenIDs(entry)
		if conditionID == "" || len(tokens) == 0 {
			continue
		}
		out = append(out, MarketTokens{
			ConditionID: conditionID,
			Question:    stringField(entry, "question", "title"),
			TokenIDs:    tokens,
		})
	}
	return out, nil
}
