package polymarket

import (
	"context"
	"net/url"
	"sort"
	"strconv"

	"pythia/internal/domain/market"
)

const (
	defaultTradesLimit = 100
	holdersFetchLimit  = 20
	holdersPerSide     = 5
	topTradersFetch    = 100
	topTradersLimit    = 5
	traderTradesLimit  = 20
)

// TradesForCondition fetches recent trades for a market. Entries are passed
// through verbatim: trades feed display only and are never used for context
// propagation, so they skip normalization deliberately.
func (c *Client) TradesForCondition(ctx context.Context, conditionID string, limit int) ([]map[string]interface{}, error) {
	if limit <= 0 {
		limit = defaultTradesLimit
	}
	params := url.Values{
		"conditionId": []string{conditionID},
		"limit":       []string{strconv.Itoa(limit)},
		"filterType":  []string{"CASH"},
	}

	var raw interface{}
	if err := c.getJSON(ctx, apiData, c.dataURL, "/trades", params, &raw); err != nil {
		return nil, err
	}
	return decodeList(raw), nil
}

// TopHolders fetches holder lists for both outcome tokens of a market and
// partitions them by outcome side. Entries whose outcome index is neither 0
// nor 1 are dropped; each side is sorted by amount descending and cut to the
// top five.
func (c *Client) TopHolders(ctx context.Context, conditionID string) (market.HolderBoard, error) {
	params := url.Values{
		"market": []string{conditionID},
		"limit":  []string{strconv.Itoa(holdersFetchLimit)},
	}

	var raw interface{}
	if err := c.getJSON(ctx, apiData, c.dataURL, "/holders", params, &raw); err != nil {
		return market.HolderBoard{}, err
	}

	// The endpoint groups holders per token; flatten before partitioning.
	var flat []map[string]interface{}
	for _, entry := range decodeList(raw, "holders") {
		if nested, ok := entry["holders"].([]interface{}); ok {
			flat = append(flat, objectEntries(nested)...)
			continue
		}
		flat = append(flat, entry)
	}

	var board market.HolderBoard
	for _, h := range flat {
		idx, ok := outcomeIndex(h)
		if !ok {
			continue
		}
		holder := market.TopHolder{
			Address:  stringField(h, "proxyWallet", "address"),
			Username: stringField(h, "name", "pseudonym"),
			Amount:   floatField(h, "amount"),
		}
		switch idx {
		case 1:
			board.Yes = append(board.Yes, holder)
		case 0:
			board.No = append(board.No, holder)
		}
	}

	board.Yes = topByAmount(board.Yes)
	board.No = topByAmount(board.No)
	return board, nil
}

// outcomeIndex extracts the binary outcome side of a holder entry. Absent or
// non-numeric values report !ok so the caller can drop the entry instead of
// misfiling it on the "no" side.
func outcomeIndex(obj map[string]interface{}) (int, bool) {
	v, present := obj["outcomeIndex"]
	if !present {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int(n), true
	case string:
		if parsed, err := strconv.Atoi(n); err == nil {
			return parsed, true
		}
	}
	return 0, false
}

func topByAmount(holders []market.TopHolder) []market.TopHolder {
	sort.SliceStable(holders, func(i, j int) bool {
		return holders[i].Amount > holders[j].Amount
	})
	if len(holders) > holdersPerSide {
		holders = holders[:holdersPerSide]
	}
	return holders
}

// TopTradersByPnl fetches a fixed page of positions pre-sorted by upstream
// PNL, groups them by trader wallet, sums PNL per trader and tracks each
// trader's single most profitable market. Returns the top five traders by
// summed PNL; ties keep arrival order.
func (c *Client) TopTradersByPnl(ctx context.Context) ([]market.TraderPnlAggregate, error) {
	params := url.Values{
		"limit":         []string{strconv.Itoa(topTradersFetch)},
		"sortBy":        []string{"CASHPNL"},
		"sortDirection": []string{"DESC"},
	}

	var raw interface{}
	if err := c.getJSON(ctx, apiData, c.dataURL, "/positions", params, &raw); err != nil {
		return nil, err
	}

	byAddress := make(map[string]*market.TraderPnlAggregate)
	order := make([]string, 0)
	for _, p := range decodeList(raw) {
		addr := stringField(p, "proxyWallet", "address")
		if addr == "" {
			continue
		}
		agg, ok := byAddress[addr]
		if !ok {
			agg = &market.TraderPnlAggregate{Address: addr}
			byAddress[addr] = agg
			order = append(order, addr)
		}
		if agg.Username == "" {
			agg.Username = stringField(p, "name", "pseudonym")
		}
		agg.Observe(floatField(p, "cashPnl"), stringField(p, "title"))
	}

	aggregates := make([]market.TraderPnlAggregate, 0, len(order))
	for _, addr := range order {
		aggregates = append(aggregates, *byAddress[addr])
	}
	sort.SliceStable(aggregates, func(i, j int) bool {
		return aggregates[i].TotalPnl > aggregates[j].TotalPnl
	})
	if len(aggregates) > topTradersLimit {
		aggregates = aggregates[:topTradersLimit]
	}
	return aggregates, nil
}

// TraderSummary joins four independent views of one trader: open positions,
// recent trades, realized PNL from closed positions and total portfolio
// value. Every leg is best-effort: a failed leg logs and leaves its fields
// zeroed without invalidating the rest, so the summary may mix data from
// slightly different upstream moments.
func (c *Client) TraderSummary(ctx context.Context, address string) *market.TraderSummary {
	summary := &market.TraderSummary{Address: address}

	var rawPositions interface{}
	if err := c.getJSON(ctx, apiData, c.dataURL, "/positions", url.Values{"user": []string{address}}, &rawPositions); err != nil {
		c.log.Warnf("Trader positions fetch failed for %s: %v", address, err)
	} else {
		for _, p := range decodeList(rawPositions) {
			summary.Positions = append(summary.Positions, market.PositionSummary{
				MarketTitle: stringField(p, "title"),
				Pnl:         floatField(p, "cashPnl"),
			})
		}
	}

	var rawTrades interface{}
	tradeParams := url.Values{
		"user":  []string{address},
		"limit": []string{strconv.Itoa(traderTradesLimit)},
	}
	if err := c.getJSON(ctx, apiData, c.dataURL, "/trades", tradeParams, &rawTrades); err != nil {
		c.log.Warnf("Trader trades fetch failed for %s: %v", address, err)
	} else {
		summary.Trades = decodeList(rawTrades)
	}

	var rawClosed interface{}
	if err := c.getJSON(ctx, apiData, c.dataURL, "/closed-positions", url.Values{"user": []string{address}}, &rawClosed); err != nil {
		c.log.Warnf("Trader closed positions fetch failed for %s: %v", address, err)
	} else {
		for _, p := range decodeList(rawClosed) {
			summary.Pnl.AllTime += floatField(p, "realizedPnl")
		}
	}

	var rawValue interface{}
	if err := c.getJSON(ctx, apiData, c.dataURL, "/value", url.Values{"user": []string{address}}, &rawValue); err != nil {
		c.log.Warnf("Trader value fetch failed for %s: %v", address, err)
	} else if entries := decodeList(rawValue); len(entries) > 0 {
		summary.TotalVolume = floatField(entries[0], "value")
	}

	return summary
}

// ClosedPositions fetches a trader's closed positions verbatim.
func (c *Client) ClosedPositions(ctx context.Context, address string) ([]map[string]interface{}, error) {
	params := url.Values{"user": []string{address}}

	var raw interface{}
	if err := c.getJSON(ctx, apiData, c.dataURL, "/closed-positions", params, &raw); err != nil {
		return nil, err
	}
	return decodeList(raw), nil
}
