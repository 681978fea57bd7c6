package polymarket

import (
	"context"
	"net/url"
	"strconv"

	"pythia/internal/domain/market"
	"pythia/pkg/errors"
)

// filterFetchLimit is how many entries we pull when client-side filters or
// sorting apply: the final page is cut after filtering, so the upstream page
// has to be wider than the requested limit.
const filterFetchLimit = 100

// aboveVolumeFetchLimit mirrors the wide page used for volume screening.
const aboveVolumeFetchLimit = 500

// Markets fetches and normalizes the market list. Limit, active and closed
// are pushed upstream; category, volume/liquidity bounds and sorting are
// applied client-side on normalized entries.
func (c *Client) Markets(ctx context.Context, q market.Query) ([]market.Market, error) {
	params := url.Values{}

	needsFiltering := q.Category != "" || q.VolumeMin > 0 || q.VolumeMax > 0 ||
		q.LiquidityMin > 0 || q.LiquidityMax > 0 || q.SortBy != ""

	switch {
	case needsFiltering:
		fetch := filterFetchLimit
		if q.Limit > fetch {
			fetch = q.Limit
		}
		params.Set("limit", strconv.Itoa(fetch))
	case q.Limit > 0:
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Active != nil {
		params.Set("active", strconv.FormatBool(*q.Active))
	}
	if q.Closed != nil {
		params.Set("closed", strconv.FormatBool(*q.Closed))
	}

	fetched, err := cachedList(ctx, c, "markets?"+params.Encode(), func() ([]market.Market, error) {
		var raw interface{}
		if err := c.getJSON(ctx, apiGamma, c.gammaURL, "/markets", params, &raw); err != nil {
			return nil, err
		}
		entries := decodeList(raw, "markets")
		markets := make([]market.Market, 0, len(entries))
		for _, entry := range entries {
			markets = append(markets, normalizeMarket(entry))
		}
		return markets, nil
	})
	if err != nil {
		return nil, err
	}

	return filterMarkets(fetched, q), nil
}

// Events fetches and normalizes the event list (groups of markets).
func (c *Client) Events(ctx context.Context, q market.Query) ([]market.Event, error) {
	params := url.Values{}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Active != nil {
		params.Set("active", strconv.FormatBool(*q.Active))
	}
	if q.Closed != nil {
		params.Set("closed", strconv.FormatBool(*q.Closed))
	}

	return cachedList(ctx, c, "events?"+params.Encode(), func() ([]market.Event, error) {
		var raw interface{}
		if err := c.getJSON(ctx, apiGamma, c.gammaURL, "/events", params, &raw); err != nil {
			return nil, err
		}
		entries := decodeList(raw, "events")
		events := make([]market.Event, 0, len(entries))
		for _, entry := range entries {
			events = append(events, normalizeEvent(entry))
		}
		return events, nil
	})
}

// MarketByCondition resolves a single market by its condition id.
func (c *Client) MarketByCondition(ctx context.Context, conditionID string) (*market.Market, error) {
	params := url.Values{"condition_ids": []string{conditionID}}

	var raw interface{}
	if err := c.getJSON(ctx, apiGamma, c.gammaURL, "/markets", params, &raw); err != nil {
		return nil, err
	}

	entries := decodeList(raw, "markets")
	if len(entries) == 0 {
		return nil, errors.Wrapf(errors.ErrNotFound, "no market for condition %s", conditionID)
	}
	m := normalizeMarket(entries[0])
	return &m, nil
}

// MarketsAboveVolume screens a wide market page for entries whose normalized
// volume meets the threshold.
func (c *Client) MarketsAboveVolume(ctx context.Context, minVolume float64) ([]market.Market, error) {
	active := true
	fetched, err := c.Markets(ctx, market.Query{Limit: aboveVolumeFetchLimit, Active: &active})
	if err != nil {
		return nil, err
	}

	qualified := make([]market.Market, 0, len(fetched))
	for _, m := range fetched {
		if m.Volume >= minVolume {
			qualified = append(qualified, m)
		}
	}
	return qualified, nil
}
