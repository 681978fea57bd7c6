package polymarket

import (
	"sort"
	"strconv"
	"strings"

	"pythia/internal/domain/market"
)

// Upstream list payloads arrive in one of four shapes: a bare array, an
// envelope under "data", an envelope under an endpoint-specific key
// ("markets", "events"), or a single object. decodeList handles all four
// and drops non-object entries, so every caller works on a flat []object.
func decodeList(raw interface{}, namedKeys ...string) []map[string]interface{} {
	switch v := raw.(type) {
	case []interface{}:
		return objectEntries(v)
	case map[string]interface{}:
		keys := append([]string{"data"}, namedKeys...)
		sawEnvelope := false
		for _, key := range keys {
			nested, ok := v[key]
			if !ok {
				continue
			}
			sawEnvelope = true
			switch list := nested.(type) {
			case []interface{}:
				return objectEntries(list)
			case map[string]interface{}:
				return []map[string]interface{}{list}
			}
		}
		if sawEnvelope {
			// envelope key present but empty/unusable
			return nil
		}
		return []map[string]interface{}{v}
	}
	return nil
}

func objectEntries(items []interface{}) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]interface{}); ok {
			out = append(out, obj)
		}
	}
	return out
}

// stringField returns the first usable string among the candidate keys, in
// priority order. Numbers are stringified; empty strings and zero numbers
// fall through to the next candidate.
func stringField(obj map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		v, ok := obj[key]
		if !ok || v == nil {
			continue
		}
		switch s := v.(type) {
		case string:
			if s != "" {
				return s
			}
		case float64:
			if s != 0 {
				return strconv.FormatFloat(s, 'f', -1, 64)
			}
		case bool:
			return strconv.FormatBool(s)
		}
	}
	return ""
}

// floatField returns the first usable number among the candidate keys.
// Numeric strings are parsed; an unparsable non-empty string terminates the
// chain with 0 rather than falling through, since a present-but-malformed
// value means the upstream populated this field.
func floatField(obj map[string]interface{}, keys ...string) float64 {
	for _, key := range keys {
		v, ok := obj[key]
		if !ok || v == nil {
			continue
		}
		switch n := v.(type) {
		case float64:
			if n != 0 {
				return n
			}
		case string:
			if n == "" {
				continue
			}
			f, _ := strconv.ParseFloat(n, 64)
			return f
		}
	}
	return 0
}

// intField is floatField truncated to int.
func intField(obj map[string]interface{}, keys ...string) int {
	return int(floatField(obj, keys...))
}

// boolField returns the first present boolean-ish value among the candidate
// keys; anything absent or malformed defaults to false.
func boolField(obj map[string]interface{}, keys ...string) bool {
	for _, key := range keys {
		v, ok := obj[key]
		if !ok || v == nil {
			continue
		}
		switch b := v.(type) {
		case bool:
			return b
		case string:
			if parsed, err := strconv.ParseBool(b); err == nil {
				return parsed
			}
		case float64:
			return b != 0
		}
	}
	return false
}

// Candidate key tables below are ordered by priority: the upstream exposes
// both raw and "*Num" numeric fields and both plain and "*Iso" dates
// depending on endpoint age.

func normalizeMarket(obj map[string]interface{}) market.Market {
	return market.Market{
		ID:          stringField(obj, "id"),
		Question:    stringField(obj, "question", "title"),
		ConditionID: stringField(obj, "conditionId"),
		Slug:        stringField(obj, "slug"),
		Category:    stringField(obj, "category"),
		Liquidity:   floatField(obj, "liquidityNum", "liquidity"),
		Volume:      floatField(obj, "volumeNum", "volume"),
		StartDate:   stringField(obj, "startDate", "startDateIso"),
		EndDate:     stringField(obj, "endDate", "endDateIso"),
		Active:      boolField(obj, "active"),
		Closed:      boolField(obj, "closed"),
	}
}

func normalizeEvent(obj map[string]interface{}) market.Event {
	var markets []market.Market
	if nested, ok := obj["markets"].([]interface{}); ok {
		for _, entry := range objectEntries(nested) {
			markets = append(markets, normalizeMarket(entry))
		}
	}

	return market.Event{
		ID:        stringField(obj, "id"),
		Title:     stringField(obj, "title", "question"),
		Slug:      stringField(obj, "slug"),
		Category:  stringField(obj, "category"),
		Liquidity: floatField(obj, "liquidityNum", "liquidity"),
		Volume:    floatField(obj, "volumeNum", "volume", "volume24hr"),
		StartDate: stringField(obj, "startDate", "startDateIso"),
		EndDate:   stringField(obj, "endDate", "endDateIso"),
		Active:    boolField(obj, "active"),
		Closed:    boolField(obj, "closed"),
		Markets:   markets,
	}
}

// filterMarkets applies the query's client-side filters: category matching,
// volume/liquidity bounds, sort order and final truncation. Upstream only
// sees limit/active/closed; everything else runs on normalized data so the
// behavior does not depend on upstream filter support.
func filterMarkets(markets []market.Market, q market.Query) []market.Market {
	out := markets
	if q.Category != "" || q.VolumeMin > 0 || q.VolumeMax > 0 || q.LiquidityMin > 0 || q.LiquidityMax > 0 {
		out = make([]market.Market, 0, len(markets))
		for _, m := range markets {
			if q.Category != "" && !strings.EqualFold(m.Category, q.Category) {
				continue
			}
			if q.VolumeMin > 0 && m.Volume < q.VolumeMin {
				continue
			}
			if q.VolumeMax > 0 && m.Volume > q.VolumeMax {
				continue
			}
			if q.LiquidityMin > 0 && m.Liquidity < q.LiquidityMin {
				continue
			}
			if q.LiquidityMax > 0 && m.Liquidity > q.LiquidityMax {
				continue
			}
			out = append(out, m)
		}
	}

	sortMarkets(out, q.SortBy, q.Ascending)

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

func sortMarkets(markets []market.Market, sortBy string, ascending bool) {
	var less func(a, b market.Market) bool
	switch sortBy {
	case market.SortByVolume:
		less = func(a, b market.Market) bool { return a.Volume < b.Volume }
	case market.SortByLiquidity:
		less = func(a, b market.Market) bool { return a.Liquidity < b.Liquidity }
	case market.SortByEndDate:
		less = func(a, b market.Market) bool { return a.EndDate < b.EndDate }
	default:
		return
	}

	sort.SliceStable(markets, func(i, j int) bool {
		if ascending {
			return less(markets[i], markets[j])
		}
		return less(markets[j], markets[i])
	})
}
