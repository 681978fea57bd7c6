// Package parser extracts structured market filters from free-form text.
// It backs the keyword dispatcher, which answers listing questions without
// a model round-trip.
package parser

import (
	"regexp"
	"strconv"
	"strings"

	"pythia/internal/domain/market"
)

const (
	defaultLimit = 5
	maxLimit     = 50
)

var (
	categoryRe  = regexp.MustCompile(`\bcategory\s+([a-z0-9_-]+)`)
	inMarketsRe = regexp.MustCompile(`\b(?:in|for|about)\s+([a-z0-9_-]+)\s+markets\b`)

	activeRe = regexp.MustCompile(`\b(?:active|open)\b`)
	closedRe = regexp.MustCompile(`\bclosed\b`)

	overRe  = regexp.MustCompile(`\b(volume|liquidity)\s+(?:over|above|greater than|more than|>)\s*(\d+[km]?)\b`)
	underRe = regexp.MustCompile(`\b(volume|liquidity)\s+(?:under|below|less than|<)\s*(\d+[km]?)\b`)

	sortedByRe = regexp.MustCompile(`\b(?:sorted|ordered)\s+by\s+(volume|liquidity)\b`)

	limitVerbRe    = regexp.MustCompile(`\b(?:top|show me|get|find)\s+(\d+)\b`)
	limitMarketsRe = regexp.MustCompile(`\b(\d+)\s+markets\b`)
)

// statusWords are never categories even when they appear in category
// position ("in active markets").
var statusWords = map[string]bool{
	"active": true,
	"open":   true,
	"closed": true,
	"all":    true,
}

// ParseMarketQuery extracts listing filters from text. Unrecognized parts
// are ignored; the result always carries a limit between 1 and 50.
func ParseMarketQuery(text string) market.Query {
	text = strings.ToLower(text)
	q := market.Query{Limit: defaultLimit}

	if m := categoryRe.FindStringSubmatch(text); m != nil {
		q.Category = m[1]
	} else if m := inMarketsRe.FindStringSubmatch(text); m != nil && !statusWords[m[1]] {
		q.Category = m[1]
	}

	if activeRe.MatchString(text) {
		q.Active = boolPtr(true)
	}
	if closedRe.MatchString(text) {
		q.Closed = boolPtr(true)
	}

	for _, m := range overRe.FindAllStringSubmatch(text, -1) {
		switch m[1] {
		case "volume":
			q.VolumeMin = HumanNumber(m[2])
		case "liquidity":
			q.LiquidityMin = HumanNumber(m[2])
		}
	}
	for _, m := range underRe.FindAllStringSubmatch(text, -1) {
		switch m[1] {
		case "volume":
			q.VolumeMax = HumanNumber(m[2])
		case "liquidity":
			q.LiquidityMax = HumanNumber(m[2])
		}
	}

	switch {
	case strings.Contains(text, "most liquid"):
		q.SortBy = market.SortByLiquidity
	case strings.Contains(text, "highest volume"):
		q.SortBy = market.SortByVolume
	case strings.Contains(text, "ending soon") || strings.Contains(text, "closing soon"):
		q.SortBy = market.SortByEndDate
		q.Ascending = true
	default:
		if m := sortedByRe.FindStringSubmatch(text); m != nil {
			q.SortBy = m[1]
		}
	}
	if strings.Contains(text, "lowest") || strings.Contains(text, "ascending") {
		q.Ascending = true
	}

	if m := limitVerbRe.FindStringSubmatch(text); m != nil {
		q.Limit = clampLimit(m[1])
	} else if m := limitMarketsRe.FindStringSubmatch(text); m != nil {
		q.Limit = clampLimit(m[1])
	}

	return q
}

// HumanNumber reads "10", "10k" or "2m" into a float. Unparsable input
// yields zero, which downstream filters treat as "not set".
func HumanNumber(s string) float64 {
	mult := 1.0
	switch {
	case strings.HasSuffix(s, "k"):
		mult, s = 1_000, strings.TrimSuffix(s, "k")
	case strings.HasSuffix(s, "m"):
		mult, s = 1_000_000, strings.TrimSuffix(s, "m")
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return n * mult
}

func clampLimit(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return defaultLimit
	}
	if n > maxLimit {
		return maxLimit
	}
	return n
}

func boolPtr(b bool) *bool { return &b }
