package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pythia/internal/domain/market"
)

func TestParseMarketQuery(t *testing.T) {
	tests := []struct {
		name string
		text string
		want market.Query
	}{
		{
			name: "empty text yields defaults",
			text: "",
			want: market.Query{Limit: 5},
		},
		{
			name: "category from in-markets phrase",
			text: "What's happening in politics markets?",
			want: market.Query{Limit: 5, Category: "politics"},
		},
		{
			name: "category keyword",
			text: "show markets, category Crypto",
			want: market.Query{Limit: 5, Category: "crypto"},
		},
		{
			name: "status word is not a category",
			text: "what's new in active markets",
			want: market.Query{Limit: 5, Active: boolPtr(true)},
		},
		{
			name: "open implies active",
			text: "list open markets",
			want: market.Query{Limit: 5, Active: boolPtr(true)},
		},
		{
			name: "closed markets",
			text: "closed markets about sports markets",
			want: market.Query{Limit: 5, Category: "sports", Closed: boolPtr(true)},
		},
		{
			name: "volume over with k suffix",
			text: "markets with volume over 10k",
			want: market.Query{Limit: 5, VolumeMin: 10_000},
		},
		{
			name: "liquidity greater than with m suffix",
			text: "liquidity greater than 2m please",
			want: market.Query{Limit: 5, LiquidityMin: 2_000_000},
		},
		{
			name: "volume under",
			text: "volume under 500",
			want: market.Query{Limit: 5, VolumeMax: 500},
		},
		{
			name: "angle bracket comparator",
			text: "volume > 100k",
			want: market.Query{Limit: 5, VolumeMin: 100_000},
		},
		{
			name: "most liquid",
			text: "what are the most liquid markets",
			want: market.Query{Limit: 5, SortBy: market.SortByLiquidity},
		},
		{
			name: "highest volume",
			text: "highest volume right now",
			want: market.Query{Limit: 5, SortBy: market.SortByVolume},
		},
		{
			name: "ending soon sorts by end date ascending",
			text: "which markets are ending soon",
			want: market.Query{Limit: 5, SortBy: market.SortByEndDate, Ascending: true},
		},
		{
			name: "sorted by keyword",
			text: "markets sorted by liquidity",
			want: market.Query{Limit: 5, SortBy: market.SortByLiquidity},
		},
		{
			name: "ordered by volume ascending",
			text: "markets ordered by volume, lowest first",
			want: market.Query{Limit: 5, SortBy: market.SortByVolume, Ascending: true},
		},
		{
			name: "top n limit",
			text: "top 10 markets",
			want: market.Query{Limit: 10},
		},
		{
			name: "verb limit",
			text: "show me 3",
			want: market.Query{Limit: 3},
		},
		{
			name: "n markets limit",
			text: "7 markets please",
			want: market.Query{Limit: 7},
		},
		{
			name: "limit capped",
			text: "get 500",
			want: market.Query{Limit: 50},
		},
		{
			name: "zero limit falls back to default",
			text: "top 0 markets",
			want: market.Query{Limit: 5},
		},
		{
			name: "combined clauses",
			text: "find 7 closed markets in sports markets with volume over 10k and liquidity under 2m, lowest first",
			want: market.Query{
				Limit:        7,
				Category:     "sports",
				Closed:       boolPtr(true),
				VolumeMin:    10_000,
				LiquidityMax: 2_000_000,
				Ascending:    true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseMarketQuery(tt.text))
		})
	}
}

func TestParseHumanNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"10", 10},
		{"10k", 10_000},
		{"2m", 2_000_000},
		{"0", 0},
		{"oops", 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, HumanNumber(tt.in))
		})
	}
}
