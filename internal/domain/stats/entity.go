package stats

import "time"

// MarketStats is a rolling activity aggregate for one market, maintained by
// the stream worker and read through the stats routes and the keyword
// dispatcher.
type MarketStats struct {
	ConditionID string    `db:"condition_id" json:"condition_id"`
	Question    string    `db:"question" json:"question"`
	TradeCount  int64     `db:"trade_count" json:"trade_count"`
	Volume24h   float64   `db:"volume_24h" json:"volume_24h"`
	LastPrice   float64   `db:"last_price" json:"last_price"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// CategoryStats aggregates market counts and money across one category,
// recomputed by the snapshot worker.
type CategoryStats struct {
	Category       string    `db:"category" json:"category"`
	MarketCount    int64     `db:"market_count" json:"market_count"`
	TotalVolume    float64   `db:"total_volume" json:"total_volume"`
	TotalLiquidity float64   `db:"total_liquidity" json:"total_liquidity"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
