package market

// Market is the normalized view of an upstream market entry. Every field is
// always present after normalization: missing or malformed upstream values
// default to the zero value instead of failing the whole payload.
type Market struct {
	ID          string  `json:"id"`
	Question    string  `json:"question"`
	ConditionID string  `json:"conditionId"`
	Slug        string  `json:"slug"`
	Category    string  `json:"category"`
	Liquidity   float64 `json:"liquidity"`
	Volume      float64 `json:"volume"`
	StartDate   string  `json:"startDate"`
	EndDate     string  `json:"endDate"`
	Active      bool    `json:"active"`
	Closed      bool    `json:"closed"`
}

// Event is the normalized view of an upstream event (a group of markets).
type Event struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Slug      string   `json:"slug"`
	Category  string   `json:"category"`
	Liquidity float64  `json:"liquidity"`
	Volume    float64  `json:"volume"`
	StartDate string   `json:"startDate"`
	EndDate   string   `json:"endDate"`
	Active    bool     `json:"active"`
	Closed    bool     `json:"closed"`
	Markets   []Market `json:"markets"`
}

// Sort keys accepted by Query.SortBy.
const (
	SortByVolume    = "volume"
	SortByLiquidity = "liquidity"
	SortByEndDate   = "endDate"
)

// Query carries market listing filters. Zero values mean "not set"; the
// Active/Closed tri-state uses pointers so "unfiltered" is distinguishable
// from an explicit false.
type Query struct {
	Limit        int
	Category     string
	Active       *bool
	Closed       *bool
	VolumeMin    float64
	VolumeMax    float64
	LiquidityMin float64
	LiquidityMax float64
	SortBy       string
	Ascending    bool
}

// BookLevel is one price level of an order book side.
type BookLevel struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// OutcomeBook is the order book for one side (yes or no) of a market.
// Error is terminal for this outcome: when set, the other fields are empty.
type OutcomeBook struct {
	Market       string      `json:"market"`
	TickSize     float64     `json:"tick_size"`
	MinOrderSize float64     `json:"min_order_size"`
	Bids         []BookLevel `json:"bids"`
	Asks         []BookLevel `json:"asks"`
	Error        string      `json:"error,omitempty"`
}

// OrderBook carries both outcome books. A top-level Error is terminal for
// the whole book and means neither outcome was fetched.
type OrderBook struct {
	Yes   *OutcomeBook `json:"yes,omitempty"`
	No    *OutcomeBook `json:"no,omitempty"`
	Error string       `json:"error,omitempty"`
}

// TopHolder is one holder of an outcome token.
type TopHolder struct {
	Address  string  `json:"address"`
	Username string  `json:"username"`
	Amount   float64 `json:"amount"`
}

// HolderBoard partitions top holders by outcome side, each side sorted by
// amount descending and truncated to five entries.
type HolderBoard struct {
	Yes []TopHolder `json:"yes"`
	No  []TopHolder `json:"no"`
}

// Empty reports whether neither side has any holders.
func (b HolderBoard) Empty() bool {
	return len(b.Yes) == 0 && len(b.No) == 0
}

// TraderPnlAggregate is a derived per-trader profit aggregate built from a
// position list: pnl summed across positions, with the single most
// profitable market tracked as a running max (first seen wins ties).
type TraderPnlAggregate struct {
	Address              string  `json:"address"`
	Username             string  `json:"username,omitempty"`
	TotalPnl             float64 `json:"total_pnl"`
	MostProfitableMarket string  `json:"most_profitable_market"`
	bestPnl              float64
	hasBest              bool
}

// Observe folds one position into the aggregate.
func (a *TraderPnlAggregate) Observe(pnl float64, marketTitle string) {
	a.TotalPnl += pnl
	if !a.hasBest || pnl > a.bestPnl {
		a.bestPnl = pnl
		a.hasBest = true
		a.MostProfitableMarket = marketTitle
	}
}

// PnlBreakdown is the profit breakdown of a trader summary. Only the
// all-time figure is tracked today.
type PnlBreakdown struct {
	AllTime float64 `json:"all_time"`
}

// PositionSummary is a condensed open position inside a trader summary.
type PositionSummary struct {
	MarketTitle string  `json:"market_title"`
	Pnl         float64 `json:"pnl"`
}

// TraderSummary joins three independent upstream views of one trader. The
// legs are each best-effort: a failed leg leaves its slice empty without
// invalidating the others, so positions and trades may reflect different
// upstream moments.
type TraderSummary struct {
	Address     string                   `json:"address"`
	TotalVolume float64                  `json:"total_volume"`
	Pnl         PnlBreakdown             `json:"pnl"`
	Positions   []PositionSummary        `json:"positions"`
	Trades      []map[string]interface{} `json:"trades"`
}

// Empty reports whether the summary carries no data at all.
func (s *TraderSummary) Empty() bool {
	return s == nil || (s.TotalVolume == 0 && s.Pnl.AllTime == 0 &&
		len(s.Positions) == 0 && len(s.Trades) == 0)
}

// InferYesNo maps an outcome price to a coarse YES/NO signal. Prices above
// one half lean YES, below lean NO, exactly half is undecidable.
func InferYesNo(price float64) string {
	switch {
	case price > 0.5:
		return "YES"
	case price < 0.5:
		return "NO"
	default:
		return "UNKNOWN"
	}
}
