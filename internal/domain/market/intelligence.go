package market

// Health bands for the liquidity/volume profile of a market.
const (
	HealthHealthy  = "healthy"
	HealthModerate = "moderate"
	HealthThin     = "thin"
	HealthInactive = "inactive"
	HealthClosed   = "closed"
)

// Risk levels derived from absolute liquidity and volume.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// IntelligenceReport is a deterministic analysis of one market: no model
// calls, same input always yields the same report.
type IntelligenceReport struct {
	Market     Market   `json:"market"`
	Health     string   `json:"health"`
	RiskLevel  string   `json:"risk_level"`
	Confidence int      `json:"confidence"`
	Insights   []string `json:"insights"`
	Similar    []Market `json:"similar,omitempty"`
}
