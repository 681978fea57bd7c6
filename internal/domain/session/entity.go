package session

import (
	"time"

	"pythia/internal/domain/market"
)

// Context is the conversational memory for one session: the entities the
// user referenced most recently, used to resolve follow-ups like "that
// market" or "this trader". It lives for the process lifetime unless
// explicitly cleared.
type Context struct {
	LastConditionID   string          `json:"last_condition_id,omitempty"`
	LastTraderAddress string          `json:"last_trader_address,omitempty"`
	LastMarkets       []market.Market `json:"last_markets,omitempty"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Snapshot returns a copy safe to read after the store mutates the original.
func (c *Context) Snapshot() Context {
	if c == nil {
		return Context{}
	}
	out := *c
	if c.LastMarkets != nil {
		out.LastMarkets = make([]market.Market, len(c.LastMarkets))
		copy(out.LastMarkets, c.LastMarkets)
	}
	return out
}

// Partial is a replace-by-key update: only non-nil fields are applied, each
// replacing the stored value wholesale (no deep merging of market lists).
type Partial struct {
	LastConditionID   *string
	LastTraderAddress *string
	LastMarkets       *[]market.Market
}

// Apply writes the set fields of the partial onto the context.
func (p Partial) Apply(c *Context) {
	if p.LastConditionID != nil {
		c.LastConditionID = *p.LastConditionID
	}
	if p.LastTraderAddress != nil {
		c.LastTraderAddress = *p.LastTraderAddress
	}
	if p.LastMarkets != nil {
		c.LastMarkets = *p.LastMarkets
	}
	c.UpdatedAt = time.Now()
}
