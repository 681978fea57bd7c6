// Package format renders tool results as plain text for the conversational
// surface. Every function is total: missing fields fall back to zero or
// "N/A" instead of failing, and empty input yields a fixed no-data sentence,
// so the same result always renders to the same text.
package format

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"pythia/internal/domain/market"
)

const (
	maxTradeLines   = 10
	maxSummaryLines = 5
	maxBookLevels   = 5
	timestampLayout = "2006-01-02 15:04"
	notAvailable    = "N/A"
)

// Markets renders a numbered market list.
func Markets(markets []market.Market) string {
	if len(markets) == 0 {
		return "No markets found."
	}
	lines := []string{"Top Markets:\n"}
	for i, m := range markets {
		lines = append(lines, fmt.Sprintf(
			"%d. %s\n   - Market ID: %s\n   - Condition ID: %s\n   - Category: %s\n   - Volume: %s\n   - Liquidity: %s\n   - Ends: %s\n",
			i+1, m.Question, m.ID, m.ConditionID, m.Category,
			money(m.Volume), money(m.Liquidity), m.EndDate))
	}
	return strings.Join(lines, "\n")
}

// Events renders a numbered event list, mirroring Markets.
func Events(events []market.Event) string {
	if len(events) == 0 {
		return "No events found."
	}
	lines := []string{"Top Events:\n"}
	for i, e := range events {
		lines = append(lines, fmt.Sprintf(
			"%d. %s\n   - Event ID: %s\n   - Category: %s\n   - Volume: %s\n   - Liquidity: %s\n   - Ends: %s\n",
			i+1, e.Title, e.ID, e.Category,
			money(e.Volume), money(e.Liquidity), e.EndDate))
	}
	return strings.Join(lines, "\n")
}

// Trades renders up to ten trades of one market. The market title comes
// from the first trade; trades are upstream-verbatim objects, so every
// field read is tolerant.
func Trades(trades []map[string]interface{}) string {
	if len(trades) == 0 {
		return "No trades found for this market."
	}
	title := stringField(trades[0], "title")
	if title == "" {
		title = notAvailable
	}
	lines := []string{fmt.Sprintf("Recent Trades for '%s':\n", title)}
	for i, trade := range trades {
		if i == maxTradeLines {
			break
		}
		lines = append(lines, fmt.Sprintf(
			"%d. %s\n   - Side: %s\n   - Outcome: %s\n   - Size: %s\n   - Price: $%s\n   - Trader: %s\n",
			i+1, tradeTime(trade),
			stringField(trade, "side"), stringField(trade, "outcome"),
			fixed2(floatField(trade, "size")), fixed2(floatField(trade, "price")),
			stringField(trade, "proxyWallet")))
	}
	return strings.Join(lines, "\n")
}

// TraderDetails renders a trader summary: headline figures, then up to
// five positions and five trades.
func TraderDetails(s *market.TraderSummary) string {
	if s.Empty() {
		return "No details found for this trader."
	}
	lines := []string{
		fmt.Sprintf("Trader Details for %s\n", s.Address),
		fmt.Sprintf("   - All-time PNL: %s\n", money(s.Pnl.AllTime)),
		fmt.Sprintf("   - Total Volume: %s\n", money(s.TotalVolume)),
		"Recent Positions:",
	}
	if len(s.Positions) == 0 {
		lines = append(lines, "  - None")
	}
	for i, pos := range s.Positions {
		if i == maxSummaryLines {
			break
		}
		lines = append(lines, fmt.Sprintf("  - Market: '%s', PNL: %s",
			orNA(pos.MarketTitle), money(pos.Pnl)))
	}
	lines = append(lines, "\nRecent Trades:")
	if len(s.Trades) == 0 {
		lines = append(lines, "  - None")
	}
	for i, trade := range s.Trades {
		if i == maxSummaryLines {
			break
		}
		lines = append(lines, fmt.Sprintf("  - %s: %s %s of '%s' @ $%s",
			tradeTime(trade), stringField(trade, "side"),
			compact(floatField(trade, "size")), stringField(trade, "outcome"),
			compact(floatField(trade, "price"))))
	}
	return strings.Join(lines, "\n")
}

// OrderBook renders both outcome books. Errors captured during the fetch
// render in place of the data they replaced. Bids and asks are re-sorted
// here so the display order never depends on upstream order.
func OrderBook(book market.OrderBook) string {
	if book.Error != "" {
		return book.Error
	}
	if book.Yes == nil && book.No == nil {
		return "Order book data is not available."
	}

	lines := []string{"Order Book Summary:\n"}
	sides := []struct {
		label string
		book  *market.OutcomeBook
	}{
		{"YES", book.Yes},
		{"NO", book.No},
	}
	for _, side := range sides {
		lines = append(lines, fmt.Sprintf("--- %s Outcome ---", side.label))
		if side.book == nil {
			lines = append(lines, "  - No data for this outcome.")
			continue
		}
		if side.book.Error != "" {
			lines = append(lines, "  - "+side.book.Error)
			continue
		}
		lines = append(lines,
			"  - Market: "+side.book.Market,
			"  - Tick Size: "+compact(side.book.TickSize),
			"  - Min Order Size: "+compact(side.book.MinOrderSize),
			"\n  Bids (Price | Size):")
		bids := topLevels(side.book.Bids, false)
		if len(bids) == 0 {
			lines = append(lines, "    - No bids")
		}
		for _, lv := range bids {
			lines = append(lines, levelLine(lv))
		}
		lines = append(lines, "\n  Asks (Price | Size):")
		asks := topLevels(side.book.Asks, true)
		if len(asks) == 0 {
			lines = append(lines, "    - No asks")
		}
		for _, lv := range asks {
			lines = append(lines, levelLine(lv))
		}
	}
	return strings.Join(lines, "\n")
}

// TopHolders renders both outcome sides of a holder board. Section headers
// print even when one side is empty.
func TopHolders(board market.HolderBoard) string {
	if board.Empty() {
		return "No holder information available."
	}
	lines := []string{"Top Holders:\n", "Top 5 'Yes' Holders:"}
	for _, h := range board.Yes {
		lines = append(lines, holderLine(h))
	}
	lines = append(lines, "\nTop 5 'No' Holders:")
	for _, h := range board.No {
		lines = append(lines, holderLine(h))
	}
	return strings.Join(lines, "\n")
}

// TopTraders renders a PNL leaderboard. Traders without a username show
// their address instead.
func TopTraders(traders []market.TraderPnlAggregate) string {
	if len(traders) == 0 {
		return "No top trader information available."
	}
	lines := []string{"Top 5 Traders by PNL:\n"}
	for i, tr := range traders {
		name := tr.Username
		if name == "" {
			name = tr.Address
		}
		lines = append(lines,
			fmt.Sprintf("%d. Trader: %s", i+1, name),
			"   - Total PNL: "+money(tr.TotalPnl),
			fmt.Sprintf("   - Most Profitable Market: '%s'", orNA(tr.MostProfitableMarket)))
	}
	return strings.Join(lines, "\n")
}

// ClosedPositions renders every closed position. The list is not
// truncated: realized PNL history is short and callers want all of it.
func ClosedPositions(positions []map[string]interface{}) string {
	if len(positions) == 0 {
		return "No closed positions found for this trader."
	}
	lines := []string{"Closed Positions & PNL:\n"}
	for _, pos := range positions {
		lines = append(lines, fmt.Sprintf(
			"- Market: '%s'\n  - Condition ID: %s\n  - Realized PNL: %s\n",
			orNA(stringField(pos, "title")), stringField(pos, "conditionId"),
			money(floatField(pos, "realizedPnl"))))
	}
	return strings.Join(lines, "\n")
}

// topLevels returns up to five levels sorted by price, without mutating
// the input slice.
func topLevels(levels []market.BookLevel, ascending bool) []market.BookLevel {
	out := make([]market.BookLevel, len(levels))
	copy(out, levels)
	sort.SliceStable(out, func(i, j int) bool {
		if ascending {
			return out[i].Price < out[j].Price
		}
		return out[i].Price > out[j].Price
	})
	if len(out) > maxBookLevels {
		out = out[:maxBookLevels]
	}
	return out
}

func levelLine(lv market.BookLevel) string {
	return fmt.Sprintf("    - $%s | %s", fixed2(lv.Price), fixed2(lv.Size))
}

func holderLine(h market.TopHolder) string {
	return fmt.Sprintf("  - User: %s (%s) | Amount: %s",
		orNA(h.Username), orNA(h.Address), fixed2(h.Amount))
}

// tradeTime renders a trade's unix timestamp; zero or absent falls back
// to the current time, matching how the upstream feed fills gaps.
func tradeTime(trade map[string]interface{}) string {
	t := time.Now()
	if ts := floatField(trade, "timestamp"); ts > 0 {
		t = time.Unix(int64(ts), 0)
	}
	return t.Format(timestampLayout)
}

// money renders a dollar amount with thousands separators and exactly two
// decimal places.
func money(v float64) string {
	return "$" + humanize.FormatFloat("#,###.##", v)
}

func fixed2(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func compact(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func orNA(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}

// stringField reads a string from an upstream-verbatim object, rendering
// numbers and ignoring everything else.
func stringField(m map[string]interface{}, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// floatField reads a number from an upstream-verbatim object; numeric
// strings parse, everything else is zero.
func floatField(m map[string]interface{}, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case string:
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
