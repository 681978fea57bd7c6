package streamstats

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tick(conditionID, price, size string) Tick {
	return Tick{
		ConditionID: conditionID,
		Question:    "Q " + conditionID,
		Price:       decimal.RequireFromString(price),
		Size:        decimal.RequireFromString(size),
	}
}

func TestAggregatorFoldsTicksPerMarket(t *testing.T) {
	agg := NewAggregator()
	agg.Observe(tick("0xA", "0.50", "10")) // 5.00
	agg.Observe(tick("0xA", "0.60", "20")) // 12.00
	agg.Observe(tick("0xB", "0.10", "100"))

	rows := agg.Drain()
	require.Len(t, rows, 2)

	byID := map[string]int{rows[0].ConditionID: 0, rows[1].ConditionID: 1}
	a := rows[byID["0xA"]]
	assert.Equal(t, int64(2), a.TradeCount)
	assert.InDelta(t, 17.0, a.Volume24h, 1e-9)
	assert.InDelta(t, 0.60, a.LastPrice, 1e-9, "last price follows the final tick")

	b := rows[byID["0xB"]]
	assert.Equal(t, int64(1), b.TradeCount)
	assert.InDelta(t, 10.0, b.Volume24h, 1e-9)
}

func TestAggregatorDrainResets(t *testing.T) {
	agg := NewAggregator()
	agg.Observe(tick("0xA", "0.50", "10"))

	require.Len(t, agg.Drain(), 1)
	assert.Nil(t, agg.Drain(), "second drain without new ticks is empty")

	agg.Observe(tick("0xA", "0.40", "1"))
	rows := agg.Drain()
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].TradeCount, "counts are deltas, not totals")
}

func TestAggregatorIgnoresAnonymousTicks(t *testing.T) {
	agg := NewAggregator()
	agg.Observe(Tick{Price: decimal.NewFromInt(1), Size: decimal.NewFromInt(1)})
	assert.Nil(t, agg.Drain())
}

func TestConsumeParsesFrames(t *testing.T) {
	w := &Worker{agg: NewAggregator()}

	t.Run("batch frame", func(t *testing.T) {
		payload := []byte(`[
			{"event_type":"last_trade_price","asset_id":"tok1","market":"0xA","price":"0.55","size":"4"},
			{"event_type":"book","asset_id":"tok1","market":"0xA"}
		]`)
		w.consume(nil, payload, nil)
		rows := w.agg.Drain()
		require.Len(t, rows, 1)
		assert.Equal(t, "0xA", rows[0].ConditionID)
		assert.InDelta(t, 2.2, rows[0].Volume24h, 1e-9)
	})

	t.Run("single frame", func(t *testing.T) {
		payload := []byte(`{"event_type":"last_trade_price","asset_id":"tok1","market":"0xB","price":"0.25","size":"8"}`)
		w.consume(nil, payload, nil)
		rows := w.agg.Drain()
		require.Len(t, rows, 1)
		assert.Equal(t, "0xB", rows[0].ConditionID)
	})

	t.Run("garbage frame", func(t *testing.T) {
		w.consume(nil, []byte(`not json`), nil)
		assert.Nil(t, w.agg.Drain())
	})

	t.Run("bad decimals skipped", func(t *testing.T) {
		payload := []byte(`{"event_type":"last_trade_price","market":"0xC","price":"??","size":"8"}`)
		w.consume(nil, payload, nil)
		assert.Nil(t, w.agg.Drain())
	})
}
