// Package streamstats subscribes to the CLOB market websocket for the
// highest-volume markets, folds trade ticks into rolling per-market
// aggregates, and flushes them to the stats repository on every scheduler
// tick. Raw ticks fan out to Kafka when a producer is wired.
package streamstats

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"pythia/internal/adapters/kafka"
	"pythia/internal/adapters/polymarket"
	"pythia/internal/domain/stats"
	"pythia/internal/metrics"
	"pythia/internal/workers"
	"pythia/pkg/errors"
	"pythia/pkg/logger"
	"pythia/pkg/reconnect"
)

const (
	workerName = "streamstats"

	dialTimeout = 15 * time.Second
	readTimeout = 90 * time.Second

	tradeEvent = "last_trade_price"
)

// TokenSource resolves which markets to stream.
type TokenSource interface {
	TopMarketTokens(ctx context.Context, limit int) ([]polymarket.MarketTokens, error)
}

// TickPublisher fans raw ticks out to a message broker.
type TickPublisher interface {
	Publish(ctx context.Context, topic, key string, event interface{}) error
}

// Config configures the stream worker.
type Config struct {
	Enabled    bool
	FlushEvery time.Duration
	TopMarkets int
	WSURL      string
	TradeTopic string
}

// Worker owns the websocket reader goroutine and flushes its aggregates.
type Worker struct {
	*workers.BaseWorker

	cfg       Config
	tokens    TokenSource
	stats     stats.Repository
	publisher TickPublisher // nil disables fan-out
	agg       *Aggregator
	manager   *reconnect.Manager

	mu        sync.Mutex
	streaming bool
}

// New creates the stream worker.
func New(cfg Config, tokens TokenSource, statsRepo stats.Repository, publisher TickPublisher, log *logger.Logger) *Worker {
	if cfg.TopMarkets <= 0 {
		cfg.TopMarkets = 20
	}
	if cfg.TradeTopic == "" {
		cfg.TradeTopic = kafka.TopicTrades
	}
	return &Worker{
		BaseWorker: workers.NewBaseWorker(workerName, cfg.FlushEvery, cfg.Enabled, log),
		cfg:        cfg,
		tokens:     tokens,
		stats:      statsRepo,
		publisher:  publisher,
		agg:        NewAggregator(),
		manager:    reconnect.NewManager(reconnect.Config{}, log),
	}
}

// Run is one scheduler tick: make sure the stream reader is alive, then
// flush whatever accumulated since the last tick.
func (w *Worker) Run(ctx context.Context) error {
	start := time.Now()

	w.ensureStreaming(ctx)

	rows := w.agg.Drain()
	var flushErr error
	for i := range rows {
		if err := w.stats.UpsertMarketStats(ctx, &rows[i]); err != nil {
			flushErr = err
			w.Log().Warnf("Failed to flush stats for %s: %v", rows[i].ConditionID, err)
		}
	}
	if len(rows) > 0 {
		w.Log().Infow("Stream aggregates flushed", "markets", len(rows))
	}

	if flushErr != nil {
		w.RecordError(flushErr, time.Since(start))
		return errors.Wrap(flushErr, "stats flush incomplete")
	}
	w.RecordRun(time.Since(start))
	return nil
}

// ensureStreaming starts the reader goroutine if none is alive. The reader
// reconnects on its own; this only restarts it after a terminal exit.
func (w *Worker) ensureStreaming(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.streaming {
		return
	}
	w.streaming = true
	go w.streamLoop(ctx)
}

func (w *Worker) streamLoop(ctx context.Context) {
	defer func() {
		w.mu.Lock()
		w.streaming = false
		w.mu.Unlock()
	}()

	for ctx.Err() == nil {
		if !w.manager.ShouldRetry() {
			w.Log().Warn("Stream circuit open, pausing before reconnect")
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.manager.GetBackoff()):
			}
			continue
		}

		if err := w.streamOnce(ctx); err != nil && ctx.Err() == nil {
			w.manager.RecordFailure()
			w.Log().Warnf("Market stream dropped: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.manager.GetBackoff()):
			}
		}
	}
}

// streamOnce runs one full connection lifetime: resolve tokens, subscribe,
// read until the connection dies or the context is cancelled.
func (w *Worker) streamOnce(ctx context.Context) error {
	markets, err := w.tokens.TopMarketTokens(ctx, w.cfg.TopMarkets)
	if err != nil {
		return errors.Wrap(err, "failed to resolve stream tokens")
	}
	if len(markets) == 0 {
		return errors.Wrap(errors.ErrNotFound, "no streamable markets")
	}

	byToken := make(map[string]polymarket.MarketTokens)
	assetIDs := make([]string, 0, len(markets)*2)
	for _, m := range markets {
		for _, token := range m.TokenIDs {
			byToken[token] = m
			assetIDs = append(assetIDs, token)
		}
	}

	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, _, err := dialer.DialContext(ctx, w.cfg.WSURL, nil)
	if err != nil {
		return errors.Wrap(err, "websocket dial failed")
	}
	defer conn.Close()

	sub := map[string]interface{}{"assets_ids": assetIDs, "type": "market"}
	if err := conn.WriteJSON(sub); err != nil {
		return errors.Wrap(err, "subscribe failed")
	}

	w.manager.RecordSuccess()
	metrics.StreamConnections.Inc()
	defer metrics.StreamConnections.Dec()
	w.Log().Infow("Market stream connected", "markets", len(markets), "tokens", len(assetIDs))

	// Close the connection when the context ends so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "stream read failed")
		}
		w.manager.RecordMessageReceived()
		metrics.StreamMessages.Inc()
		w.consume(ctx, payload, byToken)
	}
}

// streamEvent is the subset of the CLOB market channel we act on. All
// numeric fields arrive as decimal strings.
type streamEvent struct {
	EventType string `json:"event_type"`
	AssetID   string `json:"asset_id"`
	Market    string `json:"market"`
	Price     string `json:"price"`
	Size      string `json:"size"`
	Side      string `json:"side"`
	Timestamp string `json:"timestamp"`
}

// consume folds trade events from one frame. Frames carry either a single
// event or a batch; unknown event types and unparsable frames are skipped.
func (w *Worker) consume(ctx context.Context, payload []byte, byToken map[string]polymarket.MarketTokens) {
	var events []streamEvent
	if err := json.Unmarshal(payload, &events); err != nil {
		var single streamEvent
		if err := json.Unmarshal(payload, &single); err != nil {
			return
		}
		events = []streamEvent{single}
	}

	for _, ev := range events {
		if ev.EventType != tradeEvent {
			continue
		}
		price, err := decimal.NewFromString(ev.Price)
		if err != nil {
			continue
		}
		size, err := decimal.NewFromString(ev.Size)
		if err != nil {
			continue
		}

		conditionID := ev.Market
		question := ""
		if m, ok := byToken[ev.AssetID]; ok {
			if conditionID == "" {
				conditionID = m.ConditionID
			}
			question = m.Question
		}

		w.agg.Observe(Tick{
			ConditionID: conditionID,
			Question:    question,
			Price:       price,
			Size:        size,
		})
		w.publish(ctx, conditionID, ev)
	}
}

func (w *Worker) publish(ctx context.Context, conditionID string, ev streamEvent) {
	if w.publisher == nil || conditionID == "" {
		return
	}
	if err := w.publisher.Publish(ctx, w.cfg.TradeTopic, conditionID, ev); err != nil {
		w.Log().Debugf("Tick publish failed: %v", err)
	}
}
