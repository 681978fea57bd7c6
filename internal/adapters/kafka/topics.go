package kafka

// Topic definitions for Kafka event streaming
const (
	// TopicTrades carries live CLOB trade ticks, one message per trade,
	// keyed by condition id. Overridable via KAFKA_TRADE_TOPIC.
	TopicTrades = "polymarket.trades"
)
