package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"pythia/pkg/errors"
)

type Config struct {
	App           AppConfig
	Server        ServerConfig
	AI            AIConfig
	Embeddings    EmbeddingsConfig
	Polymarket    PolymarketConfig
	Postgres      PostgresConfig
	ClickHouse    ClickHouseConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	Telegram      TelegramConfig
	ErrorTracking ErrorTrackingConfig
	Workers       WorkerConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"pythia"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

type ServerConfig struct {
	Host string `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port int    `envconfig:"SERVER_PORT" default:"8080"`
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Supported AI_PROVIDER values.
const (
	AIProviderASI      = "asi"
	AIProviderOpenAI   = "openai"
	AIProviderDeepSeek = "deepseek"
)

// AIConfig configures the chat-completion provider used by the intent
// planner. ASI, OpenAI and DeepSeek all speak the same OpenAI wire format,
// they differ only in base URL and key.
type AIConfig struct {
	Provider     string        `envconfig:"AI_PROVIDER" default:"asi"`
	Model        string        `envconfig:"AI_MODEL" default:"asi1-fast"`
	ASIKey       string        `envconfig:"ASI_API_KEY"`
	ASIBaseURL   string        `envconfig:"ASI_BASE_URL" default:"https://api.asi1.ai/v1"`
	OpenAIKey    string        `envconfig:"OPENAI_API_KEY"`
	DeepSeekKey  string        `envconfig:"DEEPSEEK_API_KEY"`
	Timeout      time.Duration `envconfig:"AI_TIMEOUT" default:"60s"`
	RateLimitRPM int           `envconfig:"AI_RATE_LIMIT_RPM" default:"30"`
}

// Key returns the API key for the configured provider.
func (c AIConfig) Key() string {
	switch c.Provider {
	case AIProviderOpenAI:
		return c.OpenAIKey
	case AIProviderDeepSeek:
		return c.DeepSeekKey
	default:
		return c.ASIKey
	}
}

// Enabled reports whether a planner provider can be built at all.
func (c AIConfig) Enabled() bool {
	return c.Key() != ""
}

type EmbeddingsConfig struct {
	Provider string        `envconfig:"EMBEDDINGS_PROVIDER"`
	APIKey   string        `envconfig:"EMBEDDINGS_API_KEY"`
	Model    string        `envconfig:"EMBEDDINGS_MODEL" default:"text-embedding-3-small"`
	Timeout  time.Duration `envconfig:"EMBEDDINGS_TIMEOUT" default:"30s"`
}

func (c EmbeddingsConfig) Enabled() bool {
	return c.Provider != "" && c.APIKey != ""
}

type PolymarketConfig struct {
	GammaURL     string        `envconfig:"POLYMARKET_GAMMA_URL" default:"https://gamma-api.polymarket.com"`
	DataURL      string        `envconfig:"POLYMARKET_DATA_URL" default:"https://data-api.polymarket.com"`
	ClobURL      string        `envconfig:"POLYMARKET_CLOB_URL" default:"https://clob.polymarket.com"`
	ClobWSURL    string        `envconfig:"POLYMARKET_CLOB_WS_URL" default:"wss://ws-subscriptions-clob.polymarket.com/ws/market"`
	Timeout      time.Duration `envconfig:"POLYMARKET_TIMEOUT" default:"30s"`
	RateLimitRPS int           `envconfig:"POLYMARKET_RATE_LIMIT_RPS" default:"8"`
	CacheTTL     time.Duration `envconfig:"POLYMARKET_CACHE_TTL" default:"60s"`
}

type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" default:"pythia"`
	Password string `envconfig:"POSTGRES_PASSWORD"`
	Database string `envconfig:"POSTGRES_DB" default:"pythia"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"25"`
}

func (c PostgresConfig) Enabled() bool {
	return c.Host != ""
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

type ClickHouseConfig struct {
	Host     string `envconfig:"CLICKHOUSE_HOST"`
	Port     int    `envconfig:"CLICKHOUSE_PORT" default:"9000"`
	User     string `envconfig:"CLICKHOUSE_USER" default:"default"`
	Password string `envconfig:"CLICKHOUSE_PASSWORD"`
	Database string `envconfig:"CLICKHOUSE_DB" default:"pythia"`
}

func (c ClickHouseConfig) Enabled() bool {
	return c.Host != ""
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type KafkaConfig struct {
	Brokers    []string `envconfig:"KAFKA_BROKERS"`
	TradeTopic string   `envconfig:"KAFKA_TRADE_TOPIC" default:"polymarket.trades"`
}

func (c KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

type TelegramConfig struct {
	BotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	Debug    bool   `envconfig:"TELEGRAM_DEBUG" default:"false"`
}

func (c TelegramConfig) Enabled() bool {
	return c.BotToken != ""
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"false"`
	Provider    string `envconfig:"ERROR_TRACKING_PROVIDER" default:"sentry"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// WorkerConfig contains intervals for the background workers.
// Stream aggregation flushes often; snapshots are deliberately slow to stay
// well inside upstream rate limits.
type WorkerConfig struct {
	StreamEnabled    bool          `envconfig:"WORKER_STREAM_ENABLED" default:"false"`
	StreamFlushEvery time.Duration `envconfig:"WORKER_STREAM_FLUSH_INTERVAL" default:"30s"`
	StreamTopMarkets int           `envconfig:"WORKER_STREAM_TOP_MARKETS" default:"20"`

	SnapshotEnabled  bool          `envconfig:"WORKER_SNAPSHOT_ENABLED" default:"false"`
	SnapshotInterval time.Duration `envconfig:"WORKER_SNAPSHOT_INTERVAL" default:"5m"`
	SnapshotMarkets  int           `envconfig:"WORKER_SNAPSHOT_MARKETS" default:"100"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cross-field rules that envconfig tags cannot express.
// Missing optional subsystems are not errors: they disable features.
func (c *Config) Validate() error {
	switch c.AI.Provider {
	case AIProviderASI, AIProviderOpenAI, AIProviderDeepSeek:
	default:
		return errors.Wrapf(errors.ErrInvalidInput, "unknown AI provider %q", c.AI.Provider)
	}

	if c.Workers.StreamEnabled && !c.Postgres.Enabled() {
		return errors.Wrap(errors.ErrInvalidInput, "stream worker requires postgres (WORKER_STREAM_ENABLED without POSTGRES_HOST)")
	}
	if c.Embeddings.Enabled() && !c.Postgres.Enabled() {
		return errors.Wrap(errors.ErrInvalidInput, "semantic recommendations require postgres for the vector store")
	}

	return nil
}
