package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/jmoiron/sqlx"
	goredis "github.com/redis/go-redis/v9"

	"pythia/internal/adapters/ai"
	"pythia/internal/adapters/clickhouse"
	"pythia/internal/adapters/config"
	"pythia/internal/adapters/embeddings"
	"pythia/internal/adapters/errors/noop"
	"pythia/internal/adapters/errors/sentry"
	"pythia/internal/adapters/kafka"
	"pythia/internal/adapters/polymarket"
	"pythia/internal/adapters/postgres"
	"pythia/internal/adapters/redis"
	"pythia/internal/adapters/telegram"
	"pythia/internal/api"
	agentapi "pythia/internal/api/agent"
	"pythia/internal/api/health"
	polymarketapi "pythia/internal/api/polymarket"
	statsapi "pythia/internal/api/stats"
	"pythia/internal/domain/market"
	"pythia/internal/domain/stats"
	"pythia/internal/domain/usage"
	"pythia/internal/memory"
	"pythia/internal/metrics"
	agentsvc "pythia/internal/services/agent"
	"pythia/internal/services/dispatcher"
	"pythia/internal/services/intelligence"
	"pythia/internal/services/planner"
	"pythia/internal/services/recommend"
	sessionsvc "pythia/internal/services/session"
	"pythia/internal/workers"
	"pythia/internal/workers/snapshot"
	"pythia/internal/workers/streamstats"
	"pythia/pkg/errors"
	"pythia/pkg/logger"
)

const version = "1.0.0"

const shutdownTimeout = 30 * time.Second

// stores groups the optional backing stores. Any of them may be nil; the
// features they back degrade gracefully.
type stores struct {
	postgres   *postgres.Client
	clickhouse *clickhouse.Client
	redis      *redis.Client
	producer   *kafka.Producer

	statsRepo     stats.Repository
	embeddingRepo market.EmbeddingRepository
	usageRepo     *clickhouse.UsageRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()
	log.Infof("Starting %s %s in %s mode", cfg.App.Name, version, cfg.App.Env)

	errorTracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(errorTracker)

	metrics.Init()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := initStores(ctx, cfg, log)

	client := polymarket.NewClient(polymarket.Config{
		GammaURL:     cfg.Polymarket.GammaURL,
		DataURL:      cfg.Polymarket.DataURL,
		ClobURL:      cfg.Polymarket.ClobURL,
		Timeout:      cfg.Polymarket.Timeout,
		RateLimitRPS: cfg.Polymarket.RateLimitRPS,
		Cache:        payloadCache(cfg, st, log),
	}, log)

	sessions := sessionsvc.NewService(memory.NewSessionStore(), log)

	engine := initRecommender(st, client, log)
	intel := intelligence.NewService(client, engine, log)
	dispatch := dispatcher.NewService(client, st.statsRepo, engine, intel, log)
	agent := initAgent(cfg, st, client, sessions, log)

	server := initServer(cfg, st, client, intel, dispatch, agent, log)
	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	bot := initTelegramBot(cfg, agent, dispatch, sessions, log)
	if bot != nil {
		go func() {
			if err := bot.Start(ctx); err != nil {
				log.Errorf("Telegram bot error: %v", err)
			}
		}()
	}

	scheduler := initWorkers(cfg, st, client, log)
	if scheduler != nil {
		if err := scheduler.Start(ctx); err != nil {
			log.Errorf("Failed to start workers: %v", err)
		}
	}

	log.Info("System initialized successfully")

	waitForShutdown(cancel, log)
	shutdown(server, scheduler, bot, st, errorTracker, log)
}

// initErrorTracker initializes error tracking (Sentry or no-op).
func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return noop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

// initStores connects the configured backing stores. A store that is
// configured but unreachable is fatal; an unconfigured one is skipped.
func initStores(ctx context.Context, cfg *config.Config, log *logger.Logger) *stores {
	st := &stores{}

	if cfg.Postgres.Enabled() {
		pg, err := postgres.NewClient(cfg.Postgres)
		if err != nil {
			log.Fatalf("Failed to connect to PostgreSQL: %v", err)
		}
		st.postgres = pg
		st.statsRepo = postgres.NewStatsRepository(pg.DB())
		st.embeddingRepo = postgres.NewEmbeddingRepository(pg.DB())
		metrics.RegisterStatsCollector(metrics.NewStatsCollector(log, pg.DB()))
		log.Info("PostgreSQL connected")
	}

	if cfg.ClickHouse.Enabled() {
		ch, err := clickhouse.NewClient(cfg.ClickHouse)
		if err != nil {
			log.Fatalf("Failed to connect to ClickHouse: %v", err)
		}
		st.clickhouse = ch
		st.usageRepo = clickhouse.NewUsageRepository(ch.Conn())
		st.usageRepo.Start(ctx)
		log.Info("ClickHouse connected, usage accounting enabled")
	}

	if cfg.Redis.Enabled() {
		rd, err := redis.NewClient(cfg.Redis)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		st.redis = rd
		log.Info("Redis connected")
	}

	if cfg.Kafka.Enabled() {
		st.producer = kafka.NewProducer(kafka.ProducerConfig{Brokers: cfg.Kafka.Brokers})
		log.Infow("Kafka producer ready", "brokers", cfg.Kafka.Brokers)
	}

	return st
}

func payloadCache(cfg *config.Config, st *stores, log *logger.Logger) polymarket.PayloadCache {
	if st.redis == nil {
		return nil
	}
	return redis.NewPayloadCache(st.redis, cfg.Polymarket.CacheTTL, log)
}

// initRecommender picks the semantic engine when a vector store is wired,
// falling back to rule-based scoring otherwise.
func initRecommender(st *stores, client *polymarket.Client, log *logger.Logger) recommend.Engine {
	rule := recommend.NewRuleEngine(client, log)
	if st.embeddingRepo == nil {
		return rule
	}
	log.Info("Semantic recommendations enabled")
	return recommend.NewSemanticEngine(st.embeddingRepo, rule, log)
}

// initAgent builds the planner and executor when an AI key is configured.
// Returns nil otherwise; the keyword dispatcher still serves queries.
func initAgent(cfg *config.Config, st *stores, client *polymarket.Client, sessions *sessionsvc.Service, log *logger.Logger) *agentsvc.Service {
	if !cfg.AI.Enabled() {
		log.Warn("No AI provider configured, conversational agent disabled")
		return nil
	}

	provider, err := ai.NewFromConfig(cfg.AI, log)
	if err != nil {
		log.Fatalf("Failed to create AI provider: %v", err)
	}

	var usageRepo usage.Repository
	if st.usageRepo != nil {
		usageRepo = st.usageRepo
	}
	plan := planner.NewService(provider, usageRepo, cfg.AI.Timeout, log)

	log.Infow("Conversational agent enabled", "provider", provider.Name(), "model", provider.Model())
	return agentsvc.NewService(plan, client, sessions, log)
}

func initServer(
	cfg *config.Config,
	st *stores,
	client *polymarket.Client,
	intel *intelligence.Service,
	dispatch *dispatcher.Service,
	agent *agentsvc.Service,
	log *logger.Logger,
) *api.Server {
	var agentService agentapi.Service
	if agent != nil {
		agentService = agent
	}

	h := api.Handlers{
		Agent:      agentapi.New(agentService, dispatch, log),
		Polymarket: polymarketapi.New(client, intel, log),
		Stats:      statsapi.New(st.statsRepo, log),
		Health:     initHealth(cfg, st, log),
	}

	return api.NewServer(api.ServerConfig{
		Addr:        cfg.Server.Addr(),
		ServiceName: cfg.App.Name,
		Version:     version,
	}, h, log)
}

func initHealth(cfg *config.Config, st *stores, log *logger.Logger) *health.Handler {
	var (
		db   *sqlx.DB
		conn driver.Conn
		rdb  *goredis.Client
	)
	if st.postgres != nil {
		db = st.postgres.DB()
	}
	if st.clickhouse != nil {
		conn = st.clickhouse.Conn()
	}
	if st.redis != nil {
		rdb = st.redis.Client()
	}
	return health.New(log, db, conn, rdb, cfg.App.Name, version)
}

// initTelegramBot starts the chat transport when a token is configured.
func initTelegramBot(cfg *config.Config, agent *agentsvc.Service, dispatch *dispatcher.Service, sessions *sessionsvc.Service, log *logger.Logger) *telegram.Bot {
	if !cfg.Telegram.Enabled() {
		log.Info("Telegram bot disabled (no token)")
		return nil
	}

	var agentIface telegram.Agent
	if agent != nil {
		agentIface = agent
	}

	bot, err := telegram.NewBot(telegram.Config{
		Token: cfg.Telegram.BotToken,
		Debug: cfg.Telegram.Debug,
	}, agentIface, dispatch, sessions, log)
	if err != nil {
		log.Fatalf("Failed to create Telegram bot: %v", err)
	}
	return bot
}

// initWorkers registers the enabled background workers. Returns nil when
// none are enabled.
func initWorkers(cfg *config.Config, st *stores, client *polymarket.Client, log *logger.Logger) *workers.Scheduler {
	scheduler := workers.NewScheduler(log)
	registered := 0

	if cfg.Workers.StreamEnabled && st.statsRepo != nil {
		var publisher streamstats.TickPublisher
		if st.producer != nil {
			publisher = st.producer
		}
		scheduler.Register(streamstats.New(streamstats.Config{
			Enabled:    true,
			FlushEvery: cfg.Workers.StreamFlushEvery,
			TopMarkets: cfg.Workers.StreamTopMarkets,
			WSURL:      cfg.Polymarket.ClobWSURL,
			TradeTopic: cfg.Kafka.TradeTopic,
		}, client, st.statsRepo, publisher, log))
		registered++
	}

	if cfg.Workers.SnapshotEnabled {
		var embedder snapshot.Embedder
		if cfg.Embeddings.Enabled() && st.embeddingRepo != nil {
			provider, err := embeddings.NewFromConfig(cfg.Embeddings)
			if err != nil {
				log.Warnf("Embeddings provider unavailable, snapshot skips vectors: %v", err)
			} else {
				embedder = provider
			}
		}
		scheduler.Register(snapshot.New(snapshot.Config{
			Enabled:  true,
			Interval: cfg.Workers.SnapshotInterval,
			Markets:  cfg.Workers.SnapshotMarkets,
		}, client, st.statsRepo, embedder, st.embeddingRepo, log))
		registered++
	}

	if registered == 0 {
		return nil
	}
	return scheduler
}

// waitForShutdown blocks until SIGINT/SIGTERM, then cancels the root context.
func waitForShutdown(cancel context.CancelFunc, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("Shutting down...")
	cancel()
}

func shutdown(
	server *api.Server,
	scheduler *workers.Scheduler,
	bot *telegram.Bot,
	st *stores,
	errorTracker errors.Tracker,
	log *logger.Logger,
) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if bot != nil {
		bot.Stop()
	}
	if scheduler != nil {
		if err := scheduler.Stop(); err != nil {
			log.Warnf("Worker scheduler stop: %v", err)
		}
	}
	if err := server.Shutdown(ctx); err != nil {
		log.Warnf("HTTP server shutdown: %v", err)
	}

	if st.usageRepo != nil {
		if err := st.usageRepo.Stop(ctx); err != nil {
			log.Warnf("Usage repository stop: %v", err)
		}
	}
	if st.producer != nil {
		if err := st.producer.Close(); err != nil {
			log.Warnf("Kafka producer close: %v", err)
		}
	}
	if st.redis != nil {
		_ = st.redis.Close()
	}
	if st.clickhouse != nil {
		_ = st.clickhouse.Close()
	}
	if st.postgres != nil {
		_ = st.postgres.Close()
	}

	if errorTracker != nil {
		if err := errorTracker.Flush(ctx); err != nil {
			log.Warnf("Failed to flush error tracker: %v", err)
		}
	}

	log.Info("Shutdown complete")
}
