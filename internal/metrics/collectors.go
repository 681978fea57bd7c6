package metrics

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"

	"pythia/pkg/logger"
)

// StatsCollector exposes gauge metrics derived from the stats tables on each
// scrape. Registered only when Postgres is configured.
type StatsCollector struct {
	log      *logger.Logger
	postgres *sqlx.DB

	trackedMarkets  *prometheus.Desc
	trackedVolume   *prometheus.Desc
	categoriesTotal *prometheus.Desc
}

// NewStatsCollector creates a collector backed by the stats tables.
func NewStatsCollector(log *logger.Logger, postgres *sqlx.DB) *StatsCollector {
	return &StatsCollector{
		log:      log.With("component", "stats_collector"),
		postgres: postgres,

		trackedMarkets: prometheus.NewDesc(
			"pythia_tracked_markets",
			"Number of markets with stored stats",
			nil, nil,
		),
		trackedVolume: prometheus.NewDesc(
			"pythia_tracked_volume_24h",
			"Sum of 24h volume across tracked markets",
			nil, nil,
		),
		categoriesTotal: prometheus.NewDesc(
			"pythia_tracked_categories",
			"Number of categories with stored stats",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *StatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.trackedMarkets
	ch <- c.trackedVolume
	ch <- c.categoriesTotal
}

// Collect implements prometheus.Collector
func (c *StatsCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var marketCount int
	if err := c.postgres.GetContext(ctx, &marketCount, "SELECT COUNT(*) FROM market_stats"); err != nil {
		c.log.Errorf("Failed to collect tracked market count: %v", err)
	} else {
		ch <- prometheus.MustNewConstMetric(c.trackedMarkets, prometheus.GaugeValue, float64(marketCount))
	}

	var volume float64
	if err := c.postgres.GetContext(ctx, &volume, "SELECT COALESCE(SUM(volume_24h), 0) FROM market_stats"); err != nil {
		c.log.Errorf("Failed to collect tracked volume: %v", err)
	} else {
		ch <- prometheus.MustNewConstMetric(c.trackedVolume, prometheus.GaugeValue, volume)
	}

	var categoryCount int
	if err := c.postgres.GetContext(ctx, &categoryCount, "SELECT COUNT(*) FROM category_stats"); err != nil {
		c.log.Errorf("Failed to collect category count: %v", err)
	} else {
		ch <- prometheus.MustNewConstMetric(c.categoriesTotal, prometheus.GaugeValue, float64(categoryCount))
	}
}

// RegisterStatsCollector registers the collector with the default registry.
func RegisterStatsCollector(collector *StatsCollector) {
	prometheus.MustRegister(collector)
}
