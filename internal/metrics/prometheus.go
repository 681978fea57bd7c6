package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Agent metrics
	AgentRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pythia_agent_requests_total",
			Help: "Total number of agent tool executions",
		},
		[]string{"tool", "status"}, // status: success|error
	)

	AgentLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pythia_agent_latency_seconds",
			Help:    "Agent request latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"tool"},
	)

	// Planner metrics
	PlannerCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pythia_planner_calls_total",
			Help: "Total number of chat-model planner calls",
		},
		[]string{"model", "status"}, // status: success|error
	)

	PlannerLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pythia_planner_latency_seconds",
			Help:    "Chat-model call latency in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"model"},
	)

	ModelTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pythia_model_tokens_total",
			Help: "Total tokens consumed by chat-model calls",
		},
		[]string{"model", "type"}, // type: prompt|completion
	)

	// Upstream data API metrics
	UpstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pythia_upstream_requests_total",
			Help: "Total number of Polymarket API requests",
		},
		[]string{"api", "status"}, // api: gamma|data|clob, status: success|error
	)

	UpstreamLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pythia_upstream_latency_seconds",
			Help:    "Polymarket API request latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"api"},
	)

	// Worker metrics
	WorkerRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pythia_worker_runs_total",
			Help: "Total number of worker executions",
		},
		[]string{"worker", "status"}, // status: success|error
	)

	WorkerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pythia_worker_duration_seconds",
			Help:    "Worker execution duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"worker"},
	)

	WorkerLastRun = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pythia_worker_last_run_timestamp",
			Help: "Unix timestamp of last worker execution",
		},
		[]string{"worker"},
	)

	// Session metrics
	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pythia_sessions_active",
			Help: "Current number of conversational sessions held in memory",
		},
	)

	// Kafka metrics
	KafkaMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pythia_kafka_messages_total",
			Help: "Total Kafka messages produced",
		},
		[]string{"topic", "status"}, // status: success|error
	)

	// Stream metrics
	StreamConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pythia_stream_connections",
			Help: "Current number of active market stream connections",
		},
	)

	StreamMessages = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pythia_stream_messages_total",
			Help: "Total market stream messages received",
		},
	)
)

// Init registers all metrics with Prometheus
func Init() {
	prometheus.MustRegister(AgentRequests)
	prometheus.MustRegister(AgentLatency)

	prometheus.MustRegister(PlannerCalls)
	prometheus.MustRegister(PlannerLatency)
	prometheus.MustRegister(ModelTokens)

	prometheus.MustRegister(UpstreamRequests)
	prometheus.MustRegister(UpstreamLatency)

	prometheus.MustRegister(WorkerRuns)
	prometheus.MustRegister(WorkerDuration)
	prometheus.MustRegister(WorkerLastRun)

	prometheus.MustRegister(SessionsActive)
	prometheus.MustRegister(KafkaMessages)
	prometheus.MustRegister(StreamConnections)
	prometheus.MustRegister(StreamMessages)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAgentRequest records one agent tool execution
func RecordAgentRequest(tool string, latency time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	AgentRequests.WithLabelValues(tool, status).Inc()
	AgentLatency.WithLabelValues(tool).Observe(latency.Seconds())
}

// RecordPlannerCall records one chat-model call
func RecordPlannerCall(model string, latency time.Duration, promptTokens, completionTokens int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	PlannerCalls.WithLabelValues(model, status).Inc()
	PlannerLatency.WithLabelValues(model).Observe(latency.Seconds())

	if promptTokens > 0 {
		ModelTokens.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		ModelTokens.WithLabelValues(model, "completion").Add(float64(completionTokens))
	}
}

// RecordUpstreamRequest records one Polymarket API request
func RecordUpstreamRequest(api string, latency time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	UpstreamRequests.WithLabelValues(api, status).Inc()
	UpstreamLatency.WithLabelValues(api).Observe(latency.Seconds())
}

// RecordWorkerRun records one worker execution
func RecordWorkerRun(worker string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	WorkerRuns.WithLabelValues(worker, status).Inc()
	WorkerDuration.WithLabelValues(worker).Observe(duration.Seconds())
	WorkerLastRun.WithLabelValues(worker).SetToCurrentTime()
}

// RecordKafkaMessage records one Kafka publish attempt
func RecordKafkaMessage(topic string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	KafkaMessages.WithLabelValues(topic, status).Inc()
}
