package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Worker metrics
	WorkerExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsimpact_worker_executions_total",
			Help: "Total number of worker executions",
		},
		[]string{"worker", "status"}, // status: success|error
	)

	WorkerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "newsimpact_worker_duration_seconds",
			Help:    "Worker execution duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"worker"},
	)

	WorkerLastRun = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "newsimpact_worker_last_run_timestamp",
			Help: "Unix timestamp of last worker execution",
		},
		[]string{"worker"},
	)

	// Event study metrics
	PairsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsimpact_pairs_processed_total",
			Help: "Article-ticker pairs processed by outcome",
		},
		[]string{"outcome"}, // outcome: complete|partial|failed|transient|error
	)

	BatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "newsimpact_batch_duration_seconds",
			Help:    "Event study batch duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	// Price provider metrics
	ProviderCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsimpact_price_provider_calls_total",
			Help: "Total number of price provider calls",
		},
		[]string{"provider", "status"}, // status: success|transient|no_data|error
	)

	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "newsimpact_price_provider_latency_seconds",
			Help:    "Price provider latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"provider"},
	)

	// Scoring metrics
	ScoreTotals = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "newsimpact_score_total",
			Help:    "Distribution of composite score totals",
			Buckets: []float64{0, 5, 10, 15, 20, 30, 40, 60},
		},
	)

	AlertsRaised = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "newsimpact_alerts_raised_total",
			Help: "Pairs whose composite score crossed the alert threshold",
		},
	)

	// Backtest metrics
	BacktestPrecision = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "newsimpact_backtest_precision_at_k",
			Help: "Precision@K of the latest backtest run",
		},
	)

	BacktestCorrelation = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "newsimpact_backtest_layer_correlation",
			Help: "Correlation of each scoring layer with the 1-day abnormal return",
		},
		[]string{"layer"},
	)

	// Database metrics
	DBQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsimpact_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"database", "operation", "status"}, // database: postgres|clickhouse|redis
	)

	DBQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "newsimpact_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"database", "operation"},
	)

	// System metrics
	KafkaMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsimpact_kafka_messages_total",
			Help: "Total Kafka messages produced/consumed",
		},
		[]string{"topic", "direction", "status"}, // direction: in|out
	)
)

// Init registers all metrics with Prometheus
func Init() {
	prometheus.MustRegister(
		WorkerExecutions,
		WorkerDuration,
		WorkerLastRun,
		PairsProcessed,
		BatchDuration,
		ProviderCalls,
		ProviderLatency,
		ScoreTotals,
		AlertsRaised,
		BacktestPrecision,
		BacktestCorrelation,
		DBQueries,
		DBQueryDuration,
		KafkaMessages,
	)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordWorkerExecution records a worker execution
func RecordWorkerExecution(worker string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	WorkerExecutions.WithLabelValues(worker, status).Inc()
	WorkerDuration.WithLabelValues(worker).Observe(duration.Seconds())
	WorkerLastRun.WithLabelValues(worker).SetToCurrentTime()
}

// RecordPair records the outcome of one processed pair
func RecordPair(outcome string) {
	PairsProcessed.WithLabelValues(outcome).Inc()
}

// RecordProviderCall records a price provider call
func RecordProviderCall(provider, status string, latency time.Duration) {
	ProviderCalls.WithLabelValues(provider, status).Inc()
	ProviderLatency.WithLabelValues(provider).Observe(latency.Seconds())
}

// RecordScore records a computed composite score
func RecordScore(total float64, newAlert bool) {
	ScoreTotals.Observe(total)
	if newAlert {
		AlertsRaised.Inc()
	}
}

// RecordBacktest publishes the headline metrics of a backtest run.
// Nil correlations are left unchanged.
func RecordBacktest(precision float64, correlations map[string]*float64) {
	BacktestPrecision.Set(precision)
	for layer, c := range correlations {
		if c != nil {
			BacktestCorrelation.WithLabelValues(layer).Set(*c)
		}
	}
}

// RecordDBQuery records a database query
func RecordDBQuery(database, operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	DBQueries.WithLabelValues(database, operation, status).Inc()
	DBQueryDuration.WithLabelValues(database, operation).Observe(duration.Seconds())
}

// RecordKafkaMessage records a produced or consumed message
func RecordKafkaMessage(topic, direction string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	KafkaMessages.WithLabelValues(topic, direction, status).Inc()
}
