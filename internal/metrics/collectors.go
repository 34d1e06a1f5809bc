package metrics

import (
	"context"
	"time"

	"newsimpact/pkg/logger"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// CustomCollector collects state gauges from the databases at scrape time
type CustomCollector struct {
	log        *logger.Logger
	postgres   *sqlx.DB
	clickhouse driver.Conn
	redis      *redis.Client
	lockKeys   []string

	// Descriptors
	windowsByStatus *prometheus.Desc
	scoresTotal     *prometheus.Desc
	alertsTotal     *prometheus.Desc
	benchmarkLag    *prometheus.Desc
	lockHeld        *prometheus.Desc
}

// NewCustomCollector creates a new custom metrics collector. lockKeys are the
// redis batch locks reported as held/free.
func NewCustomCollector(log *logger.Logger, postgres *sqlx.DB, clickhouse driver.Conn, redis *redis.Client, lockKeys ...string) *CustomCollector {
	return &CustomCollector{
		log:        log,
		postgres:   postgres,
		clickhouse: clickhouse,
		redis:      redis,
		lockKeys:   lockKeys,

		windowsByStatus: prometheus.NewDesc(
			"newsimpact_windows",
			"Article-ticker windows by processing status",
			[]string{"status"}, nil,
		),
		scoresTotal: prometheus.NewDesc(
			"newsimpact_scores",
			"Composite scores stored",
			nil, nil,
		),
		alertsTotal: prometheus.NewDesc(
			"newsimpact_alerts_24h",
			"Scores updated in the last 24h with the alert flag set",
			nil, nil,
		),
		benchmarkLag: prometheus.NewDesc(
			"newsimpact_benchmark_lag_days",
			"Days since the latest stored point of each benchmark series",
			[]string{"benchmark"}, nil,
		),
		lockHeld: prometheus.NewDesc(
			"newsimpact_batch_lock_held",
			"Batch lock state (0=free, 1=held)",
			[]string{"lock"}, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *CustomCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.windowsByStatus
	ch <- c.scoresTotal
	ch <- c.alertsTotal
	ch <- c.benchmarkLag
	ch <- c.lockHeld
}

// Collect implements prometheus.Collector
func (c *CustomCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if c.postgres != nil {
		c.collectWindowStats(ctx, ch)
		c.collectScoreStats(ctx, ch)
	}
	if c.clickhouse != nil {
		c.collectBenchmarkLag(ctx, ch)
	}
	if c.redis != nil {
		c.collectLocks(ctx, ch)
	}
}

func (c *CustomCollector) collectWindowStats(ctx context.Context, ch chan<- prometheus.Metric) {
	type WindowStat struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}

	var stats []WindowStat
	err := c.postgres.SelectContext(ctx, &stats, `
		SELECT processing_status AS status, COUNT(*) AS count
		FROM article_ticker_windows
		GROUP BY processing_status
	`)
	if err != nil {
		c.log.Errorw("Failed to collect window stats", "error", err)
		return
	}

	for _, stat := range stats {
		ch <- prometheus.MustNewConstMetric(
			c.windowsByStatus,
			prometheus.GaugeValue,
			float64(stat.Count),
			stat.Status,
		)
	}
}

func (c *CustomCollector) collectScoreStats(ctx context.Context, ch chan<- prometheus.Metric) {
	var total int
	if err := c.postgres.GetContext(ctx, &total, "SELECT COUNT(*) FROM composite_scores"); err != nil {
		c.log.Errorw("Failed to collect score count", "error", err)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.scoresTotal, prometheus.GaugeValue, float64(total))

	var alerts int
	err := c.postgres.GetContext(ctx, &alerts, `
		SELECT COUNT(*)
		FROM composite_scores
		WHERE alert_sent = true
		AND updated_at > NOW() - INTERVAL '24 hours'
	`)
	if err != nil {
		c.log.Errorw("Failed to collect alert count", "error", err)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.alertsTotal, prometheus.GaugeValue, float64(alerts))
}

func (c *CustomCollector) collectBenchmarkLag(ctx context.Context, ch chan<- prometheus.Metric) {
	rows, err := c.clickhouse.Query(ctx, `
		SELECT benchmark, dateDiff('day', max(date), today()) AS lag
		FROM benchmark_series
		GROUP BY benchmark
	`)
	if err != nil {
		c.log.Errorw("Failed to collect benchmark lag", "error", err)
		return
	}
	defer rows.Close()

	for rows.Next() {
		var (
			benchmark string
			lag       int64
		)
		if err := rows.Scan(&benchmark, &lag); err != nil {
			c.log.Errorw("Failed to scan benchmark lag", "error", err)
			return
		}
		ch <- prometheus.MustNewConstMetric(c.benchmarkLag, prometheus.GaugeValue, float64(lag), benchmark)
	}
}

func (c *CustomCollector) collectLocks(ctx context.Context, ch chan<- prometheus.Metric) {
	for _, key := range c.lockKeys {
		n, err := c.redis.Exists(ctx, "lock:"+key).Result()
		if err != nil {
			c.log.Errorw("Failed to check batch lock", "lock", key, "error", err)
			continue
		}
		ch <- prometheus.MustNewConstMetric(c.lockHeld, prometheus.GaugeValue, float64(n), key)
	}
}

// RegisterCustomCollector registers the custom collector
func RegisterCustomCollector(collector *CustomCollector) {
	prometheus.MustRegister(collector)
}
