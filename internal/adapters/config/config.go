package config

import (
	"fmt"
	"sort"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"newsimpact/pkg/errors"
)

type Config struct {
	App           AppConfig
	Postgres      PostgresConfig
	ClickHouse    ClickHouseConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	PriceProvider PriceProviderConfig
	ErrorTracking ErrorTrackingConfig
	HTTP          HTTPConfig
	Workers       WorkerConfig
	EventStudy    EventStudyConfig
	Scoring       ScoringConfig
	Confounder    ConfounderConfig
	Backtest      BacktestConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"newsimpact"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	Version  string `envconfig:"APP_VERSION" default:"dev"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" default:"newsimpact"`
	Password string `envconfig:"POSTGRES_PASSWORD"`
	Database string `envconfig:"POSTGRES_DB" default:"newsimpact"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"10"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

type ClickHouseConfig struct {
	Host     string `envconfig:"CLICKHOUSE_HOST" default:"localhost"`
	Port     int    `envconfig:"CLICKHOUSE_PORT" default:"9000"`
	User     string `envconfig:"CLICKHOUSE_USER" default:"default"`
	Password string `envconfig:"CLICKHOUSE_PASSWORD"`
	Database string `envconfig:"CLICKHOUSE_DB" default:"market"`
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type KafkaConfig struct {
	Brokers []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	GroupID string   `envconfig:"KAFKA_GROUP_ID" default:"newsimpact"`
}

// PriceProviderConfig configures the daily-bar provider (Twelve Data)
type PriceProviderConfig struct {
	APIKey         string        `envconfig:"TWELVE_DATA_API_KEY"`
	BaseURL        string        `envconfig:"TWELVE_DATA_BASE_URL" default:"https://api.twelvedata.com"`
	CallsPerMinute int           `envconfig:"PRICE_CALLS_PER_MINUTE" default:"8"`
	RequestTimeout time.Duration `envconfig:"PRICE_REQUEST_TIMEOUT" default:"15s"`
	MaxRetries     int           `envconfig:"PRICE_MAX_RETRIES" default:"1"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"false"`
	Provider    string `envconfig:"ERROR_TRACKING_PROVIDER" default:"sentry"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

type HTTPConfig struct {
	Addr string `envconfig:"HTTP_ADDR" default:":8080"`
}

// WorkerConfig contains intervals for the background workers
type WorkerConfig struct {
	EventStudyInterval time.Duration `envconfig:"WORKER_EVENT_STUDY_INTERVAL" default:"15m"`
	BenchmarkInterval  time.Duration `envconfig:"WORKER_BENCHMARK_INTERVAL" default:"6h"`
	BacktestSchedule   string        `envconfig:"BACKTEST_SCHEDULE" default:"0 6 * * *"`
	LockTTL            time.Duration `envconfig:"WORKER_LOCK_TTL" default:"15m"`
	BenchmarkTickers   []string      `envconfig:"WORKER_BENCHMARK_TICKERS" default:"SPY,XBI,XLV,XLK,XLF,XLE,XLI,XLY,XLP,XLU,XLB,XLRE,XLC"`
	BenchmarkLookback  time.Duration `envconfig:"WORKER_BENCHMARK_LOOKBACK" default:"1440h"`
}

// EventStudyConfig drives return-window computation and the retry state machine
type EventStudyConfig struct {
	BatchSize            int           `envconfig:"EVENT_STUDY_BATCH_SIZE" default:"50"`
	BatchTimeout         time.Duration `envconfig:"EVENT_STUDY_BATCH_TIMEOUT" default:"10m"`
	MaxRetries           int           `envconfig:"EVENT_STUDY_MAX_RETRIES" default:"3"`
	RetryLookback        time.Duration `envconfig:"EVENT_STUDY_RETRY_LOOKBACK" default:"48h"`
	PartialRetryInterval time.Duration `envconfig:"EVENT_STUDY_PARTIAL_RETRY_INTERVAL" default:"12h"`
	PartialHorizon       time.Duration `envconfig:"EVENT_STUDY_PARTIAL_HORIZON" default:"384h"`
	StaleAfter           time.Duration `envconfig:"EVENT_STUDY_STALE_AFTER" default:"24h"`
	LookbackDays         int           `envconfig:"EVENT_STUDY_LOOKBACK_DAYS" default:"45"`
	LookaheadDays        int           `envconfig:"EVENT_STUDY_LOOKAHEAD_DAYS" default:"20"`
	BaselineDays         int           `envconfig:"EVENT_STUDY_BASELINE_DAYS" default:"20"`
	DefaultBenchmark     string        `envconfig:"EVENT_STUDY_DEFAULT_BENCHMARK" default:"SPY"`
	PreferSector         bool          `envconfig:"EVENT_STUDY_PREFER_SECTOR" default:"true"`
	MarketTimezone       string        `envconfig:"EVENT_STUDY_MARKET_TZ" default:"America/New_York"`
}

// ScoringConfig holds the composite scoring tunables
type ScoringConfig struct {
	PhrasesFile       string        `envconfig:"SCORING_PHRASES_FILE"`
	NegationPenalty   float64       `envconfig:"SCORING_NEGATION_PENALTY" default:"0.7"`
	NegationWindow    int           `envconfig:"SCORING_NEGATION_WINDOW" default:"5"`
	SnippetChars      int           `envconfig:"SCORING_SNIPPET_CHARS" default:"50"`
	TopTickers        int           `envconfig:"SCORING_TOP_TICKERS" default:"3"`
	MinRelevance      float64       `envconfig:"SCORING_MIN_RELEVANCE" default:"0.3"`
	ProximityWords    int           `envconfig:"SCORING_PROXIMITY_WORDS" default:"10"`
	AlertThreshold    float64       `envconfig:"SCORING_ALERT_THRESHOLD" default:"15"`
	SurpriseCap       float64       `envconfig:"SCORING_SURPRISE_CAP" default:"5"`
	TrendRatio        float64       `envconfig:"SCORING_TREND_RATIO" default:"3"`
	TrendWindow       time.Duration `envconfig:"SCORING_TREND_WINDOW" default:"24h"`
	TrendBaselineDays int           `envconfig:"SCORING_TREND_BASELINE_DAYS" default:"7"`
}

// ConfounderConfig holds confounder detection thresholds and penalty schedule
type ConfounderConfig struct {
	WindowDays       int                `envconfig:"CONFOUNDER_WINDOW_DAYS" default:"1"`
	SectorMovePct    float64            `envconfig:"CONFOUNDER_SECTOR_MOVE_PCT" default:"3"`
	ClusterThreshold int                `envconfig:"CONFOUNDER_CLUSTER_THRESHOLD" default:"3"`
	TitleSimilarity  float64            `envconfig:"CONFOUNDER_TITLE_SIMILARITY" default:"0"`
	Penalties        map[string]float64 `envconfig:"CONFOUNDER_PENALTIES" default:"earnings:0.3,fda_pdufa:0.2,fed_meeting:0.2,cpi_release:0.2,sector_move:0.15,article_clustering:0.1,other:0.1"`
}

// BacktestConfig holds backtest parameters and recommendation floors
type BacktestConfig struct {
	LookbackDays     int       `envconfig:"BACKTEST_LOOKBACK_DAYS" default:"30"`
	MinScore         float64   `envconfig:"BACKTEST_MIN_SCORE" default:"5"`
	TopK             int       `envconfig:"BACKTEST_TOP_K" default:"10"`
	SignificancePct  float64   `envconfig:"BACKTEST_SIGNIFICANCE_PCT" default:"2"`
	BucketEdges      []float64 `envconfig:"BACKTEST_BUCKET_EDGES" default:"5,10,15,20,30"`
	CorrelationFloor float64   `envconfig:"BACKTEST_CORRELATION_FLOOR" default:"0.1"`
	HitRateFloor     float64   `envconfig:"BACKTEST_HIT_RATE_FLOOR" default:"0.3"`
	PrecisionFloor   float64   `envconfig:"BACKTEST_PRECISION_FLOOR" default:"0.5"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
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

// Validate rejects tunables that would break scoring bounds
func (c *Config) Validate() error {
	var errs errors.MultiError

	if c.Scoring.NegationPenalty <= 0 || c.Scoring.NegationPenalty > 1 {
		errs.Add(errors.NewValidationError("SCORING_NEGATION_PENALTY", "must be in (0,1]", c.Scoring.NegationPenalty))
	}
	if c.Scoring.TopTickers < 1 {
		errs.Add(errors.NewValidationError("SCORING_TOP_TICKERS", "must be at least 1", c.Scoring.TopTickers))
	}
	if c.Scoring.SurpriseCap < 0 {
		errs.Add(errors.NewValidationError("SCORING_SURPRISE_CAP", "must not be negative", c.Scoring.SurpriseCap))
	}
	if c.Confounder.TitleSimilarity < 0 || c.Confounder.TitleSimilarity > 1 {
		errs.Add(errors.NewValidationError("CONFOUNDER_TITLE_SIMILARITY", "must be in [0,1]", c.Confounder.TitleSimilarity))
	}
	for name, p := range c.Confounder.Penalties {
		if p < 0 || p > 1 {
			errs.Add(errors.NewValidationError("CONFOUNDER_PENALTIES", "penalty must be in [0,1] for "+name, p))
		}
	}
	if len(c.Backtest.BucketEdges) < 2 || !sort.Float64sAreSorted(c.Backtest.BucketEdges) {
		errs.Add(errors.NewValidationError("BACKTEST_BUCKET_EDGES", "need at least two ascending edges", c.Backtest.BucketEdges))
	}
	if c.Backtest.TopK < 1 {
		errs.Add(errors.NewValidationError("BACKTEST_TOP_K", "must be at least 1", c.Backtest.TopK))
	}
	if c.EventStudy.MaxRetries < 1 {
		errs.Add(errors.NewValidationError("EVENT_STUDY_MAX_RETRIES", "must be at least 1", c.EventStudy.MaxRetries))
	}
	if c.EventStudy.BaselineDays < 2 {
		errs.Add(errors.NewValidationError("EVENT_STUDY_BASELINE_DAYS", "must be at least 2", c.EventStudy.BaselineDays))
	}
	if c.Workers.LockTTL <= c.EventStudy.BatchTimeout {
		errs.Add(errors.NewValidationError("WORKER_LOCK_TTL", "must exceed EVENT_STUDY_BATCH_TIMEOUT", c.Workers.LockTTL))
	}
	if _, err := time.LoadLocation(c.EventStudy.MarketTimezone); err != nil {
		errs.Add(errors.NewValidationError("EVENT_STUDY_MARKET_TZ", err.Error(), c.EventStudy.MarketTimezone))
	}

	return errs.ToError()
}
