package bootstrap

import (
	"time"

	chclient "newsimpact/internal/adapters/clickhouse"
	"newsimpact/internal/adapters/config"
	errnoop "newsimpact/internal/adapters/errors/noop"
	"newsimpact/internal/adapters/errors/sentry"
	"newsimpact/internal/adapters/kafka"
	pgclient "newsimpact/internal/adapters/postgres"
	"newsimpact/internal/adapters/pricefeed"
	redisclient "newsimpact/internal/adapters/redis"
	"newsimpact/internal/api"
	"newsimpact/internal/api/health"
	"newsimpact/internal/api/monitoring"
	"newsimpact/internal/events"
	"newsimpact/internal/metrics"
	chrepo "newsimpact/internal/repository/clickhouse"
	pgrepo "newsimpact/internal/repository/postgres"
	redisrepo "newsimpact/internal/repository/redis"
	bsvc "newsimpact/internal/services/backtest"
	confsvc "newsimpact/internal/services/confounder"
	esvc "newsimpact/internal/services/eventstudy"
	msvc "newsimpact/internal/services/monitoring"
	scoresvc "newsimpact/internal/services/scoring"
	esworker "newsimpact/internal/workers/eventstudy"
	"newsimpact/pkg/errors"
	"newsimpact/pkg/logger"
)

const batchSummaryTTL = 7 * 24 * time.Hour

// ========================================
// Phase 1: Configuration & Logging
// ========================================

// MustInitConfig loads configuration and initializes logger
func (c *Container) MustInitConfig() {
	if c.Config != nil {
		return
	}
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	c.Config = cfg

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}

	c.Log = logger.Get()
	c.Log.Infof("Starting %s %s in %s mode", cfg.App.Name, cfg.App.Version, cfg.App.Env)

	c.ErrorTracker = provideErrorTracker(cfg, c.Log)
	logger.SetErrorTracker(c.ErrorTracker)
}

// ========================================
// Phase 2: Infrastructure Layer
// ========================================

// MustInitInfrastructure initializes data stores (Postgres, ClickHouse, Redis)
func (c *Container) MustInitInfrastructure() {
	var err error

	c.Log.Info("Connecting to PostgreSQL...")
	c.PG, err = pgclient.NewClient(c.Config.Postgres)
	if err != nil {
		c.Log.Fatalf("failed to connect postgres: %v", err)
	}

	c.Log.Info("Connecting to ClickHouse...")
	c.CH, err = chclient.NewClient(c.Config.ClickHouse)
	if err != nil {
		c.Log.Fatalf("failed to connect clickhouse: %v", err)
	}

	c.Log.Info("Connecting to Redis...")
	c.Redis, err = redisclient.NewClient(c.Config.Redis)
	if err != nil {
		c.Log.Fatalf("failed to connect redis: %v", err)
	}

	c.Log.Info("Data stores connected")
}

// ========================================
// Phase 3: Repositories
// ========================================

// MustInitRepositories initializes all repositories
func (c *Container) MustInitRepositories() {
	db := c.PG.DB()

	c.Repos.Articles = pgrepo.NewArticleRepository(db)
	c.Repos.Windows = pgrepo.NewWindowRepository(db)
	c.Repos.Scores = pgrepo.NewScoreRepository(db)
	c.Repos.Tickers = pgrepo.NewTickerRepository(db)
	c.Repos.Confounders = pgrepo.NewConfounderRepository(db)
	c.Repos.Backtests = pgrepo.NewBacktestRepository(db)
	c.Repos.Prices = chrepo.NewPriceRepository(c.CH.Conn())
	c.Repos.BatchSummaries = redisrepo.NewBatchSummaryRepository(c.Redis.Client(), batchSummaryTTL)

	c.Log.Info("Repositories initialized")
}

// ========================================
// Phase 4: External Adapters
// ========================================

// MustInitAdapters initializes Kafka and the price provider
func (c *Container) MustInitAdapters() {
	c.Adapters.KafkaProducer = provideKafkaProducer(c.Config, c.Log)
	c.Adapters.Publisher = events.NewPublisher(c.Adapters.KafkaProducer)

	if c.Config.PriceProvider.APIKey == "" {
		c.Log.Warn("TWELVE_DATA_API_KEY is not set, price requests will be rejected upstream")
	}
	c.Adapters.PriceFeed = pricefeed.NewClient(priceFeedSettings(c.Config))

	c.Log.Info("Adapters initialized")
}

// ========================================
// Phase 5: Engine Services
// ========================================

// MustInitServices wires the scoring, event-study, backtest and monitoring services
func (c *Container) MustInitServices() {
	phrases, err := config.LoadPhrases(c.Config.Scoring.PhrasesFile)
	if err != nil {
		c.Log.Fatalf("failed to load phrase tables: %v", err)
	}
	c.Services.Phrases = phrases
	c.Log.Infow("Phrase tables loaded",
		"keywords", len(phrases.Keywords),
		"surprise", len(phrases.Surprise),
		"source", phraseSource(c.Config.Scoring.PhrasesFile),
	)

	scoringCfg := scoringSettings(c.Config, phrases)

	c.Services.Confounders = confsvc.NewDetector(
		confounderSettings(c.Config),
		c.Repos.Confounders,
		c.Repos.Tickers,
		c.Repos.Prices,
		c.Repos.Articles,
	)
	c.Services.Relevance = scoresvc.NewRelevanceScorer(scoringCfg)
	c.Services.Scorer = scoresvc.NewScorer(
		scoringCfg,
		c.Repos.Articles,
		c.Repos.Tickers,
		c.Repos.Scores,
		c.Services.Confounders,
	)
	c.Services.EventStudy = esvc.NewService(
		eventStudySettings(c.Config),
		c.Repos.Windows,
		c.Repos.Articles,
		c.Repos.Tickers,
		c.Adapters.PriceFeed,
		c.Repos.Prices,
		c.Services.Scorer,
		c.Services.Relevance,
	)
	c.Services.Backtest = bsvc.NewService(
		backtestSettings(c.Config),
		c.Repos.Backtests,
		c.Adapters.Publisher,
	)
	c.Services.Monitoring = msvc.NewService(
		c.Repos.Windows,
		c.Repos.Scores,
		c.Repos.Articles,
		c.Repos.Backtests,
		c.Services.Scorer,
		c.Services.EventStudy.Policy(),
	)

	c.Log.Info("Engine services initialized")
}

// ========================================
// Phase 7: Application Layer
// ========================================

// MustInitApplication initializes HTTP handlers, the server and metrics
func (c *Container) MustInitApplication() {
	c.Application.HealthHandler = health.New(
		c.Log,
		map[string]health.Check{
			"postgres":   c.PG.Health,
			"clickhouse": c.CH.Health,
			"redis":      c.Redis.Health,
		},
		c.Background.WorkerRegistry,
		c.Config.App.Name,
		c.Config.App.Version,
	)

	c.Application.MonitoringHandler = monitoring.NewHandler(
		c.Services.Monitoring,
		c.Services.Backtest,
		c.Repos.BatchSummaries,
		c.Log.With("component", "monitoring_api"),
	)

	c.Application.HTTPServer = api.NewServer(
		api.ServerConfig{
			Addr:        c.Config.HTTP.Addr,
			ServiceName: c.Config.App.Name,
			Version:     c.Config.App.Version,
		},
		c.Application.HealthHandler,
		c.Application.MonitoringHandler,
		c.Log,
	)

	metrics.Init()
	metrics.RegisterCustomCollector(metrics.NewCustomCollector(
		c.Log,
		c.PG.DB(),
		c.CH.Conn(),
		c.Redis.Client(),
		"lock:"+esworker.LockKey,
	))
	c.Log.Info("Application layer initialized")
}

// ========================================
// Helper Provider Functions
// ========================================

func provideErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return errnoop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return errnoop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

func provideKafkaProducer(cfg *config.Config, log *logger.Logger) *kafka.Producer {
	if len(cfg.Kafka.Brokers) == 0 {
		log.Warn("Kafka brokers not configured, using default localhost:9092")
		cfg.Kafka.Brokers = []string{"localhost:9092"}
	}

	producer := kafka.NewProducer(kafka.ProducerConfig{
		Brokers: cfg.Kafka.Brokers,
	})
	log.Infow("Kafka producer initialized", "brokers", cfg.Kafka.Brokers)
	return producer
}

func provideKafkaConsumer(cfg *config.Config, topic string, log *logger.Logger) *kafka.Consumer {
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{"localhost:9092"}
	}

	consumer := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers: cfg.Kafka.Brokers,
		GroupID: cfg.Kafka.GroupID,
		Topic:   topic,
	})
	log.Infow("Kafka consumer initialized", "topic", topic)
	return consumer
}

func phraseSource(path string) string {
	if path == "" {
		return "embedded"
	}
	return path
}
