package bootstrap

import (
	"context"
	"sync"

	chclient "newsimpact/internal/adapters/clickhouse"
	"newsimpact/internal/adapters/config"
	"newsimpact/internal/adapters/kafka"
	pgclient "newsimpact/internal/adapters/postgres"
	"newsimpact/internal/adapters/pricefeed"
	redisclient "newsimpact/internal/adapters/redis"
	"newsimpact/internal/api"
	"newsimpact/internal/api/health"
	"newsimpact/internal/api/monitoring"
	"newsimpact/internal/consumers"
	"newsimpact/internal/events"
	chrepo "newsimpact/internal/repository/clickhouse"
	pgrepo "newsimpact/internal/repository/postgres"
	redisrepo "newsimpact/internal/repository/redis"
	bsvc "newsimpact/internal/services/backtest"
	confsvc "newsimpact/internal/services/confounder"
	esvc "newsimpact/internal/services/eventstudy"
	msvc "newsimpact/internal/services/monitoring"
	scoresvc "newsimpact/internal/services/scoring"
	"newsimpact/internal/workers"
	"newsimpact/pkg/errors"
	"newsimpact/pkg/logger"
)

// Container holds all application dependencies and their lifecycle
// Components are organized in initialization order
type Container struct {
	// Core configuration & logging
	Config       *config.Config
	Log          *logger.Logger
	ErrorTracker errors.Tracker

	// Infrastructure Layer (Data stores)
	PG    *pgclient.Client
	CH    *chclient.Client
	Redis *redisclient.Client

	Repos       *Repositories
	Adapters    *Adapters
	Services    *Services
	Application *Application
	Background  *Background

	// Lifecycle management
	Lifecycle *Lifecycle
	WG        *sync.WaitGroup
	Context   context.Context
	Cancel    context.CancelFunc
}

// Repositories groups all storage-backed repositories
type Repositories struct {
	Articles       *pgrepo.ArticleRepository
	Windows        *pgrepo.WindowRepository
	Scores         *pgrepo.ScoreRepository
	Tickers        *pgrepo.TickerRepository
	Confounders    *pgrepo.ConfounderRepository
	Backtests      *pgrepo.BacktestRepository
	Prices         *chrepo.PriceRepository
	BatchSummaries *redisrepo.BatchSummaryRepository
}

// Adapters groups all external adapters
type Adapters struct {
	KafkaProducer   *kafka.Producer
	ArticleConsumer *kafka.Consumer
	Publisher       *events.Publisher
	PriceFeed       *pricefeed.Client
}

// Services groups the engine services
type Services struct {
	Phrases     *config.Phrases
	Relevance   *scoresvc.RelevanceScorer
	Scorer      *scoresvc.Scorer
	Confounders *confsvc.Detector
	EventStudy  *esvc.Service
	Backtest    *bsvc.Service
	Monitoring  *msvc.Service
}

// Application groups application layer components
type Application struct {
	HTTPServer        *api.Server
	HealthHandler     *health.Handler
	MonitoringHandler *monitoring.Handler
}

// Background groups all background processing components
type Background struct {
	WorkerScheduler *workers.Scheduler
	WorkerRegistry  *workers.Registry
	ArticleSvc      *consumers.ArticleConsumer
}

// NewContainer creates a new dependency container
func NewContainer() *Container {
	ctx, cancel := context.WithCancel(context.Background())

	return &Container{
		Repos:       &Repositories{},
		Adapters:    &Adapters{},
		Services:    &Services{},
		Application: &Application{},
		Background:  &Background{},
		Lifecycle:   NewLifecycle(),
		WG:          &sync.WaitGroup{},
		Context:     ctx,
		Cancel:      cancel,
	}
}

// MustInit initializes all components in the correct order
// Panics on any initialization error (fail-fast at startup)
func (c *Container) MustInit() {
	c.MustInitConfig()
	c.MustInitInfrastructure()
	c.MustInitRepositories()
	c.MustInitAdapters()
	c.MustInitServices()
	c.MustInitBackground()
	c.MustInitApplication()
}

// MustInitEngine initializes everything a one-shot command needs: stores,
// provider and services, without Kafka consumers, workers or HTTP
func (c *Container) MustInitEngine() {
	c.MustInitConfig()
	c.MustInitInfrastructure()
	c.MustInitRepositories()
	c.MustInitAdapters()
	c.MustInitServices()
}

// Start starts all background components
func (c *Container) Start() error {
	c.Log.Info("Starting all systems...")

	if err := c.Background.WorkerScheduler.Start(c.Context); err != nil {
		return errors.Wrap(err, "failed to start workers")
	}

	c.startConsumers()

	c.WG.Add(1)
	go func() {
		defer c.WG.Done()
		if err := c.Application.HTTPServer.Start(); err != nil {
			c.Log.Errorf("HTTP server failed: %v", err)
			c.Cancel() // Trigger shutdown on fatal HTTP error
		}
	}()

	c.Log.Info("All systems operational")
	return nil
}

// startConsumers starts the Kafka consumers in background goroutines
func (c *Container) startConsumers() {
	if c.Background.ArticleSvc == nil {
		return
	}

	c.WG.Add(1)
	go func() {
		defer c.WG.Done()
		if err := c.Background.ArticleSvc.Start(c.Context); err != nil && c.Context.Err() == nil {
			c.Log.Errorw("Article consumer failed", "error", err)
		}
	}()
	c.Log.Infow("Event consumers started", "consumers", []string{"articles"})
}

// Shutdown performs graceful shutdown in the correct order
func (c *Container) Shutdown() {
	c.Log.Info("Initiating graceful shutdown...")

	c.Cancel()

	c.Lifecycle.Shutdown(
		c.WG,
		c.Application.HTTPServer,
		c.Background.WorkerScheduler,
		c.Adapters.KafkaProducer,
		c.PG,
		c.CH,
		c.Redis,
		c.ErrorTracker,
		c.Log,
	)
}

// Close releases the stores of a one-shot command
func (c *Container) Close() {
	c.Cancel()
	if c.Adapters.KafkaProducer != nil {
		if err := c.Adapters.KafkaProducer.Close(); err != nil {
			c.Log.Warnw("Kafka producer close failed", "error", err)
		}
	}
	c.Lifecycle.closeDatabases(c.PG, c.CH, c.Redis, c.Log)
	_ = logger.Sync()
}
