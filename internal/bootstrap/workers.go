package bootstrap

import (
	"newsimpact/internal/adapters/kafka"
	"newsimpact/internal/consumers"
	"newsimpact/internal/workers"
	"newsimpact/internal/workers/evaluation"
	esworker "newsimpact/internal/workers/eventstudy"
	"newsimpact/internal/workers/marketdata"
)

// ========================================
// Phase 6: Background Workers & Consumers
// ========================================

// MustInitBackground creates the worker scheduler, the registry and the
// article ingestion consumer
func (c *Container) MustInitBackground() {
	c.Log.Info("Initializing workers...")

	scheduler := workers.NewScheduler(marketLocation(c.Config))
	registry := workers.NewRegistry()

	for _, w := range c.provideWorkers() {
		scheduler.RegisterWorker(w)
		if err := registry.Register(w); err != nil {
			c.Log.Fatalf("failed to register worker: %v", err)
		}
	}

	c.Background.WorkerScheduler = scheduler
	c.Background.WorkerRegistry = registry

	c.Adapters.ArticleConsumer = provideKafkaConsumer(c.Config, kafka.TopicArticlesDiscovered, c.Log)
	c.Background.ArticleSvc = consumers.NewArticleConsumer(
		c.Adapters.ArticleConsumer,
		c.Repos.Articles,
		c.Services.EventStudy,
	)

	c.Log.Infow("Background components initialized", "workers", registry.ListNames())
}

// provideWorkers builds every scheduled worker
func (c *Container) provideWorkers() []workers.WorkerWithHealth {
	cfg := c.Config.Workers

	// Event-study batches: discovery, window computation, scoring, alerts
	processor := esworker.NewProcessor(
		esworker.Config{
			Interval:         cfg.EventStudyInterval,
			LockTTL:          cfg.LockTTL,
			DiscoverLookback: c.Config.EventStudy.RetryLookback,
			Enabled:          true,
		},
		c.Services.EventStudy,
		c.Redis,
		c.Repos.Articles,
		c.Adapters.Publisher,
	).WithSummaryStore(c.Repos.BatchSummaries)

	// Benchmark series used by the market model
	collector := marketdata.NewBenchmarkCollector(
		c.Adapters.PriceFeed,
		c.Repos.Prices,
		c.Repos.Tickers,
		cfg.BenchmarkTickers,
		cfg.BenchmarkLookback,
		cfg.BenchmarkInterval,
		len(cfg.BenchmarkTickers) > 0,
	)

	// Daily backtest of the composite score
	backtester := evaluation.NewBacktestRunner(
		c.Services.Backtest,
		cfg.BacktestSchedule,
		cfg.BacktestSchedule != "",
	)

	return []workers.WorkerWithHealth{processor, collector, backtester}
}
