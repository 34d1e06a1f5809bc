package kafka

// Topic definitions for Kafka event streaming
const (
	// Inbound: articles discovered by the feed collectors, with candidate tickers
	TopicArticlesDiscovered = "articles.discovered"

	// Outbound: composite score crossed the alert threshold
	TopicScoreAlerts = "scores.alerts"

	// Outbound: event-study batch summaries
	TopicEventStudyBatches = "eventstudy.batches"

	// Outbound: backtest run completed
	TopicBacktestCompleted = "backtest.completed"
)
