package consumers

import (
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"newsimpact/internal/adapters/kafka"
	"newsimpact/internal/domain/article"
	"newsimpact/internal/events"
	"newsimpact/internal/metrics"
	"newsimpact/pkg/errors"
	"newsimpact/pkg/logger"
)

// ArticleStore persists discovered articles and their candidate tickers
type ArticleStore interface {
	Create(ctx context.Context, a *article.Article) error
	SaveTickers(ctx context.Context, articleID int64, tickers []article.Ticker) error
}

// Registrar creates the return-window rows of a stored article
type Registrar interface {
	RegisterArticle(ctx context.Context, a *article.Article) (int, error)
}

// ArticleConsumer ingests articles.discovered events: it stores the article and
// its candidate tickers, then registers the selected pairs for the event study.
type ArticleConsumer struct {
	consumer  *kafka.Consumer
	store     ArticleStore
	registrar Registrar
	log       *logger.Logger

	statsInterval time.Duration
	received      atomic.Int64
	registered    atomic.Int64
	rejected      atomic.Int64
}

// NewArticleConsumer creates a new article consumer
func NewArticleConsumer(consumer *kafka.Consumer, store ArticleStore, registrar Registrar) *ArticleConsumer {
	return &ArticleConsumer{
		consumer:      consumer,
		store:         store,
		registrar:     registrar,
		log:           logger.Get().With("component", "article_consumer"),
		statsInterval: time.Minute,
	}
}

// Start consumes until ctx is cancelled, then closes the reader
func (c *ArticleConsumer) Start(ctx context.Context) error {
	c.log.Infow("Starting article consumer", "topic", kafka.TopicArticlesDiscovered)

	defer func() {
		c.LogStats(true)
		if err := c.consumer.Close(); err != nil {
			c.log.Errorw("Failed to close article consumer", "error", err)
		}
	}()
	go c.periodicStats(ctx)

	err := c.consumer.Consume(ctx, c.HandleMessage)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// HandleMessage processes one articles.discovered message. Malformed payloads
// are rejected without retry; storage errors are returned to the caller.
func (c *ArticleConsumer) HandleMessage(ctx context.Context, msg kafkago.Message) error {
	c.received.Add(1)

	event, err := decodeArticleDiscovered(msg.Value)
	if err != nil {
		c.rejected.Add(1)
		metrics.RecordKafkaMessage(kafka.TopicArticlesDiscovered, "in", err)
		c.log.Warnw("Rejected article event", "offset", msg.Offset, "error", err)
		return nil
	}

	n, err := c.ingest(ctx, event)
	metrics.RecordKafkaMessage(kafka.TopicArticlesDiscovered, "in", err)
	if err != nil {
		return errors.Wrapf(err, "article %s", event.URL)
	}
	c.registered.Add(int64(n))
	return nil
}

func (c *ArticleConsumer) ingest(ctx context.Context, event *events.ArticleDiscovered) (int, error) {
	a := &article.Article{
		Title:       events.SanitizeUTF8(event.Title),
		Summary:     events.SanitizeUTF8(event.Summary),
		URL:         event.URL,
		Source:      event.Source,
		PublishedAt: event.PublishedAt.UTC(),
	}
	if err := c.store.Create(ctx, a); err != nil {
		return 0, errors.Wrap(err, "failed to store article")
	}

	symbols := normalizeSymbols(event.Tickers)
	tickers := make([]article.Ticker, len(symbols))
	for i, s := range symbols {
		tickers[i] = article.Ticker{ArticleID: a.ID, Ticker: s}
	}
	if err := c.store.SaveTickers(ctx, a.ID, tickers); err != nil {
		return 0, errors.Wrap(err, "failed to store candidate tickers")
	}

	n, err := c.registrar.RegisterArticle(ctx, a)
	if err != nil {
		return 0, errors.Wrap(err, "failed to register pairs")
	}

	c.log.Debugw("Article ingested",
		"article_id", a.ID,
		"candidates", len(tickers),
		"registered", n,
	)
	return n, nil
}

func decodeArticleDiscovered(data []byte) (*events.ArticleDiscovered, error) {
	var event events.ArticleDiscovered
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, err.Error())
	}
	if strings.TrimSpace(event.URL) == "" {
		return nil, errors.NewValidationError("url", "is required", event.URL)
	}
	if strings.TrimSpace(event.Title) == "" {
		return nil, errors.NewValidationError("title", "is required", event.Title)
	}
	if event.PublishedAt.IsZero() {
		return nil, errors.NewValidationError("published_at", "is required", nil)
	}
	return &event, nil
}

// normalizeSymbols upper-cases, trims and deduplicates ticker symbols, keeping order
func normalizeSymbols(tickers []events.DiscoveredTicker) []string {
	seen := make(map[string]struct{}, len(tickers))
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		s := strings.ToUpper(strings.TrimSpace(t.Symbol))
		s = strings.TrimPrefix(s, "$")
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// LogStats logs consumer counters (final is true on shutdown)
func (c *ArticleConsumer) LogStats(final bool) {
	msg := "Article consumer stats"
	if final {
		msg = "Article consumer final stats"
	}
	c.log.Infow(msg,
		"received", c.received.Load(),
		"registered_pairs", c.registered.Load(),
		"rejected", c.rejected.Load(),
	)
}

func (c *ArticleConsumer) periodicStats(ctx context.Context) {
	ticker := time.NewTicker(c.statsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.LogStats(false)
		}
	}
}
