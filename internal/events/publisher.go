package events

import (
	"context"
	"strconv"

	"newsimpact/internal/adapters/kafka"
	"newsimpact/internal/metrics"
	"newsimpact/pkg/errors"
	"newsimpact/pkg/logger"
)

// Producer sends a JSON-encoded value to a topic
type Producer interface {
	Publish(ctx context.Context, topic string, key string, event interface{}) error
}

// Publisher publishes engine events to Kafka
type Publisher struct {
	producer Producer
	log      *logger.Logger
}

// NewPublisher creates a new event publisher
func NewPublisher(producer Producer) *Publisher {
	return &Publisher{
		producer: producer,
		log:      logger.Get().With("component", "event_publisher"),
	}
}

// PublishScoreAlert publishes a score alert keyed by ticker
func (p *Publisher) PublishScoreAlert(ctx context.Context, event *ScoreAlert) error {
	if event.Base.ID == "" {
		event.Base = NewBase(TypeScoreAlert, "scorer")
	}
	event.Title = SanitizeUTF8(event.Title)
	return p.publish(ctx, kafka.TopicScoreAlerts, event.Ticker, event)
}

// PublishBatchCompleted publishes an event-study batch summary
func (p *Publisher) PublishBatchCompleted(ctx context.Context, event *BatchCompleted) error {
	if event.Base.ID == "" {
		event.Base = NewBase(TypeBatchCompleted, "event_study_processor")
	}
	return p.publish(ctx, kafka.TopicEventStudyBatches, strconv.FormatInt(event.StartedAt.Unix(), 10), event)
}

// PublishBacktestCompleted publishes a backtest completion keyed by run id
func (p *Publisher) PublishBacktestCompleted(ctx context.Context, event *BacktestCompleted) error {
	if event.Base.ID == "" {
		event.Base = NewBase(TypeBacktestCompleted, "backtest")
	}
	return p.publish(ctx, kafka.TopicBacktestCompleted, event.RunID, event)
}

func (p *Publisher) publish(ctx context.Context, topic, key string, event interface{}) error {
	err := p.producer.Publish(ctx, topic, key, event)
	metrics.RecordKafkaMessage(topic, "out", err)
	if err != nil {
		p.log.Errorw("Failed to publish event",
			"topic", topic,
			"key", key,
			"error", err,
		)
		return errors.Wrap(err, "send to kafka")
	}

	p.log.Debugw("Event published", "topic", topic, "key", key)
	return nil
}
