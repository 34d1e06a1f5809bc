package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"newsimpact/internal/services/eventstudy"
	"newsimpact/pkg/errors"
)

const (
	latestBatchKey = "eventstudy:batch:latest"
	batchHistory   = "eventstudy:batch:history"
	historySize    = 50
)

// BatchSummaryRepository keeps the latest event-study batch summary and a
// short history of previous ones
type BatchSummaryRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewBatchSummaryRepository creates a new batch summary repository. Summaries
// expire after ttl (no expiry when zero).
func NewBatchSummaryRepository(client *redis.Client, ttl time.Duration) *BatchSummaryRepository {
	return &BatchSummaryRepository{
		client: client,
		ttl:    ttl,
	}
}

// Save stores summary as the latest batch and prepends it to the history
func (r *BatchSummaryRepository) Save(ctx context.Context, summary *eventstudy.BatchSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return errors.Wrap(err, "failed to marshal batch summary")
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, latestBatchKey, data, r.ttl)
	pipe.LPush(ctx, batchHistory, data)
	pipe.LTrim(ctx, batchHistory, 0, historySize-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "failed to save batch summary to redis")
	}
	return nil
}

// Latest returns the most recent batch summary, or errors.ErrNotFound
func (r *BatchSummaryRepository) Latest(ctx context.Context) (*eventstudy.BatchSummary, error) {
	data, err := r.client.Get(ctx, latestBatchKey).Bytes()
	if err == redis.Nil {
		return nil, errors.Wrap(errors.ErrNotFound, "no batch summary recorded")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get batch summary from redis")
	}

	var summary eventstudy.BatchSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal batch summary")
	}
	return &summary, nil
}

// History returns up to limit previous summaries, newest first
func (r *BatchSummaryRepository) History(ctx context.Context, limit int) ([]eventstudy.BatchSummary, error) {
	if limit <= 0 || limit > historySize {
		limit = historySize
	}
	rows, err := r.client.LRange(ctx, batchHistory, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read batch history from redis")
	}

	out := make([]eventstudy.BatchSummary, 0, len(rows))
	for _, row := range rows {
		var s eventstudy.BatchSummary
		if err := json.Unmarshal([]byte(row), &s); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal batch history entry")
		}
		out = append(out, s)
	}
	return out, nil
}
