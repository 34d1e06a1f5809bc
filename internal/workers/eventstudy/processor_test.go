package eventstudy

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsimpact/internal/domain/article"
	"newsimpact/internal/events"
	esvc "newsimpact/internal/services/eventstudy"
	"newsimpact/pkg/errors"
)

type fakeRunner struct {
	summary       *esvc.BatchSummary
	err           error
	discoverSince time.Time
	processed     int
	deadline      time.Time
}

func (f *fakeRunner) DiscoverPairs(ctx context.Context, since time.Time, limit int) (int, error) {
	f.discoverSince = since
	return 0, errors.New("one article failed")
}

func (f *fakeRunner) ProcessPending(ctx context.Context) (*esvc.BatchSummary, error) {
	f.processed++
	f.deadline, _ = ctx.Deadline()
	return f.summary, f.err
}

type fakeLocker struct {
	mu       sync.Mutex
	held     bool
	token    string
	released int
	ttl      time.Duration
}

func (l *fakeLocker) AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return "", false, nil
	}
	l.held = true
	l.ttl = ttl
	l.token = fmt.Sprintf("token-%d", l.released+1)
	return l.token, true, nil
}

func (l *fakeLocker) ReleaseLock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.held || token != l.token {
		return errors.ErrLockNotOwned
	}
	l.held = false
	l.released++
	return nil
}

type fakeArticles struct {
	article.Repository
}

func (fakeArticles) GetByID(ctx context.Context, id int64) (*article.Article, error) {
	return &article.Article{ID: id, Title: "Acme wins FDA approval", URL: "https://news.test/acme"}, nil
}

type capturePublisher struct {
	alerts  []*events.ScoreAlert
	batches []*events.BatchCompleted
}

func (c *capturePublisher) PublishScoreAlert(ctx context.Context, e *events.ScoreAlert) error {
	c.alerts = append(c.alerts, e)
	return nil
}

func (c *capturePublisher) PublishBatchCompleted(ctx context.Context, e *events.BatchCompleted) error {
	c.batches = append(c.batches, e)
	return nil
}

type memSummaries struct {
	saved []*esvc.BatchSummary
}

func (m *memSummaries) Save(ctx context.Context, s *esvc.BatchSummary) error {
	m.saved = append(m.saved, s)
	return nil
}

func newTestProcessor(runner *fakeRunner, locker *fakeLocker, pub *capturePublisher) *Processor {
	p := NewProcessor(Config{
		Interval:         time.Minute,
		DiscoverLookback: 48 * time.Hour,
		Enabled:          true,
	}, runner, locker, fakeArticles{}, pub)
	p.now = func() time.Time { return time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC) }
	return p
}

func TestProcessor_PublishesAlertsAndSummary(t *testing.T) {
	runner := &fakeRunner{summary: &esvc.BatchSummary{
		StartedAt: time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC),
		Duration:  1500 * time.Millisecond,
		Selected:  3,
		Complete:  2,
		Partial:   1,
		Alerts: []esvc.Alert{
			{ArticleID: 11, Ticker: "ACME", Score: decimal.RequireFromString("25.8"), Direction: "positive"},
		},
	}}
	locker := &fakeLocker{}
	pub := &capturePublisher{}
	store := &memSummaries{}

	summary, err := newTestProcessor(runner, locker, pub).WithSummaryStore(store).RunBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Selected)
	require.Len(t, store.saved, 1)

	assert.Equal(t, time.Date(2024, 3, 18, 12, 0, 0, 0, time.UTC), runner.discoverSince)

	require.Len(t, pub.alerts, 1)
	assert.Equal(t, "ACME", pub.alerts[0].Ticker)
	assert.Equal(t, "Acme wins FDA approval", pub.alerts[0].Title)
	assert.True(t, pub.alerts[0].ScoreTotal.Equal(decimal.RequireFromString("25.8")))

	require.Len(t, pub.batches, 1)
	assert.Equal(t, int64(1500), pub.batches[0].DurationMs)
	assert.Equal(t, 1, pub.batches[0].Alerts)

	assert.Equal(t, 1, locker.released)
	assert.False(t, locker.held)
}

func TestProcessor_LockHeld(t *testing.T) {
	runner := &fakeRunner{summary: &esvc.BatchSummary{}}
	locker := &fakeLocker{held: true}
	p := newTestProcessor(runner, locker, &capturePublisher{})

	_, err := p.RunBatch(context.Background())
	assert.ErrorIs(t, err, errors.ErrLockHeld)
	assert.Zero(t, runner.processed)

	assert.NoError(t, p.Run(context.Background()), "a held lock is not a worker failure")
}

func TestProcessor_ReleasesLockOnFailure(t *testing.T) {
	runner := &fakeRunner{err: errors.ErrUnavailable}
	locker := &fakeLocker{}
	pub := &capturePublisher{}

	err := newTestProcessor(runner, locker, pub).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUnavailable)
	assert.False(t, locker.held)
	assert.Empty(t, pub.batches)
}

func TestProcessor_EmptyBatchPublishesNothing(t *testing.T) {
	runner := &fakeRunner{summary: &esvc.BatchSummary{Skipped: 4}}
	pub := &capturePublisher{}

	_, err := newTestProcessor(runner, &fakeLocker{}, pub).RunBatch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pub.batches)
	assert.Empty(t, pub.alerts)
}

func TestProcessor_WorkEndsBeforeLockExpires(t *testing.T) {
	runner := &fakeRunner{summary: &esvc.BatchSummary{}}
	locker := &fakeLocker{}
	p := newTestProcessor(runner, locker, &capturePublisher{})

	before := time.Now()
	_, err := p.RunBatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 15*time.Minute, locker.ttl)
	require.False(t, runner.deadline.IsZero(), "batch runs under the lock deadline")
	assert.False(t, runner.deadline.After(time.Now().Add(locker.ttl)))
	assert.True(t, runner.deadline.After(before))
}

