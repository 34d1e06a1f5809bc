package consumers

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsimpact/internal/domain/article"
	"newsimpact/internal/events"
	"newsimpact/pkg/errors"
)

type memArticleStore struct {
	articles []*article.Article
	tickers  map[int64][]article.Ticker
	failOn   string
}

func (m *memArticleStore) Create(ctx context.Context, a *article.Article) error {
	if a.URL == m.failOn {
		return errors.ErrUnavailable
	}
	for _, existing := range m.articles {
		if existing.URL == a.URL {
			a.ID = existing.ID
			return nil
		}
	}
	a.ID = int64(len(m.articles) + 1)
	m.articles = append(m.articles, a)
	return nil
}

func (m *memArticleStore) SaveTickers(ctx context.Context, articleID int64, tickers []article.Ticker) error {
	if m.tickers == nil {
		m.tickers = make(map[int64][]article.Ticker)
	}
	m.tickers[articleID] = tickers
	return nil
}

type countingRegistrar struct {
	registered []int64
}

func (r *countingRegistrar) RegisterArticle(ctx context.Context, a *article.Article) (int, error) {
	r.registered = append(r.registered, a.ID)
	return 2, nil
}

func newTestConsumer() (*ArticleConsumer, *memArticleStore, *countingRegistrar) {
	store := &memArticleStore{}
	reg := &countingRegistrar{}
	return NewArticleConsumer(nil, store, reg), store, reg
}

func message(t *testing.T, event events.ArticleDiscovered) kafkago.Message {
	t.Helper()
	data, err := json.Marshal(event)
	require.NoError(t, err)
	return kafkago.Message{Value: data}
}

func discovered() events.ArticleDiscovered {
	return events.ArticleDiscovered{
		Base:        events.NewBase(events.TypeArticleDiscovered, "feeds"),
		Title:       "Acme beats estimates",
		Summary:     "Revenue up 20%",
		URL:         "https://news.test/acme-q3",
		Source:      "wire",
		PublishedAt: time.Date(2024, 3, 12, 14, 30, 0, 0, time.UTC),
		Tickers: []events.DiscoveredTicker{
			{Symbol: " acme "}, {Symbol: "$ACME"}, {Symbol: "spy"}, {Symbol: ""},
		},
	}
}

func TestArticleConsumer_IngestsArticle(t *testing.T) {
	c, store, reg := newTestConsumer()

	require.NoError(t, c.HandleMessage(context.Background(), message(t, discovered())))

	require.Len(t, store.articles, 1)
	a := store.articles[0]
	assert.Equal(t, "Acme beats estimates", a.Title)
	assert.Equal(t, time.UTC, a.PublishedAt.Location())

	tickers := store.tickers[a.ID]
	require.Len(t, tickers, 2)
	assert.Equal(t, "ACME", tickers[0].Ticker)
	assert.Equal(t, "SPY", tickers[1].Ticker)
	assert.Equal(t, a.ID, tickers[0].ArticleID)

	assert.Equal(t, []int64{a.ID}, reg.registered)
	assert.Equal(t, int64(2), c.registered.Load())
}

func TestArticleConsumer_DuplicateURLReusesArticle(t *testing.T) {
	c, store, reg := newTestConsumer()

	require.NoError(t, c.HandleMessage(context.Background(), message(t, discovered())))
	require.NoError(t, c.HandleMessage(context.Background(), message(t, discovered())))

	assert.Len(t, store.articles, 1)
	assert.Equal(t, []int64{1, 1}, reg.registered)
}

func TestArticleConsumer_RejectsMalformedPayloads(t *testing.T) {
	c, store, _ := newTestConsumer()

	noURL := discovered()
	noURL.URL = ""
	noDate := discovered()
	noDate.PublishedAt = time.Time{}

	require.NoError(t, c.HandleMessage(context.Background(), kafkago.Message{Value: []byte("{not json")}))
	require.NoError(t, c.HandleMessage(context.Background(), message(t, noURL)))
	require.NoError(t, c.HandleMessage(context.Background(), message(t, noDate)))

	assert.Empty(t, store.articles)
	assert.Equal(t, int64(3), c.rejected.Load())
}

func TestArticleConsumer_StorageErrorsSurface(t *testing.T) {
	c, store, reg := newTestConsumer()
	store.failOn = "https://news.test/acme-q3"

	err := c.HandleMessage(context.Background(), message(t, discovered()))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUnavailable)
	assert.Empty(t, reg.registered)
}

func TestDecodeArticleDiscovered_Validation(t *testing.T) {
	_, err := decodeArticleDiscovered([]byte(`{"url":"https://x.test","title":" "}`))
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}
