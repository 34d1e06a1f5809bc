package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsimpact/internal/domain/article"
	"newsimpact/internal/domain/backtest"
	"newsimpact/internal/domain/scoring"
	"newsimpact/internal/domain/window"
	bsvc "newsimpact/internal/services/backtest"
	esvc "newsimpact/internal/services/eventstudy"
	msvc "newsimpact/internal/services/monitoring"
	"newsimpact/pkg/errors"
	"newsimpact/pkg/logger"
)

type fakeQuerier struct {
	status window.Status
	limit  int
	run    *backtest.Run
}

func (f *fakeQuerier) ListWindows(ctx context.Context, status window.Status, limit int) ([]window.Window, map[window.Status]int, error) {
	f.status, f.limit = status, limit
	if status != "" && !status.Valid() {
		return nil, nil, errors.NewValidationError("status", "unknown processing status", status)
	}
	counts := map[window.Status]int{window.StatusPartial: 1, window.StatusComplete: 4}
	if status == "" {
		return nil, counts, nil
	}
	return []window.Window{{ID: 7, ArticleID: 1, Ticker: "ACME", Status: status}}, counts, nil
}

func (f *fakeQuerier) AttentionRequired(ctx context.Context, limit int) ([]msvc.AttentionItem, error) {
	return []msvc.AttentionItem{{Window: window.Window{ID: 9, Ticker: "ZZZ", Status: window.StatusFailed}, Reason: "retry cap reached"}}, nil
}

func (f *fakeQuerier) LatestBacktest(ctx context.Context) (*backtest.Run, error) {
	if f.run == nil {
		return nil, errors.Wrap(errors.ErrNotFound, "no runs")
	}
	return f.run, nil
}

func (f *fakeQuerier) Explain(ctx context.Context, scoreID int64) (*msvc.Explanation, error) {
	if scoreID != 42 {
		return nil, errors.Wrap(errors.ErrNotFound, "score")
	}
	return &msvc.Explanation{
		Score:   &scoring.CompositeScore{ID: 42, ArticleID: 1, Ticker: "ACME", ScoreTotal: decimal.RequireFromString("12.5")},
		Article: &article.Article{ID: 1, Title: "Acme beats"},
	}, nil
}

type fakeBacktester struct {
	from, to time.Time
	minScore float64
}

func (f *fakeBacktester) RunBacktest(ctx context.Context, from, to time.Time, minScore float64) (*bsvc.Outcome, error) {
	f.from, f.to, f.minScore = from, to, minScore
	return &bsvc.Outcome{Run: &backtest.Run{ID: uuid.New()}, Report: &bsvc.Report{Samples: 10}}, nil
}

type memBatches struct {
	rows []esvc.BatchSummary
}

func (m *memBatches) Latest(ctx context.Context) (*esvc.BatchSummary, error) {
	if len(m.rows) == 0 {
		return nil, errors.Wrap(errors.ErrNotFound, "no batch summary recorded")
	}
	return &m.rows[0], nil
}

func (m *memBatches) History(ctx context.Context, limit int) ([]esvc.BatchSummary, error) {
	if limit > 0 && limit < len(m.rows) {
		return m.rows[:limit], nil
	}
	return m.rows, nil
}

func newRouter(q *fakeQuerier, b Backtester) *mux.Router {
	r := mux.NewRouter()
	NewHandler(q, b, nil, logger.Nop()).Register(r)
	return r
}

func serve(r http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestListWindows(t *testing.T) {
	q := &fakeQuerier{}
	r := newRouter(q, nil)

	rec := serve(r, http.MethodGet, "/windows?status=partial&limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, window.StatusPartial, q.status)
	assert.Equal(t, 5, q.limit)

	var body windowsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 4, body.Counts[window.StatusComplete])
	require.Len(t, body.Windows, 1)
	assert.Equal(t, "ACME", body.Windows[0].Ticker)
}

func TestListWindows_BadInput(t *testing.T) {
	r := newRouter(&fakeQuerier{}, nil)

	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodGet, "/windows?status=bogus").Code)
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodGet, "/windows?limit=0").Code)
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodGet, "/windows?limit=5000").Code)
}

func TestAttention(t *testing.T) {
	rec := serve(newRouter(&fakeQuerier{}, nil), http.MethodGet, "/windows/attention")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "retry cap reached")
}

func TestLatestBacktest(t *testing.T) {
	q := &fakeQuerier{}
	r := newRouter(q, nil)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/backtests/latest").Code)

	q.run = &backtest.Run{ID: uuid.New(), RunDate: time.Date(2024, 4, 1, 6, 0, 0, 0, time.UTC)}
	rec := serve(r, http.MethodGet, "/backtests/latest")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), q.run.ID.String())
}

func TestExplain(t *testing.T) {
	r := newRouter(&fakeQuerier{}, nil)

	rec := serve(r, http.MethodGet, "/scores/42/why")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Acme beats")

	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/scores/7/why").Code)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/scores/abc/why").Code, "non-numeric ids do not match the route")
}

func TestRunBacktest(t *testing.T) {
	b := &fakeBacktester{}
	r := newRouter(&fakeQuerier{}, b)

	rec := serve(r, http.MethodPost, "/backtests?from=2024-01-01&to=2024-02-01&min_score=7.5")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), b.from)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), b.to)
	assert.Equal(t, 7.5, b.minScore)

	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodPost, "/backtests?from=01/01/2024").Code)
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodPost, "/backtests?min_score=-2").Code)
}

func TestRunBacktest_DisabledWithoutBacktester(t *testing.T) {
	r := newRouter(&fakeQuerier{}, nil)
	assert.NotEqual(t, http.StatusCreated, serve(r, http.MethodPost, "/backtests").Code)
}

func TestBatches(t *testing.T) {
	batches := &memBatches{}
	r := mux.NewRouter()
	NewHandler(&fakeQuerier{}, nil, batches, logger.Nop()).Register(r)

	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/batches/latest").Code)

	batches.rows = []esvc.BatchSummary{{Selected: 5, Complete: 4}, {Selected: 2}}
	rec := serve(r, http.MethodGet, "/batches/latest")
	require.Equal(t, http.StatusOK, rec.Code)
	var latest esvc.BatchSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &latest))
	assert.Equal(t, 4, latest.Complete)

	rec = serve(r, http.MethodGet, "/batches?limit=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":1`)
}
