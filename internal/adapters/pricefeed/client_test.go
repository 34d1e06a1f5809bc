package pricefeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsimpact/internal/adapters/retry"
	"newsimpact/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := Config{
		APIKey:         "test-key",
		BaseURL:        srv.URL,
		CallsPerMinute: 6000,
		RequestTimeout: 200 * time.Millisecond,
	}
	opts = append([]Option{WithRetry(retry.New(retry.Config{
		MaxRetries:   0,
		InitialDelay: time.Millisecond,
		Strategy:     retry.StrategyFixed,
	}))}, opts...)
	return NewClient(cfg, opts...), srv
}

func date(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

const seriesBody = `{
  "meta": {"symbol": "XYZ", "interval": "1day"},
  "values": [
    {"datetime": "2024-03-11", "open": "10.0", "high": "10.5", "low": "9.8", "close": "10.2", "volume": "120000"},
    {"datetime": "2024-03-12", "open": "10.2", "high": "11.0", "low": "10.1", "close": "10.9", "volume": "350000"},
    {"datetime": "2024-03-13", "open": "bad", "high": "11.0", "low": "10.1", "close": "10.9", "volume": "1"},
    {"datetime": "2024-03-14", "open": "10.9", "high": "11.2", "low": "10.7", "close": "11.1", "volume": ""},
    {"datetime": "2024-03-20", "open": "12.0", "high": "12.2", "low": "11.7", "close": "12.1", "volume": "5"}
  ],
  "status": "ok"
}`

func TestGetDailyBars(t *testing.T) {
	var query atomic.Value
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/time_series", r.URL.Path)
		query.Store(r.URL.Query())
		_, _ = w.Write([]byte(seriesBody))
	})

	bars, err := client.GetDailyBars(context.Background(), "XYZ", date(11), date(15))
	require.NoError(t, err)

	require.Len(t, bars, 3, "malformed and out-of-range rows are dropped")
	assert.Equal(t, date(11), bars[0].Date)
	assert.Equal(t, 10.2, bars[0].Close)
	assert.Equal(t, 350000.0, bars[1].Volume)
	assert.Equal(t, "XYZ", bars[2].Ticker)
	assert.Zero(t, bars[2].Volume)

	q := query.Load().(url.Values)
	assert.Equal(t, "XYZ", q.Get("symbol"))
	assert.Equal(t, "1day", q.Get("interval"))
	assert.Equal(t, "2024-03-11", q.Get("start_date"))
	assert.Equal(t, "2024-03-16", q.Get("end_date"))
	assert.Equal(t, "test-key", q.Get("apikey"))
}

func TestGetDailyBars_RateLimited(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.GetDailyBars(context.Background(), "XYZ", date(1), date(15))
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
	assert.ErrorIs(t, err, errors.ErrRateLimitExceeded)
}

func TestGetDailyBars_RateLimitedInBody(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code": 429, "message": "You have run out of API credits", "status": "error"}`))
	})

	_, err := client.GetDailyBars(context.Background(), "XYZ", date(1), date(15))
	assert.True(t, errors.IsTransient(err))
}

func TestGetDailyBars_UnknownSymbol(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code": 400, "message": "**symbol** not found: QQQQX", "status": "error"}`))
	})

	_, err := client.GetDailyBars(context.Background(), "QQQQX", date(1), date(15))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrDataUnavailable)
	assert.False(t, errors.IsTransient(err))
}

func TestGetDailyBars_EmptyRange(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"values": [], "status": "ok"}`))
	})

	_, err := client.GetDailyBars(context.Background(), "XYZ", date(1), date(15))
	assert.ErrorIs(t, err, errors.ErrDataUnavailable)
}

func TestGetDailyBars_TimeoutIsTransient(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	})

	_, err := client.GetDailyBars(context.Background(), "XYZ", date(1), date(15))
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
}

func TestGetDailyBars_RetriesTransient(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(seriesBody))
	}, WithRetry(retry.New(retry.Config{MaxRetries: 1, InitialDelay: time.Millisecond, Strategy: retry.StrategyFixed})))

	bars, err := client.GetDailyBars(context.Background(), "XYZ", date(11), date(15))
	require.NoError(t, err)
	assert.Len(t, bars, 3)
	assert.Equal(t, int32(2), calls.Load())
}

func TestBreaker_OpensOnTransientOnly(t *testing.T) {
	var unknown atomic.Bool
	unknown.Store(true)
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if unknown.Load() {
			_, _ = w.Write([]byte(`{"code": 400, "message": "symbol not found", "status": "error"}`))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}, WithBreakerSettings(gobreaker.Settings{
		Name:    "test",
		Timeout: time.Minute,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 2
		},
	}))

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := client.GetDailyBars(ctx, "NOPE", date(1), date(15))
		assert.ErrorIs(t, err, errors.ErrDataUnavailable)
	}

	unknown.Store(false)
	for i := 0; i < 2; i++ {
		_, err := client.GetDailyBars(ctx, "XYZ", date(1), date(15))
		assert.True(t, errors.IsTransient(err))
	}
	before := calls.Load()

	_, err := client.GetDailyBars(ctx, "XYZ", date(1), date(15))
	assert.True(t, errors.IsTransient(err))
	assert.ErrorIs(t, err, errors.ErrUnavailable)
	assert.Equal(t, before, calls.Load(), "open breaker short-circuits the request")
}
