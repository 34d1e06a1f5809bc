package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"newsimpact/internal/adapters/ratelimit"
	"newsimpact/internal/adapters/retry"
	"newsimpact/internal/domain/price"
	"newsimpact/internal/metrics"
	"newsimpact/pkg/errors"
	"newsimpact/pkg/logger"
)

const (
	providerName   = "twelvedata"
	dateLayout     = "2006-01-02"
	defaultBaseURL = "https://api.twelvedata.com"
)

// Config configures the Twelve Data daily-bar client
type Config struct {
	APIKey         string
	BaseURL        string
	CallsPerMinute int
	RequestTimeout time.Duration
	MaxRetries     int
}

// Client fetches daily OHLCV bars from Twelve Data's time_series endpoint.
// Calls are spaced by a calls-per-minute limiter and guarded by a circuit breaker.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	retry      *retry.Middleware
	breaker    *gobreaker.CircuitBreaker
	log        *logger.Logger
}

// Option customises a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetry replaces the in-call retry middleware
func WithRetry(m *retry.Middleware) Option {
	return func(c *Client) { c.retry = m }
}

// WithBreakerSettings replaces the circuit breaker
func WithBreakerSettings(st gobreaker.Settings) Option {
	return func(c *Client) { c.breaker = gobreaker.NewCircuitBreaker(withSuccessRule(st)) }
}

// NewClient creates a new Twelve Data client
func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxRetries = cfg.MaxRetries

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
		limiter:    ratelimit.NewLimiter(providerName, cfg.CallsPerMinute),
		retry:      retry.New(retryCfg),
		breaker:    gobreaker.NewCircuitBreaker(withSuccessRule(DefaultBreakerSettings())),
		log:        logger.Get().With("component", "pricefeed", "provider", providerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DefaultBreakerSettings trips after five consecutive upstream failures
func DefaultBreakerSettings() gobreaker.Settings {
	return gobreaker.Settings{
		Name:     providerName,
		Interval: time.Minute,
		Timeout:  time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
}

// withSuccessRule keeps unknown tickers from tripping the breaker: only
// transient failures count against the upstream
func withSuccessRule(st gobreaker.Settings) gobreaker.Settings {
	if st.IsSuccessful == nil {
		st.IsSuccessful = func(err error) bool {
			return err == nil || !errors.IsTransient(err)
		}
	}
	if st.OnStateChange == nil {
		st.OnStateChange = func(name string, from, to gobreaker.State) {
			logger.Get().Warnw("Price provider circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		}
	}
	return st
}

// GetDailyBars returns ascending daily bars dated within [start, end].
// Unknown symbols and empty ranges fail with ErrDataUnavailable; rate limits,
// timeouts, 5xx and an open breaker are transient.
func (c *Client) GetDailyBars(ctx context.Context, ticker string, start, end time.Time) ([]price.Bar, error) {
	var bars []price.Bar

	err := c.retry.Do(ctx, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		started := time.Now()
		result, err := c.breaker.Execute(func() (interface{}, error) {
			return c.fetch(ctx, ticker, start, end)
		})
		metrics.RecordProviderCall(providerName, callStatus(err), time.Since(started))

		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return errors.Transient(errors.Wrap(errors.ErrUnavailable, err.Error()))
			}
			return err
		}
		bars = result.([]price.Bar)
		return nil
	})
	if err != nil {
		c.log.Debugw("Daily bars request failed", "ticker", ticker, "error", err)
		return nil, err
	}

	c.log.Debugw("Daily bars fetched", "ticker", ticker, "bars", len(bars))
	return bars, nil
}

type timeSeriesResponse struct {
	Status  string            `json:"status"`
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Values  []timeSeriesValue `json:"values"`
}

type timeSeriesValue struct {
	Datetime string `json:"datetime"`
	Open     string `json:"open"`
	High     string `json:"high"`
	Low      string `json:"low"`
	Close    string `json:"close"`
	Volume   string `json:"volume"`
}

func (c *Client) fetch(ctx context.Context, ticker string, start, end time.Time) ([]price.Bar, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	q := url.Values{}
	q.Set("symbol", ticker)
	q.Set("interval", "1day")
	q.Set("start_date", start.Format(dateLayout))
	// end_date is exclusive upstream
	q.Set("end_date", end.AddDate(0, 0, 1).Format(dateLayout))
	q.Set("order", "asc")
	q.Set("apikey", c.cfg.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/time_series?"+q.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", "newsimpact/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Transient(errors.Wrapf(errors.ErrTimeout, "time_series %s", ticker))
		}
		return nil, errors.Transient(errors.Wrap(err, "request failed"))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, errors.Transient(errors.Wrapf(errors.ErrRateLimitExceeded, "time_series %s", ticker))
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, errors.Transient(errors.Wrapf(errors.ErrUnavailable, "time_series %s: status %d", ticker, resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("time_series %s returned status %d: %s", ticker, resp.StatusCode, string(body))
	}

	var payload timeSeriesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		if ctx.Err() != nil {
			return nil, errors.Transient(errors.Wrapf(errors.ErrTimeout, "time_series %s", ticker))
		}
		return nil, errors.Wrap(err, "decode time_series response")
	}

	if payload.Status == "error" {
		return nil, classify(ticker, payload)
	}

	bars := make([]price.Bar, 0, len(payload.Values))
	for _, v := range payload.Values {
		bar, err := parseBar(ticker, v)
		if err != nil {
			c.log.Debugw("Skipping malformed bar", "ticker", ticker, "datetime", v.Datetime, "error", err)
			continue
		}
		if bar.Date.Before(truncate(start)) || bar.Date.After(truncate(end)) {
			continue
		}
		bars = append(bars, bar)
	}
	if len(bars) == 0 {
		return nil, errors.Wrapf(errors.ErrDataUnavailable, "no bars for %s between %s and %s",
			ticker, start.Format(dateLayout), end.Format(dateLayout))
	}
	return price.SortBars(bars), nil
}

// classify maps an in-body error to the engine's error taxonomy
func classify(ticker string, payload timeSeriesResponse) error {
	msg := strings.ToLower(payload.Message)
	switch {
	case payload.Code == http.StatusTooManyRequests:
		return errors.Transient(errors.Wrapf(errors.ErrRateLimitExceeded, "time_series %s: %s", ticker, payload.Message))
	case strings.Contains(msg, "symbol"), strings.Contains(msg, "not found"), strings.Contains(msg, "no data"):
		return errors.Wrapf(errors.ErrDataUnavailable, "time_series %s: %s", ticker, payload.Message)
	case payload.Code >= http.StatusInternalServerError:
		return errors.Transient(errors.Wrapf(errors.ErrUnavailable, "time_series %s: %s", ticker, payload.Message))
	}
	return fmt.Errorf("time_series %s: code %d: %s", ticker, payload.Code, payload.Message)
}

func parseBar(ticker string, v timeSeriesValue) (price.Bar, error) {
	if len(v.Datetime) < len(dateLayout) {
		return price.Bar{}, fmt.Errorf("bad datetime %q", v.Datetime)
	}
	date, err := time.Parse(dateLayout, v.Datetime[:len(dateLayout)])
	if err != nil {
		return price.Bar{}, errors.Wrap(err, "parse datetime")
	}

	fields := []string{v.Open, v.High, v.Low, v.Close}
	parsed := make([]float64, len(fields))
	for i, f := range fields {
		parsed[i], err = strconv.ParseFloat(f, 64)
		if err != nil {
			return price.Bar{}, errors.Wrap(err, "parse price")
		}
	}

	volume := 0.0
	if v.Volume != "" {
		if volume, err = strconv.ParseFloat(v.Volume, 64); err != nil {
			return price.Bar{}, errors.Wrap(err, "parse volume")
		}
	}

	return price.Bar{
		Ticker: ticker,
		Date:   date,
		Open:   parsed[0],
		High:   parsed[1],
		Low:    parsed[2],
		Close:  parsed[3],
		Volume: volume,
	}, nil
}

func truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func callStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, errors.ErrDataUnavailable):
		return "no_data"
	case errors.IsTransient(err):
		return "transient"
	default:
		return "error"
	}
}
