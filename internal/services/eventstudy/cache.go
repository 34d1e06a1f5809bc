package eventstudy

import (
	"context"
	"time"

	"newsimpact/internal/domain/price"
	"newsimpact/internal/domain/ticker"
	"newsimpact/pkg/errors"
	"newsimpact/pkg/logger"
)

type baselineKey struct {
	ticker string
	day    time.Time
}

type pointKey struct {
	benchmark string
	day       time.Time
}

type barsEntry struct {
	bars []price.Bar
	err  error
}

// BatchCache memoizes provider and reference lookups for one batch run.
// It is filled and read by a single goroutine and discarded when the batch ends.
type BatchCache struct {
	provider price.Provider
	store    price.Repository
	tickers  ticker.Repository
	log      *logger.Logger

	bars      map[string]barsEntry
	baselines map[baselineKey]Baseline
	mappings  map[string]*ticker.Mapping
	points    map[pointKey]*price.BenchmarkPoint

	providerCalls int
}

// NewBatchCache creates an empty cache. Without a store there are no benchmark points.
func NewBatchCache(provider price.Provider, store price.Repository, tickers ticker.Repository, log *logger.Logger) *BatchCache {
	return &BatchCache{
		provider:  provider,
		store:     store,
		tickers:   tickers,
		log:       log,
		bars:      make(map[string]barsEntry),
		baselines: make(map[baselineKey]Baseline),
		mappings:  make(map[string]*ticker.Mapping),
		points:    make(map[pointKey]*price.BenchmarkPoint),
	}
}

// Bars returns ascending daily bars for the ticker. The first call per ticker
// fetches [start, end] from the provider; later calls reuse the result, errors included.
// Fetched bars are archived to the store. On a transient provider failure the
// archived bars are used when there are any.
func (c *BatchCache) Bars(ctx context.Context, symbol string, start, end time.Time) ([]price.Bar, error) {
	if e, ok := c.bars[symbol]; ok {
		return e.bars, e.err
	}

	c.providerCalls++
	bars, err := c.provider.GetDailyBars(ctx, symbol, start, end)
	switch {
	case err == nil:
		bars = price.SortBars(bars)
		if len(bars) == 0 {
			err = errors.Wrapf(errors.ErrDataUnavailable, "no bars for %s", symbol)
		} else if c.store != nil {
			if saveErr := c.store.SaveBars(ctx, bars); saveErr != nil {
				c.log.Warnw("Failed to archive bars", "ticker", symbol, "error", saveErr)
			}
		}
	case errors.IsTransient(err) && c.store != nil && ctx.Err() == nil:
		archived, storeErr := c.store.GetBars(ctx, symbol, start, end)
		if storeErr == nil && len(archived) > 0 {
			c.log.Warnw("Provider unavailable, using archived bars",
				"ticker", symbol,
				"bars", len(archived),
				"error", err,
			)
			bars, err = price.SortBars(archived), nil
		}
	}

	c.bars[symbol] = barsEntry{bars: bars, err: err}
	return bars, err
}

// Baseline returns the memoized baseline for (ticker, event day), computing it on first use
func (c *BatchCache) Baseline(symbol string, day time.Time, compute func() Baseline) Baseline {
	key := baselineKey{symbol, day}
	if b, ok := c.baselines[key]; ok {
		return b
	}
	b := compute()
	c.baselines[key] = b
	return b
}

// Mapping returns the benchmark mapping or nil when the ticker has none
func (c *BatchCache) Mapping(ctx context.Context, symbol string) (*ticker.Mapping, error) {
	if m, ok := c.mappings[symbol]; ok {
		return m, nil
	}
	m, err := c.tickers.GetMapping(ctx, symbol)
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		return nil, errors.Wrap(err, "failed to load benchmark mapping")
	}
	if err != nil {
		c.log.Debugw("No benchmark mapping, using default", "ticker", symbol)
		m = nil
	}
	c.mappings[symbol] = m
	return m, nil
}

// BenchmarkPoint returns the benchmark series point for day or nil when absent
func (c *BatchCache) BenchmarkPoint(ctx context.Context, benchmark string, day time.Time) (*price.BenchmarkPoint, error) {
	key := pointKey{benchmark, day}
	if p, ok := c.points[key]; ok {
		return p, nil
	}
	if c.store == nil {
		return nil, nil
	}
	p, err := c.store.GetBenchmarkPoint(ctx, benchmark, day)
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		return nil, errors.Wrapf(err, "failed to load %s benchmark point", benchmark)
	}
	if err != nil {
		p = nil
	}
	c.points[key] = p
	return p, nil
}

// ProviderCalls reports how many provider requests the cache has made
func (c *BatchCache) ProviderCalls() int {
	return c.providerCalls
}
