package marketdata

import (
	"context"
	"sort"
	"time"

	"newsimpact/internal/domain/price"
	"newsimpact/internal/workers"
	"newsimpact/pkg/errors"
)

// BenchmarkSource lists the benchmarks referenced by ticker mappings
type BenchmarkSource interface {
	ListBenchmarks(ctx context.Context) ([]string, error)
}

// BenchmarkCollector refreshes the benchmark series in ClickHouse: daily bars
// for every configured and mapped benchmark, then per-date forward returns.
type BenchmarkCollector struct {
	*workers.BaseWorker
	provider   price.Provider
	prices     price.Repository
	source     BenchmarkSource
	benchmarks []string
	lookback   time.Duration
	now        func() time.Time
}

// NewBenchmarkCollector creates a new benchmark collector worker
func NewBenchmarkCollector(
	provider price.Provider,
	prices price.Repository,
	source BenchmarkSource,
	benchmarks []string,
	lookback time.Duration,
	interval time.Duration,
	enabled bool,
) *BenchmarkCollector {
	return &BenchmarkCollector{
		BaseWorker: workers.NewBaseWorker("benchmark_collector", interval, enabled),
		provider:   provider,
		prices:     prices,
		source:     source,
		benchmarks: benchmarks,
		lookback:   lookback,
		now:        time.Now,
	}
}

// Run executes one refresh of every benchmark series
func (bc *BenchmarkCollector) Run(ctx context.Context) error {
	symbols, err := bc.symbols(ctx)
	if err != nil {
		return err
	}

	end := bc.now().UTC()
	start := end.Add(-bc.lookback)

	var (
		refreshed int
		points    int
		errs      errors.MultiError
	)
	for i, symbol := range symbols {
		select {
		case <-ctx.Done():
			bc.Log().Infow("Benchmark refresh interrupted by shutdown",
				"refreshed", refreshed,
				"remaining", len(symbols)-i,
			)
			return ctx.Err()
		default:
		}

		n, err := bc.refresh(ctx, symbol, start, end)
		if err != nil {
			bc.Log().Warnw("Failed to refresh benchmark",
				"benchmark", symbol,
				"transient", errors.IsTransient(err),
				"error", err,
			)
			errs.Add(errors.Wrapf(err, "benchmark %s", symbol))
			continue
		}
		refreshed++
		points += n
	}

	bc.Log().Infow("Benchmark refresh complete",
		"benchmarks", len(symbols),
		"refreshed", refreshed,
		"points", points,
	)
	return errs.ToError()
}

func (bc *BenchmarkCollector) refresh(ctx context.Context, symbol string, start, end time.Time) (int, error) {
	bars, err := bc.provider.GetDailyBars(ctx, symbol, start, end)
	if err != nil {
		return 0, err
	}
	if err := bc.prices.SaveBars(ctx, bars); err != nil {
		return 0, errors.Wrap(err, "failed to save bars")
	}

	points := price.BuildBenchmarkSeries(symbol, bars)
	if err := bc.prices.SaveBenchmarkPoints(ctx, points); err != nil {
		return 0, errors.Wrap(err, "failed to save benchmark series")
	}
	return len(points), nil
}

// symbols merges configured benchmarks with those referenced by mappings
func (bc *BenchmarkCollector) symbols(ctx context.Context) ([]string, error) {
	set := make(map[string]struct{}, len(bc.benchmarks))
	for _, b := range bc.benchmarks {
		if b != "" {
			set[b] = struct{}{}
		}
	}
	if bc.source != nil {
		mapped, err := bc.source.ListBenchmarks(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "failed to list mapped benchmarks")
		}
		for _, b := range mapped {
			if b != "" {
				set[b] = struct{}{}
			}
		}
	}

	out := make([]string, 0, len(set))
	for b := range set {
		out = append(out, b)
	}
	sort.Strings(out)
	return out, nil
}
