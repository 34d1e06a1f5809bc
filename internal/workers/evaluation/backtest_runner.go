package evaluation

import (
	"context"
	"time"

	bsvc "newsimpact/internal/services/backtest"
	"newsimpact/internal/workers"
	"newsimpact/pkg/errors"
)

// Backtester runs a scoring backtest over a period
type Backtester interface {
	RunBacktest(ctx context.Context, from, to time.Time, minScore float64) (*bsvc.Outcome, error)
}

// BacktestRunner re-evaluates the composite score against realised abnormal
// returns on a cron schedule (daily by default, before the US open).
type BacktestRunner struct {
	*workers.BaseWorker
	backtester Backtester
}

// NewBacktestRunner creates the scheduled backtest worker
func NewBacktestRunner(backtester Backtester, schedule string, enabled bool) *BacktestRunner {
	return &BacktestRunner{
		BaseWorker: workers.NewCronWorker("backtest_runner", schedule, enabled),
		backtester: backtester,
	}
}

// Run executes one backtest over the configured lookback.
// A period without scored history is logged and skipped.
func (r *BacktestRunner) Run(ctx context.Context) error {
	outcome, err := r.backtester.RunBacktest(ctx, time.Time{}, time.Time{}, -1)
	if errors.Is(err, errors.ErrNotFound) {
		r.Log().Infow("No scored history to backtest yet")
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "scheduled backtest failed")
	}

	r.Log().Infow("Scheduled backtest finished",
		"run_id", outcome.Run.ID,
		"samples", outcome.Report.Samples,
		"recommendations", len(outcome.Run.Recommendations),
	)
	return nil
}
