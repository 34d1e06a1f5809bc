package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"newsimpact/internal/domain/backtest"
	"newsimpact/pkg/errors"
)

// Compile-time check
var _ backtest.Repository = (*BacktestRepository)(nil)

// BacktestRepository implements backtest.Repository. Runs are written in a
// single transaction so a run is either fully visible or absent.
type BacktestRepository struct {
	db *sqlx.DB
}

// NewBacktestRepository creates a new backtest repository
func NewBacktestRepository(db *sqlx.DB) *BacktestRepository {
	return &BacktestRepository{db: db}
}

// ListObservations joins scores with their windows for the evaluation period
func (r *BacktestRepository) ListObservations(ctx context.Context, from, to time.Time, minScore float64) (_ []backtest.Observation, err error) {
	defer observe("backtest_observations", time.Now(), &err)

	var obs []backtest.Observation
	query := `
		SELECT
			s.article_id, s.ticker, w.published_at,
			s.score_total::float8 AS score_total,
			s.score_keyword::float8 AS score_keyword,
			s.score_surprise::float8 AS score_surprise,
			s.score_market_reaction::float8 AS score_market_reaction,
			w.abnormal_return_1d, w.abnormal_return_3d, w.abnormal_return_5d, w.abnormal_return_10d
		FROM composite_scores s
		JOIN article_ticker_windows w ON w.article_id = s.article_id AND w.ticker = s.ticker
		WHERE w.published_at >= $1 AND w.published_at < $2
		  AND s.score_total >= $3
		  AND w.abnormal_return_1d IS NOT NULL
		ORDER BY w.published_at ASC, s.article_id ASC, s.ticker ASC`

	if err := r.db.SelectContext(ctx, &obs, query, from, to, minScore); err != nil {
		return nil, errors.Wrap(err, "failed to list backtest observations")
	}
	return obs, nil
}

// SaveRun writes result and recommendation rows of a run atomically
func (r *BacktestRepository) SaveRun(ctx context.Context, run *backtest.Run) (err error) {
	defer observe("backtest_save_run", time.Now(), &err)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	resultQuery := `
		INSERT INTO scoring_backtest_results (
			run_id, run_date, period_start, period_end, score_bucket, article_count,
			mean_abnormal_1d, mean_abnormal_3d, mean_abnormal_5d, mean_abnormal_10d,
			hit_rate, precision_at_k, corr_keyword, corr_surprise, corr_market_reaction
		) VALUES (
			:run_id, :run_date, :period_start, :period_end, :score_bucket, :article_count,
			:mean_abnormal_1d, :mean_abnormal_3d, :mean_abnormal_5d, :mean_abnormal_10d,
			:hit_rate, :precision_at_k, :corr_keyword, :corr_surprise, :corr_market_reaction
		)`

	for i, res := range run.Results {
		res.RunID = run.ID
		res.RunDate = run.RunDate
		if _, err := tx.NamedExecContext(ctx, resultQuery, res); err != nil {
			return errors.Wrapf(err, "failed to insert backtest result at index %d", i)
		}
	}

	recQuery := `
		INSERT INTO backtest_recommendations (run_id, rule, severity, message, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	for i, rec := range run.Recommendations {
		if _, err := tx.ExecContext(ctx, recQuery, run.ID, rec.Rule, rec.Severity, rec.Message, run.RunDate); err != nil {
			return errors.Wrapf(err, "failed to insert recommendation at index %d", i)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit backtest run")
	}
	return nil
}

// LatestRun returns the most recent run with its rows
func (r *BacktestRepository) LatestRun(ctx context.Context) (_ *backtest.Run, err error) {
	defer observe("backtest_latest_run", time.Now(), &err)

	var results []backtest.Result
	query := `
		SELECT run_id, run_date, period_start, period_end, score_bucket, article_count,
		       mean_abnormal_1d, mean_abnormal_3d, mean_abnormal_5d, mean_abnormal_10d,
		       hit_rate, precision_at_k, corr_keyword, corr_surprise, corr_market_reaction
		FROM scoring_backtest_results
		WHERE run_id = (
			SELECT run_id FROM scoring_backtest_results ORDER BY run_date DESC LIMIT 1
		)
		ORDER BY id ASC`

	if err := r.db.SelectContext(ctx, &results, query); err != nil {
		return nil, errors.Wrap(err, "failed to load latest backtest run")
	}
	if len(results) == 0 {
		return nil, errors.Wrap(errors.ErrNotFound, "no backtest run recorded")
	}

	run := &backtest.Run{
		ID:      results[0].RunID,
		RunDate: results[0].RunDate,
		Results: results,
	}

	recQuery := `
		SELECT run_id, rule, severity, message
		FROM backtest_recommendations
		WHERE run_id = $1
		ORDER BY id ASC`

	if err := r.db.SelectContext(ctx, &run.Recommendations, recQuery, run.ID); err != nil {
		return nil, errors.Wrap(err, "failed to load backtest recommendations")
	}
	return run, nil
}
