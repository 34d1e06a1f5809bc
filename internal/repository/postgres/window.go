package postgres

import (
	"context"
	"database/sql"
	"time"

	"newsimpact/internal/domain/window"
	"newsimpact/pkg/errors"
)

// Compile-time check
var _ window.Repository = (*WindowRepository)(nil)

const windowColumns = `
	id, article_id, ticker, published_at, event_date, benchmark,
	return_pre_1d, return_pre_3d, return_pre_5d,
	return_1d, return_3d, return_5d, return_10d,
	abnormal_return_1d, abnormal_return_3d, abnormal_return_5d, abnormal_return_10d,
	volume_baseline_20d, volume_1d, volume_ratio_1d, volume_zscore_1d,
	volatility_baseline_20d, intraday_range_1d, gap_magnitude,
	processing_status, retry_count, failure_reason, last_processed_at,
	created_at, updated_at`

// WindowRepository implements window.Repository over article_ticker_windows
type WindowRepository struct {
	db DBTX
}

// NewWindowRepository creates a new window repository
func NewWindowRepository(db DBTX) *WindowRepository {
	return &WindowRepository{db: db}
}

// Register inserts a not_started row unless the pair already exists
func (r *WindowRepository) Register(ctx context.Context, w *window.Window) (_ bool, err error) {
	defer observe("window_register", time.Now(), &err)

	query := `
		INSERT INTO article_ticker_windows (article_id, ticker, published_at, processing_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (article_id, ticker) DO NOTHING
		RETURNING id, created_at, updated_at`

	err = r.db.QueryRowContext(ctx, query,
		w.ArticleID, w.Ticker, w.PublishedAt, window.StatusNotStarted,
	).Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "failed to register window")
	}
	w.Status = window.StatusNotStarted
	return true, nil
}

// Get returns the window of a pair
func (r *WindowRepository) Get(ctx context.Context, articleID int64, ticker string) (_ *window.Window, err error) {
	defer observe("window_get", time.Now(), &err)

	var w window.Window
	query := `SELECT ` + windowColumns + ` FROM article_ticker_windows WHERE article_id = $1 AND ticker = $2`

	err = r.db.GetContext(ctx, &w, query, articleID, ticker)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrNotFound, "window %d/%s", articleID, ticker)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get window")
	}
	return &w, nil
}

// Save upserts every computed and bookkeeping column. The conflict update is
// guarded so a complete row is never modified.
func (r *WindowRepository) Save(ctx context.Context, w *window.Window) (err error) {
	defer observe("window_save", time.Now(), &err)

	query := `
		INSERT INTO article_ticker_windows (
			article_id, ticker, published_at, event_date, benchmark,
			return_pre_1d, return_pre_3d, return_pre_5d,
			return_1d, return_3d, return_5d, return_10d,
			abnormal_return_1d, abnormal_return_3d, abnormal_return_5d, abnormal_return_10d,
			volume_baseline_20d, volume_1d, volume_ratio_1d, volume_zscore_1d,
			volatility_baseline_20d, intraday_range_1d, gap_magnitude,
			processing_status, retry_count, failure_reason, last_processed_at,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8,
			$9, $10, $11, $12,
			$13, $14, $15, $16,
			$17, $18, $19, $20,
			$21, $22, $23,
			$24, $25, $26, $27,
			NOW(), NOW()
		)
		ON CONFLICT (article_id, ticker) DO UPDATE SET
			event_date = EXCLUDED.event_date,
			benchmark = EXCLUDED.benchmark,
			return_pre_1d = EXCLUDED.return_pre_1d,
			return_pre_3d = EXCLUDED.return_pre_3d,
			return_pre_5d = EXCLUDED.return_pre_5d,
			return_1d = EXCLUDED.return_1d,
			return_3d = EXCLUDED.return_3d,
			return_5d = EXCLUDED.return_5d,
			return_10d = EXCLUDED.return_10d,
			abnormal_return_1d = EXCLUDED.abnormal_return_1d,
			abnormal_return_3d = EXCLUDED.abnormal_return_3d,
			abnormal_return_5d = EXCLUDED.abnormal_return_5d,
			abnormal_return_10d = EXCLUDED.abnormal_return_10d,
			volume_baseline_20d = EXCLUDED.volume_baseline_20d,
			volume_1d = EXCLUDED.volume_1d,
			volume_ratio_1d = EXCLUDED.volume_ratio_1d,
			volume_zscore_1d = EXCLUDED.volume_zscore_1d,
			volatility_baseline_20d = EXCLUDED.volatility_baseline_20d,
			intraday_range_1d = EXCLUDED.intraday_range_1d,
			gap_magnitude = EXCLUDED.gap_magnitude,
			processing_status = EXCLUDED.processing_status,
			retry_count = EXCLUDED.retry_count,
			failure_reason = EXCLUDED.failure_reason,
			last_processed_at = EXCLUDED.last_processed_at,
			updated_at = NOW()
		WHERE article_ticker_windows.processing_status <> 'complete'
		RETURNING id, created_at, updated_at`

	err = r.db.QueryRowContext(ctx, query,
		w.ArticleID, w.Ticker, w.PublishedAt, w.EventDate, w.Benchmark,
		w.ReturnPre1D, w.ReturnPre3D, w.ReturnPre5D,
		w.Return1D, w.Return3D, w.Return5D, w.Return10D,
		w.AbnormalReturn1D, w.AbnormalReturn3D, w.AbnormalReturn5D, w.AbnormalReturn10D,
		w.VolumeBaseline20D, w.Volume1D, w.VolumeRatio1D, w.VolumeZScore1D,
		w.VolatilityBaseline20D, w.IntradayRange1D, w.GapMagnitude,
		w.Status, w.RetryCount, w.FailureReason, w.LastProcessedAt,
	).Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt)
	if err == sql.ErrNoRows {
		return errors.Wrapf(errors.ErrInvariantViolation, "window %d/%s is complete", w.ArticleID, w.Ticker)
	}
	if err != nil {
		return errors.Wrap(err, "failed to save window")
	}
	return nil
}

// ListPending returns rows eligible for an attempt now, oldest first.
// Rows waiting out their retry spacing are excluded so they cannot crowd
// newer pairs out of the limit.
func (r *WindowRepository) ListPending(ctx context.Context, f window.PendingFilter) (_ []window.Window, err error) {
	defer observe("window_list_pending", time.Now(), &err)

	var rows []window.Window
	query := `SELECT ` + windowColumns + `
		FROM article_ticker_windows
		WHERE (processing_status = 'not_started' AND retry_count = 0)
		   OR (retry_count < $1 AND (
		        (processing_status IN ('not_started', 'failed')
		          AND GREATEST(published_at, created_at) >= $2)
		     OR (processing_status = 'partial'
		          AND GREATEST(published_at, created_at) >= $3
		          AND (last_processed_at IS NULL OR last_processed_at <= $4))))
		ORDER BY published_at ASC, id ASC
		LIMIT $5`

	if err := r.db.SelectContext(ctx, &rows, query,
		f.MaxRetries, f.RetryAnchorAfter, f.PartialAnchorAfter, f.PartialProcessedBefore, defaultLimit(f.Limit),
	); err != nil {
		return nil, errors.Wrap(err, "failed to list pending windows")
	}
	return rows, nil
}

// ListByStatus returns the most recently published rows with the given status
func (r *WindowRepository) ListByStatus(ctx context.Context, status window.Status, limit int) (_ []window.Window, err error) {
	defer observe("window_list_by_status", time.Now(), &err)

	var rows []window.Window
	query := `SELECT ` + windowColumns + `
		FROM article_ticker_windows
		WHERE processing_status = $1
		ORDER BY published_at DESC, id DESC
		LIMIT $2`

	if err := r.db.SelectContext(ctx, &rows, query, status, defaultLimit(limit)); err != nil {
		return nil, errors.Wrap(err, "failed to list windows by status")
	}
	return rows, nil
}

// ListStale returns non-complete rows that exhausted retries, stopped being
// refreshed or aged out of the retry lookback
func (r *WindowRepository) ListStale(ctx context.Context, f window.StaleFilter) (_ []window.Window, err error) {
	defer observe("window_list_stale", time.Now(), &err)

	var rows []window.Window
	query := `SELECT ` + windowColumns + `
		FROM article_ticker_windows
		WHERE processing_status <> 'complete'
		  AND (
			retry_count >= $1
			OR (processing_status = 'partial' AND last_processed_at < $2)
			OR (processing_status IN ('partial', 'failed') AND GREATEST(published_at, created_at) < $3)
		  )
		ORDER BY published_at ASC, id ASC
		LIMIT $4`

	if err := r.db.SelectContext(ctx, &rows, query,
		f.MaxRetries, f.PartialBefore, f.AnchorBefore, defaultLimit(f.Limit),
	); err != nil {
		return nil, errors.Wrap(err, "failed to list stale windows")
	}
	return rows, nil
}

// CountByStatus returns row counts per status; statuses without rows are zero
func (r *WindowRepository) CountByStatus(ctx context.Context) (_ map[window.Status]int, err error) {
	defer observe("window_count_by_status", time.Now(), &err)

	var rows []struct {
		Status window.Status `db:"processing_status"`
		Count  int           `db:"count"`
	}
	query := `
		SELECT processing_status, COUNT(*) AS count
		FROM article_ticker_windows
		GROUP BY processing_status`

	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, errors.Wrap(err, "failed to count windows")
	}

	counts := map[window.Status]int{
		window.StatusNotStarted: 0,
		window.StatusPartial:    0,
		window.StatusComplete:   0,
		window.StatusFailed:     0,
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
