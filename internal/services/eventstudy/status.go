package eventstudy

import (
	"time"

	"newsimpact/internal/domain/window"
	"newsimpact/pkg/errors"
)

// Outcome is the result of one processing attempt
type Outcome int

const (
	// OutcomeComputed means price data was found and metrics were computed
	OutcomeComputed Outcome = iota
	// OutcomeNoData means the provider confirmed there is no data for the pair
	OutcomeNoData
	// OutcomeTransient means the attempt failed for a retryable reason
	OutcomeTransient
)

func (o Outcome) String() string {
	switch o {
	case OutcomeComputed:
		return "computed"
	case OutcomeNoData:
		return "no_data"
	case OutcomeTransient:
		return "transient"
	}
	return "unknown"
}

// NextStatus is the pure transition function of the processing state machine.
// resolved is the number of post-event horizons with both a return and an abnormal return.
func NextStatus(current window.Status, outcome Outcome, resolved int) (window.Status, error) {
	if !current.Valid() {
		return current, errors.Wrapf(errors.ErrInvalidInput, "unknown status %q", current)
	}
	if current.Terminal() {
		return current, errors.Wrapf(errors.ErrInvariantViolation, "window is %s", current)
	}

	switch outcome {
	case OutcomeComputed:
		if resolved >= len(window.PostHorizons) {
			return window.StatusComplete, nil
		}
		return window.StatusPartial, nil
	case OutcomeNoData:
		return window.StatusFailed, nil
	case OutcomeTransient:
		return current, nil
	}
	return current, errors.Wrapf(errors.ErrInvalidInput, "unknown outcome %d", outcome)
}

// NextRetryCount counts failed attempts. Computed attempts, partial ones included, are free.
func NextRetryCount(current int, outcome Outcome) int {
	if outcome == OutcomeComputed {
		return current
	}
	return current + 1
}

// RetryPolicy decides which rows are attempted automatically and which are
// surfaced for operator attention instead
type RetryPolicy struct {
	MaxRetries      int
	Lookback        time.Duration // failed rows are retried only this long after publication
	PartialInterval time.Duration // minimum spacing between attempts on a partial row
	PartialHorizon  time.Duration // partial rows are retried only this long after publication
	StaleAfter      time.Duration // partial rows untouched this long need attention
}

// DefaultRetryPolicy returns the standard policy
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      3,
		Lookback:        48 * time.Hour,
		PartialInterval: 12 * time.Hour,
		PartialHorizon:  16 * 24 * time.Hour,
		StaleAfter:      24 * time.Hour,
	}
}

// anchor is the later of publication and discovery, so late-discovered pairs get a full window
func anchor(w *window.Window) time.Time {
	if w.CreatedAt.After(w.PublishedAt) {
		return w.CreatedAt
	}
	return w.PublishedAt
}

// Eligible reports whether w should be attempted at now
func (p RetryPolicy) Eligible(w *window.Window, now time.Time) bool {
	switch w.Status {
	case window.StatusComplete:
		return false
	case window.StatusNotStarted:
		if w.RetryCount == 0 {
			return true
		}
		return w.RetryCount < p.MaxRetries && !now.After(anchor(w).Add(p.Lookback))
	case window.StatusFailed:
		return w.RetryCount < p.MaxRetries && !now.After(anchor(w).Add(p.Lookback))
	case window.StatusPartial:
		if w.RetryCount >= p.MaxRetries || now.After(anchor(w).Add(p.PartialHorizon)) {
			return false
		}
		return w.LastProcessedAt == nil || now.Sub(*w.LastProcessedAt) >= p.PartialInterval
	}
	return false
}

// PendingFilter translates the policy into the repository query for a batch at now.
// The query returns only rows Eligible would accept.
func (p RetryPolicy) PendingFilter(now time.Time, limit int) window.PendingFilter {
	return window.PendingFilter{
		MaxRetries:             p.MaxRetries,
		RetryAnchorAfter:       now.Add(-p.Lookback),
		PartialAnchorAfter:     now.Add(-p.PartialHorizon),
		PartialProcessedBefore: now.Add(-p.PartialInterval),
		Limit:                  limit,
	}
}

// NeedsAttention reports whether w has fallen out of automatic retry without completing
func (p RetryPolicy) NeedsAttention(w *window.Window, now time.Time) bool {
	if w.Status == window.StatusComplete {
		return false
	}
	if w.RetryCount >= p.MaxRetries {
		return true
	}

	switch w.Status {
	case window.StatusFailed:
		return now.After(anchor(w).Add(p.Lookback))
	case window.StatusNotStarted:
		return w.RetryCount > 0 && now.After(anchor(w).Add(p.Lookback))
	case window.StatusPartial:
		if now.After(anchor(w).Add(p.PartialHorizon)) {
			return true
		}
		return w.LastProcessedAt != nil && now.Sub(*w.LastProcessedAt) > p.StaleAfter
	}
	return false
}
