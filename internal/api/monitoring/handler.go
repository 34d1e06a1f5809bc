package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"newsimpact/internal/domain/backtest"
	"newsimpact/internal/domain/window"
	bsvc "newsimpact/internal/services/backtest"
	esvc "newsimpact/internal/services/eventstudy"
	msvc "newsimpact/internal/services/monitoring"
	"newsimpact/pkg/errors"
	"newsimpact/pkg/logger"
)

const maxLimit = 1000

// Querier is the read surface of the monitoring service
type Querier interface {
	ListWindows(ctx context.Context, status window.Status, limit int) ([]window.Window, map[window.Status]int, error)
	AttentionRequired(ctx context.Context, limit int) ([]msvc.AttentionItem, error)
	LatestBacktest(ctx context.Context) (*backtest.Run, error)
	Explain(ctx context.Context, scoreID int64) (*msvc.Explanation, error)
}

// Backtester triggers an on-demand backtest
type Backtester interface {
	RunBacktest(ctx context.Context, from, to time.Time, minScore float64) (*bsvc.Outcome, error)
}

// BatchSummaries reads recorded event-study batch summaries
type BatchSummaries interface {
	Latest(ctx context.Context) (*esvc.BatchSummary, error)
	History(ctx context.Context, limit int) ([]esvc.BatchSummary, error)
}

// Handler serves the monitoring API
type Handler struct {
	query      Querier
	backtester Backtester
	batches    BatchSummaries
	log        *logger.Logger
}

// NewHandler creates the monitoring handler. backtester may be nil, which
// disables POST /backtests; batches may be nil, which disables /batches.
func NewHandler(query Querier, backtester Backtester, batches BatchSummaries, log *logger.Logger) *Handler {
	return &Handler{query: query, backtester: backtester, batches: batches, log: log}
}

// Register mounts the routes on r
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/windows", h.ListWindows).Methods(http.MethodGet)
	r.HandleFunc("/windows/attention", h.Attention).Methods(http.MethodGet)
	r.HandleFunc("/backtests/latest", h.LatestBacktest).Methods(http.MethodGet)
	if h.backtester != nil {
		r.HandleFunc("/backtests", h.RunBacktest).Methods(http.MethodPost)
	}
	r.HandleFunc("/scores/{id:[0-9]+}/why", h.Explain).Methods(http.MethodGet)
	if h.batches != nil {
		r.HandleFunc("/batches/latest", h.LatestBatch).Methods(http.MethodGet)
		r.HandleFunc("/batches", h.BatchHistory).Methods(http.MethodGet)
	}
}

type windowsResponse struct {
	Counts  map[window.Status]int `json:"counts"`
	Windows []window.Window       `json:"windows,omitempty"`
}

// ListWindows handles GET /windows?status=&limit=
func (h *Handler) ListWindows(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	status := window.Status(r.URL.Query().Get("status"))

	rows, counts, err := h.query.ListWindows(r.Context(), status, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, windowsResponse{Counts: counts, Windows: rows})
}

// Attention handles GET /windows/attention
func (h *Handler) Attention(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	items, err := h.query.AttentionRequired(r.Context(), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"count": len(items), "items": items})
}

// LatestBacktest handles GET /backtests/latest
func (h *Handler) LatestBacktest(w http.ResponseWriter, r *http.Request) {
	run, err := h.query.LatestBacktest(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// RunBacktest handles POST /backtests?from=&to=&min_score=. Dates are YYYY-MM-DD.
func (h *Handler) RunBacktest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := parseDate(q.Get("from"), "from")
	if err != nil {
		h.writeError(w, err)
		return
	}
	to, err := parseDate(q.Get("to"), "to")
	if err != nil {
		h.writeError(w, err)
		return
	}
	minScore := -1.0
	if v := q.Get("min_score"); v != "" {
		minScore, err = strconv.ParseFloat(v, 64)
		if err != nil || minScore < 0 {
			h.writeError(w, errors.NewValidationError("min_score", "must be a non-negative number", v))
			return
		}
	}

	outcome, err := h.backtester.RunBacktest(r.Context(), from, to, minScore)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, outcome)
}

// LatestBatch handles GET /batches/latest
func (h *Handler) LatestBatch(w http.ResponseWriter, r *http.Request) {
	s, err := h.batches.Latest(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// BatchHistory handles GET /batches?limit=
func (h *Handler) BatchHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	rows, err := h.batches.History(r.Context(), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"count": len(rows), "batches": rows})
}

// Explain handles GET /scores/{id}/why
func (h *Handler) Explain(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		h.writeError(w, errors.NewValidationError("id", "must be an integer", mux.Vars(r)["id"]))
		return
	}
	out, err := h.query.Explain(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func parseLimit(r *http.Request) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > maxLimit {
		return 0, errors.NewValidationError("limit", "must be between 1 and 1000", v)
	}
	return n, nil
}

func parseDate(v, field string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, errors.NewValidationError(field, "must be YYYY-MM-DD", v)
	}
	return t, nil
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, errors.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, errors.ErrInvalidInput):
		code = http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		code = http.StatusGatewayTimeout
	}
	if code == http.StatusInternalServerError {
		h.log.Errorw("Monitoring request failed", "error", err)
	}
	writeJSON(w, code, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
