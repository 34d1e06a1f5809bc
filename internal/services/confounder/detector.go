package confounder

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"newsimpact/internal/domain/article"
	"newsimpact/internal/domain/confounder"
	"newsimpact/internal/domain/price"
	"newsimpact/internal/domain/ticker"
	"newsimpact/pkg/errors"
	"newsimpact/pkg/logger"
)

// Config holds detection thresholds and the per-type penalty schedule
type Config struct {
	SectorMovePct    float64 // |sector ETF day change| in percent that flags a sector move
	ClusterThreshold int     // same-day articles above this count flag clustering
	// TitleSimilarity is the minimum title word overlap (Jaccard) for two articles
	// to count as the same story. Zero counts every same-day article.
	TitleSimilarity float64
	Penalties       map[confounder.Type]float64
	Location        *time.Location // market calendar day boundaries
}

// DefaultPenalties returns the standard per-type schedule
func DefaultPenalties() map[confounder.Type]float64 {
	return map[confounder.Type]float64{
		confounder.TypeEarnings:          0.3,
		confounder.TypeFDAPDUFA:          0.2,
		confounder.TypeFedMeeting:        0.2,
		confounder.TypeCPIRelease:        0.2,
		confounder.TypeSectorMove:        0.15,
		confounder.TypeArticleClustering: 0.1,
		confounder.TypeOther:             0.1,
	}
}

// DefaultConfig returns default thresholds
func DefaultConfig() Config {
	return Config{
		SectorMovePct:    3,
		ClusterThreshold: 3,
		Penalties:        DefaultPenalties(),
		Location:         time.UTC,
	}
}

// Detector flags events around a publication that could explain a price move
type Detector struct {
	cfg      Config
	calendar confounder.Repository
	tickers  ticker.Repository
	prices   price.Repository
	articles article.Repository
	log      *logger.Logger
}

// NewDetector creates a new confounder detector
func NewDetector(
	cfg Config,
	calendar confounder.Repository,
	tickers ticker.Repository,
	prices price.Repository,
	articles article.Repository,
) *Detector {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Penalties == nil {
		cfg.Penalties = DefaultPenalties()
	}
	return &Detector{
		cfg:      cfg,
		calendar: calendar,
		tickers:  tickers,
		prices:   prices,
		articles: articles,
		log:      logger.Get().With("component", "confounder_detector"),
	}
}

// Detect returns calendar events within ±windowDays of date plus derived
// sector-move and clustering records for date itself. date is read as a calendar day.
func (d *Detector) Detect(ctx context.Context, symbol string, date time.Time, windowDays int) ([]confounder.Record, error) {
	if windowDays < 0 {
		windowDays = 0
	}
	day := calendarDay(date)

	records, err := d.calendar.Find(ctx, symbol, day.AddDate(0, 0, -windowDays), day.AddDate(0, 0, windowDays))
	if err != nil {
		return nil, errors.Wrap(err, "failed to query confounder calendar")
	}

	sector, err := d.sectorMove(ctx, symbol, day)
	if err != nil {
		return nil, err
	}
	if sector != nil {
		records = append(records, *sector)
	}

	cluster, err := d.clustering(ctx, symbol, day)
	if err != nil {
		return nil, err
	}
	if cluster != nil {
		records = append(records, *cluster)
	}

	if len(records) > 0 {
		d.log.Debugw("Confounders detected",
			"ticker", symbol,
			"date", day.Format("2006-01-02"),
			"count", len(records),
		)
	}
	return records, nil
}

// Confidence starts at 1 and subtracts each record's type penalty, floored at 0.
// Types without a configured penalty use the "other" penalty.
func (d *Detector) Confidence(records []confounder.Record) float64 {
	c := 1.0
	for _, r := range records {
		c -= d.penalty(r.Type)
	}
	return math.Max(0, math.Min(1, c))
}

func (d *Detector) penalty(t confounder.Type) float64 {
	p, ok := d.cfg.Penalties[t]
	if !ok {
		p = d.cfg.Penalties[confounder.TypeOther]
	}
	return math.Max(0, p)
}

func (d *Detector) sectorMove(ctx context.Context, symbol string, day time.Time) (*confounder.Record, error) {
	mapping, err := d.tickers.GetMapping(ctx, symbol)
	if errors.Is(err, errors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load benchmark mapping")
	}
	etf := mapping.Sector()
	if etf == "" {
		return nil, nil
	}

	point, err := d.prices.GetBenchmarkPoint(ctx, etf, day)
	if errors.Is(err, errors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load %s benchmark point", etf)
	}
	if point.DayChange == nil || math.Abs(*point.DayChange) <= d.cfg.SectorMovePct {
		return nil, nil
	}

	t := symbol
	return &confounder.Record{
		Ticker:      &t,
		EventDate:   day,
		Type:        confounder.TypeSectorMove,
		Description: fmt.Sprintf("%s moved %+.2f%% on %s", etf, *point.DayChange, day.Format("2006-01-02")),
	}, nil
}

func (d *Detector) clustering(ctx context.Context, symbol string, day time.Time) (*confounder.Record, error) {
	if d.articles == nil {
		return nil, nil
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, d.cfg.Location)
	same, err := d.articles.ListByTicker(ctx, symbol, start, start.AddDate(0, 0, 1))
	if err != nil {
		return nil, errors.Wrap(err, "failed to list same-day articles")
	}

	size := largestCluster(same, d.cfg.TitleSimilarity)
	if size <= d.cfg.ClusterThreshold {
		return nil, nil
	}

	t := symbol
	return &confounder.Record{
		Ticker:      &t,
		EventDate:   day,
		Type:        confounder.TypeArticleClustering,
		Description: fmt.Sprintf("%d similar articles about %s on %s", size, symbol, day.Format("2006-01-02")),
	}, nil
}

// largestCluster returns the most articles similar to any single article (itself included)
func largestCluster(articles []article.Article, minSimilarity float64) int {
	if minSimilarity <= 0 {
		return len(articles)
	}
	sets := make([]map[string]struct{}, len(articles))
	for i := range articles {
		sets[i] = titleWords(articles[i].Title)
	}

	best := 0
	for i := range sets {
		n := 0
		for j := range sets {
			if i == j || jaccard(sets[i], sets[j]) >= minSimilarity {
				n++
			}
		}
		if n > best {
			best = n
		}
	}
	return best
}

func titleWords(title string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	}) {
		set[w] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	return float64(inter) / float64(len(a)+len(b)-inter)
}

func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
