package eventstudy

import (
	"context"
	"time"

	"newsimpact/internal/domain/article"
	"newsimpact/internal/domain/window"
	scoresvc "newsimpact/internal/services/scoring"
	"newsimpact/pkg/errors"
)

// DiscoverPairs registers windows for recent articles that have candidate
// tickers but no windows yet. Returns the number of pairs registered.
func (s *Service) DiscoverPairs(ctx context.Context, since time.Time, limit int) (int, error) {
	articles, err := s.articles.ListUnregistered(ctx, since, limit)
	if err != nil {
		return 0, errors.Wrap(err, "failed to list unregistered articles")
	}

	registered := 0
	errs := &errors.MultiError{}
	for i := range articles {
		n, err := s.RegisterArticle(ctx, &articles[i])
		if err != nil {
			errs.Add(errors.Wrapf(err, "article %d", articles[i].ID))
			continue
		}
		registered += n
	}

	s.log.Infow("Pair discovery finished",
		"articles", len(articles),
		"registered", registered,
		"errors", len(errs.Errors),
	)
	return registered, errs.ToError()
}

// RegisterArticle weighs the article's candidate tickers, keeps the top ones and
// creates a not_started window for each. Returns the number of new windows.
func (s *Service) RegisterArticle(ctx context.Context, a *article.Article) (int, error) {
	candidates, err := s.articles.ListTickers(ctx, a.ID)
	if err != nil {
		return 0, errors.Wrap(err, "failed to list article tickers")
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	symbols := make([]string, len(candidates))
	for i, c := range candidates {
		symbols[i] = c.Ticker
	}
	profiles, err := s.tickers.GetProfiles(ctx, symbols)
	if err != nil {
		return 0, errors.Wrap(err, "failed to load ticker profiles")
	}

	input := make([]scoresvc.Candidate, len(candidates))
	for i, c := range candidates {
		input[i] = scoresvc.Candidate{Ticker: c.Ticker, CompanyName: profiles[c.Ticker].CompanyName}
	}

	relevance := s.relevance
	if relevance == nil {
		relevance = scoresvc.NewRelevanceScorer(scoresvc.DefaultConfig())
	}
	weights := relevance.Score(a.Title, a.Summary, input)
	top := scoresvc.TopTickers(weights, s.cfg.TopTickers, s.cfg.MinRelevance)

	selected := make(map[string]bool, len(top))
	for _, t := range top {
		selected[t] = true
	}
	for i := range candidates {
		candidates[i].ArticleID = a.ID
		candidates[i].Relevance = weights[candidates[i].Ticker]
		candidates[i].Selected = selected[candidates[i].Ticker]
	}
	if err := s.articles.SaveTickers(ctx, a.ID, candidates); err != nil {
		return 0, errors.Wrap(err, "failed to save ticker relevance")
	}

	created := 0
	for _, t := range top {
		ok, err := s.windows.Register(ctx, window.New(a.ID, t, a.PublishedAt))
		if err != nil {
			return created, errors.Wrapf(err, "failed to register %s", t)
		}
		if ok {
			created++
		}
	}

	s.log.Debugw("Article registered",
		"article_id", a.ID,
		"candidates", len(candidates),
		"selected", top,
		"created", created,
	)
	return created, nil
}
