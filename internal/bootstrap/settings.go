package bootstrap

import (
	"time"

	"newsimpact/internal/adapters/config"
	"newsimpact/internal/adapters/pricefeed"
	confdomain "newsimpact/internal/domain/confounder"
	bsvc "newsimpact/internal/services/backtest"
	confsvc "newsimpact/internal/services/confounder"
	esvc "newsimpact/internal/services/eventstudy"
	scoresvc "newsimpact/internal/services/scoring"
)

// marketLocation resolves the market timezone; Validate has already checked it
func marketLocation(cfg *config.Config) *time.Location {
	loc, err := time.LoadLocation(cfg.EventStudy.MarketTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func scoringSettings(cfg *config.Config, phrases *config.Phrases) scoresvc.Config {
	out := scoresvc.DefaultConfig()

	out.NegationPenalty = cfg.Scoring.NegationPenalty
	out.NegationWindow = cfg.Scoring.NegationWindow
	out.SnippetChars = cfg.Scoring.SnippetChars
	out.TopTickers = cfg.Scoring.TopTickers
	out.MinRelevance = cfg.Scoring.MinRelevance
	out.ProximityWords = cfg.Scoring.ProximityWords
	out.SurpriseCap = cfg.Scoring.SurpriseCap
	out.AlertThreshold = cfg.Scoring.AlertThreshold
	out.TrendWindow = cfg.Scoring.TrendWindow
	out.TrendBaselineDays = cfg.Scoring.TrendBaselineDays
	out.ConfounderWindowDays = cfg.Confounder.WindowDays
	out.Reaction.TrendRatio = cfg.Scoring.TrendRatio

	if phrases == nil {
		return out
	}
	out.Keywords = make([]scoresvc.Keyword, len(phrases.Keywords))
	for i, k := range phrases.Keywords {
		out.Keywords[i] = scoresvc.Keyword{Phrase: k.Phrase, EventScore: k.Score}
	}
	out.Surprise = make([]scoresvc.SurprisePhrase, len(phrases.Surprise))
	for i, s := range phrases.Surprise {
		out.Surprise[i] = scoresvc.SurprisePhrase{
			Phrase:   s.Phrase,
			Score:    s.Score,
			Polarity: scoresvc.Polarity(s.Polarity),
		}
	}
	if len(phrases.Negation) > 0 {
		out.NegationMarkers = phrases.Negation
	}
	out.TriggerPhrases = phrases.Triggers
	return out
}

func eventStudySettings(cfg *config.Config) esvc.Config {
	out := esvc.DefaultConfig()
	es := cfg.EventStudy

	out.BatchSize = es.BatchSize
	out.BatchTimeout = es.BatchTimeout
	out.LookbackDays = es.LookbackDays
	out.LookaheadDays = es.LookaheadDays
	out.DefaultBenchmark = es.DefaultBenchmark
	out.PreferSector = es.PreferSector
	out.TopTickers = cfg.Scoring.TopTickers
	out.MinRelevance = cfg.Scoring.MinRelevance

	out.Retry = esvc.RetryPolicy{
		MaxRetries:      es.MaxRetries,
		Lookback:        es.RetryLookback,
		PartialInterval: es.PartialRetryInterval,
		PartialHorizon:  es.PartialHorizon,
		StaleAfter:      es.StaleAfter,
	}
	out.Calculator.BaselineDays = es.BaselineDays
	out.Calculator.Location = marketLocation(cfg)
	return out
}

func confounderSettings(cfg *config.Config) confsvc.Config {
	out := confsvc.DefaultConfig()
	out.SectorMovePct = cfg.Confounder.SectorMovePct
	out.ClusterThreshold = cfg.Confounder.ClusterThreshold
	out.TitleSimilarity = cfg.Confounder.TitleSimilarity
	out.Location = marketLocation(cfg)

	penalties := confsvc.DefaultPenalties()
	for name, p := range cfg.Confounder.Penalties {
		t := confdomain.ParseType(name)
		if string(t) != name {
			continue
		}
		penalties[t] = p
	}
	out.Penalties = penalties
	return out
}

func backtestSettings(cfg *config.Config) bsvc.Config {
	bt := cfg.Backtest
	return bsvc.Config{
		LookbackDays: bt.LookbackDays,
		MinScore:     bt.MinScore,
		Engine: bsvc.EngineConfig{
			TopK:            bt.TopK,
			SignificancePct: bt.SignificancePct,
			BucketEdges:     bt.BucketEdges,
		},
		Floors: bsvc.Floors{
			Correlation: bt.CorrelationFloor,
			HitRate:     bt.HitRateFloor,
			Precision:   bt.PrecisionFloor,
		},
	}
}

func priceFeedSettings(cfg *config.Config) pricefeed.Config {
	p := cfg.PriceProvider
	return pricefeed.Config{
		APIKey:         p.APIKey,
		BaseURL:        p.BaseURL,
		CallsPerMinute: p.CallsPerMinute,
		RequestTimeout: p.RequestTimeout,
		MaxRetries:     p.MaxRetries,
	}
}
