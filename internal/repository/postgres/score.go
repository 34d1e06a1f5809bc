package postgres

import (
	"context"
	"database/sql"
	"time"

	"newsimpact/internal/domain/scoring"
	"newsimpact/pkg/errors"
)

// Compile-time check
var _ scoring.Repository = (*ScoreRepository)(nil)

const scoreColumns = `
	id, article_id, ticker, relevance,
	score_keyword, score_cap_mult, score_surprise, score_market_reaction, score_total,
	surprise_direction, confidence, confounder_count, alert_sent,
	created_at, updated_at`

// ScoreRepository implements scoring.Repository over composite_scores and keyword_matches
type ScoreRepository struct {
	db DBTX
}

// NewScoreRepository creates a new score repository
func NewScoreRepository(db DBTX) *ScoreRepository {
	return &ScoreRepository{db: db}
}

// Upsert writes the score of a pair. alert_sent never reverts to false once set.
func (r *ScoreRepository) Upsert(ctx context.Context, s *scoring.CompositeScore) (err error) {
	defer observe("score_upsert", time.Now(), &err)

	query := `
		INSERT INTO composite_scores (
			article_id, ticker, relevance,
			score_keyword, score_cap_mult, score_surprise, score_market_reaction, score_total,
			surprise_direction, confidence, confounder_count, alert_sent,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW()
		)
		ON CONFLICT (article_id, ticker) DO UPDATE SET
			relevance = EXCLUDED.relevance,
			score_keyword = EXCLUDED.score_keyword,
			score_cap_mult = EXCLUDED.score_cap_mult,
			score_surprise = EXCLUDED.score_surprise,
			score_market_reaction = EXCLUDED.score_market_reaction,
			score_total = EXCLUDED.score_total,
			surprise_direction = EXCLUDED.surprise_direction,
			confidence = EXCLUDED.confidence,
			confounder_count = EXCLUDED.confounder_count,
			alert_sent = composite_scores.alert_sent OR EXCLUDED.alert_sent,
			updated_at = NOW()
		RETURNING id, alert_sent, created_at, updated_at`

	err = r.db.QueryRowContext(ctx, query,
		s.ArticleID, s.Ticker, s.Relevance,
		s.ScoreKeyword, s.ScoreCapMult, s.ScoreSurprise, s.ScoreMarketReaction, s.ScoreTotal,
		s.SurpriseDirection, s.Confidence, s.ConfounderCount, s.AlertSent,
	).Scan(&s.ID, &s.AlertSent, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "failed to upsert composite score")
	}
	return nil
}

// Get returns the score of a pair
func (r *ScoreRepository) Get(ctx context.Context, articleID int64, ticker string) (_ *scoring.CompositeScore, err error) {
	defer observe("score_get", time.Now(), &err)

	var s scoring.CompositeScore
	query := `SELECT ` + scoreColumns + ` FROM composite_scores WHERE article_id = $1 AND ticker = $2`

	err = r.db.GetContext(ctx, &s, query, articleID, ticker)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrNotFound, "score %d/%s", articleID, ticker)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get score")
	}
	return &s, nil
}

// GetByID returns a score by its id
func (r *ScoreRepository) GetByID(ctx context.Context, id int64) (_ *scoring.CompositeScore, err error) {
	defer observe("score_get_by_id", time.Now(), &err)

	var s scoring.CompositeScore
	query := `SELECT ` + scoreColumns + ` FROM composite_scores WHERE id = $1`

	err = r.db.GetContext(ctx, &s, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrNotFound, "score %d", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get score")
	}
	return &s, nil
}

// SaveKeywordMatches replaces the keyword audit trail of an article atomically
func (r *ScoreRepository) SaveKeywordMatches(ctx context.Context, articleID int64, matches []scoring.KeywordMatch) (err error) {
	defer observe("keyword_matches_save", time.Now(), &err)

	query := `
		INSERT INTO keyword_matches (
			article_id, keyword, event_score, is_negated, confidence, context_snippet, position
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	return inTx(ctx, r.db, func(q DBTX) error {
		if _, err := q.ExecContext(ctx, `DELETE FROM keyword_matches WHERE article_id = $1`, articleID); err != nil {
			return errors.Wrap(err, "failed to clear keyword matches")
		}
		for _, m := range matches {
			if _, err := q.ExecContext(ctx, query,
				articleID, m.Keyword, m.EventScore, m.IsNegated, m.Confidence, m.ContextSnippet, m.Position,
			); err != nil {
				return errors.Wrapf(err, "failed to insert keyword match %q", m.Keyword)
			}
		}
		return nil
	})
}

// ListKeywordMatches returns the matches of an article in text order
func (r *ScoreRepository) ListKeywordMatches(ctx context.Context, articleID int64) (_ []scoring.KeywordMatch, err error) {
	defer observe("keyword_matches_list", time.Now(), &err)

	var matches []scoring.KeywordMatch
	query := `
		SELECT article_id, keyword, event_score, is_negated, confidence, context_snippet, position
		FROM keyword_matches
		WHERE article_id = $1
		ORDER BY position ASC`

	if err := r.db.SelectContext(ctx, &matches, query, articleID); err != nil {
		return nil, errors.Wrap(err, "failed to list keyword matches")
	}
	return matches, nil
}
