package article

import (
	"time"
)

// Article is an ingested news item
type Article struct {
	ID          int64     `db:"id"`
	Title       string    `db:"title"`
	Summary     string    `db:"summary"`
	URL         string    `db:"url"`
	Source      string    `db:"source"`
	PublishedAt time.Time `db:"published_at"`
	CreatedAt   time.Time `db:"created_at"`
}

// Text returns title and summary joined, the input to keyword and surprise matching
func (a *Article) Text() string {
	if a.Summary == "" {
		return a.Title
	}
	return a.Title + ". " + a.Summary
}

// Ticker is a candidate ticker extracted for an article, with its relevance weight
type Ticker struct {
	ArticleID int64   `db:"article_id"`
	Ticker    string  `db:"ticker"`
	Relevance float64 `db:"relevance"`
	Selected  bool    `db:"selected"`
}
