package dev

import (
	"context"
	"time"

	"newsimpact/internal/testsupport/seeds"
)

// SeedArticles inserts sample articles; the event-study worker picks them up
// on its next discovery pass
func SeedArticles(ctx context.Context, s *seeds.Seeder) error {
	log := s.Log()

	articles := []struct {
		title   string
		summary string
		url     string
		at      time.Time
		tickers []string
	}{
		{
			"Moderna wins FDA approval for RSV vaccine",
			"The FDA approved mRNA-1345, the company's second commercial product, ahead of analyst expectations.",
			"https://news.dev/moderna-rsv-approval",
			time.Date(2024, 5, 31, 20, 15, 0, 0, time.UTC),
			[]string{"MRNA"},
		},
		{
			"Cassava Sciences Alzheimer's drug fails phase 3 trial",
			"Simufilam did not meet its primary endpoint, the company said, in a surprise setback.",
			"https://news.dev/cassava-phase3",
			time.Date(2024, 11, 25, 12, 30, 0, 0, time.UTC),
			[]string{"SAVA"},
		},
		{
			"NVIDIA beats estimates on record data center revenue",
			"Revenue topped consensus by a wide margin and the company announced a 10-for-1 stock split.",
			"https://news.dev/nvidia-q1",
			time.Date(2024, 5, 22, 20, 20, 0, 0, time.UTC),
			[]string{"NVDA", "AMD"},
		},
	}

	for _, a := range articles {
		created := s.Article().
			WithTitle(a.title).
			WithSummary(a.summary).
			WithURL(a.url).
			WithSource("dev-seed").
			PublishedAt(a.at).
			WithTickers(a.tickers...).
			MustInsert()

		log.Infow("Created article", "id", created.ID, "tickers", a.tickers)
	}
	return nil
}
