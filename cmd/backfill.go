package main

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"newsimpact/internal/bootstrap"
	"newsimpact/internal/domain/price"
	"newsimpact/pkg/errors"
)

var (
	backfillTickers    []string
	backfillStart      string
	backfillEnd        string
	backfillBenchmarks bool
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Load historical daily bars into ClickHouse",
	Long: `Fetches daily bars from the price provider for each ticker over
[start, end] and stores them. With --benchmarks the benchmark series
(forward returns per date) is rebuilt as well.

Example:
  newsimpact backfill --tickers SPY,XBI --start 2023-01-01 --end 2024-12-31 --benchmarks`,
	RunE: runBackfill,
}

func init() {
	rootCmd.AddCommand(backfillCmd)

	backfillCmd.Flags().StringSliceVar(&backfillTickers, "tickers", nil, "Comma-separated tickers")
	backfillCmd.Flags().StringVar(&backfillStart, "start", "", "Start date (YYYY-MM-DD)")
	backfillCmd.Flags().StringVar(&backfillEnd, "end", "", "End date (YYYY-MM-DD)")
	backfillCmd.Flags().BoolVar(&backfillBenchmarks, "benchmarks", false, "Also rebuild benchmark series for these tickers")
	_ = backfillCmd.MarkFlagRequired("tickers")
	_ = backfillCmd.MarkFlagRequired("start")
}

func runBackfill(cmd *cobra.Command, args []string) error {
	start, err := parseDay("start", backfillStart)
	if err != nil {
		return err
	}
	end, err := parseDay("end", backfillEnd)
	if err != nil {
		return err
	}

	c := bootstrap.NewContainer()
	c.MustInitEngine()
	defer c.Close()

	if end.IsZero() {
		end = time.Now().UTC().Truncate(24 * time.Hour)
	}
	if end.Before(start) {
		return errors.NewValidationError("end", "must not be before start", backfillEnd)
	}

	var (
		errs  errors.MultiError
		total int
	)
	for _, raw := range backfillTickers {
		ticker := strings.ToUpper(strings.TrimSpace(raw))
		if ticker == "" {
			continue
		}

		bars, err := c.Adapters.PriceFeed.GetDailyBars(c.Context, ticker, start, end)
		if err != nil {
			c.Log.Warnw("Backfill fetch failed", "ticker", ticker, "error", err)
			errs.Add(errors.Wrapf(err, "ticker %s", ticker))
			continue
		}
		if err := c.Repos.Prices.SaveBars(c.Context, bars); err != nil {
			errs.Add(errors.Wrapf(err, "save %s", ticker))
			continue
		}
		if backfillBenchmarks {
			points := price.BuildBenchmarkSeries(ticker, bars)
			if err := c.Repos.Prices.SaveBenchmarkPoints(c.Context, points); err != nil {
				errs.Add(errors.Wrapf(err, "benchmark %s", ticker))
				continue
			}
		}

		total += len(bars)
		c.Log.Infow("Backfilled ticker", "ticker", ticker, "bars", len(bars))
	}

	c.Log.Infow("Backfill complete",
		"tickers", len(backfillTickers),
		"bars", humanize.Comma(int64(total)),
	)
	return errs.ToError()
}
