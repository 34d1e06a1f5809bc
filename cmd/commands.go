package main

import (
	"context"
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"newsimpact/internal/bootstrap"
	"newsimpact/migrations"
	"newsimpact/pkg/errors"
)

var (
	batchTimeout  time.Duration
	discoverSince time.Duration
	discoverLimit int
	backtestFrom  string
	backtestTo    string
	backtestMin   float64
	migrateOnlyPG bool
	migrateOnlyCH bool
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Discover new pairs and run one event-study batch",
	RunE:  runProcess,
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Register article-ticker pairs for recently ingested articles",
	RunE:  runDiscover,
}

var recomputeCmd = &cobra.Command{
	Use:   "recompute <article-id> <ticker>",
	Short: "Recompute the window and score of one pair, even if complete",
	Args:  cobra.ExactArgs(2),
	RunE:  runRecompute,
}

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Backtest the composite score against realised abnormal returns",
	Long: `Runs precision@K, score buckets, deciles and layer correlations over
scored pairs published in [from, to]. Dates are YYYY-MM-DD; defaults
cover the configured lookback up to today.`,
	RunE: runBacktest,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply Postgres and ClickHouse schema migrations",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(processCmd, discoverCmd, recomputeCmd, backtestCmd, migrateCmd)

	processCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "Upper bound for the batch")
	processCmd.Flags().DurationVar(&discoverSince, "since", 48*time.Hour, "Discover articles published within this window")

	discoverCmd.Flags().DurationVar(&discoverSince, "since", 48*time.Hour, "Discover articles published within this window")
	discoverCmd.Flags().IntVar(&discoverLimit, "limit", 500, "Maximum articles to register")

	backtestCmd.Flags().StringVar(&backtestFrom, "from", "", "Period start (YYYY-MM-DD)")
	backtestCmd.Flags().StringVar(&backtestTo, "to", "", "Period end (YYYY-MM-DD)")
	backtestCmd.Flags().Float64Var(&backtestMin, "min-score", -1, "Minimum composite score, negative for the configured default")

	migrateCmd.Flags().BoolVar(&migrateOnlyPG, "postgres-only", false, "Skip ClickHouse")
	migrateCmd.Flags().BoolVar(&migrateOnlyCH, "clickhouse-only", false, "Skip Postgres")
}

func runProcess(cmd *cobra.Command, args []string) error {
	c := bootstrap.NewContainer()
	c.MustInitEngine()
	defer c.Close()

	ctx, cancel := context.WithTimeout(c.Context, batchTimeout)
	defer cancel()

	registered, err := c.Services.EventStudy.DiscoverPairs(ctx, time.Now().Add(-discoverSince), 500)
	if err != nil {
		c.Log.Warnw("Discovery finished with errors", "registered", registered, "error", err)
	}

	summary, err := c.Services.EventStudy.ProcessPending(ctx)
	if err != nil {
		return errors.Wrap(err, "batch failed")
	}

	c.Log.Infow("Batch complete",
		"registered", registered,
		"selected", summary.Selected,
		"complete", summary.Complete,
		"partial", summary.Partial,
		"failed", summary.Failed,
		"provider_calls", humanize.Comma(int64(summary.ProviderCalls)),
		"took", summary.Duration.String(),
	)
	return printJSON(summary)
}

func runDiscover(cmd *cobra.Command, args []string) error {
	c := bootstrap.NewContainer()
	c.MustInitEngine()
	defer c.Close()

	registered, err := c.Services.EventStudy.DiscoverPairs(c.Context, time.Now().Add(-discoverSince), discoverLimit)
	c.Log.Infow("Discovery complete", "registered", registered)
	return err
}

func runRecompute(cmd *cobra.Command, args []string) error {
	articleID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return errors.NewValidationError("article-id", "must be an integer", args[0])
	}
	symbol := strings.ToUpper(strings.TrimSpace(args[1]))

	c := bootstrap.NewContainer()
	c.MustInitEngine()
	defer c.Close()

	w, err := c.Services.EventStudy.Recompute(c.Context, articleID, symbol)
	if err != nil {
		return err
	}
	return printJSON(w)
}

func runBacktest(cmd *cobra.Command, args []string) error {
	from, err := parseDay("from", backtestFrom)
	if err != nil {
		return err
	}
	to, err := parseDay("to", backtestTo)
	if err != nil {
		return err
	}

	c := bootstrap.NewContainer()
	c.MustInitEngine()
	defer c.Close()

	outcome, err := c.Services.Backtest.RunBacktest(c.Context, from, to, backtestMin)
	if errors.Is(err, errors.ErrNotFound) {
		c.Log.Info("No scored pairs in the period, nothing to backtest")
		return nil
	}
	if err != nil {
		return err
	}
	return printJSON(outcome)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if migrateOnlyPG && migrateOnlyCH {
		return errors.NewValidationError("flags", "--postgres-only and --clickhouse-only are exclusive", nil)
	}

	c := bootstrap.NewContainer()
	c.MustInitConfig()
	c.MustInitInfrastructure()
	defer c.Close()

	if !migrateOnlyCH {
		n, err := migrations.Run(c.Context, migrations.DirPostgres, migrations.NewPostgresTarget(c.PG.DB()))
		if err != nil {
			return err
		}
		c.Log.Infow("Postgres migrated", "applied", n)
	}
	if !migrateOnlyPG {
		n, err := migrations.Run(c.Context, migrations.DirClickHouse, migrations.NewClickHouseTarget(c.CH.Conn()))
		if err != nil {
			return err
		}
		c.Log.Infow("ClickHouse migrated", "applied", n)
	}
	return nil
}

func parseDay(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, errors.NewValidationError(field, "expected YYYY-MM-DD", value)
	}
	return t, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
