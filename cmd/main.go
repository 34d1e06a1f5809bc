package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"newsimpact/internal/bootstrap"
)

var rootCmd = &cobra.Command{
	Use:   "newsimpact",
	Short: "News impact event study and composite scoring engine",
	Long: `newsimpact measures how stocks react to news: it computes pre/post-event
returns against a benchmark, scores each article-ticker pair on six layers
and backtests the score against realised abnormal returns.

Without a subcommand it runs the full service (workers, consumers, HTTP).`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run workers, the article consumer and the HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	c := bootstrap.NewContainer()
	c.MustInit()

	if err := c.Start(); err != nil {
		c.Log.Errorw("Failed to start", "error", err)
		c.Shutdown()
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		c.Log.Infow("Shutdown signal received", "signal", sig.String())
	case <-c.Context.Done():
		c.Log.Warn("Fatal component error, shutting down")
	}

	c.Shutdown()
	return nil
}
