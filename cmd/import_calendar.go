package main

import (
	"os"

	"github.com/spf13/cobra"

	"newsimpact/internal/bootstrap"
	confsvc "newsimpact/internal/services/confounder"
	"newsimpact/pkg/errors"
)

var importCalendarDryRun bool

var importCalendarCmd = &cobra.Command{
	Use:   "import-calendar <file>",
	Short: "Bulk import earnings and macro events into the confounder calendar",
	Long: `Reads a YAML or JSON list of calendar events and inserts them, skipping
events already stored. Each entry has a date (YYYY-MM-DD), a ticker, an
optional type (default earnings) and an optional description. Entries
without a ticker are market-wide and need an explicit type.

Example file:
  - ticker: MRNA
    date: 2024-05-02
  - date: 2024-06-12
    type: fed_meeting
    description: FOMC rate decision`,
	Args: cobra.ExactArgs(1),
	RunE: runImportCalendar,
}

func init() {
	rootCmd.AddCommand(importCalendarCmd)

	importCalendarCmd.Flags().BoolVar(&importCalendarDryRun, "dry-run", false, "Validate the file without writing")
}

func runImportCalendar(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return errors.Wrapf(err, "read calendar file %s", args[0])
	}
	records, err := confsvc.ParseCalendar(data)
	if err != nil {
		return err
	}

	c := bootstrap.NewContainer()
	if importCalendarDryRun {
		c.MustInitConfig()
		c.Log.Infow("Calendar file is valid", "file", args[0], "records", len(records))
		return nil
	}

	c.MustInitEngine()
	defer c.Close()

	_, err = c.Services.Confounders.ImportCalendar(c.Context, records)
	return err
}
