package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsimpact/pkg/errors"
)

func TestParseDay(t *testing.T) {
	day, err := parseDay("from", "2024-03-20")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC), day)

	day, err = parseDay("from", "")
	require.NoError(t, err)
	assert.True(t, day.IsZero())

	_, err = parseDay("to", "20/03/2024")
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "process", "discover", "recompute", "backtest", "migrate", "backfill", "import-calendar"} {
		assert.True(t, names[want], want)
	}
}

func TestImportCalendarRejectsInvalidFileBeforeConnecting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calendar.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- date: 2024-03-13\n"), 0o600))

	err := runImportCalendar(importCalendarCmd, []string{path})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	err = runImportCalendar(importCalendarCmd, []string{filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}
