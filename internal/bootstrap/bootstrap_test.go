package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwsmith1983/guardian/internal/config"
	"github.com/dwsmith1983/guardian/pkg/types"
)

const freeze = `name: change-freeze
windows:
  - from: saturday 00:00
    to: sunday 23:59
`

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestLoadBlackout(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "freeze.yaml"), []byte(freeze), 0o644))
	saturday := time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC)
	wednesday := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)

	t.Run("default", func(t *testing.T) {
		b, err := LoadBlackout(&types.ProjectConfig{})
		require.NoError(t, err)
		assert.Equal(t, "default", b.Name())
	})

	t.Run("named", func(t *testing.T) {
		b, err := LoadBlackout(&types.ProjectConfig{CalendarDirs: []string{dir}, Blackout: "change-freeze"})
		require.NoError(t, err)
		assert.True(t, b.Contains(saturday))
		assert.False(t, b.Contains(wednesday))
	})

	t.Run("missing", func(t *testing.T) {
		_, err := LoadBlackout(&types.ProjectConfig{CalendarDirs: []string{dir}, Blackout: "holidays"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"holidays" not found`)
	})
}

func TestLoadCatalog(t *testing.T) {
	ctx := context.Background()

	cat, err := LoadCatalog(ctx, types.RulesConfig{}, discard())
	require.NoError(t, err)
	assert.Equal(t, "itsm-default", cat.Name())

	_, err = LoadCatalog(ctx, types.RulesConfig{Path: filepath.Join(t.TempDir(), "missing")}, discard())
	require.Error(t, err)

	cat, err = LoadCatalog(ctx, types.RulesConfig{Path: filepath.Join(t.TempDir(), "missing"), FallbackToDefaults: true}, discard())
	require.NoError(t, err)
	assert.True(t, cat.Degraded())

	_, err = LoadCatalog(ctx, types.RulesConfig{Timeout: "soon"}, discard())
	require.Error(t, err)
}

func TestLoadConfig_FileOrDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, config.FileName)
	require.NoError(t, os.WriteFile(path, []byte("sources:\n  - type: csv\n    incidents: incidents.csv\n"), 0o644))

	fromDir, err := LoadConfig(context.Background(), dir)
	require.NoError(t, err)
	fromFile, err := LoadConfig(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, fromDir, fromFile)

	_, err = LoadConfig(context.Background(), filepath.Join(dir, "nope"))
	require.Error(t, err)
}

func TestNewRunner(t *testing.T) {
	dir := t.TempDir()
	incidents := filepath.Join(dir, "incidents.csv")
	require.NoError(t, os.WriteFile(incidents, []byte(
		"Incident_ID,Category,Priority,Created_Date,Response_Date,Resolved_Date\n"+
			"INC1,Network,High,2026-03-02 09:00:00,2026-03-02 09:30:00,2026-03-02 23:00:00\n"), 0o644))

	cfg := &types.ProjectConfig{
		Sources: []types.SourceConfig{{Type: types.SourceCSV, Incidents: incidents}},
		Alerts:  []types.AlertConfig{{Type: types.AlertConsole}},
	}
	runner, cleanup, err := NewRunner(context.Background(), cfg, discard(), io.Discard)
	require.NoError(t, err)
	defer cleanup()

	rep, err := runner.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, rep.Results, 1)
	assert.Equal(t, types.NonCompliant, rep.Results[0].Status())

	cfg.RiskWindow = "-1h"
	_, _, err = NewRunner(context.Background(), cfg, discard(), io.Discard)
	require.Error(t, err)

	cfg.RiskWindow = ""
	cfg.Alerts = []types.AlertConfig{{Type: types.AlertWebhook}}
	_, _, err = NewRunner(context.Background(), cfg, discard(), io.Discard)
	require.Error(t, err)
}
