package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actionsum/sac/internal/database"
	"github.com/actionsum/sac/internal/models"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := buildRoot()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sac.db")
	t.Setenv("SAC_DATABASE_PATH", dbPath)
	t.Setenv("SAC_DAEMON_PID_FILE", filepath.Join(dir, "sac.pid"))
	return dbPath
}

func seed(t *testing.T, dbPath string, labels ...string) {
	t.Helper()
	db, err := database.Connect(dbPath)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Initialize())

	repo := database.NewRepository(db)
	for _, l := range labels {
		require.NoError(t, repo.Create(&models.ActivityRecord{
			CycleID: "c", Timestamp: time.Now(), Label: l, Duration: 60, Frames: 1, Source: "x11",
		}))
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "sac dev\n", out)
}

func TestHelpListsCommands(t *testing.T) {
	out, err := execute(t, "", "--help")
	require.NoError(t, err)
	for _, name := range []string{"run", "start", "serve", "stop", "status", "once", "report", "clear"} {
		assert.Contains(t, out, name)
	}
}

func TestReport(t *testing.T) {
	dbPath := isolate(t)
	seed(t, dbPath, "coding", "coding", "email")

	out, err := execute(t, "", "report", "day")
	require.NoError(t, err)
	assert.Contains(t, out, "Activity Report - day")
	assert.Contains(t, out, "coding")

	out, err = execute(t, "", "report", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"label": "coding"`)
	assert.Contains(t, out, `"total_seconds": 180`)
}

func TestReportInvalidPeriod(t *testing.T) {
	isolate(t)
	_, err := execute(t, "", "report", "year")
	assert.Error(t, err)
}

func TestClear(t *testing.T) {
	dbPath := isolate(t)
	seed(t, dbPath, "coding")

	out, err := execute(t, "no\n", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Operation cancelled")

	out, err = execute(t, "", "clear", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Database cleared successfully")

	out, err = execute(t, "", "report", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"total_seconds": 0`)
}

func TestStopWhenNotRunning(t *testing.T) {
	isolate(t)
	out, err := execute(t, "", "stop")
	require.NoError(t, err)
	assert.Contains(t, out, "Daemon is not running")
}

func TestInvalidConfigRejected(t *testing.T) {
	isolate(t)
	t.Setenv("SAC_CLASSIFIER_KIND", "ocr")
	_, err := execute(t, "", "once")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}
