package logutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/grovetools/telemetry/config"
	"github.com/grovetools/telemetry/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLog(t *testing.T, dir, name, content string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	mtime := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	return path
}

func TestFindLatestLogFilePrefersNonEmpty(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "telemetryd-2024-01-01.log", "old\n", 48*time.Hour)
	want := writeLog(t, dir, "telemetryd-2024-01-02.log", "newer\n", 24*time.Hour)
	writeLog(t, dir, "telemetryd-2024-01-03.log", "", time.Hour)
	writeLog(t, dir, "telemetry-cli-2024-01-03.log", "cli\n", 0)

	got, err := FindLatestLogFile(dir, "telemetryd-")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFindLatestLogFileMissing(t *testing.T) {
	dir := t.TempDir()
	_, err := FindLatestLogFile(dir, "telemetryd-")
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))

	_, err = FindLatestLogFile(filepath.Join(dir, "absent"), "telemetryd-")
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))
}

func TestFindLogFileExplicitPath(t *testing.T) {
	cfg, err := config.LoadFromBytes([]byte("logging:\n  file:\n    path: /var/log/telemetry.log\n"), "yaml")
	require.NoError(t, err)

	got, err := FindLogFile(cfg, "telemetryd")
	require.NoError(t, err)
	assert.Equal(t, "/var/log/telemetry.log", got)
}

func TestFindLogFileDisabled(t *testing.T) {
	cfg, err := config.LoadFromBytes([]byte("logging:\n  file:\n    disabled: true\n"), "yaml")
	require.NoError(t, err)

	_, err = FindLogFile(cfg, "telemetryd")
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))
}
