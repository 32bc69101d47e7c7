// Package logutil locates the log files written by telemetry components.
package logutil

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/grovetools/telemetry/config"
	"github.com/grovetools/telemetry/errors"
	"github.com/grovetools/telemetry/logging"
	"github.com/grovetools/telemetry/pkg/paths"
)

// FindLogFile returns the log file of component ("telemetryd",
// "telemetry-cli"). An explicit logging.file.path in cfg wins; otherwise the
// newest dated file for the component under the logs directory is used.
func FindLogFile(cfg *config.Config, component string) (string, error) {
	var logCfg logging.Config
	if cfg != nil {
		if err := cfg.UnmarshalExtension("logging", &logCfg); err != nil {
			return "", errors.ConfigInvalid(err.Error())
		}
	}
	if logCfg.File.Disabled {
		return "", errors.New(errors.ErrCodeNotFound, "file logging is disabled").
			WithDetail("kind", "log file")
	}
	if logCfg.File.Path != "" {
		return expandHome(logCfg.File.Path), nil
	}
	return FindLatestLogFile(paths.LogsDir(), component+"-")
}

// FindLatestLogFile finds the most recently modified file in dir whose name
// starts with prefix. Files with content are preferred over empty files.
func FindLatestLogFile(dir, prefix string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.NotFound("log directory", dir)
		}
		return "", errors.Wrap(err, errors.ErrCodeInternal, "could not read log directory").
			WithDetail("dir", dir)
	}

	var latestFile os.FileInfo
	var latestPath string
	var latestNonEmptyFile os.FileInfo
	var latestNonEmptyPath string

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) || filepath.Ext(entry.Name()) != ".log" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if latestFile == nil || info.ModTime().After(latestFile.ModTime()) {
			latestFile = info
			latestPath = filepath.Join(dir, entry.Name())
		}
		if info.Size() > 0 {
			if latestNonEmptyFile == nil || info.ModTime().After(latestNonEmptyFile.ModTime()) {
				latestNonEmptyFile = info
				latestNonEmptyPath = filepath.Join(dir, entry.Name())
			}
		}
	}

	if latestNonEmptyFile != nil {
		return latestNonEmptyPath, nil
	}
	if latestFile == nil {
		return "", errors.NotFound("log file", filepath.Join(dir, prefix+"*.log"))
	}
	return latestPath, nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
