// Package store provides the in-memory state store for the telemetry daemon.
package store

import (
	"time"

	"github.com/grovetools/telemetry/pkg/models"
)

// State is the daemon's current view of live sessions and usage.
type State struct {
	Live      []models.ActiveSession `json:"live"`
	LiveAt    time.Time              `json:"live_at"`
	Usage     *models.UsageReport    `json:"usage,omitempty"`
	UsageAt   time.Time              `json:"usage_at"`
	PtyExited int                    `json:"pty_exited"`
}

// UpdateType defines what kind of data changed.
type UpdateType string

const (
	UpdateLive         UpdateType = "live"
	UpdateUsage        UpdateType = "usage"
	UpdatePtyExit      UpdateType = "pty_exit"
	UpdateConfigReload UpdateType = "config_reload"
)

// Update represents a change to the state.
type Update struct {
	Type    UpdateType
	Source  string // Which collector sent this update (e.g. "live", "usage", "pty")
	Payload interface{}
}
