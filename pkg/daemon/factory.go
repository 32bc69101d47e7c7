package daemon

import (
	"net"
	"os"
	"time"

	"github.com/grovetools/telemetry/config"
	"github.com/grovetools/telemetry/errors"
	"github.com/grovetools/telemetry/pkg/paths"
	"github.com/sirupsen/logrus"
)

// New returns a Client that will use the daemon if available,
// otherwise falls back to LocalClient.
//
// This implements the "transparent daemon" pattern: callers don't need
// to know whether the daemon is running or not. The same API works
// in both modes.
func New(cfg *config.Config, logger *logrus.Entry) (Client, error) {
	if client, err := Connect(socketPath(cfg)); err == nil {
		return client, nil
	}

	// Fallback: daemon not running, use local client
	return NewLocalClient(cfg, logger)
}

// Connect returns a RemoteClient when the daemon socket accepts connections
// and a DaemonNotRunning error otherwise. Use this where the daemon is
// required, e.g. for pseudo-terminal sessions.
func Connect(socket string) (*RemoteClient, error) {
	if socket == "" {
		socket = paths.SocketPath()
	}
	if _, err := os.Stat(socket); err != nil {
		return nil, errors.DaemonNotRunning(socket)
	}
	conn, err := net.DialTimeout("unix", socket, 100*time.Millisecond)
	if err != nil {
		return nil, errors.DaemonNotRunning(socket)
	}
	conn.Close()
	return NewRemoteClient(socket)
}

func socketPath(cfg *config.Config) string {
	if cfg != nil && cfg.Daemon.Socket != "" {
		return cfg.Daemon.Socket
	}
	return paths.SocketPath()
}
