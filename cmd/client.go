package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/grovetools/telemetry/cli"
	"github.com/grovetools/telemetry/config"
	"github.com/grovetools/telemetry/pkg/daemon"
	"github.com/grovetools/telemetry/pkg/profiling"
	"github.com/spf13/cobra"
)

// newClient loads the configuration and returns the daemon client, falling
// back to in-process calls when the daemon is not running.
func newClient(cmd *cobra.Command) (daemon.Client, *config.Config, error) {
	defer profiling.Start("client").Stop()
	cfg, err := cli.LoadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	client, err := daemon.New(cfg, cli.GetLogger(cmd))
	if err != nil {
		return nil, nil, err
	}
	return client, cfg, nil
}

// connect loads the configuration and requires a running daemon.
func connect(cmd *cobra.Command) (*daemon.RemoteClient, *config.Config, error) {
	cfg, err := cli.LoadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	client, err := daemon.Connect(cfg.Daemon.Socket)
	if err != nil {
		return nil, nil, err
	}
	return client, cfg, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// projectArg resolves the optional project argument, defaulting to the
// working directory.
func projectArg(args []string, index int) (string, error) {
	if len(args) > index && args[index] != "" {
		return filepath.Abs(args[index])
	}
	return os.Getwd()
}
