package cmd

import (
	"context"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/grovetools/telemetry/cli"
	"github.com/grovetools/telemetry/internal/daemon/collector"
	"github.com/grovetools/telemetry/internal/daemon/engine"
	"github.com/grovetools/telemetry/internal/daemon/pidfile"
	"github.com/grovetools/telemetry/internal/daemon/server"
	"github.com/grovetools/telemetry/internal/daemon/store"
	"github.com/grovetools/telemetry/logging"
	"github.com/grovetools/telemetry/pkg/daemon"
	"github.com/grovetools/telemetry/pkg/paths"
	"github.com/grovetools/telemetry/pkg/pty"
	"github.com/spf13/cobra"
)

// NewDaemonCmd returns the daemon command with subcommands.
func NewDaemonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the telemetry daemon",
		Long: `The daemon keeps live sessions and usage fresh in the background, streams
updates to clients and hosts pseudo-terminal sessions.`,
	}

	cmd.AddCommand(newDaemonStartCmd())
	cmd.AddCommand(newDaemonStopCmd())
	cmd.AddCommand(newDaemonStatusCmd())

	return cmd
}

func newDaemonStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the daemon",
		Long:  "Start the telemetry daemon in foreground mode.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			logger := logging.NewLogger("telemetryd")
			pidPath := paths.PidFilePath()
			sockPath := cfg.Daemon.Socket

			// 1. Acquire Lock
			if err := pidfile.Acquire(pidPath); err != nil {
				return err
			}
			defer func() {
				if err := pidfile.Release(pidPath); err != nil {
					logger.Errorf("Failed to release pidfile: %v", err)
				}
			}()

			// 2. Components
			backend, err := daemon.NewBackend(cfg, logger)
			if err != nil {
				return err
			}
			ptys := pty.NewManager(backend.PtyOptions(logging.NewLogger("telemetryd.pty")))
			defer ptys.Shutdown()

			// 3. Store and Engine
			st := store.New()
			eng := engine.New(st, logger)

			watchRoot := ""
			if *cfg.Daemon.WatchTranscripts {
				watchRoot = cfg.ProjectsDir
			}
			eng.Register(collector.NewLiveCollector(backend.Live, cfg.Live.PollInterval.Std(), watchRoot, logger))
			eng.Register(collector.NewUsageCollector(backend.Usage, cfg.Usage.WindowDays, cfg.Daemon.UsageInterval.Std(), logger))
			eng.Register(collector.NewPtyCollector(ptys))

			// 4. Server
			srv := server.New(backend, ptys, logger)
			srv.SetEngine(eng)
			srv.SetRunningConfig(&server.RunningConfig{
				ProjectsDir:      cfg.ProjectsDir,
				LivePollInterval: cfg.Live.PollInterval.Std(),
				UsageInterval:    cfg.Daemon.UsageInterval.Std(),
				UsageWindowDays:  cfg.Usage.WindowDays,
				WatchTranscripts: watchRoot != "",
				Collectors:       eng.Collectors(),
				StartedAt:        time.Now(),
			})

			// 5. Signals
			ctx, cancel := signalContext(context.Background())
			defer cancel()

			// 6. Config watcher: clients are told to reload; the daemon keeps
			// its running configuration until restarted.
			if watcher, err := daemon.NewConfigWatcher("", 0, st.BroadcastConfigReload, logger); err != nil {
				logger.WithError(err).Warn("Config watching disabled")
			} else {
				go watcher.Start(ctx)
			}

			engineDone := make(chan struct{})
			go func() {
				defer close(engineDone)
				eng.Start(ctx)
			}()

			serveErr := make(chan error, 1)
			go func() {
				serveErr <- srv.ListenAndServe(sockPath)
			}()
			logger.WithField("pid", os.Getpid()).WithField("socket", sockPath).Info("Starting daemon")

			var runErr error
			select {
			case <-ctx.Done():
				logger.Info("Received stop signal")
			case runErr = <-serveErr:
				cancel()
			}

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			ptys.Shutdown()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Errorf("Server shutdown error: %v", err)
			}
			<-engineDone
			_ = os.Remove(sockPath)

			if runErr != nil {
				return fmt.Errorf("server error: %w", runErr)
			}
			return nil
		},
	}
}

func newDaemonStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pidPath := paths.PidFilePath()

			running, pid, err := pidfile.IsRunning(pidPath)
			if err != nil {
				return fmt.Errorf("error checking status: %w", err)
			}

			console := logging.NewConsole().WithWriter(cmd.OutOrStdout())
			if !running {
				console.Info("Daemon is not running")
				return nil
			}

			process, err := os.FindProcess(pid)
			if err != nil {
				return fmt.Errorf("failed to find process %d: %w", pid, err)
			}

			if err := process.Signal(syscall.SIGTERM); err != nil {
				return fmt.Errorf("failed to send stop signal: %w", err)
			}

			console.Success(fmt.Sprintf("Sent SIGTERM to process %d", pid))
			return nil
		},
	}
}

func newDaemonStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check daemon status",
		Long:  "Check daemon status. Exits non-zero when the daemon is stopped.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			running, pid, err := pidfile.IsRunning(paths.PidFilePath())
			if err != nil {
				return fmt.Errorf("error: %w", err)
			}

			status := map[string]interface{}{
				"running": running,
				"pid":     pid,
				"socket":  cfg.Daemon.Socket,
			}
			if running {
				if client, err := daemon.Connect(cfg.Daemon.Socket); err == nil {
					status["responding"] = client.IsRunning()
					client.Close()
				} else {
					status["responding"] = false
				}
			}

			if cli.GetOptions(cmd).JSONOutput {
				if err := cli.PrintJSON(cmd.OutOrStdout(), status); err != nil {
					return err
				}
			} else {
				console := logging.NewConsole().WithWriter(cmd.OutOrStdout())
				if running {
					console.Success("Running")
					console.Field("pid", pid)
					console.Path("socket", cfg.Daemon.Socket)
					if status["responding"] == false {
						console.Warn("Socket is not answering")
					}
				} else {
					console.Info("Stopped")
				}
			}
			if !running {
				// Non-zero for stopped state, useful for scripts.
				os.Exit(1)
			}
			return nil
		},
	}
}
