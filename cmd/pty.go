package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/grovetools/telemetry/cli"
	"github.com/grovetools/telemetry/errors"
	"github.com/grovetools/telemetry/logging"
	"github.com/grovetools/telemetry/pkg/daemon"
	"github.com/grovetools/telemetry/pkg/pty"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// detachKey is Ctrl-].
const detachKey = 0x1d

// NewPtyCmd returns the pty command with its subcommands.
func NewPtyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pty",
		Short: "Manage pseudo-terminal sessions hosted by the daemon",
		Long: `Manage pseudo-terminal sessions hosted by the daemon. Sessions outlive the
client that created them until they exit or are killed.`,
	}
	cmd.AddCommand(newPtyCreateCmd())
	cmd.AddCommand(newPtyListCmd())
	cmd.AddCommand(newPtyKillCmd())
	cmd.AddCommand(newPtyResizeCmd())
	cmd.AddCommand(newPtySendCmd())
	cmd.AddCommand(newPtyAttachCmd())
	return cmd
}

func newPtyCreateCmd() *cobra.Command {
	var (
		opts     pty.CreateOptions
		doAttach bool
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Spawn a shell in a new pseudo-terminal",
		Long: `Spawn a shell in a new pseudo-terminal and print its id.

Examples:
  telemetry pty create --cwd ~/src/app
  telemetry pty create --seed "claude --resume" --attach`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := connect(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			if opts.Cwd == "" {
				if opts.Cwd, err = os.Getwd(); err != nil {
					return err
				}
			}
			if doAttach && opts.Cols == 0 {
				if cols, rows, err := term.GetSize(int(os.Stdin.Fd())); err == nil {
					opts.Cols, opts.Rows = cols, rows
				}
			}

			session, err := client.CreatePty(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if doAttach {
				return attach(cmd.Context(), client, session.ID, os.Stdin, cmd.OutOrStdout())
			}
			if cli.GetOptions(cmd).JSONOutput {
				return cli.PrintJSON(cmd.OutOrStdout(), session)
			}
			fmt.Fprintln(cmd.OutOrStdout(), session.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Cwd, "cwd", "", "Working directory (default: current directory)")
	cmd.Flags().StringVar(&opts.SeedCommand, "seed", "", "Command typed into the shell once it is ready")
	cmd.Flags().IntVar(&opts.Cols, "cols", 0, "Initial width")
	cmd.Flags().IntVar(&opts.Rows, "rows", 0, "Initial height")
	cmd.Flags().BoolVarP(&doAttach, "attach", "a", false, "Attach to the new session")
	return cmd
}

func newPtyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pseudo-terminal sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := connect(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			sessions, err := client.ListPty(cmd.Context())
			if err != nil {
				return err
			}
			if cli.GetOptions(cmd).JSONOutput {
				return cli.PrintJSON(cmd.OutOrStdout(), sessions)
			}
			if len(sessions) == 0 {
				return nil
			}
			rows := make([][]string, 0, len(sessions))
			for _, s := range sessions {
				rows = append(rows, []string{
					s.ID,
					fmt.Sprint(s.PID),
					string(s.State),
					fmt.Sprintf("%dx%d", s.Cols, s.Rows),
					s.Cwd,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.NewTable([]string{"ID", "PID", "STATE", "SIZE", "CWD"}, rows, 1))
			return nil
		},
	}
}

func newPtyKillCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kill <id>",
		Short: "Terminate a pseudo-terminal session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := connect(cmd)
			if err != nil {
				return err
			}
			defer client.Close()
			if err := client.KillPty(cmd.Context(), args[0]); err != nil {
				return err
			}
			logging.NewConsole().WithWriter(cmd.ErrOrStderr()).Success("Killed " + args[0])
			return nil
		},
	}
}

func newPtyResizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resize <id> <cols> <rows>",
		Short: "Change the size of a pseudo-terminal",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cols, err := strconv.Atoi(args[1])
			if err != nil {
				return errors.InvalidInput("cols", err.Error())
			}
			rows, err := strconv.Atoi(args[2])
			if err != nil {
				return errors.InvalidInput("rows", err.Error())
			}
			client, _, err := connect(cmd)
			if err != nil {
				return err
			}
			defer client.Close()
			return client.ResizePty(cmd.Context(), args[0], cols, rows)
		},
	}
}

func newPtySendCmd() *cobra.Command {
	var noNewline bool
	cmd := &cobra.Command{
		Use:   "send <id> [text...]",
		Short: "Type text into a pseudo-terminal",
		Long: `Type text into a pseudo-terminal followed by Enter. Without text, stdin is
sent as is.

Examples:
  telemetry pty send 8d5e2c3a git status
  echo ls | telemetry pty send 8d5e2c3a`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			if len(args) > 1 {
				text := strings.Join(args[1:], " ")
				if !noNewline {
					text += "\r"
				}
				data = []byte(text)
			} else {
				var err error
				if data, err = io.ReadAll(cmd.InOrStdin()); err != nil {
					return err
				}
			}
			client, _, err := connect(cmd)
			if err != nil {
				return err
			}
			defer client.Close()
			return client.WritePty(cmd.Context(), args[0], data)
		},
	}
	cmd.Flags().BoolVarP(&noNewline, "no-newline", "n", false, "Do not press Enter after the text")
	return cmd
}

func newPtyAttachCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "attach <id>",
		Short: "Connect the terminal to a pseudo-terminal session",
		Long: `Connect the terminal to a pseudo-terminal session. Press Ctrl-] to detach
and leave the session running.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := connect(cmd)
			if err != nil {
				return err
			}
			defer client.Close()
			return attach(cmd.Context(), client, args[0], os.Stdin, cmd.OutOrStdout())
		},
	}
}

// attach relays in to the session and its output to out until the session
// exits or the user detaches.
func attach(ctx context.Context, client *daemon.RemoteClient, id string, in *os.File, out io.Writer) error {
	conn, err := client.AttachPty(ctx, id)
	if err != nil {
		return err
	}
	defer conn.Close()

	var writeMu sync.Mutex
	send := func(kind int, data []byte) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteMessage(kind, data)
	}
	sendSize := func(fd int) {
		cols, rows, err := term.GetSize(fd)
		if err != nil {
			return
		}
		msg, _ := json.Marshal(daemon.AttachMessage{Type: "resize", Cols: cols, Rows: rows})
		_ = send(websocket.TextMessage, msg)
	}

	fd := int(in.Fd())
	interactive := term.IsTerminal(fd)
	if interactive {
		state, err := term.MakeRaw(fd)
		if err != nil {
			return err
		}
		defer term.Restore(fd, state)
		sendSize(fd)

		winch := make(chan os.Signal, 1)
		signal.Notify(winch, syscall.SIGWINCH)
		defer signal.Stop(winch)
		go func() {
			for range winch {
				sendSize(fd)
			}
		}()
	}

	detached := make(chan struct{})
	go func() {
		buf := make([]byte, 4096)
		for {
			n, err := in.Read(buf)
			if n > 0 {
				chunk := buf[:n]
				if interactive {
					if i := bytes.IndexByte(chunk, detachKey); i >= 0 {
						if i > 0 {
							_ = send(websocket.BinaryMessage, chunk[:i])
						}
						close(detached)
						return
					}
				}
				if send(websocket.BinaryMessage, append([]byte(nil), chunk...)) != nil {
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()

	type result struct {
		exit *daemon.AttachMessage
		err  error
	}
	done := make(chan result, 1)
	go func() {
		for {
			kind, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					err = nil
				}
				done <- result{err: err}
				return
			}
			switch kind {
			case websocket.BinaryMessage:
				if _, err := out.Write(data); err != nil {
					done <- result{err: err}
					return
				}
			case websocket.TextMessage:
				var msg daemon.AttachMessage
				if json.Unmarshal(data, &msg) == nil && msg.Type == "exit" {
					done <- result{exit: &msg}
					return
				}
			}
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case <-detached:
		_ = send(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "detached"))
		fmt.Fprint(out, "\r\n[detached]\r\n")
		return nil
	case r := <-done:
		if r.exit != nil {
			if r.exit.Signal != "" {
				fmt.Fprintf(out, "\r\n[exited: %s]\r\n", r.exit.Signal)
			} else {
				fmt.Fprintf(out, "\r\n[exited %d]\r\n", r.exit.ExitCode)
			}
		}
		return r.err
	}
}
