// Package pty multiplexes interactive shells running on pseudo-terminals.
// The Manager's registry is the only holder of process and terminal handles;
// callers address sessions by id.
package pty

import (
	"io"
	"math"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/creack/pty"
	"github.com/google/uuid"
	"github.com/grovetools/telemetry/errors"
	"github.com/grovetools/telemetry/pkg/models"
	"github.com/sirupsen/logrus"
)

const (
	DefaultSeedDelay   = 500 * time.Millisecond
	DefaultSeedTimeout = 5 * time.Second
	DefaultCols        = 80
	DefaultRows        = 24

	// MaxDimension is the largest terminal width or height.
	MaxDimension = math.MaxUint16

	readBufferSize = 32 * 1024
	drainTimeout   = time.Second
	drainPoll      = 50 * time.Millisecond
	killGrace      = 2 * time.Second
)

// DefaultStripEnv lists variables that mark a process as running inside an
// assistant session.
var DefaultStripEnv = []string{"CLAUDECODE", "CLAUDE_CODE_ENTRYPOINT", "CLAUDE_CODE_SSE_PORT"}

// Options configures a Manager.
type Options struct {
	// Shell to spawn. Empty uses $SHELL, then /bin/sh.
	Shell string
	// StripEnv is removed from the inherited environment. Nil uses
	// DefaultStripEnv.
	StripEnv []string
	// A seed command is written once the shell has produced output and
	// SeedDelay has passed since spawn, or after SeedTimeout regardless.
	SeedDelay   time.Duration
	SeedTimeout time.Duration
	Cols        int
	Rows        int
	Logger      *logrus.Entry
}

// CreateOptions describes a new session.
type CreateOptions struct {
	// Cwd defaults to the user's home directory.
	Cwd string `json:"cwd,omitempty"`
	// SeedCommand is typed into the shell once it is ready.
	SeedCommand string `json:"seed_command,omitempty"`
	Cols        int    `json:"cols,omitempty"`
	Rows        int    `json:"rows,omitempty"`
}

type session struct {
	meta    models.PtySession
	cmd     *exec.Cmd
	tty     *os.File
	started time.Time

	firstOutput chan struct{}
	outputOnce  sync.Once
	readerDone  chan struct{}
	done        chan struct{}

	// lastRead is the UnixNano time of the latest tty read. publishing is
	// set while output is handed to subscribers.
	lastRead   atomic.Int64
	publishing atomic.Bool
}

// Manager owns every pseudo-terminal session.
type Manager struct {
	opts   Options
	logger *logrus.Entry

	mu       sync.Mutex
	sessions map[string]*session
	subs     map[*subscription]struct{}
	closed   bool
	closing  chan struct{}

	wg sync.WaitGroup
}

// NewManager creates an empty Manager.
func NewManager(opts Options) *Manager {
	if opts.StripEnv == nil {
		opts.StripEnv = DefaultStripEnv
	}
	if opts.SeedDelay <= 0 {
		opts.SeedDelay = DefaultSeedDelay
	}
	if opts.SeedTimeout <= 0 {
		opts.SeedTimeout = DefaultSeedTimeout
	}
	if opts.SeedTimeout < opts.SeedDelay {
		opts.SeedTimeout = opts.SeedDelay
	}
	if opts.Cols <= 0 {
		opts.Cols = DefaultCols
	}
	if opts.Rows <= 0 {
		opts.Rows = DefaultRows
	}
	logger := opts.Logger
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = logrus.NewEntry(l)
	}
	return &Manager{
		opts:     opts,
		logger:   logger,
		sessions: make(map[string]*session),
		subs:     make(map[*subscription]struct{}),
		closing:  make(chan struct{}),
	}
}

// Create spawns a shell and returns its session id.
func (m *Manager) Create(req CreateOptions) (string, error) {
	id := uuid.NewString()

	cwd := req.Cwd
	if cwd == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.ProcessFailed("spawn", id, err)
		}
		cwd = home
	}
	if info, err := os.Stat(cwd); err != nil || !info.IsDir() {
		return "", errors.ProcessFailed("spawn", id, err).WithDetail("cwd", cwd)
	}

	if req.Cols > MaxDimension || req.Rows > MaxDimension {
		return "", errors.InvalidInput("size", "cols and rows must not exceed 65535")
	}
	cols, rows := req.Cols, req.Rows
	if cols <= 0 {
		cols = m.opts.Cols
	}
	if rows <= 0 {
		rows = m.opts.Rows
	}

	shell := m.shell()
	cmd := exec.Command(shell)
	cmd.Dir = cwd
	cmd.Env = SanitizeEnv(os.Environ(), m.opts.StripEnv)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return "", errors.ProcessFailed("spawn", id, nil).WithDetail("reason", "manager is shut down")
	}
	m.mu.Unlock()

	tty, err := pty.StartWithSize(cmd, &pty.Winsize{Cols: uint16(cols), Rows: uint16(rows)})
	if err != nil {
		return "", errors.ProcessFailed("spawn", id, err).WithDetail("shell", shell)
	}

	s := &session{
		meta: models.PtySession{
			ID:        id,
			Cwd:       cwd,
			CreatedAt: time.Now(),
			PID:       cmd.Process.Pid,
			Shell:     shell,
			State:     models.PtyRunning,
			Cols:      cols,
			Rows:      rows,
		},
		cmd:         cmd,
		tty:         tty,
		started:     time.Now(),
		firstOutput: make(chan struct{}),
		readerDone:  make(chan struct{}),
		done:        make(chan struct{}),
	}
	s.lastRead.Store(time.Now().UnixNano())

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	m.wg.Add(2)
	go m.readLoop(s)
	go m.waitLoop(s)
	if req.SeedCommand != "" {
		m.wg.Add(1)
		go m.seed(s, req.SeedCommand)
	}

	m.logger.WithFields(logrus.Fields{"id": id, "pid": s.meta.PID, "cwd": cwd}).Info("PTY session created")
	return id, nil
}

// Write forwards raw bytes to a session's input.
func (m *Manager) Write(id string, data []byte) error {
	s, err := m.get(id)
	if err != nil {
		return err
	}
	if _, err := s.tty.Write(data); err != nil {
		return errors.ProcessFailed("write", id, err)
	}
	return nil
}

// Resize changes a session's terminal geometry.
func (m *Manager) Resize(id string, cols, rows int) error {
	if cols <= 0 || rows <= 0 {
		return errors.InvalidInput("size", "cols and rows must be positive")
	}
	if cols > MaxDimension || rows > MaxDimension {
		return errors.InvalidInput("size", "cols and rows must not exceed 65535")
	}
	s, err := m.get(id)
	if err != nil {
		return err
	}
	if err := pty.Setsize(s.tty, &pty.Winsize{Cols: uint16(cols), Rows: uint16(rows)}); err != nil {
		return errors.ProcessFailed("resize", id, err)
	}
	m.mu.Lock()
	s.meta.Cols, s.meta.Rows = cols, rows
	m.mu.Unlock()
	return nil
}

// Kill signals a session's process group and removes it from the registry
// without waiting for the process to exit.
func (m *Manager) Kill(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
		s.meta.State = models.PtyKilled
	}
	m.mu.Unlock()
	if !ok {
		return errors.NotFound("pty session", id)
	}

	m.logger.WithField("id", id).Info("Killing PTY session")
	if err := m.terminate(s); err != nil {
		return errors.ProcessFailed("kill", id, err)
	}
	return nil
}

// List returns session metadata, oldest first.
func (m *Manager) List() []models.PtySession {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.PtySession, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Get returns the metadata of one session.
func (m *Manager) Get(id string) (models.PtySession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return models.PtySession{}, errors.NotFound("pty session", id)
	}
	return s.meta, nil
}

// Subscribe registers for output and exit events of every session.
// Events arrive in order and are never dropped: a subscriber that falls far
// behind slows the sessions' readers instead. The returned function
// unsubscribes and closes the channel.
func (m *Manager) Subscribe() (<-chan models.PtyEvent, func()) {
	return m.subscribe("")
}

// SubscribeSession is Subscribe limited to the events of one session.
func (m *Manager) SubscribeSession(id string) (<-chan models.PtyEvent, func()) {
	return m.subscribe(id)
}

func (m *Manager) subscribe(session string) (<-chan models.PtyEvent, func()) {
	sub := newSubscription(session)
	m.mu.Lock()
	m.subs[sub] = struct{}{}
	m.mu.Unlock()

	return sub.out, func() {
		m.mu.Lock()
		delete(m.subs, sub)
		m.mu.Unlock()
		sub.cancel()
	}
}

// Shutdown kills every session and waits for them to exit. Errors for
// already-dead processes are ignored.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	if !m.closed {
		m.closed = true
		close(m.closing)
	}
	sessions := make([]*session, 0, len(m.sessions))
	for id, s := range m.sessions {
		s.meta.State = models.PtyKilled
		sessions = append(sessions, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		_ = m.terminate(s)
	}
	m.wg.Wait()
}

// terminate sends SIGTERM to the session's process group. Interactive shells
// ignore SIGTERM, so the group is sent SIGKILL if it is still running after a
// grace period.
func (m *Manager) terminate(s *session) error {
	if err := signalGroup(s.meta.PID, syscall.SIGTERM); err != nil {
		return err
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		select {
		case <-s.done:
		case <-time.After(killGrace):
			_ = signalGroup(s.meta.PID, syscall.SIGKILL)
		}
	}()
	return nil
}

func (m *Manager) get(id string) (*session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, errors.NotFound("pty session", id)
	}
	return s, nil
}

func (m *Manager) shell() string {
	if m.opts.Shell != "" {
		return m.opts.Shell
	}
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh
	}
	return "/bin/sh"
}

func (m *Manager) readLoop(s *session) {
	defer m.wg.Done()
	defer close(s.readerDone)

	buf := make([]byte, readBufferSize)
	for {
		n, err := s.tty.Read(buf)
		if n > 0 {
			s.lastRead.Store(time.Now().UnixNano())
			s.outputOnce.Do(func() { close(s.firstOutput) })
			data := make([]byte, n)
			copy(data, buf[:n])
			s.publishing.Store(true)
			m.publish(models.PtyEvent{Type: models.PtyEventOutput, ID: s.meta.ID, Data: data})
			s.publishing.Store(false)
		}
		if err != nil {
			return
		}
	}
}

func (m *Manager) waitLoop(s *session) {
	defer m.wg.Done()

	_ = s.cmd.Wait()
	close(s.done)

	m.drain(s)
	s.tty.Close()

	code, signal := exitStatus(s.cmd)

	m.mu.Lock()
	if current, ok := m.sessions[s.meta.ID]; ok && current == s {
		delete(m.sessions, s.meta.ID)
		s.meta.State = models.PtyExited
	}
	m.mu.Unlock()

	m.logger.WithFields(logrus.Fields{"id": s.meta.ID, "exit_code": code, "signal": signal}).Info("PTY session exited")
	m.publish(models.PtyEvent{Type: models.PtyEventExit, ID: s.meta.ID, ExitCode: code, Signal: signal})
}

// drain lets the reader finish what the shell wrote before it exited. It
// gives up once the tty has been idle for drainTimeout, since a background
// child can hold the terminal open. Time spent waiting on subscribers does
// not count as idle.
func (m *Manager) drain(s *session) {
	tick := time.NewTicker(drainPoll)
	defer tick.Stop()
	for {
		select {
		case <-s.readerDone:
			return
		case <-tick.C:
			if s.publishing.Load() {
				continue
			}
			if time.Since(time.Unix(0, s.lastRead.Load())) >= drainTimeout {
				return
			}
		}
	}
}

// seed writes the seed command once the shell is ready.
func (m *Manager) seed(s *session, command string) {
	defer m.wg.Done()

	timeout := time.NewTimer(m.opts.SeedTimeout)
	defer timeout.Stop()
	select {
	case <-s.firstOutput:
	case <-timeout.C:
	case <-s.done:
		return
	}
	if remaining := m.opts.SeedDelay - time.Since(s.started); remaining > 0 {
		select {
		case <-time.After(remaining):
		case <-s.done:
			return
		}
	}

	if _, err := s.tty.Write([]byte(strings.TrimRight(command, "\r\n") + "\r")); err != nil {
		m.logger.WithError(err).WithField("id", s.meta.ID).Warn("Failed to write seed command")
	}
}

// publish hands an event to every interested subscriber. The registry lock
// is not held while sending.
func (m *Manager) publish(ev models.PtyEvent) {
	m.mu.Lock()
	subs := make([]*subscription, 0, len(m.subs))
	for sub := range m.subs {
		if sub.wants(ev) {
			subs = append(subs, sub)
		}
	}
	m.mu.Unlock()

	for _, sub := range subs {
		sub.push(ev, m.closing)
	}
}

// SanitizeEnv returns env without the named variables.
func SanitizeEnv(env []string, strip []string) []string {
	drop := make(map[string]struct{}, len(strip))
	for _, name := range strip {
		drop[name] = struct{}{}
	}
	out := make([]string, 0, len(env)+1)
	hasTerm := false
	for _, kv := range env {
		name := kv
		if i := strings.IndexByte(kv, '='); i >= 0 {
			name = kv[:i]
		}
		if _, ok := drop[name]; ok {
			continue
		}
		if name == "TERM" {
			hasTerm = true
		}
		out = append(out, kv)
	}
	if !hasTerm {
		out = append(out, "TERM=xterm-256color")
	}
	return out
}

func exitStatus(cmd *exec.Cmd) (int, string) {
	state := cmd.ProcessState
	if state == nil {
		return -1, ""
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return -1, ws.Signal().String()
	}
	return state.ExitCode(), ""
}

// signalGroup signals the process group led by pid, falling back to the
// process alone. A process that is already gone is not an error.
func signalGroup(pid int, sig syscall.Signal) error {
	if pid <= 0 {
		return nil
	}
	err := syscall.Kill(-pid, sig)
	if err == syscall.ESRCH {
		err = syscall.Kill(pid, sig)
	}
	if err == syscall.ESRCH {
		return nil
	}
	return err
}
