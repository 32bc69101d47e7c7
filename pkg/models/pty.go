package models

import "time"

// PtyState is the lifecycle state of a pseudo-terminal session.
type PtyState string

const (
	PtyCreated PtyState = "created"
	PtyRunning PtyState = "running"
	PtyExited  PtyState = "exited"
	PtyKilled  PtyState = "killed"
)

// IsTerminal reports whether s is a final state.
func (s PtyState) IsTerminal() bool {
	return s == PtyExited || s == PtyKilled
}

// PtySession is the externally visible metadata of a pseudo-terminal session.
type PtySession struct {
	ID        string    `json:"id"`
	Cwd       string    `json:"cwd"`
	CreatedAt time.Time `json:"created_at"`
	PID       int       `json:"pid"`
	Shell     string    `json:"shell"`
	State     PtyState  `json:"state"`
	Cols      int       `json:"cols"`
	Rows      int       `json:"rows"`
}

// PtyEventType distinguishes output from exit events.
type PtyEventType string

const (
	PtyEventOutput PtyEventType = "output"
	PtyEventExit   PtyEventType = "exit"
)

// PtyEvent is pushed to multiplexer subscribers.
type PtyEvent struct {
	Type     PtyEventType `json:"type"`
	ID       string       `json:"id"`
	Data     []byte       `json:"data,omitempty"`
	ExitCode int          `json:"exit_code"`
	Signal   string       `json:"signal,omitempty"`
}
