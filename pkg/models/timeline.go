package models

import "time"

// ActionKind categorizes a TimelineAction.
type ActionKind string

const (
	ActionFileRead  ActionKind = "file_read"
	ActionFileWrite ActionKind = "file_write"
	ActionFileEdit  ActionKind = "file_edit"
	ActionCommand   ActionKind = "command"
	ActionText      ActionKind = "text"
	ActionError     ActionKind = "error"
)

// IsFileKind reports whether k touches files.
func (k ActionKind) IsFileKind() bool {
	return k == ActionFileRead || k == ActionFileWrite || k == ActionFileEdit
}

// TimelineAction is one display-ready event extracted from a transcript.
type TimelineAction struct {
	ID          string     `json:"id"`
	Timestamp   time.Time  `json:"timestamp"`
	Kind        ActionKind `json:"kind"`
	Description string     `json:"description"`
	FilePath    string     `json:"file_path,omitempty"`
	Detail      string     `json:"detail,omitempty"`
}

// SessionTimeline describes one session. Actions is empty for summaries and
// populated, up to a cap, for detail views.
type SessionTimeline struct {
	SessionID   string           `json:"session_id"`
	FileName    string           `json:"file_name"`
	StartTime   time.Time        `json:"start_time"`
	EndTime     time.Time        `json:"end_time"`
	ActionCount int              `json:"action_count"`
	Actions     []TimelineAction `json:"actions"`
	Label       string           `json:"label,omitempty"`
	// Truncated is set when a detail parse stopped at its cap.
	Truncated bool `json:"truncated,omitempty"`
}

// Duration returns EndTime - StartTime.
func (s *SessionTimeline) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}
