package models

import "time"

// ActiveSession is a running assistant process, recomputed on every poll.
type ActiveSession struct {
	PID         int       `json:"pid"`
	ProjectPath string    `json:"project_path,omitempty"`
	ProjectName string    `json:"project_name,omitempty"`
	StartTime   time.Time `json:"start_time"`
	Command     string    `json:"command"`
	// SessionLabel is nil when the directory could not be resolved or no
	// fresh transcript was paired with the process.
	SessionLabel *string `json:"session_label"`
	// TranscriptID is the session id of the paired transcript, if any.
	TranscriptID string `json:"transcript_id,omitempty"`
}

// HasLabel reports whether a transcript label was paired with the session.
func (s ActiveSession) HasLabel() bool {
	return s.SessionLabel != nil
}
