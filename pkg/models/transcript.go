package models

import "time"

// TranscriptFile is one append-only session log on disk. The engine only ever
// reads it.
type TranscriptFile struct {
	SessionID   string    `json:"session_id"`
	FilePath    string    `json:"file_path"`
	ProjectPath string    `json:"project_path"`
	ModTime     time.Time `json:"mtime"`
	SizeBytes   int64     `json:"size_bytes"`
}

// Project is one transcript directory under the projects root.
type Project struct {
	EncodedName string `json:"encoded_name"`
	Path        string `json:"path"`
	// Verified is false when Path is the naive reconstruction because no
	// candidate path existed on disk.
	Verified bool   `json:"verified"`
	Dir      string `json:"dir"`
}

// Name returns the last segment of the project path.
func (p Project) Name() string {
	return ProjectName(p.Path)
}
