// Package transcripts locates and reads session transcripts stored as one
// directory per encoded project path, one JSONL file per session.
package transcripts

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/grovetools/telemetry/errors"
	"github.com/grovetools/telemetry/pkg/models"
	"github.com/grovetools/telemetry/pkg/paths"
	"github.com/grovetools/telemetry/pkg/pathcodec"
)

// Extension is the file extension of a transcript.
const Extension = ".jsonl"

// DefaultHeadBytes is the default window for ReadBounded.
const DefaultHeadBytes = 50 * 1024

// Store resolves transcript files under a projects root.
type Store struct {
	root  string
	codec *pathcodec.Codec
}

// NewStore creates a store rooted at root. An empty root uses
// paths.ProjectsDir(); a nil codec uses one backed by the real filesystem.
func NewStore(root string, codec *pathcodec.Codec) *Store {
	if root == "" {
		root = paths.ProjectsDir()
	}
	if codec == nil {
		codec = pathcodec.New()
	}
	return &Store{root: root, codec: codec}
}

// Root returns the projects root directory.
func (s *Store) Root() string {
	return s.root
}

// Codec returns the path codec used to decode project directories.
func (s *Store) Codec() *pathcodec.Codec {
	return s.codec
}

// ProjectDir returns the transcript directory for a decoded project path.
func (s *Store) ProjectDir(projectPath string) string {
	return filepath.Join(s.root, pathcodec.Encode(filepath.Clean(projectPath)))
}

// ListTranscripts returns the transcripts of a project, newest first. A
// missing directory yields an empty result.
func (s *Store) ListTranscripts(projectPath string) ([]models.TranscriptFile, error) {
	return s.listDir(s.ProjectDir(projectPath), projectPath)
}

// ListProject returns the transcripts of an already enumerated project.
func (s *Store) ListProject(p models.Project) ([]models.TranscriptFile, error) {
	return s.listDir(p.Dir, p.Path)
}

func (s *Store) listDir(dir, projectPath string) ([]models.TranscriptFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []models.TranscriptFile{}, nil
		}
		return nil, errors.Wrap(err, errors.ErrCodeNotFound, "failed to read transcript directory").
			WithDetail("dir", dir)
	}

	files := make([]models.TranscriptFile, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, Extension) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		files = append(files, models.TranscriptFile{
			SessionID:   strings.TrimSuffix(name, Extension),
			FilePath:    filepath.Join(dir, name),
			ProjectPath: projectPath,
			ModTime:     info.ModTime(),
			SizeBytes:   info.Size(),
		})
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].SessionID < files[j].SessionID
		}
		return files[i].ModTime.After(files[j].ModTime)
	})
	return files, nil
}

// Find returns a single transcript by session id.
func (s *Store) Find(projectPath, sessionID string) (models.TranscriptFile, error) {
	if sessionID == "" || strings.ContainsAny(sessionID, `/\`) {
		return models.TranscriptFile{}, errors.InvalidInput("session", "must be a bare session id")
	}
	path := filepath.Join(s.ProjectDir(projectPath), sessionID+Extension)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return models.TranscriptFile{}, errors.NotFound("session", sessionID).
			WithDetail("project", projectPath)
	}
	return models.TranscriptFile{
		SessionID:   sessionID,
		FilePath:    path,
		ProjectPath: projectPath,
		ModTime:     info.ModTime(),
		SizeBytes:   info.Size(),
	}, nil
}

// ListProjects enumerates project directories under the root and decodes
// their names. A missing root yields an empty result.
func (s *Store) ListProjects() ([]models.Project, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return []models.Project{}, nil
		}
		return nil, errors.Wrap(err, errors.ErrCodeNotFound, "failed to read projects root").
			WithDetail("root", s.root)
	}

	projects := make([]models.Project, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		res := s.codec.Decode(entry.Name())
		projects = append(projects, models.Project{
			EncodedName: entry.Name(),
			Path:        res.Path,
			Verified:    res.Verified,
			Dir:         filepath.Join(s.root, entry.Name()),
		})
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].Path < projects[j].Path })
	return projects, nil
}

// ReadBounded returns at most maxBytes leading bytes of a file. maxBytes <= 0
// uses DefaultHeadBytes.
func ReadBounded(path string, maxBytes int) ([]byte, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultHeadBytes
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound("transcript", path)
		}
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to open transcript").
			WithDetail("path", path)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, int64(maxBytes)))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to read transcript").
			WithDetail("path", path)
	}
	return data, nil
}
