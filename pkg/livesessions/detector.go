// Package livesessions detects running assistant sessions by correlating host
// processes with recent transcript activity in their working directories.
package livesessions

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/grovetools/telemetry/errors"
	"github.com/grovetools/telemetry/pkg/models"
	"github.com/grovetools/telemetry/pkg/process"
	"github.com/grovetools/telemetry/pkg/timeline"
	"github.com/grovetools/telemetry/pkg/transcripts"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// DefaultPattern matches a command line ending in the assistant binary.
const DefaultPattern = `(^|[\s/])claude$`

// DefaultWindow is how recently a transcript must have been written for its
// session to count as live.
const DefaultWindow = 10 * time.Minute

// ProcessLister enumerates host processes.
type ProcessLister interface {
	List(ctx context.Context) ([]process.Info, error)
}

// CwdResolver resolves a process working directory.
type CwdResolver interface {
	Resolve(ctx context.Context, pid int) (string, error)
}

// Options configures a Detector.
type Options struct {
	Lister   ProcessLister
	Resolver CwdResolver
	Store    *transcripts.Store
	Parser   *timeline.Parser
	// Pattern is matched against full command lines.
	Pattern string
	Window  time.Duration
	Now     func() time.Time
	Logger  *logrus.Entry
}

// Detector answers Poll. Each poll is independent; nothing carries over
// between polls.
type Detector struct {
	lister   ProcessLister
	resolver CwdResolver
	store    *transcripts.Store
	parser   *timeline.Parser
	pattern  *regexp.Regexp
	window   time.Duration
	now      func() time.Time
	self     int
	logger   *logrus.Entry

	group singleflight.Group
}

// New creates a Detector.
func New(opts Options) (*Detector, error) {
	pattern := opts.Pattern
	if pattern == "" {
		pattern = DefaultPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid process pattern").
			WithDetail("pattern", pattern)
	}

	d := &Detector{
		lister:   opts.Lister,
		resolver: opts.Resolver,
		store:    opts.Store,
		parser:   opts.Parser,
		pattern:  re,
		window:   opts.Window,
		now:      opts.Now,
		self:     os.Getpid(),
		logger:   opts.Logger,
	}
	if d.lister == nil {
		d.lister = process.NewLister(nil)
	}
	if d.resolver == nil {
		d.resolver = process.NewCwdResolver(nil)
	}
	if d.store == nil {
		d.store = transcripts.NewStore("", nil)
	}
	if d.parser == nil {
		d.parser = timeline.NewParser()
	}
	if d.window <= 0 {
		d.window = DefaultWindow
	}
	if d.now == nil {
		d.now = time.Now
	}
	if d.logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		d.logger = logrus.NewEntry(l)
	}
	return d, nil
}

// Poll returns the currently running sessions, newest first. Only a failure
// to list processes is an error; per-process failures degrade that process
// to an unlabelled session. Concurrent calls share one underlying poll.
func (d *Detector) Poll(ctx context.Context) ([]models.ActiveSession, error) {
	v, err, _ := d.group.Do("poll", func() (interface{}, error) {
		return d.poll(ctx)
	})
	if err != nil {
		return nil, err
	}
	shared := v.([]models.ActiveSession)
	return append([]models.ActiveSession(nil), shared...), nil
}

type candidate struct {
	info process.Info
	dir  string
}

func (d *Detector) poll(ctx context.Context) ([]models.ActiveSession, error) {
	procs, err := d.lister.List(ctx)
	if err != nil {
		return nil, err
	}

	byDir := make(map[string][]candidate)
	var sessions []models.ActiveSession
	for _, p := range procs {
		if p.PID == d.self || !d.pattern.MatchString(p.Command) {
			continue
		}
		dir, err := d.resolver.Resolve(ctx, p.PID)
		if err != nil || dir == "" {
			d.logger.WithError(err).WithField("pid", p.PID).Debug("Could not resolve working directory")
			sessions = append(sessions, newSession(p, ""))
			continue
		}
		dir = filepath.Clean(dir)
		byDir[dir] = append(byDir[dir], candidate{info: p, dir: dir})
	}

	cutoff := d.now().Add(-d.window)
	for dir, group := range byDir {
		sessions = append(sessions, d.pair(dir, group, cutoff)...)
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		return newer(sessions[i].StartTime, sessions[i].PID, sessions[j].StartTime, sessions[j].PID)
	})
	return sessions, nil
}

// pair assigns fresh transcripts of dir to its processes by recency rank:
// the newest process gets the newest transcript. When several processes share
// a directory this is a best-effort guess.
func (d *Detector) pair(dir string, group []candidate, cutoff time.Time) []models.ActiveSession {
	sort.SliceStable(group, func(i, j int) bool {
		return newer(group[i].info.StartTime, group[i].info.PID, group[j].info.StartTime, group[j].info.PID)
	})

	files, err := d.store.ListTranscripts(dir)
	if err != nil {
		d.logger.WithError(err).WithField("dir", dir).Debug("Could not list transcripts")
		files = nil
	}
	var fresh []models.TranscriptFile
	for _, f := range files {
		if !f.ModTime.Before(cutoff) {
			fresh = append(fresh, f)
		}
	}

	out := make([]models.ActiveSession, 0, len(group))
	for i, c := range group {
		s := newSession(c.info, c.dir)
		if i < len(fresh) {
			s.TranscriptID = fresh[i].SessionID
			label, err := d.parser.ExtractLabel(fresh[i].FilePath, 0)
			if err == nil && label != "" {
				s.SessionLabel = &label
			}
		}
		out = append(out, s)
	}
	return out
}

func newSession(p process.Info, dir string) models.ActiveSession {
	return models.ActiveSession{
		PID:         p.PID,
		ProjectPath: dir,
		ProjectName: models.ProjectName(dir),
		StartTime:   p.StartTime,
		Command:     p.Command,
	}
}

func newer(ti time.Time, pi int, tj time.Time, pj int) bool {
	if !ti.Equal(tj) {
		return ti.After(tj)
	}
	return pi > pj
}
