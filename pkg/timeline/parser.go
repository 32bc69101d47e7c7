// Package timeline turns session transcripts into display-ready action
// timelines and cheap session summaries.
package timeline

import (
	"bytes"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/grovetools/telemetry/errors"
	"github.com/grovetools/telemetry/pkg/models"
	"github.com/grovetools/telemetry/pkg/transcripts"
)

// DefaultActionCap bounds a detail parse.
const DefaultActionCap = 500

// LabelLength is the maximum length of an extracted session label.
const LabelLength = 80

// ErrNoRecords is returned by Summarize when no line of a transcript parses.
var ErrNoRecords = stderrors.New("transcript has no parseable records")

// Parser parses transcripts. It holds no per-file state and is safe for
// concurrent use.
type Parser struct {
	actionCap int
	headBytes int
	mapper    mapper
}

// Option configures a Parser.
type Option func(*Parser)

// WithActionCap sets the default detail cap.
func WithActionCap(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.actionCap = n
		}
	}
}

// WithHeadBytes sets the window read for label extraction.
func WithHeadBytes(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.headBytes = n
		}
	}
}

// WithHome sets the home directory used for path shortening.
func WithHome(home string) Option {
	return func(p *Parser) { p.mapper.short = NewShortener(home) }
}

// NewParser creates a Parser.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		actionCap: DefaultActionCap,
		headBytes: transcripts.DefaultHeadBytes,
		mapper:    mapper{short: NewShortener("")},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ActionCap returns the parser's default cap.
func (p *Parser) ActionCap() int {
	return p.actionCap
}

// Summarize builds a list-mode timeline from the first and last non-blank
// lines of a file and its non-blank line count. It returns ErrNoRecords when
// no line parses.
func (p *Parser) Summarize(path string) (*models.SessionTimeline, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, openError(path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to stat transcript").WithDetail("path", path)
	}

	var (
		first          *transcripts.Record
		last, previous []byte
		count          int
	)
	err = transcripts.ScanLines(f, func(_ int, line []byte) bool {
		if transcripts.IsBlank(line) {
			return true
		}
		count++
		if first == nil {
			if r, err := transcripts.ParseRecord(line); err == nil {
				first = r
			}
		}
		previous = last
		last = line
		return true
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to read transcript").WithDetail("path", path)
	}

	// A live transcript may end in a partially written line.
	var final *transcripts.Record
	for _, line := range [][]byte{last, previous} {
		if line == nil {
			continue
		}
		if r, err := transcripts.ParseRecord(line); err == nil {
			final = r
			break
		}
	}
	if first == nil && final == nil {
		return nil, ErrNoRecords
	}

	var start, end time.Time
	if first != nil {
		start, _ = first.Time()
	}
	if final != nil {
		end, _ = final.Time()
	}
	start, end = settleBounds(start, end, info.ModTime())

	return &models.SessionTimeline{
		SessionID:   sessionID(path),
		FileName:    filepath.Base(path),
		StartTime:   start,
		EndTime:     end,
		ActionCount: count,
		Actions:     []models.TimelineAction{},
	}, nil
}

// ParseDetail reads the whole transcript and maps assistant records to
// actions, stopping once limit actions exist. limit <= 0 uses the parser
// default. Malformed lines are skipped.
func (p *Parser) ParseDetail(path string, limit int) (*models.SessionTimeline, error) {
	if limit <= 0 {
		limit = p.actionCap
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, openError(path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to stat transcript").WithDetail("path", path)
	}

	var (
		start, end time.Time
		actions    = make([]models.TimelineAction, 0, 64)
		ids        = idSet{}
		truncated  bool
	)
	err = transcripts.ScanLines(f, func(index int, line []byte) bool {
		if transcripts.IsBlank(line) {
			return true
		}
		r, err := transcripts.ParseRecord(line)
		if err != nil {
			return true
		}
		ts, hasTS := r.Time()
		if hasTS {
			if start.IsZero() {
				start = ts
			}
			end = ts
		}
		if r.Type != transcripts.TypeAssistant {
			return true
		}

		stamp := ts
		if !hasTS {
			stamp = end
			if stamp.IsZero() {
				stamp = info.ModTime()
			}
		}
		for _, a := range p.mapper.recordActions(r, index, ids) {
			a.Timestamp = stamp
			actions = append(actions, a)
			if len(actions) >= limit {
				truncated = true
				return false
			}
		}
		return true
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to read transcript").WithDetail("path", path)
	}

	start, end = settleBounds(start, end, info.ModTime())
	return &models.SessionTimeline{
		SessionID:   sessionID(path),
		FileName:    filepath.Base(path),
		StartTime:   start,
		EndTime:     end,
		ActionCount: len(actions),
		Actions:     actions,
		Truncated:   truncated,
	}, nil
}

// ExtractLabel returns the first user-authored plain-text message within the
// leading maxBytes of a transcript, with markup stripped and whitespace
// collapsed. It returns "" when none is found. maxBytes <= 0 uses the parser
// default.
func (p *Parser) ExtractLabel(path string, maxBytes int) (string, error) {
	if maxBytes <= 0 {
		maxBytes = p.headBytes
	}
	head, err := transcripts.ReadBounded(path, maxBytes)
	if err != nil {
		return "", err
	}
	return LabelFromHead(head), nil
}

// LabelFromHead scans raw transcript bytes for the first user prompt.
func LabelFromHead(head []byte) string {
	label := ""
	_ = transcripts.ScanLines(bytes.NewReader(head), func(_ int, line []byte) bool {
		r, err := transcripts.ParseRecord(line)
		if err != nil || r.Type != transcripts.TypeUser || r.IsMeta {
			return true
		}
		text, ok := r.PlainText()
		if !ok {
			return true
		}
		if cleaned := CleanLabel(text, LabelLength); cleaned != "" {
			label = cleaned
			return false
		}
		return true
	})
	return label
}

// settleBounds applies the mtime defaults and keeps start <= end.
func settleBounds(start, end, mtime time.Time) (time.Time, time.Time) {
	switch {
	case start.IsZero() && end.IsZero():
		start, end = mtime, mtime
	case start.IsZero():
		start = end
	case end.IsZero():
		end = start
	}
	if end.Before(start) {
		end = start
	}
	return start, end
}

func sessionID(path string) string {
	return strings.TrimSuffix(filepath.Base(path), transcripts.Extension)
}

func openError(path string, err error) error {
	if os.IsNotExist(err) {
		return errors.NotFound("transcript", path)
	}
	return errors.Wrap(err, errors.ErrCodeInternal, "failed to open transcript").WithDetail("path", path)
}
