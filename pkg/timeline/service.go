package timeline

import (
	"context"
	stderrors "errors"
	"io"
	"runtime"

	"github.com/grovetools/telemetry/pkg/models"
	"github.com/grovetools/telemetry/pkg/transcripts"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Service answers timeline queries for projects in a transcript store.
type Service struct {
	store   *transcripts.Store
	parser  *Parser
	workers int
	logger  *logrus.Entry
}

// NewService creates a Service. A nil logger discards log output.
func NewService(store *transcripts.Store, parser *Parser, logger *logrus.Entry) *Service {
	if parser == nil {
		parser = NewParser()
	}
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = logrus.NewEntry(l)
	}
	return &Service{
		store:   store,
		parser:  parser,
		workers: runtime.GOMAXPROCS(0),
		logger:  logger,
	}
}

// Parser returns the service's parser.
func (s *Service) Parser() *Parser {
	return s.parser
}

// ListSessions summarises every transcript of a project in parallel, newest
// first. Unreadable or empty transcripts are skipped.
func (s *Service) ListSessions(ctx context.Context, projectPath string) ([]models.SessionTimeline, error) {
	files, err := s.store.ListTranscripts(projectPath)
	if err != nil {
		return nil, err
	}

	results := make([]*models.SessionTimeline, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			summary, err := s.parser.Summarize(file.FilePath)
			if err != nil {
				if !stderrors.Is(err, ErrNoRecords) {
					s.logger.WithError(err).WithField("file", file.FilePath).Debug("Skipping transcript")
				}
				return nil
			}
			if label, err := s.parser.ExtractLabel(file.FilePath, 0); err == nil {
				summary.Label = label
			}
			results[i] = summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sessions := make([]models.SessionTimeline, 0, len(results))
	for _, r := range results {
		if r != nil {
			sessions = append(sessions, *r)
		}
	}
	return sessions, nil
}

// Detail parses one session and applies filter to its actions. limit <= 0
// uses the parser default.
func (s *Service) Detail(projectPath, sessionID string, filter Filter, limit int) (*models.SessionTimeline, error) {
	file, err := s.store.Find(projectPath, sessionID)
	if err != nil {
		return nil, err
	}
	tl, err := s.parser.ParseDetail(file.FilePath, limit)
	if err != nil {
		return nil, err
	}
	tl.Actions = filter.Apply(tl.Actions)
	tl.ActionCount = len(tl.Actions)
	if label, err := s.parser.ExtractLabel(file.FilePath, 0); err == nil {
		tl.Label = label
	}
	return tl, nil
}
