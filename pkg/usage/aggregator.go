// Package usage rolls token and cost usage up per date and project across
// every transcript in a store.
package usage

import (
	"context"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/grovetools/telemetry/errors"
	"github.com/grovetools/telemetry/pkg/models"
	"github.com/grovetools/telemetry/pkg/transcripts"
	"github.com/moby/patternmatcher"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DateLayout is the format of UsageEntry.Date.
const DateLayout = "2006-01-02"

// DefaultWorkers bounds the number of transcripts scanned at once.
const DefaultWorkers = 8

// Options configures an Aggregator.
type Options struct {
	Pricing Pricing
	Workers int
	// Exclude holds glob patterns of project paths left out of reports.
	Exclude []string
	// Now overrides the clock used for the window cutoff.
	Now    func() time.Time
	Logger *logrus.Entry
}

// Aggregator produces usage reports. It keeps no state between calls.
type Aggregator struct {
	store   *transcripts.Store
	pricing Pricing
	workers int
	exclude *patternmatcher.PatternMatcher
	now     func() time.Time
	logger  *logrus.Entry
}

// New creates an Aggregator over store.
func New(store *transcripts.Store, opts Options) (*Aggregator, error) {
	a := &Aggregator{
		store:   store,
		pricing: opts.Pricing,
		workers: opts.Workers,
		now:     opts.Now,
		logger:  opts.Logger,
	}
	if a.pricing == (Pricing{}) {
		a.pricing = DefaultPricing
	}
	if a.workers <= 0 {
		a.workers = DefaultWorkers
	}
	if a.now == nil {
		a.now = time.Now
	}
	if a.logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		a.logger = logrus.NewEntry(l)
	}
	if len(opts.Exclude) > 0 {
		patterns := make([]string, 0, len(opts.Exclude))
		for _, p := range opts.Exclude {
			patterns = append(patterns, relativePattern(p))
		}
		pm, err := patternmatcher.New(patterns)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid exclude pattern")
		}
		a.exclude = pm
	}
	return a, nil
}

// Pricing returns the rates used for derived cost.
func (a *Aggregator) Pricing() Pricing {
	return a.pricing
}

// Aggregate scans every transcript modified within the last windowDays days
// (windowDays <= 0 means all time) across all projects.
func (a *Aggregator) Aggregate(ctx context.Context, windowDays int) (*models.UsageReport, error) {
	projects, err := a.store.ListProjects()
	if err != nil {
		return nil, err
	}

	var cutoff time.Time
	if windowDays > 0 {
		cutoff = a.now().AddDate(0, 0, -windowDays)
	}

	var files []models.TranscriptFile
	for _, p := range projects {
		if a.excluded(p.Path) {
			continue
		}
		list, err := a.store.ListProject(p)
		if err != nil {
			a.logger.WithError(err).WithField("project", p.Path).Debug("Skipping project")
			continue
		}
		for _, f := range list {
			if !cutoff.IsZero() && f.ModTime.Before(cutoff) {
				continue
			}
			files = append(files, f)
		}
	}

	report, err := a.AggregateFiles(ctx, files)
	if err != nil {
		return nil, err
	}
	report.WindowDays = windowDays
	return report, nil
}

// AggregateFiles scans the given transcripts in parallel and merges them.
// The result does not depend on the order of files.
func (a *Aggregator) AggregateFiles(ctx context.Context, files []models.TranscriptFile) (*models.UsageReport, error) {
	results := make([]*models.UsageTotals, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			u, err := ScanFile(file.FilePath)
			if err != nil {
				a.logger.WithError(err).WithField("file", file.FilePath).Debug("Skipping transcript")
				return nil
			}
			if u.IsZero() {
				return nil
			}
			totals := u.Totals(a.pricing)
			results[i] = &totals
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byKey := make(map[models.UsageKey]*models.UsageEntry)
	for i, totals := range results {
		if totals == nil {
			continue
		}
		file := files[i]
		key := models.UsageKey{
			Date:        file.ModTime.Local().Format(DateLayout),
			ProjectPath: file.ProjectPath,
		}
		entry, ok := byKey[key]
		if !ok {
			entry = &models.UsageEntry{
				Date:        key.Date,
				ProjectPath: key.ProjectPath,
				ProjectName: models.ProjectName(key.ProjectPath),
			}
			byKey[key] = entry
		}
		entry.Merge(*totals)
	}

	report := &models.UsageReport{
		Entries:     make([]models.UsageEntry, 0, len(byKey)),
		GeneratedAt: a.now(),
	}
	var sum models.UsageTotals
	for _, e := range byKey {
		report.Entries = append(report.Entries, *e)
		sum = sum.Add(e.UsageTotals)
	}
	sort.Slice(report.Entries, func(i, j int) bool {
		ei, ej := report.Entries[i], report.Entries[j]
		if ei.Date != ej.Date {
			return ei.Date > ej.Date
		}
		return ei.ProjectPath < ej.ProjectPath
	})
	report.Totals = models.UsageSummary{UsageTotals: sum, CostUSD: sum.CostUSD()}
	return report, nil
}

func (a *Aggregator) excluded(path string) bool {
	if a.exclude == nil {
		return false
	}
	matched, err := a.exclude.MatchesOrParentMatches(relativePattern(path))
	return err == nil && matched
}

// relativePattern strips the leading separator so absolute patterns and paths
// compare the way patternmatcher expects.
func relativePattern(p string) string {
	neg := strings.HasPrefix(p, "!")
	p = strings.TrimPrefix(p, "!")
	p = strings.TrimLeft(filepath.ToSlash(p), "/")
	if neg {
		return "!" + p
	}
	return p
}
