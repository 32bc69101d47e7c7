package collector

import (
	"context"
	"io"
	"time"

	"github.com/grovetools/telemetry/internal/daemon/store"
	"github.com/grovetools/telemetry/pkg/models"
	"github.com/sirupsen/logrus"
)

// Aggregator produces usage reports.
type Aggregator interface {
	Aggregate(ctx context.Context, windowDays int) (*models.UsageReport, error)
}

// UsageCollector periodically re-aggregates usage for the configured window.
type UsageCollector struct {
	aggregator Aggregator
	windowDays int
	interval   time.Duration
	logger     *logrus.Entry
}

// NewUsageCollector creates a UsageCollector. If interval is 0, defaults to
// one minute.
func NewUsageCollector(aggregator Aggregator, windowDays int, interval time.Duration, logger *logrus.Entry) *UsageCollector {
	if interval == 0 {
		interval = time.Minute
	}
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = logrus.NewEntry(l)
	}
	return &UsageCollector{
		aggregator: aggregator,
		windowDays: windowDays,
		interval:   interval,
		logger:     logger,
	}
}

// Name returns the collector's name.
func (c *UsageCollector) Name() string { return "usage" }

// Run starts the aggregation loop.
func (c *UsageCollector) Run(ctx context.Context, st *store.Store, updates chan<- store.Update) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	scan := func() bool {
		start := time.Now()
		report, err := c.aggregator.Aggregate(ctx, c.windowDays)
		if err != nil {
			c.logger.WithError(err).Warn("Usage aggregation failed")
			return ctx.Err() == nil
		}
		c.logger.WithFields(logrus.Fields{
			"entries":  len(report.Entries),
			"duration": time.Since(start),
		}).Debug("Usage aggregated")
		return emit(ctx, updates, store.Update{
			Type:    store.UpdateUsage,
			Source:  "usage",
			Payload: report,
		})
	}

	if !scan() {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if !scan() {
				return nil
			}
		}
	}
}
