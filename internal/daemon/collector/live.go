package collector

import (
	"context"
	"io"
	"time"

	"github.com/grovetools/telemetry/internal/daemon/store"
	"github.com/grovetools/telemetry/pkg/models"
	"github.com/sirupsen/logrus"
)

// Poller produces the current set of live sessions.
type Poller interface {
	Poll(ctx context.Context) ([]models.ActiveSession, error)
}

// LiveCollector polls for live sessions on a ticker and, when a watch root is
// set, as soon as a transcript under it changes.
type LiveCollector struct {
	poller    Poller
	interval  time.Duration
	watchRoot string
	debounce  time.Duration
	logger    *logrus.Entry
}

// NewLiveCollector creates a LiveCollector. If interval is 0, defaults to 5
// seconds. An empty watchRoot disables transcript watching.
func NewLiveCollector(poller Poller, interval time.Duration, watchRoot string, logger *logrus.Entry) *LiveCollector {
	if interval == 0 {
		interval = 5 * time.Second
	}
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = logrus.NewEntry(l)
	}
	return &LiveCollector{
		poller:    poller,
		interval:  interval,
		watchRoot: watchRoot,
		debounce:  250 * time.Millisecond,
		logger:    logger,
	}
}

// Name returns the collector's name.
func (c *LiveCollector) Name() string { return "live" }

// Run starts the live polling loop.
func (c *LiveCollector) Run(ctx context.Context, st *store.Store, updates chan<- store.Update) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	trigger := make(chan struct{}, 1)
	if c.watchRoot != "" {
		w, err := newTranscriptWatcher(c.watchRoot, c.logger)
		if err != nil {
			c.logger.WithError(err).Warn("Transcript watching disabled")
		} else {
			go w.run(ctx, trigger)
		}
	}

	scan := func() bool {
		start := time.Now()
		sessions, err := c.poller.Poll(ctx)
		if err != nil {
			c.logger.WithError(err).Warn("Live session poll failed")
			return true
		}
		if d := time.Since(start); d > time.Second {
			c.logger.WithField("duration", d).Warn("Slow live session poll detected")
		}
		return emit(ctx, updates, store.Update{
			Type:    store.UpdateLive,
			Source:  "live",
			Payload: sessions,
		})
	}

	// Initial scan
	if !scan() {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-trigger:
			// Coalesce bursts of appends into one poll.
			select {
			case <-time.After(c.debounce):
			case <-ctx.Done():
				return nil
			}
			drain(trigger)
		}
		if !scan() {
			return nil
		}
	}
}

func drain(ch chan struct{}) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}
