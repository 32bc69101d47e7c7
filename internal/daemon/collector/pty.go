package collector

import (
	"context"

	"github.com/grovetools/telemetry/internal/daemon/store"
	"github.com/grovetools/telemetry/pkg/models"
)

// PtyEventSource publishes pseudo-terminal events.
type PtyEventSource interface {
	Subscribe() (<-chan models.PtyEvent, func())
}

// PtyCollector forwards PTY exit events into the store so stream clients
// learn about sessions ending.
type PtyCollector struct {
	source PtyEventSource
}

// NewPtyCollector creates a PtyCollector.
func NewPtyCollector(source PtyEventSource) *PtyCollector {
	return &PtyCollector{source: source}
}

// Name returns the collector's name.
func (c *PtyCollector) Name() string { return "pty" }

// Run forwards exit events until ctx is canceled.
func (c *PtyCollector) Run(ctx context.Context, st *store.Store, updates chan<- store.Update) error {
	events, unsubscribe := c.source.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Type != models.PtyEventExit {
				continue
			}
			if !emit(ctx, updates, store.Update{Type: store.UpdatePtyExit, Source: "pty", Payload: ev}) {
				return nil
			}
		}
	}
}
