// Package engine orchestrates background collectors for the daemon.
package engine

import (
	"context"
	"sync"

	"github.com/grovetools/telemetry/internal/daemon/collector"
	"github.com/grovetools/telemetry/internal/daemon/store"
	"github.com/sirupsen/logrus"
)

// Engine manages and runs all collectors.
type Engine struct {
	store      *store.Store
	collectors []collector.Collector
	logger     *logrus.Entry
}

// New creates a new Engine instance.
func New(st *store.Store, logger *logrus.Entry) *Engine {
	return &Engine{
		store:  st,
		logger: logger,
	}
}

// Register adds a collector to the engine.
func (e *Engine) Register(c collector.Collector) {
	e.collectors = append(e.collectors, c)
}

// Collectors returns the names of the registered collectors.
func (e *Engine) Collectors() []string {
	names := make([]string, 0, len(e.collectors))
	for _, c := range e.collectors {
		names = append(names, c.Name())
	}
	return names
}

// Start runs all collectors and blocks until context is canceled and every
// collector has returned.
func (e *Engine) Start(ctx context.Context) {
	updates := make(chan store.Update, 100)

	// 1. Start Update Consumer
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		for u := range updates {
			e.store.ApplyUpdate(u)
		}
	}()

	// 2. Start Collectors
	var wg sync.WaitGroup
	for _, c := range e.collectors {
		wg.Add(1)
		go func(col collector.Collector) {
			defer wg.Done()
			e.logger.WithField("collector", col.Name()).Info("Starting collector")
			if err := col.Run(ctx, e.store, updates); err != nil {
				e.logger.WithField("collector", col.Name()).WithError(err).Error("Collector failed")
			}
		}(c)
	}

	wg.Wait()
	close(updates)
	<-consumerDone
}

// Store returns the engine's state store.
func (e *Engine) Store() *store.Store {
	return e.store
}
