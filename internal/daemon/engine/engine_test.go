package engine

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/grovetools/telemetry/internal/daemon/store"
	"github.com/grovetools/telemetry/pkg/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

type oneShot struct {
	name string
	u    store.Update
}

func (c oneShot) Name() string { return c.name }

func (c oneShot) Run(ctx context.Context, st *store.Store, updates chan<- store.Update) error {
	updates <- c.u
	<-ctx.Done()
	return nil
}

func TestEngineAppliesUpdates(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	st := store.New()
	eng := New(st, logrus.NewEntry(logger))
	eng.Register(oneShot{name: "live", u: store.Update{Type: store.UpdateLive, Payload: []models.ActiveSession{{PID: 9}}}})
	eng.Register(oneShot{name: "usage", u: store.Update{Type: store.UpdateUsage, Payload: &models.UsageReport{WindowDays: 3}}})
	assert.Equal(t, []string{"live", "usage"}, eng.Collectors())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		eng.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		live, _ := eng.Store().GetLive()
		return len(live) == 1 && st.GetUsage() != nil
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not stop")
	}
}
