package daemon

import (
	"github.com/grovetools/telemetry/config"
	"github.com/grovetools/telemetry/pkg/livesessions"
	"github.com/grovetools/telemetry/pkg/pathcodec"
	"github.com/grovetools/telemetry/pkg/pty"
	"github.com/grovetools/telemetry/pkg/timeline"
	"github.com/grovetools/telemetry/pkg/transcripts"
	"github.com/grovetools/telemetry/pkg/usage"
	"github.com/sirupsen/logrus"
)

// Backend wires the telemetry components from a configuration. The daemon
// and LocalClient share it.
type Backend struct {
	Config   *config.Config
	Store    *transcripts.Store
	Timeline *timeline.Service
	Usage    *usage.Aggregator
	Live     *livesessions.Detector
}

// NewBackend builds every component from cfg. A nil cfg uses the defaults.
func NewBackend(cfg *config.Config, logger *logrus.Entry) (*Backend, error) {
	if cfg == nil {
		cfg = config.Defaults()
	}

	st := transcripts.NewStore(cfg.ProjectsDir, pathcodec.New())
	parser := timeline.NewParser(
		timeline.WithActionCap(cfg.Timeline.ActionCap),
		timeline.WithHeadBytes(cfg.Timeline.HeadBytes),
	)

	agg, err := usage.New(st, usage.Options{
		Pricing: usage.Pricing{
			InputPerMillion:  cfg.Usage.Pricing.InputPerMillion,
			OutputPerMillion: cfg.Usage.Pricing.OutputPerMillion,
		},
		Workers: cfg.Usage.Workers,
		Exclude: cfg.Usage.Exclude,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	det, err := livesessions.New(livesessions.Options{
		Store:   st,
		Parser:  parser,
		Pattern: cfg.Live.ProcessPattern,
		Window:  cfg.Live.Window.Std(),
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	return &Backend{
		Config:   cfg,
		Store:    st,
		Timeline: timeline.NewService(st, parser, logger),
		Usage:    agg,
		Live:     det,
	}, nil
}

// PtyOptions returns the multiplexer options from the configuration.
func (b *Backend) PtyOptions(logger *logrus.Entry) pty.Options {
	c := b.Config.Pty
	return pty.Options{
		Shell:       c.Shell,
		StripEnv:    c.StripEnv,
		SeedDelay:   c.SeedDelay.Std(),
		SeedTimeout: c.SeedTimeout.Std(),
		Cols:        c.Cols,
		Rows:        c.Rows,
		Logger:      logger,
	}
}
