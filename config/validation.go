package config

import (
	"fmt"
	"regexp"

	"github.com/grovetools/telemetry/errors"
	"github.com/moby/patternmatcher"
)

var envNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks if the configuration is semantically valid. It expects
// defaults to have been applied.
func (c *Config) Validate() error {
	if c.Timeline.ActionCap <= 0 {
		return errors.New(errors.ErrCodeConfigValidation, "timeline.action_cap must be positive").
			WithDetail("value", c.Timeline.ActionCap)
	}
	if c.Timeline.HeadBytes <= 0 {
		return errors.New(errors.ErrCodeConfigValidation, "timeline.head_bytes must be positive").
			WithDetail("value", c.Timeline.HeadBytes)
	}

	if c.Usage.WindowDays < 0 {
		return errors.New(errors.ErrCodeConfigValidation, "usage.window_days cannot be negative")
	}
	if c.Usage.Workers <= 0 {
		return errors.New(errors.ErrCodeConfigValidation, "usage.workers must be positive")
	}
	if c.Usage.Pricing.InputPerMillion < 0 || c.Usage.Pricing.OutputPerMillion < 0 {
		return errors.New(errors.ErrCodeConfigValidation, "usage.pricing rates cannot be negative")
	}
	if _, err := patternmatcher.New(c.Usage.Exclude); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigValidation, "invalid usage.exclude pattern")
	}

	if c.Live.PollInterval.Std() <= 0 {
		return errors.New(errors.ErrCodeConfigValidation, "live.poll_interval must be positive")
	}
	if c.Live.Window.Std() <= 0 {
		return errors.New(errors.ErrCodeConfigValidation, "live.window must be positive")
	}
	if _, err := regexp.Compile(c.Live.ProcessPattern); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigValidation, "invalid live.process_pattern").
			WithDetail("pattern", c.Live.ProcessPattern)
	}

	if c.Pty.SeedDelay.Std() < 0 || c.Pty.SeedTimeout.Std() < 0 {
		return errors.New(errors.ErrCodeConfigValidation, "pty seed durations cannot be negative")
	}
	if c.Pty.SeedTimeout.Std() < c.Pty.SeedDelay.Std() {
		return errors.New(errors.ErrCodeConfigValidation, "pty.seed_timeout must not be shorter than pty.seed_delay")
	}
	for _, name := range c.Pty.StripEnv {
		if !envNameRegex.MatchString(name) {
			return errors.New(errors.ErrCodeConfigValidation, fmt.Sprintf("invalid environment variable name %q in pty.strip_env", name))
		}
	}
	if c.Pty.Cols <= 0 || c.Pty.Rows <= 0 {
		return errors.New(errors.ErrCodeConfigValidation, "pty.cols and pty.rows must be positive")
	}

	if c.Daemon.UsageInterval.Std() <= 0 {
		return errors.New(errors.ErrCodeConfigValidation, "daemon.usage_interval must be positive")
	}

	return nil
}
