package config

import (
	"fmt"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/mitchellh/mapstructure"
)

// Duration is a time.Duration that reads and writes as a Go duration string
// ("5s", "10m") in YAML, TOML and JSON.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(v)
	return nil
}

// JSONSchema describes Duration as a duration string.
func (Duration) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Pattern:     `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`,
		Description: "Go duration string, e.g. 5s or 10m",
	}
}

// TimelineConfig controls transcript parsing.
type TimelineConfig struct {
	ActionCap int `yaml:"action_cap,omitempty" toml:"action_cap,omitempty" json:"action_cap,omitempty" jsonschema:"description=Maximum actions returned by a detail parse (default 500),minimum=1"`
	HeadBytes int `yaml:"head_bytes,omitempty" toml:"head_bytes,omitempty" json:"head_bytes,omitempty" jsonschema:"description=Bytes read from the head of a transcript for label extraction (default 51200),minimum=1"`
}

// PricingConfig holds per-million-token rates used when a transcript carries
// token counts but no explicit cost.
type PricingConfig struct {
	InputPerMillion  float64 `yaml:"input_per_million,omitempty" toml:"input_per_million,omitempty" json:"input_per_million,omitempty" jsonschema:"description=USD per million input tokens (default 3),minimum=0"`
	OutputPerMillion float64 `yaml:"output_per_million,omitempty" toml:"output_per_million,omitempty" json:"output_per_million,omitempty" jsonschema:"description=USD per million output tokens (default 15),minimum=0"`
}

// UsageConfig controls usage aggregation.
type UsageConfig struct {
	WindowDays int           `yaml:"window_days,omitempty" toml:"window_days,omitempty" json:"window_days,omitempty" jsonschema:"description=Default aggregation window in days (default 30)"`
	Workers    int           `yaml:"workers,omitempty" toml:"workers,omitempty" json:"workers,omitempty" jsonschema:"description=Parallel transcript scanners (default 8),minimum=1"`
	Exclude    []string      `yaml:"exclude,omitempty" toml:"exclude,omitempty" json:"exclude,omitempty" jsonschema:"description=Glob patterns of project paths to leave out of usage reports"`
	Pricing    PricingConfig `yaml:"pricing,omitempty" toml:"pricing,omitempty" json:"pricing,omitempty" jsonschema:"description=Token pricing used to derive cost"`
}

// LiveConfig controls live session detection.
type LiveConfig struct {
	PollInterval   Duration `yaml:"poll_interval,omitempty" toml:"poll_interval,omitempty" json:"poll_interval,omitempty" jsonschema:"description=Interval between live session polls in the daemon (default 5s)"`
	Window         Duration `yaml:"window,omitempty" toml:"window,omitempty" json:"window,omitempty" jsonschema:"description=Transcripts older than this are treated as dead sessions (default 10m)"`
	ProcessPattern string   `yaml:"process_pattern,omitempty" toml:"process_pattern,omitempty" json:"process_pattern,omitempty" jsonschema:"description=Trailing-anchored regular expression matched against process command lines"`
}

// PtyConfig controls the pseudo-terminal multiplexer.
type PtyConfig struct {
	Shell       string   `yaml:"shell,omitempty" toml:"shell,omitempty" json:"shell,omitempty" jsonschema:"description=Shell to spawn (default $SHELL then /bin/sh)"`
	SeedDelay   Duration `yaml:"seed_delay,omitempty" toml:"seed_delay,omitempty" json:"seed_delay,omitempty" jsonschema:"description=Minimum delay after spawn before a seed command is written (default 500ms)"`
	SeedTimeout Duration `yaml:"seed_timeout,omitempty" toml:"seed_timeout,omitempty" json:"seed_timeout,omitempty" jsonschema:"description=Write the seed command even without shell output after this long (default 5s)"`
	StripEnv    []string `yaml:"strip_env,omitempty" toml:"strip_env,omitempty" json:"strip_env,omitempty" jsonschema:"description=Environment variables removed from spawned shells"`
	Cols        int      `yaml:"cols,omitempty" toml:"cols,omitempty" json:"cols,omitempty" jsonschema:"description=Initial terminal width (default 80),minimum=1"`
	Rows        int      `yaml:"rows,omitempty" toml:"rows,omitempty" json:"rows,omitempty" jsonschema:"description=Initial terminal height (default 24),minimum=1"`
}

// DaemonConfig controls the telemetry daemon.
type DaemonConfig struct {
	Socket           string   `yaml:"socket,omitempty" toml:"socket,omitempty" json:"socket,omitempty" jsonschema:"description=Unix socket path (default $XDG_RUNTIME_DIR/grove/telemetryd.sock)"`
	UsageInterval    Duration `yaml:"usage_interval,omitempty" toml:"usage_interval,omitempty" json:"usage_interval,omitempty" jsonschema:"description=Interval between usage re-aggregations (default 1m)"`
	WatchTranscripts *bool    `yaml:"watch_transcripts,omitempty" toml:"watch_transcripts,omitempty" json:"watch_transcripts,omitempty" jsonschema:"description=Trigger an immediate live poll when transcripts change (default true)"`
}

// Config is the telemetry configuration.
type Config struct {
	Version     string         `yaml:"version" toml:"version" json:"version" jsonschema:"description=Configuration version (e.g. '1.0')"`
	ProjectsDir string         `yaml:"projects_dir,omitempty" toml:"projects_dir,omitempty" json:"projects_dir,omitempty" jsonschema:"description=Directory containing one transcript directory per encoded project path"`
	Timeline    TimelineConfig `yaml:"timeline,omitempty" toml:"timeline,omitempty" json:"timeline,omitempty"`
	Usage       UsageConfig    `yaml:"usage,omitempty" toml:"usage,omitempty" json:"usage,omitempty"`
	Live        LiveConfig     `yaml:"live,omitempty" toml:"live,omitempty" json:"live,omitempty"`
	Pty         PtyConfig      `yaml:"pty,omitempty" toml:"pty,omitempty" json:"pty,omitempty"`
	Daemon      DaemonConfig   `yaml:"daemon,omitempty" toml:"daemon,omitempty" json:"daemon,omitempty"`

	// Extensions captures all other top-level keys (e.g. "logging").
	Extensions map[string]interface{} `yaml:",inline" toml:"-" json:"-" jsonschema:"-"`
}

// Default values.
const (
	DefaultVersion        = "1.0"
	DefaultActionCap      = 500
	DefaultHeadBytes      = 50 * 1024
	DefaultWindowDays     = 30
	DefaultWorkers        = 8
	DefaultInputRate      = 3.0
	DefaultOutputRate     = 15.0
	DefaultPollInterval   = 5 * time.Second
	DefaultLiveWindow     = 10 * time.Minute
	DefaultProcessPattern = `(^|[\s/])claude$`
	DefaultSeedDelay      = 500 * time.Millisecond
	DefaultSeedTimeout    = 5 * time.Second
	DefaultCols           = 80
	DefaultRows           = 24
	DefaultUsageInterval  = time.Minute
)

// DefaultStripEnv lists the session marker variables that must not leak into
// nested shells.
var DefaultStripEnv = []string{"CLAUDECODE", "CLAUDE_CODE_ENTRYPOINT", "CLAUDE_CODE_SSE_PORT"}

// SetDefaults fills every unset field with its default.
func (c *Config) SetDefaults() {
	if c.Version == "" {
		c.Version = DefaultVersion
	}
	if c.Timeline.ActionCap == 0 {
		c.Timeline.ActionCap = DefaultActionCap
	}
	if c.Timeline.HeadBytes == 0 {
		c.Timeline.HeadBytes = DefaultHeadBytes
	}
	if c.Usage.WindowDays == 0 {
		c.Usage.WindowDays = DefaultWindowDays
	}
	if c.Usage.Workers == 0 {
		c.Usage.Workers = DefaultWorkers
	}
	if c.Usage.Pricing.InputPerMillion == 0 {
		c.Usage.Pricing.InputPerMillion = DefaultInputRate
	}
	if c.Usage.Pricing.OutputPerMillion == 0 {
		c.Usage.Pricing.OutputPerMillion = DefaultOutputRate
	}
	if c.Live.PollInterval == 0 {
		c.Live.PollInterval = Duration(DefaultPollInterval)
	}
	if c.Live.Window == 0 {
		c.Live.Window = Duration(DefaultLiveWindow)
	}
	if c.Live.ProcessPattern == "" {
		c.Live.ProcessPattern = DefaultProcessPattern
	}
	if c.Pty.SeedDelay == 0 {
		c.Pty.SeedDelay = Duration(DefaultSeedDelay)
	}
	if c.Pty.SeedTimeout == 0 {
		c.Pty.SeedTimeout = Duration(DefaultSeedTimeout)
	}
	if c.Pty.StripEnv == nil {
		c.Pty.StripEnv = append([]string(nil), DefaultStripEnv...)
	}
	if c.Pty.Cols == 0 {
		c.Pty.Cols = DefaultCols
	}
	if c.Pty.Rows == 0 {
		c.Pty.Rows = DefaultRows
	}
	if c.Daemon.UsageInterval == 0 {
		c.Daemon.UsageInterval = Duration(DefaultUsageInterval)
	}
	if c.Daemon.WatchTranscripts == nil {
		watch := true
		c.Daemon.WatchTranscripts = &watch
	}
}

// Defaults returns a configuration with every default applied.
func Defaults() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// UnmarshalExtension decodes a specific extension's configuration from the
// loaded file into the provided target struct. The target must be a pointer.
//
// Example:
//
//	var logCfg logging.Config
//	err := cfg.UnmarshalExtension("logging", &logCfg)
func (c *Config) UnmarshalExtension(key string, target interface{}) error {
	extensionConfig, ok := c.Extensions[key]
	if !ok {
		// It's not an error if the key doesn't exist.
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(extensionConfig); err != nil {
		return fmt.Errorf("failed to decode extension config for '%s': %w", key, err)
	}

	return nil
}
