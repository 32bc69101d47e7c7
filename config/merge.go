package config

// mergeConfigs merges override configuration into base. Scalars in override
// win when set; lists replace; extension sections replace per key.
func mergeConfigs(base, override *Config) *Config {
	result := *base

	if override.Version != "" {
		result.Version = override.Version
	}
	if override.ProjectsDir != "" {
		result.ProjectsDir = override.ProjectsDir
	}

	// Timeline
	if override.Timeline.ActionCap != 0 {
		result.Timeline.ActionCap = override.Timeline.ActionCap
	}
	if override.Timeline.HeadBytes != 0 {
		result.Timeline.HeadBytes = override.Timeline.HeadBytes
	}

	// Usage
	if override.Usage.WindowDays != 0 {
		result.Usage.WindowDays = override.Usage.WindowDays
	}
	if override.Usage.Workers != 0 {
		result.Usage.Workers = override.Usage.Workers
	}
	if override.Usage.Exclude != nil {
		result.Usage.Exclude = override.Usage.Exclude
	}
	if override.Usage.Pricing.InputPerMillion != 0 {
		result.Usage.Pricing.InputPerMillion = override.Usage.Pricing.InputPerMillion
	}
	if override.Usage.Pricing.OutputPerMillion != 0 {
		result.Usage.Pricing.OutputPerMillion = override.Usage.Pricing.OutputPerMillion
	}

	// Live
	if override.Live.PollInterval != 0 {
		result.Live.PollInterval = override.Live.PollInterval
	}
	if override.Live.Window != 0 {
		result.Live.Window = override.Live.Window
	}
	if override.Live.ProcessPattern != "" {
		result.Live.ProcessPattern = override.Live.ProcessPattern
	}

	// Pty
	if override.Pty.Shell != "" {
		result.Pty.Shell = override.Pty.Shell
	}
	if override.Pty.SeedDelay != 0 {
		result.Pty.SeedDelay = override.Pty.SeedDelay
	}
	if override.Pty.SeedTimeout != 0 {
		result.Pty.SeedTimeout = override.Pty.SeedTimeout
	}
	if override.Pty.StripEnv != nil {
		result.Pty.StripEnv = override.Pty.StripEnv
	}
	if override.Pty.Cols != 0 {
		result.Pty.Cols = override.Pty.Cols
	}
	if override.Pty.Rows != 0 {
		result.Pty.Rows = override.Pty.Rows
	}

	// Daemon
	if override.Daemon.Socket != "" {
		result.Daemon.Socket = override.Daemon.Socket
	}
	if override.Daemon.UsageInterval != 0 {
		result.Daemon.UsageInterval = override.Daemon.UsageInterval
	}
	if override.Daemon.WatchTranscripts != nil {
		result.Daemon.WatchTranscripts = override.Daemon.WatchTranscripts
	}

	// Extensions
	if len(override.Extensions) > 0 {
		merged := make(map[string]interface{}, len(base.Extensions)+len(override.Extensions))
		for k, v := range base.Extensions {
			merged[k] = v
		}
		for k, v := range override.Extensions {
			merged[k] = v
		}
		result.Extensions = merged
	}

	return &result
}
