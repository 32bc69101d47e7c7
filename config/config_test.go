package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/grovetools/telemetry/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("GROVE_HOME", home)
	t.Setenv("CLAUDE_CONFIG_DIR", filepath.Join(home, "claude"))
	return home
}

func TestDefaultsWhenNoConfigExists(t *testing.T) {
	home := isolateHome(t)

	cfg, err := LoadDefault()
	require.NoError(t, err)

	assert.Equal(t, DefaultVersion, cfg.Version)
	assert.Equal(t, 500, cfg.Timeline.ActionCap)
	assert.Equal(t, 50*1024, cfg.Timeline.HeadBytes)
	assert.Equal(t, 10*time.Minute, cfg.Live.Window.Std())
	assert.Equal(t, 5*time.Second, cfg.Live.PollInterval.Std())
	assert.Equal(t, 3.0, cfg.Usage.Pricing.InputPerMillion)
	assert.Equal(t, 15.0, cfg.Usage.Pricing.OutputPerMillion)
	assert.Equal(t, DefaultStripEnv, cfg.Pty.StripEnv)
	assert.Equal(t, filepath.Join(home, "claude", "projects"), cfg.ProjectsDir)
	assert.Equal(t, filepath.Join(home, "run", "telemetryd.sock"), cfg.Daemon.Socket)
	require.NotNil(t, cfg.Daemon.WatchTranscripts)
	assert.True(t, *cfg.Daemon.WatchTranscripts)
}

func TestLoadYAMLWithEnvExpansion(t *testing.T) {
	isolateHome(t)
	t.Setenv("TELEMETRY_TEST_CAP", "42")

	path := filepath.Join(t.TempDir(), "telemetry.yml")
	content := `
version: "1.0"
timeline:
  action_cap: ${TELEMETRY_TEST_CAP}
live:
  window: 2m
  process_pattern: ${UNSET_PATTERN:-(^|/)claude$}
usage:
  exclude: ["/tmp/**"]
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.Timeline.ActionCap)
	assert.Equal(t, 2*time.Minute, cfg.Live.Window.Std())
	assert.Equal(t, `(^|/)claude$`, cfg.Live.ProcessPattern)
	assert.Equal(t, []string{"/tmp/**"}, cfg.Usage.Exclude)

	var logCfg struct {
		Level string `yaml:"level"`
	}
	require.NoError(t, cfg.UnmarshalExtension("logging", &logCfg))
	assert.Equal(t, "debug", logCfg.Level)
}

func TestLoadTOML(t *testing.T) {
	isolateHome(t)

	path := filepath.Join(t.TempDir(), "telemetry.toml")
	content := `
version = "1.0"

[pty]
shell = "/bin/zsh"
seed_delay = "750ms"

[usage.pricing]
input_per_million = 1.5

[logging]
level = "warn"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/bin/zsh", cfg.Pty.Shell)
	assert.Equal(t, 750*time.Millisecond, cfg.Pty.SeedDelay.Std())
	assert.Equal(t, 1.5, cfg.Usage.Pricing.InputPerMillion)
	assert.Equal(t, 15.0, cfg.Usage.Pricing.OutputPerMillion)
	assert.Contains(t, cfg.Extensions, "logging")
}

func TestLayeredMerge(t *testing.T) {
	home := isolateHome(t)

	globalDir := filepath.Join(home, "config", "grove")
	require.NoError(t, os.MkdirAll(globalDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(globalDir, "telemetry.yml"), []byte(`
timeline:
  action_cap: 100
usage:
  workers: 2
`), 0644))

	projectDir := t.TempDir()
	explicit := filepath.Join(projectDir, "telemetry.yml")
	require.NoError(t, os.WriteFile(explicit, []byte(`
timeline:
  action_cap: 200
`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, "telemetry.override.yml"), []byte(`
usage:
  workers: 16
`), 0644))

	cfg, err := LoadFrom(explicit)
	require.NoError(t, err)
	assert.Equal(t, 200, cfg.Timeline.ActionCap, "explicit file overrides global")
	assert.Equal(t, 16, cfg.Usage.Workers, "override file wins over all")
}

func TestLoadErrors(t *testing.T) {
	isolateHome(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeConfigNotFound))

	_, err = LoadFromBytes([]byte("live:\n  window: soon\n"), "yaml")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeConfigInvalid))

	_, err = LoadFromBytes([]byte("timeline:\n  action_cap: -1\n"), "yaml")
	require.Error(t, err)

	_, err = LoadFromBytes([]byte("unknown_section_is_an_extension: true\nlive:\n  process_pattern: \"(\"\n"), "yaml")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeConfigValidation))

	_, err = LoadFromBytes([]byte("pty:\n  strip_env: [\"BAD-NAME\"]\n"), "yaml")
	require.Error(t, err)
}

func TestGenerateSchema(t *testing.T) {
	data, err := GenerateSchema()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"action_cap"`)
	assert.Contains(t, string(data), `"process_pattern"`)
	assert.NotContains(t, string(data), `"Extensions"`)
}

func TestMergeConfigsExtensions(t *testing.T) {
	base := &Config{Extensions: map[string]interface{}{"logging": "a", "other": 1}}
	override := &Config{Extensions: map[string]interface{}{"logging": "b"}}

	merged := mergeConfigs(base, override)
	assert.Equal(t, "b", merged.Extensions["logging"])
	assert.Equal(t, 1, merged.Extensions["other"])
	assert.Equal(t, "a", base.Extensions["logging"], "base is not mutated")
}
