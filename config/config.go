package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/grovetools/telemetry/errors"
	"github.com/grovetools/telemetry/pkg/paths"
	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// configNames are the file names searched in the grove config directory.
var configNames = []string{
	"telemetry.yml",
	"telemetry.yaml",
	"telemetry.toml",
}

// Load reads, validates and defaults a single configuration file.
func Load(path string) (*Config, error) {
	cfg, err := readLayer(path)
	if err != nil {
		return nil, err
	}
	return finalize(cfg)
}

// LoadDefault loads the global configuration if one exists, otherwise the
// defaults.
func LoadDefault() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom loads configuration with layered merging. explicitPath may be empty.
func LoadFrom(explicitPath string) (*Config, error) {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return LoadFromWithLogger(explicitPath, logger)
}

// LoadFromWithLogger loads configuration with layered merging and logging:
// 1. Global config (~/.config/grove/telemetry.yml) - base layer
// 2. Explicit config (--config) - overrides global
// 3. Local override (telemetry.override.yml next to the explicit file) - overrides all
func LoadFromWithLogger(explicitPath string, logger *logrus.Logger) (*Config, error) {
	finalConfig := &Config{}

	// 1. Global config (optional)
	if globalPath := FindConfigFile(); globalPath != "" {
		logger.WithField("path", globalPath).Debug("Loading global configuration")
		globalConfig, err := readLayer(globalPath)
		if err != nil {
			logger.WithError(err).Warn("Failed to load global configuration, continuing without it")
		} else {
			finalConfig = globalConfig
		}
	}

	// 2. Explicit config (required when given)
	if explicitPath != "" {
		logger.WithField("path", explicitPath).Debug("Loading explicit configuration")
		explicitConfig, err := readLayer(explicitPath)
		if err != nil {
			return nil, err
		}
		finalConfig = mergeConfigs(finalConfig, explicitConfig)

		// 3. Override files (optional)
		dir := filepath.Dir(explicitPath)
		overrideFiles := []string{
			filepath.Join(dir, "telemetry.override.yml"),
			filepath.Join(dir, "telemetry.override.yaml"),
			filepath.Join(dir, "telemetry.override.toml"),
		}
		for _, overridePath := range overrideFiles {
			if _, err := os.Stat(overridePath); err != nil {
				continue
			}
			logger.WithField("path", overridePath).Debug("Loading local override configuration")
			overrideConfig, err := readLayer(overridePath)
			if err != nil {
				logger.WithError(err).Warn("Failed to load override file, skipping")
				continue
			}
			finalConfig = mergeConfigs(finalConfig, overrideConfig)
		}
	}

	cfg, err := finalize(finalConfig)
	if err != nil {
		return nil, err
	}

	if logger.IsLevelEnabled(logrus.DebugLevel) {
		if data, err := yaml.Marshal(cfg); err == nil {
			logger.Debugf("Merged configuration:\n%s", string(data))
		}
	}
	return cfg, nil
}

// LoadFromBytes parses configuration from a byte array. format is "yaml" or
// "toml".
func LoadFromBytes(data []byte, format string) (*Config, error) {
	cfg, err := parse(data, format)
	if err != nil {
		return nil, err
	}
	return finalize(cfg)
}

// FindConfigFile returns the global configuration file path, or "" when none
// exists.
func FindConfigFile() string {
	dir := paths.ConfigDir()
	if dir == "" {
		return ""
	}
	for _, name := range configNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// finalize validates a merged configuration and applies defaults.
func finalize(cfg *Config) (*Config, error) {
	validator, err := NewSchemaValidator()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to create validator")
	}
	if err := validator.Validate(cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "schema validation failed")
	}

	cfg.SetDefaults()
	if cfg.ProjectsDir == "" {
		cfg.ProjectsDir = paths.ProjectsDir()
	} else {
		cfg.ProjectsDir = expandHome(cfg.ProjectsDir)
	}
	if cfg.Daemon.Socket == "" {
		cfg.Daemon.Socket = paths.SocketPath()
	} else {
		cfg.Daemon.Socket = expandHome(cfg.Daemon.Socket)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// readLayer reads one configuration file without defaults or validation.
func readLayer(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigNotFound(path)
		}
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read config file").
			WithDetail("path", path)
	}

	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		format = "toml"
	}
	cfg, err := parse(data, format)
	if err != nil {
		if groveErr, ok := errors.As(err); ok {
			return nil, groveErr.WithDetail("path", path)
		}
		return nil, err
	}
	return cfg, nil
}

// parse decodes raw configuration bytes after environment expansion. TOML is
// normalised through a generic map so that unknown sections land in
// Extensions exactly as they do for YAML.
func parse(data []byte, format string) (*Config, error) {
	expanded := []byte(expandEnvVars(string(data)))

	if format == "toml" {
		var raw map[string]interface{}
		if err := toml.Unmarshal(expanded, &raw); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse TOML configuration")
		}
		normalized, err := yaml.Marshal(raw)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to normalise TOML configuration")
		}
		expanded = normalized
	}

	var cfg Config
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse YAML configuration")
	}
	return &cfg, nil
}

// expandEnvVars replaces ${VAR} with environment variable values
func expandEnvVars(content string) string {
	return envVarRegex.ReplaceAllStringFunc(content, func(match string) string {
		varName := envVarRegex.FindStringSubmatch(match)[1]

		// Handle default values: ${VAR:-default}
		parts := strings.SplitN(varName, ":-", 2)
		varName = parts[0]
		defaultValue := ""
		if len(parts) > 1 {
			defaultValue = parts[1]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}

		return defaultValue
	})
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
