package configs

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// FileConfig defines the structure loaded from the YAML configuration file.
type FileConfig struct {
	ServerName    string `yaml:"server_name,omitempty"`
	ServerVersion string `yaml:"server_version,omitempty"`
	Instructions  string `yaml:"instructions,omitempty"`
	LogFile       string `yaml:"log_file,omitempty"`
	Workers       int    `yaml:"workers,omitempty"`
}

// Config holds the final application configuration, merged from file and
// environment variables. Fields load from environment variables with the
// prefix "UMCP_", overriding file settings.
type Config struct {
	// Config file path (loaded first from env). Optional.
	ConfigFilePath string `envconfig:"CONFIG_FILE"`

	// Server identity reported by initialize. Name defaults per binary.
	ServerName    string `envconfig:"SERVER_NAME"`
	ServerVersion string `envconfig:"SERVER_VERSION" default:"0.1.0"`
	Instructions  string `envconfig:"INSTRUCTIONS"`

	// LogFile is the append-only side channel recording every request and
	// response line. Stdout stays clean for protocol output.
	LogFile  string `envconfig:"LOG_FILE" default:"mcpserver.log"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Workers bounds the pool used to offload blocking handlers.
	Workers int `envconfig:"WORKERS" default:"4"`

	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`

	OtelExporterOtlpEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OtelExporterOtlpInsecure bool   `envconfig:"OTEL_EXPORTER_OTLP_INSECURE" default:"true"`
}

// ParsedLogLevel returns the slog.Level for the configured LogLevel string.
func (c *Config) ParsedLogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "info":
		fallthrough
	default:
		return slog.LevelInfo
	}
}

// Load loads configuration from environment variables (which also yields the
// config file path), then applies YAML file settings for any field whose
// environment variable was not set explicitly. Precedence: env > file >
// built-in default.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("umcp", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if cfg.ConfigFilePath == "" {
		return &cfg, nil
	}

	yamlFile, err := os.ReadFile(cfg.ConfigFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", cfg.ConfigFilePath, err)
	}

	var fileCfg FileConfig
	if err := yaml.Unmarshal(yamlFile, &fileCfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config file '%s': %w", cfg.ConfigFilePath, err)
	}

	if fileCfg.ServerName != "" && envUnset("UMCP_SERVER_NAME") {
		cfg.ServerName = fileCfg.ServerName
	}
	if fileCfg.ServerVersion != "" && envUnset("UMCP_SERVER_VERSION") {
		cfg.ServerVersion = fileCfg.ServerVersion
	}
	if fileCfg.Instructions != "" && envUnset("UMCP_INSTRUCTIONS") {
		cfg.Instructions = fileCfg.Instructions
	}
	if fileCfg.LogFile != "" && envUnset("UMCP_LOG_FILE") {
		cfg.LogFile = fileCfg.LogFile
	}
	if fileCfg.Workers > 0 && envUnset("UMCP_WORKERS") {
		cfg.Workers = fileCfg.Workers
	}

	return &cfg, nil
}

func envUnset(key string) bool {
	_, ok := os.LookupEnv(key)
	return !ok
}
