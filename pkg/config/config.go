package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/platinummonkey/attribution/pkg/attribution"
	"github.com/platinummonkey/attribution/pkg/observability"
)

// Config holds all reporter configuration
type Config struct {
	// Attribution flow configuration
	Attribution AttributionConfig

	// Watch-mode configuration
	Watch WatchConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// AttributionConfig holds the file locations and submission target
type AttributionConfig struct {
	// PrefsDir is the directory holding editor_aws_preferences.setreg
	PrefsDir string

	// EngineRoot is the directory holding engine.json
	EngineRoot string

	// GemDirs are the directories scanned for gem manifests
	GemDirs []string

	// Endpoint overrides the resolved service URL when non-empty
	Endpoint string

	// Profile selects the AWS shared-config profile for region resolution
	Profile string

	// PlatformSubvariant qualifies the reported platform name
	PlatformSubvariant string
}

// WatchConfig holds resident-mode settings
type WatchConfig struct {
	Interval        time.Duration
	MetricsAddr     string
	ShutdownTimeout time.Duration
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel string

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Attribution:   loadAttributionConfig(),
		Watch:         loadWatchConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadAttributionConfig loads attribution configuration from environment
func loadAttributionConfig() AttributionConfig {
	return AttributionConfig{
		PrefsDir:           getEnv("AWS_ATTRIBUTION_PREFS_DIR", defaultPrefsDir()),
		EngineRoot:         getEnv("AWS_ATTRIBUTION_ENGINE_ROOT", ""),
		GemDirs:            getEnvList("AWS_ATTRIBUTION_GEM_DIRS"),
		Endpoint:           getEnv("AWS_ATTRIBUTION_ENDPOINT", ""),
		Profile:            getEnv("AWS_ATTRIBUTION_PROFILE", ""),
		PlatformSubvariant: getEnv("AWS_ATTRIBUTION_PLATFORM_SUBVARIANT", ""),
	}
}

// loadWatchConfig loads watch-mode configuration from environment
func loadWatchConfig() WatchConfig {
	return WatchConfig{
		Interval:        getEnvDuration("AWS_ATTRIBUTION_WATCH_INTERVAL", time.Hour),
		MetricsAddr:     getEnv("AWS_ATTRIBUTION_METRICS_ADDR", ""),
		ShutdownTimeout: getEnvDuration("AWS_ATTRIBUTION_SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           getEnv("AWS_ATTRIBUTION_LOG_LEVEL", "info"),
		MetricsEnabled:     getEnvBool("AWS_ATTRIBUTION_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("AWS_ATTRIBUTION_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("AWS_ATTRIBUTION_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("AWS_ATTRIBUTION_OTEL_SERVICE_NAME", "aws-attribution"),
		OTelServiceVersion: getEnv("AWS_ATTRIBUTION_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("AWS_ATTRIBUTION_OTEL_INSECURE", true),
	}
}

// defaultPrefsDir points at the per-user o3de registry directory
func defaultPrefsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".o3de", "Registry")
	}
	return filepath.Join(home, ".o3de", "Registry")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Attribution.PrefsDir == "" {
		return fmt.Errorf("preferences directory is required")
	}

	if c.Watch.Interval <= 0 {
		return fmt.Errorf("watch interval must be positive")
	}
	if c.Watch.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}

	// Validate OpenTelemetry config
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// ManagerConfig maps the loaded settings onto the manager's configuration
func (c *Config) ManagerConfig() attribution.Config {
	return attribution.Config{
		PrefsDir:           c.Attribution.PrefsDir,
		EngineRoot:         c.Attribution.EngineRoot,
		Endpoint:           c.Attribution.Endpoint,
		Profile:            c.Attribution.Profile,
		PlatformSubvariant: c.Attribution.PlatformSubvariant,
	}
}

// TracingConfig maps the loaded settings onto the tracing configuration
func (c *Config) TracingConfig() observability.TracingConfig {
	return observability.TracingConfig{
		Enabled:        c.Observability.OTelEnabled,
		Endpoint:       c.Observability.OTelEndpoint,
		ServiceName:    c.Observability.OTelServiceName,
		ServiceVersion: c.Observability.OTelServiceVersion,
		Insecure:       c.Observability.OTelInsecure,
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList returns a comma-separated environment variable as a slice
func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
