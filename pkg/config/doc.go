// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables with
// sensible defaults for all settings. Command-line flags layered on top by the
// host binary take precedence over the environment.
//
// # Configuration Structure
//
// Attribution settings:
//
//	AWS_ATTRIBUTION_PREFS_DIR="/proj/user/Registry"
//	AWS_ATTRIBUTION_ENGINE_ROOT="/opt/o3de"
//	AWS_ATTRIBUTION_GEM_DIRS="/opt/o3de/Gems,/proj/Gems"
//	AWS_ATTRIBUTION_ENDPOINT=""  # override the resolved service URL
//	AWS_ATTRIBUTION_PROFILE=""   # AWS shared-config profile for region resolution
//	AWS_ATTRIBUTION_PLATFORM_SUBVARIANT=""
//
// Watch-mode settings:
//
//	AWS_ATTRIBUTION_WATCH_INTERVAL="1h"
//	AWS_ATTRIBUTION_METRICS_ADDR=":9090"  # empty disables the diagnostics server
//	AWS_ATTRIBUTION_SHUTDOWN_TIMEOUT="30s"
//
// Observability settings:
//
//	AWS_ATTRIBUTION_LOG_LEVEL="info"  # debug, info, warn, error
//	AWS_ATTRIBUTION_METRICS_ENABLED="true"
//	AWS_ATTRIBUTION_OTEL_ENABLED="false"
//	AWS_ATTRIBUTION_OTEL_ENDPOINT="otel-collector:4317"
//
// # Usage Example
//
// Load configuration:
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	mgr := attribution.NewManager(attribution.ManagerOptions{
//		Config: cfg.ManagerConfig(),
//	})
//
// # Related Packages
//
//   - pkg/attribution: Uses attribution configuration
//   - pkg/observability: Uses observability configuration
package config
