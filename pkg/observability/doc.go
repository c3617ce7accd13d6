// Package observability provides structured logging, Prometheus metrics, and OpenTelemetry tracing.
//
// # Overview
//
// This package centralizes observability infrastructure for the
// attribution reporter: logrus logger construction, attribution metrics,
// health checks for the watch mode, OTLP span export, and graceful
// shutdown.
//
// # Structured Logging
//
// Create logger:
//
//	logger := observability.NewLogger("debug", nil)
//	logger.WithField("endpoint", cfg.Endpoint).Info("Submitting metric")
//
// # Prometheus Metrics
//
// Initialize metrics:
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.RecordSubmission(observability.OutcomeSuccess, 0.123)
//
// The record helpers accept a nil *Metrics, so hosts that disable metrics
// pass nil and nothing else changes.
//
// # Health Checks
//
// Configure health checker:
//
//	checker := observability.NewHealthChecker(version)
//	checker.AddProbe("settings", func(ctx context.Context) error {
//	    return registryProbe(ctx)
//	})
//	status := checker.Check(ctx)
//
// # OpenTelemetry
//
// Initialize tracing:
//
//	tp, err := observability.InitTracing(ctx, observability.TracingConfig{
//	    Enabled:     true,
//	    Endpoint:    "otel-collector:4317",
//	    ServiceName: "attribution",
//	    Insecure:    true,
//	}, logger)
//	defer observability.ShutdownTracing(ctx, tp, logger)
//
// # Related Packages
//
//   - pkg/attribution: records check and submission metrics here
//   - pkg/config: carries the log level and metrics toggles
package observability
