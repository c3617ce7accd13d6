package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/attribution/pkg/attribution"
	"github.com/platinummonkey/attribution/pkg/config"
	"github.com/platinummonkey/attribution/pkg/gems"
	"github.com/platinummonkey/attribution/pkg/observability"
	"github.com/platinummonkey/attribution/pkg/settings"
)

const version = "1.0.0"

var (
	prefsDir    = flag.String("prefs-dir", "", "Directory holding the preferences file (overrides AWS_ATTRIBUTION_PREFS_DIR)")
	engineRoot  = flag.String("engine-root", "", "Directory holding engine.json (overrides AWS_ATTRIBUTION_ENGINE_ROOT)")
	gemDirs     = flag.String("gem-dirs", "", "Comma-separated directories scanned for gem manifests (overrides AWS_ATTRIBUTION_GEM_DIRS)")
	endpoint    = flag.String("endpoint", "", "Override the attribution service URL (overrides AWS_ATTRIBUTION_ENDPOINT)")
	profile     = flag.String("profile", "", "AWS shared-config profile for region resolution (overrides AWS_ATTRIBUTION_PROFILE)")
	force       = flag.Bool("force", false, "Submit even when the delay window has not elapsed")
	dryRun      = flag.Bool("dry-run", false, "Print the metric instead of submitting it")
	watchMode   = flag.Bool("watch", false, "Stay resident and re-run the check on an interval")
	interval    = flag.Duration("interval", 0, "Check interval in watch mode (overrides AWS_ATTRIBUTION_WATCH_INTERVAL)")
	metricsAddr = flag.String("metrics-addr", "", "Serve /metrics and /health on this address in watch mode (overrides AWS_ATTRIBUTION_METRICS_ADDR)")
	verbose     = flag.Bool("v", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	applyFlagOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}

	level := cfg.Observability.LogLevel
	if *verbose {
		level = "debug"
	}
	log := observability.NewLogger(level, nil)

	ctx := context.Background()

	promRegistry := prometheus.NewRegistry()
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(promRegistry)
	}

	tp, err := observability.InitTracing(ctx, cfg.TracingConfig(), log)
	if err != nil {
		log.WithError(err).Warn("Failed to initialize tracing, continuing without it")
	}
	flushTracer := func(shutdownCtx context.Context) error {
		return observability.ShutdownTracing(shutdownCtx, tp, log)
	}

	var lister gems.Lister
	if len(cfg.Attribution.GemDirs) > 0 {
		lister = gems.NewDirLister(cfg.Attribution.GemDirs, log)
	}

	mgrCfg := cfg.ManagerConfig()
	mgrCfg.Force = *force

	mgr := attribution.NewManager(attribution.ManagerOptions{
		Config:  mgrCfg,
		Lister:  lister,
		Metrics: metrics,
		Log:     log,
	})

	if *watchMode {
		runWatch(ctx, cfg, mgr, promRegistry, flushTracer, log)
		return
	}

	if *dryRun {
		runDryRun(ctx, mgr, log)
	} else {
		mgr.MetricCheck(ctx)
		mgr.Wait()
	}

	flushCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := flushTracer(flushCtx); err != nil {
		log.WithError(err).Warn("Failed to flush tracer")
	}
}

// applyFlagOverrides layers non-empty command-line flags over the
// environment configuration
func applyFlagOverrides(cfg *config.Config) {
	if *prefsDir != "" {
		cfg.Attribution.PrefsDir = *prefsDir
	}
	if *engineRoot != "" {
		cfg.Attribution.EngineRoot = *engineRoot
	}
	if *gemDirs != "" {
		cfg.Attribution.GemDirs = splitDirs(*gemDirs)
	}
	if *endpoint != "" {
		cfg.Attribution.Endpoint = *endpoint
	}
	if *profile != "" {
		cfg.Attribution.Profile = *profile
	}
	if *interval > 0 {
		cfg.Watch.Interval = *interval
	}
	if *metricsAddr != "" {
		cfg.Watch.MetricsAddr = *metricsAddr
	}
}

// splitDirs splits a comma-separated directory list
func splitDirs(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// runDryRun prints the metric that would be submitted without sending it
func runDryRun(ctx context.Context, mgr *attribution.Manager, log *logrus.Logger) {
	due := mgr.ShouldGenerateMetric()

	var metric attribution.Metric
	mgr.UpdateMetric(ctx, &metric)

	payload, err := json.MarshalIndent(metric, "", "  ")
	if err != nil {
		log.Fatalf("Failed to render metric: %v", err)
	}
	fmt.Println(string(payload))
	log.Infof("Dry run: submission due = %v, endpoint = %s", due, mgr.ResolveEndpoint(ctx).Endpoint)
}

// runWatch stays resident, re-running the check on an interval until a
// termination signal arrives
func runWatch(ctx context.Context, cfg *config.Config, mgr *attribution.Manager, promRegistry *prometheus.Registry, flushTracer observability.ShutdownFunc, log *logrus.Logger) {
	log.Infof("Watch mode: checking every %s", cfg.Watch.Interval)

	// Reload preferences as the editor rewrites them between checks.
	var watcher *settings.Watcher
	if path, err := mgr.PreferencesPath(); err == nil {
		watcher, err = settings.Watch(mgr.Registry(), path, log)
		if err != nil {
			log.WithError(err).Warn("Preferences watcher unavailable, relying on interval reloads")
		}
	}

	var server *http.Server
	if cfg.Watch.MetricsAddr != "" {
		server = diagnosticsServer(cfg, mgr, promRegistry)
		go func() {
			log.Infof("Diagnostics server listening on %s", cfg.Watch.MetricsAddr)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Error("Diagnostics server failed")
			}
		}()
	}

	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", cfg.Watch.Interval), func() {
		mgr.MetricCheck(ctx)
	}); err != nil {
		log.Fatalf("Failed to schedule attribution checks: %v", err)
	}

	// The first check runs immediately; cron covers the rest.
	mgr.MetricCheck(ctx)
	c.Start()

	sd := observability.NewShutdownManager(log, server, cfg.Watch.ShutdownTimeout)
	sd.RegisterShutdownFunc(func(context.Context) error {
		<-c.Stop().Done()
		return nil
	})
	if watcher != nil {
		sd.RegisterShutdownFunc(func(context.Context) error { return watcher.Close() })
	}
	sd.RegisterShutdownFunc(mgr.Close)
	sd.RegisterShutdownFunc(flushTracer)

	if err := sd.WaitForShutdown(ctx); err != nil {
		log.WithError(err).Warn("Shutdown finished with errors")
	}
}

// diagnosticsServer serves Prometheus metrics and health probes for the
// resident process
func diagnosticsServer(cfg *config.Config, mgr *attribution.Manager, promRegistry *prometheus.Registry) *http.Server {
	router := mux.NewRouter()
	observability.RegisterMetricsEndpoint(router, promRegistry)

	health := observability.NewHealthChecker(version)
	health.AddProbe("preferences", func(ctx context.Context) error {
		path, err := mgr.PreferencesPath()
		if err != nil {
			return err
		}
		if _, err := os.Stat(filepath.Dir(path)); err != nil {
			return fmt.Errorf("preferences directory unavailable: %w", err)
		}
		return nil
	})
	observability.RegisterHealthRoutes(router, health)

	return &http.Server{
		Addr:         cfg.Watch.MetricsAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
}
