package attribution

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/attribution/pkg/async"
	"github.com/platinummonkey/attribution/pkg/gems"
	"github.com/platinummonkey/attribution/pkg/observability"
	"github.com/platinummonkey/attribution/pkg/serviceapi"
	"github.com/platinummonkey/attribution/pkg/settings"
)

// Preferences file and settings registry layout.
const (
	PreferencesFileName = "editor_aws_preferences.setreg"

	SettingsPrefix   = "/Amazon/AWS/Preferences"
	EnabledKey       = SettingsPrefix + "/AWSAttributionEnabled"
	DelaySecondsKey  = SettingsPrefix + "/AWSAttributionDelaySeconds"
	LastTimeStampKey = SettingsPrefix + "/AWSAttributionLastTimeStamp"

	// DefaultDelaySeconds spaces submissions one day apart when the
	// preferences file carries no delay.
	DefaultDelaySeconds uint64 = 86400

	EngineSettingsFileName = "engine.json"
	EngineSettingsAnchor   = "/O3DE/Engine"
	EngineVersionKey       = EngineSettingsAnchor + "/O3DEVersion"
)

// Submitter posts one metric payload to the attribution service.
type Submitter interface {
	Submit(ctx context.Context, payload any) error
}

// Config carries the file locations and submission target for a Manager.
type Config struct {
	// PrefsDir is the directory holding the preferences file. Required;
	// checks fail closed when it is empty.
	PrefsDir string

	// EngineRoot is the directory holding engine.json. Optional; the
	// reported engine version is empty without it.
	EngineRoot string

	// Endpoint overrides the resolved service URL when non-empty,
	// mainly for development and tests.
	Endpoint string

	// Profile selects the AWS shared-config profile whose region drives
	// endpoint resolution. Empty means the chain's active profile.
	Profile string

	// PlatformSubvariant qualifies the platform name for hosts shipped
	// in several flavors. Usually empty.
	PlatformSubvariant string

	// Force skips the delay gate, for manual runs. The opt-out still
	// wins.
	Force bool
}

// Manager runs the opt-in, rate-limited attribution flow: decide whether
// a metric is due, assemble it, submit it in the background, and persist
// the submission timestamp on success.
type Manager struct {
	cfg      Config
	registry *settings.Registry
	lister   gems.Lister
	client   Submitter
	exec     *async.Executor
	metrics  *observability.Metrics
	log      *logrus.Logger
}

// ManagerOptions collects a Manager's collaborators. Zero-value fields
// fall back to working defaults; metrics may stay nil to disable
// recording.
type ManagerOptions struct {
	Config   Config
	Registry *settings.Registry
	Lister   gems.Lister
	Client   Submitter
	Executor *async.Executor
	Metrics  *observability.Metrics
	Log      *logrus.Logger
}

// NewManager creates a manager from its options.
func NewManager(opts ManagerOptions) *Manager {
	log := opts.Log
	if log == nil {
		log = logrus.New()
	}
	registry := opts.Registry
	if registry == nil {
		registry = settings.New()
	}
	lister := opts.Lister
	if lister == nil {
		lister = &gems.StaticLister{}
	}
	exec := opts.Executor
	if exec == nil {
		exec = async.NewExecutor(log)
	}

	return &Manager{
		cfg:      opts.Config,
		registry: registry,
		lister:   lister,
		client:   opts.Client,
		exec:     exec,
		metrics:  opts.Metrics,
		log:      log,
	}
}

// Registry exposes the manager's settings registry, for hosts that wire
// a file watcher or inspect the merged preferences.
func (m *Manager) Registry() *settings.Registry {
	return m.registry
}

// PreferencesPath returns the resolved preferences file location.
func (m *Manager) PreferencesPath() (string, error) {
	if m.cfg.PrefsDir == "" {
		return "", fmt.Errorf("preferences directory is not configured")
	}
	return filepath.Join(m.cfg.PrefsDir, PreferencesFileName), nil
}

// MetricCheck runs one attribution pass. It never blocks on the network:
// the submission and any follow-up persistence run on the executor, and
// every failure ends in a warning, not an error.
func (m *Manager) MetricCheck(ctx context.Context) {
	m.metrics.RecordCheck()

	ok, reason := m.decide()
	if !ok {
		m.metrics.RecordCheckSkipped(reason)
		m.log.Debugf("Attribution check skipped: %s", reason)
		return
	}

	var metric Metric
	m.UpdateMetric(ctx, &metric)

	if _, err := m.SubmitMetric(ctx, metric); err != nil {
		m.log.WithError(err).Warn("Failed to schedule metric submission")
	}
}

// ShouldGenerateMetric reports whether a submission is currently due.
// Reading the decision merges the preferences file into the registry and
// fills in the default delay, so the call is not free of side effects.
func (m *Manager) ShouldGenerateMetric() bool {
	ok, _ := m.decide()
	return ok
}

func (m *Manager) decide() (bool, string) {
	path, err := m.PreferencesPath()
	if err != nil {
		m.log.WithError(err).Warn("Error resolving preferences path")
		return false, observability.SkipReasonSettingsError
	}

	if _, err := os.Stat(path); err == nil {
		if err := m.registry.MergeFile(path); err != nil {
			m.log.WithError(err).Warnf("Failed to merge preferences file %s", path)
		}
	}

	enabled, ok := m.registry.GetBool(EnabledKey)
	if !ok {
		// Absent means the user was never asked to opt out.
		enabled = true
	}
	if !enabled {
		return false, observability.SkipReasonDisabled
	}

	delay, ok := m.registry.GetUint64(DelaySecondsKey)
	if !ok {
		m.log.Warn("Attribution delay key not found, defaulting to one day")
		delay = DefaultDelaySeconds
		if err := m.registry.Set(DelaySecondsKey, delay); err != nil {
			m.log.WithError(err).Warn("Failed to store default attribution delay")
		}
	}

	if m.cfg.Force {
		return true, ""
	}

	last, ok := m.registry.GetUint64(LastTimeStampKey)
	if !ok {
		// No record of a previous send, assume this is the first run.
		return true, ""
	}

	elapsed := time.Now().Unix() - int64(last)
	if elapsed >= 0 && uint64(elapsed) >= delay {
		return true, ""
	}
	return false, observability.SkipReasonRateLimited
}

// UpdateMetric fills metric with the engine version, platform and active
// AWS gems. Collection is best effort; enumeration failures leave the
// gem list empty.
func (m *Manager) UpdateMetric(ctx context.Context, metric *Metric) {
	metric.Version = m.GetEngineVersion()
	metric.SetPlatform(m.GetPlatform(), m.cfg.PlatformSubvariant)

	for _, name := range m.GetActiveAWSGems(ctx) {
		metric.AddActiveGem(name)
	}
}

// GetActiveAWSGems asks the module lister for the loaded modules and
// returns the AWS gem names among them, in enumeration order.
func (m *Manager) GetActiveAWSGems(ctx context.Context) []string {
	modules, err := m.lister.ListModules(ctx)
	if err != nil {
		m.log.WithError(err).Warn("Failed to enumerate modules, reporting no gems")
		return nil
	}
	return gems.ActiveAWSNames(modules)
}

// GetEngineVersion reads the engine version from engine.json under the
// configured engine root. Missing or unreadable files yield "".
func (m *Manager) GetEngineVersion() string {
	if m.cfg.EngineRoot == "" {
		return ""
	}

	path := filepath.Join(m.cfg.EngineRoot, EngineSettingsFileName)
	if _, err := os.Stat(path); err != nil {
		return ""
	}

	// Engine metadata merges into its own registry so engine keys never
	// mix with the preferences subtree.
	reg := settings.New()
	if err := reg.MergeFileAt(path, EngineSettingsAnchor); err != nil {
		m.log.WithError(err).Warnf("Failed to read engine settings %s", path)
		return ""
	}

	version, _ := reg.GetString(EngineVersionKey)
	return version
}

// GetPlatform returns the host platform name for the metric payload.
func (m *Manager) GetPlatform() string {
	return platformName()
}

// ResolveEndpoint picks the submission target: the configured override
// when present, otherwise the partition-appropriate service endpoint.
func (m *Manager) ResolveEndpoint(ctx context.Context) serviceapi.RequestConfig {
	if m.cfg.Endpoint != "" {
		return serviceapi.RequestConfig{
			Region:   serviceapi.DefaultRegion,
			Endpoint: m.cfg.Endpoint,
		}
	}
	return serviceapi.ResolveRequestConfig(ctx, m.cfg.Profile, m.log)
}

// SubmitMetric schedules one metric submission on the executor and
// returns its job handle. On success the last-send timestamp is updated
// and persisted; on failure the outcome is logged and counted, with no
// retry.
func (m *Manager) SubmitMetric(ctx context.Context, metric Metric) (*async.Job, error) {
	if m.client == nil {
		c := serviceapi.NewClient(m.ResolveEndpoint(ctx), m.log)
		m.log.WithField("endpoint", c.Endpoint()).Debug("Constructed attribution service client")
		m.client = c
	}
	client := m.client

	var start time.Time
	return m.exec.Submit(ctx, async.Task{
		Name: "submit attribution metric",
		Run: func(ctx context.Context) error {
			start = time.Now()
			return client.Submit(ctx, metric)
		},
		OnSuccess: func(ctx context.Context) {
			m.metrics.RecordSubmission(observability.OutcomeSuccess, time.Since(start).Seconds())
			m.UpdateLastSend(ctx)
			observability.LoggerWithTraceContext(ctx, m.log).Info("Attribution metric submit success")
		},
		OnFailure: func(ctx context.Context, err error) {
			m.metrics.RecordSubmission(observability.OutcomeFailure, time.Since(start).Seconds())
			observability.LoggerWithTraceContext(ctx, m.log).WithError(err).Warn("Attribution metric submit failed")
		},
	})
}

// UpdateLastSend stamps the registry with the current time and schedules
// the preferences save. A failed stamp skips the save so the file never
// records a timestamp the registry does not hold.
func (m *Manager) UpdateLastSend(ctx context.Context) {
	if err := m.registry.Set(LastTimeStampKey, uint64(time.Now().Unix())); err != nil {
		m.log.WithError(err).Warn("Failed to set last send timestamp")
		return
	}
	m.SaveSettingsRegistryFile(ctx)
}

// SaveSettingsRegistryFile writes the attribution preferences subtree to
// the preferences file on the executor, creating the directory when
// needed.
func (m *Manager) SaveSettingsRegistryFile(ctx context.Context) {
	_, err := m.exec.Submit(ctx, async.Task{
		Name: "save attribution preferences",
		Run: func(ctx context.Context) error {
			path, err := m.PreferencesPath()
			if err != nil {
				return err
			}

			data, err := m.registry.DumpSubtree(SettingsPrefix)
			if err != nil {
				return fmt.Errorf("unable to serialize preferences: %w", err)
			}

			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("unable to create preferences directory: %w", err)
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("unable to write preferences file %s: %w", path, err)
			}
			return nil
		},
		OnSuccess: func(ctx context.Context) {
			m.metrics.RecordSettingsSave(observability.OutcomeSuccess)
		},
		OnFailure: func(ctx context.Context, err error) {
			m.metrics.RecordSettingsSave(observability.OutcomeFailure)
			m.log.WithError(err).Warn("Unable to save attribution preferences file")
		},
	})
	if err != nil {
		m.log.WithError(err).Warn("Failed to schedule preferences save")
	}
}

// Wait blocks until all scheduled background work has finished. Hosts
// call it before exit when they want the timestamp on disk.
func (m *Manager) Wait() {
	m.exec.Wait()
}

// Close stops accepting background work and drains in-flight jobs.
func (m *Manager) Close(ctx context.Context) error {
	return m.exec.Shutdown(ctx)
}
