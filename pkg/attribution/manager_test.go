package attribution

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/platinummonkey/attribution/pkg/gems"
	"github.com/platinummonkey/attribution/pkg/observability"
	"github.com/platinummonkey/attribution/pkg/serviceapi"
	"github.com/platinummonkey/attribution/pkg/settings"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func writePrefs(t *testing.T, dir, doc string) string {
	t.Helper()
	path := filepath.Join(dir, PreferencesFileName)
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

type fakeSubmitter struct {
	mu      sync.Mutex
	calls   int
	last    any
	failure error
}

func (f *fakeSubmitter) Submit(ctx context.Context, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = payload
	return f.failure
}

func (f *fakeSubmitter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type failingLister struct{}

func (failingLister) ListModules(ctx context.Context) ([]gems.Module, error) {
	return nil, errors.New("module scan failed")
}

func TestShouldGenerateMetric(t *testing.T) {
	now := time.Now().Unix()

	cases := []struct {
		name string
		doc  string
		want bool
	}{
		{
			name: "first run with no preferences file",
			doc:  "",
			want: true,
		},
		{
			name: "explicitly enabled and never sent",
			doc:  `{"Amazon": {"AWS": {"Preferences": {"AWSAttributionEnabled": true}}}}`,
			want: true,
		},
		{
			name: "opted out",
			doc:  `{"Amazon": {"AWS": {"Preferences": {"AWSAttributionEnabled": false}}}}`,
			want: false,
		},
		{
			name: "recent submission",
			doc: fmt.Sprintf(`{"Amazon": {"AWS": {"Preferences": {
				"AWSAttributionDelaySeconds": 86400,
				"AWSAttributionLastTimeStamp": %d
			}}}}`, now-10),
			want: false,
		},
		{
			name: "overdue submission",
			doc: fmt.Sprintf(`{"Amazon": {"AWS": {"Preferences": {
				"AWSAttributionDelaySeconds": 86400,
				"AWSAttributionLastTimeStamp": %d
			}}}}`, now-90000),
			want: true,
		},
		{
			name: "delay elapsed exactly",
			doc: fmt.Sprintf(`{"Amazon": {"AWS": {"Preferences": {
				"AWSAttributionDelaySeconds": 100,
				"AWSAttributionLastTimeStamp": %d
			}}}}`, now-100),
			want: true,
		},
		{
			name: "timestamp in the future",
			doc: fmt.Sprintf(`{"Amazon": {"AWS": {"Preferences": {
				"AWSAttributionLastTimeStamp": %d
			}}}}`, now+3600),
			want: false,
		},
		{
			name: "malformed preferences file ignored",
			doc:  `{"Amazon": `,
			want: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			if tc.doc != "" {
				writePrefs(t, dir, tc.doc)
			}

			mgr := NewManager(ManagerOptions{
				Config: Config{PrefsDir: dir},
				Log:    testLogger(),
			})
			assert.Equal(t, tc.want, mgr.ShouldGenerateMetric())
		})
	}
}

func TestShouldGenerateMetricNoPrefsDir(t *testing.T) {
	mgr := NewManager(ManagerOptions{Log: testLogger()})
	assert.False(t, mgr.ShouldGenerateMetric())
}

func TestShouldGenerateMetricForce(t *testing.T) {
	now := time.Now().Unix()

	t.Run("force overrides the delay gate", func(t *testing.T) {
		dir := t.TempDir()
		writePrefs(t, dir, fmt.Sprintf(`{"Amazon": {"AWS": {"Preferences": {
			"AWSAttributionDelaySeconds": 86400,
			"AWSAttributionLastTimeStamp": %d
		}}}}`, now-10))

		mgr := NewManager(ManagerOptions{
			Config: Config{PrefsDir: dir, Force: true},
			Log:    testLogger(),
		})
		assert.True(t, mgr.ShouldGenerateMetric())
	})

	t.Run("force never overrides the opt-out", func(t *testing.T) {
		dir := t.TempDir()
		writePrefs(t, dir, `{"Amazon": {"AWS": {"Preferences": {"AWSAttributionEnabled": false}}}}`)

		mgr := NewManager(ManagerOptions{
			Config: Config{PrefsDir: dir, Force: true},
			Log:    testLogger(),
		})
		assert.False(t, mgr.ShouldGenerateMetric())
	})
}

func TestShouldGenerateMetricStoresDefaultDelay(t *testing.T) {
	mgr := NewManager(ManagerOptions{
		Config: Config{PrefsDir: t.TempDir()},
		Log:    testLogger(),
	})

	require.True(t, mgr.ShouldGenerateMetric())

	delay, ok := mgr.Registry().GetUint64(DelaySecondsKey)
	require.True(t, ok)
	assert.Equal(t, DefaultDelaySeconds, delay)
}

func TestUpdateMetric(t *testing.T) {
	engineRoot := t.TempDir()
	enginePath := filepath.Join(engineRoot, EngineSettingsFileName)
	require.NoError(t, os.WriteFile(enginePath, []byte(`{"O3DEVersion": "2.3.0", "FileVersion": 1}`), 0o644))

	lister := &gems.StaticLister{Modules: []gems.Module{
		{Name: "AWSCore.Editor"},
		{Name: "PhysX"},
		{Name: "AWSMetrics"},
	}}

	mgr := NewManager(ManagerOptions{
		Config: Config{PrefsDir: t.TempDir(), EngineRoot: engineRoot},
		Lister: lister,
		Log:    testLogger(),
	})

	var metric Metric
	mgr.UpdateMetric(context.Background(), &metric)

	assert.Equal(t, "2.3.0", metric.Version)
	assert.Equal(t, platformName(), metric.Platform)
	assert.Empty(t, metric.PlatformSubvariant)
	assert.Equal(t, []string{"AWSCore", "AWSMetrics"}, metric.ActiveGems)
}

func TestUpdateMetricListerFailure(t *testing.T) {
	mgr := NewManager(ManagerOptions{
		Config: Config{PrefsDir: t.TempDir()},
		Lister: failingLister{},
		Log:    testLogger(),
	})

	var metric Metric
	mgr.UpdateMetric(context.Background(), &metric)

	assert.Equal(t, platformName(), metric.Platform)
	assert.Empty(t, metric.ActiveGems)
}

func TestGetActiveAWSGems(t *testing.T) {
	lister := &gems.StaticLister{Modules: []gems.Module{
		{Name: "AWSClientAuth.Editor"},
		{Name: "EMotionFX"},
		{Name: "AWSCore"},
	}}

	mgr := NewManager(ManagerOptions{
		Config: Config{PrefsDir: t.TempDir()},
		Lister: lister,
		Log:    testLogger(),
	})

	assert.Equal(t, []string{"AWSClientAuth", "AWSCore"}, mgr.GetActiveAWSGems(context.Background()))
}

func TestGetEngineVersion(t *testing.T) {
	t.Run("missing engine root", func(t *testing.T) {
		mgr := NewManager(ManagerOptions{Log: testLogger()})
		assert.Empty(t, mgr.GetEngineVersion())
	})

	t.Run("missing engine.json", func(t *testing.T) {
		mgr := NewManager(ManagerOptions{
			Config: Config{EngineRoot: t.TempDir()},
			Log:    testLogger(),
		})
		assert.Empty(t, mgr.GetEngineVersion())
	})

	t.Run("reads version key", func(t *testing.T) {
		engineRoot := t.TempDir()
		enginePath := filepath.Join(engineRoot, EngineSettingsFileName)
		require.NoError(t, os.WriteFile(enginePath, []byte(`{"O3DEVersion": "23.05.0", "engine_name": "o3de"}`), 0o644))

		mgr := NewManager(ManagerOptions{
			Config: Config{EngineRoot: engineRoot},
			Log:    testLogger(),
		})
		assert.Equal(t, "23.05.0", mgr.GetEngineVersion())
	})

	t.Run("engine keys stay out of the preferences registry", func(t *testing.T) {
		engineRoot := t.TempDir()
		enginePath := filepath.Join(engineRoot, EngineSettingsFileName)
		require.NoError(t, os.WriteFile(enginePath, []byte(`{"O3DEVersion": "23.05.0"}`), 0o644))

		mgr := NewManager(ManagerOptions{
			Config: Config{EngineRoot: engineRoot},
			Log:    testLogger(),
		})
		require.Equal(t, "23.05.0", mgr.GetEngineVersion())

		_, ok := mgr.Registry().GetString(EngineVersionKey)
		assert.False(t, ok)
	})
}

func TestResolveEndpointOverride(t *testing.T) {
	mgr := NewManager(ManagerOptions{
		Config: Config{Endpoint: "http://localhost:9999/metrics"},
		Log:    testLogger(),
	})

	cfg := mgr.ResolveEndpoint(context.Background())
	assert.Equal(t, "http://localhost:9999/metrics", cfg.Endpoint)
	assert.Equal(t, serviceapi.DefaultRegion, cfg.Region)
}

func TestSubmitMetricSuccessPersistsTimestamp(t *testing.T) {
	dir := t.TempDir()
	submitter := &fakeSubmitter{}

	mgr := NewManager(ManagerOptions{
		Config: Config{PrefsDir: dir},
		Client: submitter,
		Log:    testLogger(),
	})

	metric := Metric{Version: "1.0.0", Platform: "Linux"}
	job, err := mgr.SubmitMetric(context.Background(), metric)
	require.NoError(t, err)
	require.NoError(t, job.Wait(context.Background()))
	mgr.Wait()

	assert.Equal(t, 1, submitter.count())
	assert.Equal(t, metric, submitter.last)

	last, ok := mgr.Registry().GetUint64(LastTimeStampKey)
	require.True(t, ok)
	assert.Greater(t, last, uint64(0))

	// The timestamp must survive a reload from disk.
	reloaded := settings.New()
	require.NoError(t, reloaded.MergeFile(filepath.Join(dir, PreferencesFileName)))
	persisted, ok := reloaded.GetUint64(LastTimeStampKey)
	require.True(t, ok)
	assert.Equal(t, last, persisted)
}

func TestSubmitMetricLogsTraceContext(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)

	mgr := NewManager(ManagerOptions{
		Config: Config{PrefsDir: t.TempDir()},
		Client: &fakeSubmitter{},
		Log:    log,
	})

	tracer := sdktrace.NewTracerProvider().Tracer("attribution-test")
	ctx, span := tracer.Start(context.Background(), "editor startup")
	defer span.End()

	job, err := mgr.SubmitMetric(ctx, Metric{Version: "1.0.0"})
	require.NoError(t, err)
	require.NoError(t, job.Wait(context.Background()))
	mgr.Wait()

	out := buf.String()
	assert.Contains(t, out, "Attribution metric submit success")
	assert.Contains(t, out, span.SpanContext().TraceID().String())
}

func TestSubmitMetricFailureLeavesNoTimestamp(t *testing.T) {
	dir := t.TempDir()
	submitter := &fakeSubmitter{failure: errors.New("service returned 403")}

	mgr := NewManager(ManagerOptions{
		Config: Config{PrefsDir: dir},
		Client: submitter,
		Log:    testLogger(),
	})

	job, err := mgr.SubmitMetric(context.Background(), Metric{})
	require.NoError(t, err)
	require.ErrorContains(t, job.Wait(context.Background()), "service returned 403")
	mgr.Wait()

	_, ok := mgr.Registry().GetUint64(LastTimeStampKey)
	assert.False(t, ok)

	_, statErr := os.Stat(filepath.Join(dir, PreferencesFileName))
	assert.True(t, os.IsNotExist(statErr))
}

func TestMetricCheckSubmitsOncePerWindow(t *testing.T) {
	dir := t.TempDir()
	submitter := &fakeSubmitter{}

	mgr := NewManager(ManagerOptions{
		Config: Config{PrefsDir: dir},
		Client: submitter,
		Log:    testLogger(),
	})

	mgr.MetricCheck(context.Background())
	mgr.Wait()
	require.Equal(t, 1, submitter.count())

	// The fresh timestamp rate-limits the second check.
	mgr.MetricCheck(context.Background())
	mgr.Wait()
	assert.Equal(t, 1, submitter.count())
}

func TestMetricCheckDisabledRecordsSkip(t *testing.T) {
	dir := t.TempDir()
	writePrefs(t, dir, `{"Amazon": {"AWS": {"Preferences": {"AWSAttributionEnabled": false}}}}`)

	submitter := &fakeSubmitter{}
	metrics := observability.NewMetrics(prometheus.NewRegistry())

	mgr := NewManager(ManagerOptions{
		Config:  Config{PrefsDir: dir},
		Client:  submitter,
		Metrics: metrics,
		Log:     testLogger(),
	})

	mgr.MetricCheck(context.Background())
	mgr.Wait()

	assert.Equal(t, 0, submitter.count())
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ChecksTotal))
	skipped := metrics.ChecksSkippedTotal.WithLabelValues(observability.SkipReasonDisabled)
	assert.Equal(t, float64(1), testutil.ToFloat64(skipped))
}

func TestSaveSettingsRegistryFileCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "user", "Registry")

	mgr := NewManager(ManagerOptions{
		Config: Config{PrefsDir: dir},
		Log:    testLogger(),
	})
	require.NoError(t, mgr.Registry().Set(EnabledKey, true))

	mgr.SaveSettingsRegistryFile(context.Background())
	mgr.Wait()

	reloaded := settings.New()
	require.NoError(t, reloaded.MergeFile(filepath.Join(dir, PreferencesFileName)))
	enabled, ok := reloaded.GetBool(EnabledKey)
	require.True(t, ok)
	assert.True(t, enabled)
}

func TestCloseRejectsLaterSubmissions(t *testing.T) {
	mgr := NewManager(ManagerOptions{
		Config: Config{PrefsDir: t.TempDir()},
		Client: &fakeSubmitter{},
		Log:    testLogger(),
	})
	require.NoError(t, mgr.Close(context.Background()))

	_, err := mgr.SubmitMetric(context.Background(), Metric{})
	assert.Error(t, err)
}
