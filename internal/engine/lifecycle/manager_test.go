package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/service_runtime/internal/engine/events"
	"github.com/R3E-Network/service_runtime/internal/engine/graph"
	"github.com/R3E-Network/service_runtime/internal/engine/provider"
	"github.com/R3E-Network/service_runtime/internal/engine/state"
	"github.com/R3E-Network/service_runtime/pkg/testutil"
	"github.com/R3E-Network/service_runtime/registry"
	"github.com/R3E-Network/service_runtime/service"
)

func newManager(t *testing.T, cfg Config, regs ...service.Registration) *Manager {
	t.Helper()

	r := registry.New()
	for _, reg := range regs {
		require.NoError(t, r.Register(reg))
	}

	cfg.Registry = r
	cfg.Provider = provider.New(r)

	mgr, err := New(cfg)
	require.NoError(t, err)
	return mgr
}

func statusOf(t *testing.T, mgr *Manager, serviceType string) state.Status {
	t.Helper()
	entry, err := mgr.ServiceStatusOf(serviceType)
	require.NoError(t, err)
	return entry.Status
}

func TestNew_RejectsMissingDependency(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.Register(testutil.Registration("api", &testutil.FakeService{}, nil,
		testutil.WithRequires("db"))))

	_, err := New(Config{Registry: r, Provider: provider.New(r)})
	var missing *registry.MissingDependencyError
	require.ErrorAs(t, err, &missing)
}

func TestNew_RejectsCycle(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.Register(testutil.Registration("a", &testutil.FakeService{}, nil,
		testutil.WithRequires("b"))))
	require.NoError(t, r.Register(testutil.Registration("b", &testutil.FakeService{}, nil,
		testutil.WithRequires("a"))))

	_, err := New(Config{Registry: r, Provider: provider.New(r)})
	var cycle *graph.CycleError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, []string{"a", "b", "a"}, cycle.Path)
}

func TestNew_FreezesRegistry(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.Register(testutil.Registration("db", &testutil.FakeService{}, nil)))

	_, err := New(Config{Registry: r, Provider: provider.New(r)})
	require.NoError(t, err)

	assert.True(t, r.Frozen())
	assert.ErrorIs(t, r.Register(testutil.Registration("late", &testutil.FakeService{}, nil)), registry.ErrRegistryFrozen)
}

func TestInitializeAll_DependencyOrder(t *testing.T) {
	recorder := &testutil.CallRecorder{}
	mgr := newManager(t, Config{},
		testutil.Registration("api", &testutil.FakeService{}, recorder, testutil.WithRequires("db")),
		testutil.Registration("db", &testutil.FakeService{}, recorder),
	)

	report, err := mgr.InitializeAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Initialized)
	assert.Zero(t, report.Failed)

	calls := recorder.Calls()
	require.Len(t, calls, 4)
	assert.Equal(t, "factory:db", calls[0])
	assert.Equal(t, "init:db", calls[1])
	assert.Equal(t, "factory:api", calls[2])
	assert.Equal(t, "init:api", calls[3])
}

func TestInitializeAll_SecondCallFails(t *testing.T) {
	mgr := newManager(t, Config{},
		testutil.Registration("db", &testutil.FakeService{}, nil))

	_, err := mgr.InitializeAll(context.Background())
	require.NoError(t, err)

	_, err = mgr.InitializeAll(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyInitialized)
}

func TestInitializeAll_DependencyAvailableDuringInit(t *testing.T) {
	var sawDep bool
	dependent := &testutil.FakeService{
		OnInit: func(ctx context.Context, p service.Provider) error {
			_, err := p.Get("db")
			sawDep = err == nil
			return err
		},
	}

	mgr := newManager(t, Config{},
		testutil.Registration("db", &testutil.FakeService{}, nil),
		testutil.Registration("api", dependent, nil, testutil.WithRequires("db")),
	)

	report, err := mgr.InitializeAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Initialized)
	assert.True(t, sawDep, "running dependency was not resolvable during dependent init")
}

func TestInitializeAll_FailurePropagation(t *testing.T) {
	failing := &testutil.FakeService{InitErr: errors.New("boom")}
	dependent := &testutil.FakeService{}
	optionalDependent := &testutil.FakeService{}
	recorder := &testutil.CallRecorder{}

	mgr := newManager(t, Config{},
		testutil.Registration("d", failing, nil),
		testutil.Registration("e", dependent, recorder, testutil.WithRequires("d")),
		testutil.Registration("f", optionalDependent, nil, testutil.WithOptional("d")),
	)

	report, err := mgr.InitializeAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Initialized)
	assert.Equal(t, 2, report.Failed)

	// e fails by propagation without its hooks ever running.
	assert.Equal(t, state.StatusFailed, statusOf(t, mgr, "e"))
	entry, err := mgr.ServiceStatusOf("e")
	require.NoError(t, err)
	assert.Contains(t, entry.Error, "required dependency d failed")
	assert.Empty(t, recorder.Calls(), "dependent hooks ran despite failed dependency")

	// f tolerates the failed optional dependency.
	assert.Equal(t, state.StatusRunning, statusOf(t, mgr, "f"))
}

func TestInitializeAll_PropagationCascades(t *testing.T) {
	mgr := newManager(t, Config{},
		testutil.Registration("a", &testutil.FakeService{InitErr: errors.New("boom")}, nil),
		testutil.Registration("b", &testutil.FakeService{}, nil, testutil.WithRequires("a")),
		testutil.Registration("c", &testutil.FakeService{}, nil, testutil.WithRequires("b")),
	)

	report, err := mgr.InitializeAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, report.Failed)

	entry, err := mgr.ServiceStatusOf("c")
	require.NoError(t, err)

	var depFailed *DependencyFailedError
	require.ErrorAs(t, mgr.instances["c"].Err(), &depFailed)
	assert.Equal(t, "b", depFailed.Dependency)
	assert.NotEmpty(t, entry.Error)
}

func TestInitializeAll_Timeout(t *testing.T) {
	slow := &testutil.FakeService{InitDelay: time.Second}
	mgr := newManager(t, Config{},
		testutil.Registration("slow", slow, nil, testutil.WithInitTimeout(20*time.Millisecond)))

	report, err := mgr.InitializeAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)

	var timeout *InitTimeoutError
	require.ErrorAs(t, mgr.instances["slow"].Err(), &timeout)
	assert.Equal(t, 20*time.Millisecond, timeout.Timeout)
}

func TestInitializeAll_PanicBecomesFault(t *testing.T) {
	mgr := newManager(t, Config{},
		testutil.Registration("bad", &testutil.FakeService{InitPanic: true}, nil))

	report, err := mgr.InitializeAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)

	var fault *InitFaultError
	require.ErrorAs(t, mgr.instances["bad"].Err(), &fault)
	assert.Contains(t, fault.Error(), "panic")
}

func TestInitializeAll_FailFast(t *testing.T) {
	lateWave := &testutil.FakeService{}
	mgr := newManager(t, Config{FailFast: true},
		testutil.Registration("a", &testutil.FakeService{InitErr: errors.New("boom")}, nil),
		testutil.Registration("b", lateWave, nil, testutil.WithRequires("a")),
	)

	_, err := mgr.InitializeAll(context.Background())
	require.Error(t, err)

	var fault *InitFaultError
	assert.ErrorAs(t, err, &fault)
	assert.Zero(t, lateWave.InitCalls(), "later wave ran despite fail-fast")
}

func TestShutdownAll_ReverseOrderBestEffort(t *testing.T) {
	recorder := &testutil.CallRecorder{}
	a := &testutil.FakeService{}
	b := &testutil.FakeService{ShutdownErr: errors.New("release failed")}
	c := &testutil.FakeService{}

	mgr := newManager(t, Config{},
		testutil.Registration("a", a, recorder),
		testutil.Registration("b", b, recorder, testutil.WithRequires("a")),
		testutil.Registration("c", c, recorder, testutil.WithRequires("b")),
	)

	_, err := mgr.InitializeAll(context.Background())
	require.NoError(t, err)

	report := mgr.ShutdownAll(context.Background())
	require.Len(t, report.Outcomes, 3)
	assert.Equal(t, 1, report.Faults)

	// Reverse bring-up order: c, then b (faults), then a still runs.
	assert.Equal(t, "c", report.Outcomes[0].Type)
	assert.Equal(t, "b", report.Outcomes[1].Type)
	assert.Equal(t, "a", report.Outcomes[2].Type)

	assert.Equal(t, state.StatusTerminated, report.Outcomes[0].Status)
	assert.Equal(t, state.StatusShutdownFailed, report.Outcomes[1].Status)
	assert.Equal(t, state.StatusTerminated, report.Outcomes[2].Status)

	assert.Equal(t, 1, a.ShutdownCalls())
	assert.Equal(t, 1, c.ShutdownCalls())
}

func TestShutdownAll_TimeoutRecordedAsFault(t *testing.T) {
	slow := &testutil.FakeService{ShutdownDelay: time.Second}
	mgr := newManager(t, Config{},
		testutil.Registration("slow", slow, nil, testutil.WithShutdownTimeout(20*time.Millisecond)))

	_, err := mgr.InitializeAll(context.Background())
	require.NoError(t, err)

	report := mgr.ShutdownAll(context.Background())
	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, 1, report.Faults)

	var fault *ShutdownFaultError
	require.ErrorAs(t, mgr.instances["slow"].Err(), &fault)
	assert.True(t, fault.TimedOut)
}

func TestShutdownAll_SkipsNeverStarted(t *testing.T) {
	failing := &testutil.FakeService{InitErr: errors.New("boom")}
	mgr := newManager(t, Config{},
		testutil.Registration("bad", failing, nil))

	_, err := mgr.InitializeAll(context.Background())
	require.NoError(t, err)

	report := mgr.ShutdownAll(context.Background())
	assert.Zero(t, report.Faults)
	assert.Zero(t, failing.ShutdownCalls(), "shutdown hook ran for a never-running service")
	assert.Equal(t, state.StatusTerminated, statusOf(t, mgr, "bad"))
}

func TestRestart_Succeeds(t *testing.T) {
	svc := &testutil.FakeService{}
	mgr := newManager(t, Config{},
		testutil.Registration("db", svc, nil, testutil.WithRestart()))

	_, err := mgr.InitializeAll(context.Background())
	require.NoError(t, err)

	firstID := mgr.instances["db"].ID()
	require.NoError(t, mgr.Restart(context.Background(), "db"))

	assert.Equal(t, state.StatusRunning, statusOf(t, mgr, "db"))
	assert.Equal(t, 1, svc.ShutdownCalls())
	assert.Equal(t, 2, svc.InitCalls())
	assert.NotEqual(t, firstID, mgr.instances["db"].ID(), "restart reused the instance ID")
}

func TestRestart_NotSupported(t *testing.T) {
	svc := &testutil.FakeService{}
	mgr := newManager(t, Config{},
		testutil.Registration("db", svc, nil))

	_, err := mgr.InitializeAll(context.Background())
	require.NoError(t, err)

	err = mgr.Restart(context.Background(), "db")
	var notSupported *RestartNotSupportedError
	require.ErrorAs(t, err, &notSupported)

	// The running instance is untouched.
	assert.Equal(t, state.StatusRunning, statusOf(t, mgr, "db"))
	assert.Zero(t, svc.ShutdownCalls())
}

func TestRestart_NotRegistered(t *testing.T) {
	mgr := newManager(t, Config{},
		testutil.Registration("db", &testutil.FakeService{}, nil))

	_, err := mgr.InitializeAll(context.Background())
	require.NoError(t, err)

	err = mgr.Restart(context.Background(), "ghost")
	var notRegistered *provider.NotRegisteredError
	assert.ErrorAs(t, err, &notRegistered)
}

func TestRestart_FailedServiceComesBack(t *testing.T) {
	svc := &testutil.FakeService{InitErr: errors.New("boom")}
	mgr := newManager(t, Config{},
		testutil.Registration("db", svc, nil, testutil.WithRestart()))

	_, err := mgr.InitializeAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, state.StatusFailed, statusOf(t, mgr, "db"))

	svc.InitErr = nil
	require.NoError(t, mgr.Restart(context.Background(), "db"))
	assert.Equal(t, state.StatusRunning, statusOf(t, mgr, "db"))
}

func TestRestart_ConcurrentCallsShareOneAttempt(t *testing.T) {
	svc := &testutil.FakeService{InitDelay: 50 * time.Millisecond}
	mgr := newManager(t, Config{},
		testutil.Registration("db", svc, nil, testutil.WithRestart()))

	_, err := mgr.InitializeAll(context.Background())
	require.NoError(t, err)
	initialInits := svc.InitCalls()

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			errs[n] = mgr.Restart(context.Background(), "db")
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	// All callers observed the same single restart.
	assert.Equal(t, initialInits+1, svc.InitCalls())
	assert.Equal(t, 1, svc.ShutdownCalls())
}

func TestCheckHealth(t *testing.T) {
	healthy := &testutil.FakeService{}
	degraded := &testutil.FakeService{Health: service.Degraded("cache cold")}
	unprobed := &testutil.FakeService{}

	mgr := newManager(t, Config{},
		testutil.Registration("db", healthy, nil, testutil.WithHealthCheck()),
		testutil.Registration("cache", degraded, nil, testutil.WithHealthCheck()),
		testutil.Registration("worker", unprobed, nil),
	)

	_, err := mgr.InitializeAll(context.Background())
	require.NoError(t, err)

	entry, err := mgr.CheckHealth(context.Background(), "db")
	require.NoError(t, err)
	assert.Equal(t, service.HealthHealthy, entry.Health.State)

	entry, err = mgr.CheckHealth(context.Background(), "cache")
	require.NoError(t, err)
	assert.Equal(t, service.HealthDegraded, entry.Health.State)
	assert.Equal(t, "cache cold", entry.Health.Message)

	entry, err = mgr.CheckHealth(context.Background(), "worker")
	require.NoError(t, err)
	assert.Equal(t, service.HealthUnknown, entry.Health.State)

	_, err = mgr.CheckHealth(context.Background(), "ghost")
	var notRegistered *provider.NotRegisteredError
	assert.ErrorAs(t, err, &notRegistered)
}

func TestCheckHealth_NotRunning(t *testing.T) {
	mgr := newManager(t, Config{},
		testutil.Registration("bad", &testutil.FakeService{InitErr: errors.New("boom")}, nil,
			testutil.WithHealthCheck()))

	_, err := mgr.InitializeAll(context.Background())
	require.NoError(t, err)

	entry, err := mgr.CheckHealth(context.Background(), "bad")
	require.NoError(t, err)
	assert.Equal(t, state.StatusFailed, entry.Status)
	assert.Equal(t, service.HealthUnknown, entry.Health.State)
}

func TestCheckAllHealth(t *testing.T) {
	mgr := newManager(t, Config{},
		testutil.Registration("db", &testutil.FakeService{}, nil, testutil.WithHealthCheck()),
		testutil.Registration("cache", &testutil.FakeService{Health: service.Unhealthy("down")}, nil,
			testutil.WithHealthCheck()),
	)

	_, err := mgr.InitializeAll(context.Background())
	require.NoError(t, err)

	report := mgr.CheckAllHealth(context.Background())
	assert.Equal(t, 1, report.Healthy)
	assert.Equal(t, 1, report.Unhealthy)
	assert.Len(t, report.Entries, 2)
}

func TestTransient_NotManaged(t *testing.T) {
	mgr := newManager(t, Config{},
		testutil.Registration("codec", &testutil.FakeService{}, nil,
			testutil.WithLifetime(service.LifetimeTransient)))

	report, err := mgr.InitializeAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Initialized, "transient service was initialized eagerly")

	err = mgr.Restart(context.Background(), "codec")
	var notSupported *RestartNotSupportedError
	assert.ErrorAs(t, err, &notSupported)

	entry, err := mgr.CheckHealth(context.Background(), "codec")
	require.NoError(t, err)
	assert.Equal(t, service.HealthUnknown, entry.Health.State)
}

func TestEventsPublishedDuringLifecycle(t *testing.T) {
	log := events.NewRingBuffer(100)
	mgr := newManager(t, Config{Events: log},
		testutil.Registration("db", &testutil.FakeService{}, nil, testutil.WithRestart()))

	_, err := mgr.InitializeAll(context.Background())
	require.NoError(t, err)
	require.NoError(t, mgr.Restart(context.Background(), "db"))
	mgr.ShutdownAll(context.Background())

	seen := make(map[events.Type]bool)
	for _, e := range log.Recent(100) {
		seen[e.Type] = true
	}

	for _, want := range []events.Type{
		events.TypeServiceRegistered,
		events.TypeServiceInitializing,
		events.TypeServiceRunning,
		events.TypeWaveStarted,
		events.TypeWaveCompleted,
		events.TypeRestartStarted,
		events.TypeRestartSucceeded,
		events.TypeRuntimeShuttingDown,
		events.TypeServiceTerminated,
		events.TypeRuntimeTerminated,
	} {
		assert.True(t, seen[want], "missing event %s", want)
	}
}

func TestStatus_Snapshot(t *testing.T) {
	mgr := newManager(t, Config{},
		testutil.Registration("db", &testutil.FakeService{}, nil, testutil.WithPriority(50)),
		testutil.Registration("api", &testutil.FakeService{}, nil, testutil.WithRequires("db")),
	)

	_, err := mgr.InitializeAll(context.Background())
	require.NoError(t, err)

	statuses := mgr.Status()
	require.Len(t, statuses, 2)
	for _, entry := range statuses {
		assert.Equal(t, state.StatusRunning, entry.Status)
		assert.NotEmpty(t, entry.InstanceID)
		assert.False(t, entry.StartedAt.IsZero())
	}

	waves := mgr.Waves()
	require.Len(t, waves, 2)
	assert.Equal(t, []string{"db"}, waves[0])
	assert.Equal(t, []string{"api"}, waves[1])
}
