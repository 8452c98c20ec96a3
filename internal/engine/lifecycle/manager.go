// Package lifecycle drives the per-instance service state machine:
// wave-ordered initialization with timeouts and failure propagation,
// health probes, single-flighted restarts, and best-effort reverse-order
// shutdown.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/R3E-Network/service_runtime/internal/engine/events"
	"github.com/R3E-Network/service_runtime/internal/engine/graph"
	"github.com/R3E-Network/service_runtime/internal/engine/metrics"
	"github.com/R3E-Network/service_runtime/internal/engine/provider"
	"github.com/R3E-Network/service_runtime/internal/engine/state"
	"github.com/R3E-Network/service_runtime/pkg/logger"
	"github.com/R3E-Network/service_runtime/registry"
	"github.com/R3E-Network/service_runtime/service"
)

// ErrAlreadyInitialized is returned by a second InitializeAll call.
var ErrAlreadyInitialized = errors.New("runtime already initialized")

// DefaultHealthCheckTimeout bounds one health probe.
const DefaultHealthCheckTimeout = 5 * time.Second

// Config wires the manager's collaborators.
type Config struct {
	Registry *registry.Registry
	Provider *provider.Provider
	Logger   *logger.Logger
	Events   events.Log
	Metrics  *metrics.Collector

	// FailFast makes InitializeAll return the first init failure as an
	// error after its wave settles. The report is still complete.
	FailFast bool
}

// Manager owns the runtime's instances and drives their lifecycle.
type Manager struct {
	reg      *registry.Registry
	graph    *graph.Graph
	waves    [][]string
	provider *provider.Provider
	log      *logger.Logger
	events   events.Log
	metrics  *metrics.Collector
	failFast bool

	mu          sync.RWMutex
	instances   map[string]*instance
	bringUp     []string
	initialized bool

	restarts singleflight.Group
}

// New validates the registration set, builds the dependency graph, and
// freezes the registry. Duplicate, missing-dependency and cycle errors
// abort construction: an invalid graph is never scheduled.
func New(cfg Config) (*Manager, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("lifecycle: registry is required")
	}
	if cfg.Provider == nil {
		return nil, fmt.Errorf("lifecycle: provider is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewDefault("lifecycle")
	}
	if cfg.Events == nil {
		cfg.Events = events.NoOpLog{}
	}

	m := &Manager{
		reg:       cfg.Registry,
		provider:  cfg.Provider,
		log:       cfg.Logger,
		events:    cfg.Events,
		metrics:   cfg.Metrics,
		failFast:  cfg.FailFast,
		instances: make(map[string]*instance),
	}

	if err := m.reg.Validate(); err != nil {
		var missing *registry.MissingDependencyError
		if errors.As(err, &missing) && m.metrics != nil {
			m.metrics.IncDependencyMissing()
		}
		return nil, err
	}

	g, err := graph.Build(m.reg.List())
	if err != nil {
		var cycle *graph.CycleError
		if errors.As(err, &cycle) && m.metrics != nil {
			m.metrics.IncDependencyCycle()
		}
		return nil, err
	}
	m.graph = g
	m.waves = g.Waves()
	m.reg.Freeze()

	for _, reg := range m.reg.List() {
		if reg.Lifetime != service.LifetimeSingleton {
			continue
		}
		m.instances[reg.Type] = newInstance(reg)
		m.setStatusMetric(reg.Type, state.StatusRegistered)
		m.events.Publish(events.Event{
			Type:    events.TypeServiceRegistered,
			Service: reg.Type,
			Status:  state.StatusRegistered,
		})
	}

	m.provider.SetTransientResolver(m.resolveTransient)

	if m.metrics != nil {
		m.metrics.SetWaveCount(len(m.waves))
	}

	return m, nil
}

// Waves returns the computed initialization schedule.
func (m *Manager) Waves() [][]string {
	out := make([][]string, len(m.waves))
	for i, wave := range m.waves {
		out[i] = append([]string(nil), wave...)
	}
	return out
}

// InitializeAll brings every singleton up in wave order. Members of one
// wave initialize concurrently; the manager waits at each wave boundary
// until every member settles, because later waves consult earlier
// terminal states for failure propagation. Per-service failures are
// captured in the report, never returned, unless FailFast is set.
func (m *Manager) InitializeAll(ctx context.Context) (*InitReport, error) {
	m.mu.Lock()
	if m.initialized {
		m.mu.Unlock()
		return nil, ErrAlreadyInitialized
	}
	m.initialized = true
	m.mu.Unlock()

	start := time.Now()
	m.events.Publish(events.Event{Type: events.TypeRuntimeInitializing})
	m.log.WithField("waves", len(m.waves)).Info("initializing services")

	var firstFailure error
	for waveIndex, wave := range m.waves {
		members := m.singletonMembers(wave)
		if len(members) == 0 {
			continue
		}

		m.events.Publish(events.Event{
			Type:    events.TypeWaveStarted,
			Wave:    waveIndex + 1,
			Message: fmt.Sprintf("wave %d: %d services", waveIndex+1, len(members)),
		})

		var eg errgroup.Group
		for _, serviceType := range members {
			inst := m.instances[serviceType]
			eg.Go(func() error {
				m.initOne(ctx, inst)
				return nil
			})
		}
		_ = eg.Wait()

		m.events.Publish(events.Event{Type: events.TypeWaveCompleted, Wave: waveIndex + 1})

		if m.failFast && firstFailure == nil {
			for _, serviceType := range members {
				if inst := m.instances[serviceType]; inst.Status() == state.StatusFailed {
					firstFailure = inst.Err()
					break
				}
			}
			if firstFailure != nil {
				break
			}
		}
	}

	report := m.buildInitReport(time.Since(start))
	m.events.Publish(events.Event{
		Type:     events.TypeRuntimeInitialized,
		Message:  fmt.Sprintf("%d running, %d failed", report.Initialized, report.Failed),
		Duration: report.Elapsed,
	})
	m.log.WithField("initialized", report.Initialized).
		WithField("failed", report.Failed).
		WithField("elapsed", report.Elapsed.String()).
		Info("initialization complete")

	return report, firstFailure
}

// initOne settles one instance: dependency-failure propagation, then
// construction and init bounded by the registration's timeout.
func (m *Manager) initOne(ctx context.Context, inst *instance) {
	inst.constructMu.Lock()
	defer inst.constructMu.Unlock()

	if inst.Status().IsSettled() {
		return // memoized: a concurrent attempt already settled it
	}

	if dep, failed := m.failedRequiredDep(inst.reg); failed {
		err := &DependencyFailedError{Type: inst.reg.Type, Dependency: dep}
		m.applyTransition(inst, state.StatusFailed, err)
		m.events.Publish(events.Event{
			Type:     events.TypeDependencyFailed,
			Service:  inst.reg.Type,
			Severity: events.SeverityWarning,
			Status:   state.StatusFailed,
			Error:    err.Error(),
		})
		if m.metrics != nil {
			m.metrics.IncDependencySkip()
			m.metrics.IncInitFailure(inst.reg.Type, "dependency")
		}
		m.log.WithField("service", inst.reg.Type).
			WithField("dependency", dep).
			Warn("skipping init: required dependency failed")
		return
	}

	if ctx.Err() != nil {
		err := &InitFaultError{Type: inst.reg.Type, Cause: ctx.Err()}
		m.applyTransition(inst, state.StatusFailed, err)
		m.publishInitFailure(inst.reg.Type, err, 0)
		return
	}

	m.applyTransition(inst, state.StatusInitializing, nil)
	m.events.Publish(events.Event{
		Type:    events.TypeServiceInitializing,
		Service: inst.reg.Type,
		Status:  state.StatusInitializing,
	})

	start := time.Now()
	svc, err := m.runInit(ctx, inst.reg)
	elapsed := time.Since(start)

	if err != nil {
		m.applyTransition(inst, state.StatusFailed, err)
		m.publishInitFailure(inst.reg.Type, err, elapsed)
		return
	}

	inst.adopt(svc)
	m.applyTransition(inst, state.StatusRunning, nil)
	m.provider.Publish(inst.reg.Type, svc)
	m.recordBringUp(inst.reg.Type)

	m.events.Publish(events.Event{
		Type:     events.TypeServiceRunning,
		Service:  inst.reg.Type,
		Status:   state.StatusRunning,
		Duration: elapsed,
	})
	if m.metrics != nil {
		m.metrics.ObserveInit(inst.reg.Type, "success", elapsed)
	}
	m.log.WithField("service", inst.reg.Type).
		WithField("elapsed", elapsed.String()).
		Info("service running")
}

// runInit constructs and initializes one instance, racing the hook
// against the registration's init timeout and global cancellation. The
// wall clock wins over an uncooperative hook: the straggler goroutine
// is abandoned and its eventual result discarded.
func (m *Manager) runInit(ctx context.Context, reg service.Registration) (service.Service, error) {
	ictx, cancel := context.WithTimeout(ctx, reg.InitTimeout)
	defer cancel()

	type result struct {
		svc service.Service
		err error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: &InitFaultError{Type: reg.Type, Cause: fmt.Errorf("panic: %v", r)}}
			}
		}()
		svc, err := reg.Factory(ictx, m.provider)
		if err == nil && svc == nil {
			err = fmt.Errorf("factory returned nil service")
		}
		if err == nil {
			err = svc.Init(ictx, m.provider)
		}
		done <- result{svc: svc, err: err}
	}()

	classify := func(err error) error {
		var fault *InitFaultError
		if errors.As(err, &fault) {
			return err
		}
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return &InitTimeoutError{Type: reg.Type, Timeout: reg.InitTimeout}
		}
		return &InitFaultError{Type: reg.Type, Cause: err}
	}

	select {
	case res := <-done:
		if res.err != nil {
			return nil, classify(res.err)
		}
		return res.svc, nil
	case <-ictx.Done():
		return nil, classify(ictx.Err())
	}
}

// resolveTransient is installed on the provider: transient instances
// are constructed and initialized per resolution under the same timeout
// rules, but are not tracked for shutdown, health, or restart.
func (m *Manager) resolveTransient(reg service.Registration) (service.Service, error) {
	return m.runInit(context.Background(), reg)
}

// ShutdownAll tears every ever-running service down in exact reverse of
// bring-up order. Each hook is bounded by its own timeout; faults are
// recorded and never abort the sequence. It never returns an error.
func (m *Manager) ShutdownAll(ctx context.Context) *ShutdownReport {
	start := time.Now()

	m.mu.Lock()
	order := graph.ShutdownOrder(m.bringUp)
	m.mu.Unlock()

	m.events.Publish(events.Event{Type: events.TypeRuntimeShuttingDown})
	m.log.WithField("services", len(order)).Info("shutting down services")

	report := &ShutdownReport{}
	for _, serviceType := range order {
		outcome := m.shutdownOne(ctx, m.instances[serviceType])
		if outcome.Error != "" {
			report.Faults++
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}

	// Services that failed during init hold no live resources; settle
	// their bookkeeping so the report covers every managed instance.
	for _, serviceType := range m.graph.Types() {
		inst, ok := m.instances[serviceType]
		if !ok || inst.Status() != state.StatusFailed {
			continue
		}
		m.applyTransition(inst, state.StatusTerminated, nil)
		inst.clear()
		report.Outcomes = append(report.Outcomes, ShutdownOutcome{
			Type:   serviceType,
			Status: state.StatusTerminated,
		})
	}

	report.Elapsed = time.Since(start)
	m.events.Publish(events.Event{
		Type:     events.TypeRuntimeTerminated,
		Message:  fmt.Sprintf("%d services, %d faults", len(report.Outcomes), report.Faults),
		Duration: report.Elapsed,
	})
	m.log.WithField("faults", report.Faults).
		WithField("elapsed", report.Elapsed.String()).
		Info("shutdown complete")
	return report
}

func (m *Manager) shutdownOne(ctx context.Context, inst *instance) ShutdownOutcome {
	inst.constructMu.Lock()
	defer inst.constructMu.Unlock()

	serviceType := inst.reg.Type
	if inst.Status() != state.StatusRunning {
		return ShutdownOutcome{Type: serviceType, Status: inst.Status()}
	}

	svc := inst.Service()
	m.applyTransition(inst, state.StatusShuttingDown, nil)
	m.events.Publish(events.Event{
		Type:    events.TypeServiceShuttingDown,
		Service: serviceType,
		Status:  state.StatusShuttingDown,
	})

	start := time.Now()
	err := m.runShutdown(ctx, inst.reg, svc)
	elapsed := time.Since(start)

	m.provider.Withdraw(serviceType)
	inst.clear()

	if err != nil {
		m.applyTransition(inst, state.StatusShutdownFailed, err)
		m.events.Publish(events.Event{
			Type:     events.TypeShutdownFault,
			Service:  serviceType,
			Severity: events.SeverityError,
			Status:   state.StatusShutdownFailed,
			Error:    err.Error(),
			Duration: elapsed,
		})
		if m.metrics != nil {
			m.metrics.IncShutdownFault(serviceType)
			m.metrics.ObserveShutdown(serviceType, "fault", elapsed)
		}
		m.log.WithField("service", serviceType).WithError(err).Error("shutdown fault")
		return ShutdownOutcome{Type: serviceType, Status: state.StatusShutdownFailed, Error: err.Error(), Elapsed: elapsed}
	}

	m.applyTransition(inst, state.StatusTerminated, nil)
	m.events.Publish(events.Event{
		Type:     events.TypeServiceTerminated,
		Service:  serviceType,
		Status:   state.StatusTerminated,
		Duration: elapsed,
	})
	if m.metrics != nil {
		m.metrics.ObserveShutdown(serviceType, "success", elapsed)
	}
	return ShutdownOutcome{Type: serviceType, Status: state.StatusTerminated, Elapsed: elapsed}
}

// runShutdown races the shutdown hook against its timeout, capturing
// panics as faults.
func (m *Manager) runShutdown(ctx context.Context, reg service.Registration, svc service.Service) error {
	sctx, cancel := context.WithTimeout(ctx, reg.ShutdownTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic: %v", r)
			}
		}()
		done <- svc.Shutdown(sctx)
	}()

	select {
	case err := <-done:
		if err != nil {
			return &ShutdownFaultError{Type: reg.Type, Cause: err}
		}
		return nil
	case <-sctx.Done():
		return &ShutdownFaultError{Type: reg.Type, Cause: sctx.Err(), TimedOut: true}
	}
}

// Restart performs shutdown-then-init on the same registration.
// Concurrent calls for one service are single-flighted: the second
// caller awaits the in-flight restart and observes the same outcome.
func (m *Manager) Restart(ctx context.Context, serviceType string) error {
	reg, ok := m.reg.Get(serviceType)
	if !ok {
		return &provider.NotRegisteredError{Type: serviceType}
	}
	if reg.Lifetime != service.LifetimeSingleton || !reg.SupportsRestart {
		return &RestartNotSupportedError{Type: serviceType}
	}

	_, err, _ := m.restarts.Do(serviceType, func() (interface{}, error) {
		return nil, m.restartOne(ctx, m.instances[serviceType])
	})
	return err
}

func (m *Manager) restartOne(ctx context.Context, inst *instance) error {
	serviceType := inst.reg.Type
	m.events.Publish(events.Event{Type: events.TypeRestartStarted, Service: serviceType})
	m.log.WithField("service", serviceType).Info("restarting service")

	inst.constructMu.Lock()
	defer inst.constructMu.Unlock()

	if inst.Status() == state.StatusRunning {
		svc := inst.Service()
		m.applyTransition(inst, state.StatusShuttingDown, nil)
		if err := m.runShutdown(ctx, inst.reg, svc); err != nil {
			// Recorded but not fatal: the restart still proceeds to a
			// fresh instance.
			m.applyTransition(inst, state.StatusShutdownFailed, err)
			m.events.Publish(events.Event{
				Type:     events.TypeShutdownFault,
				Service:  serviceType,
				Severity: events.SeverityWarning,
				Error:    err.Error(),
			})
			if m.metrics != nil {
				m.metrics.IncShutdownFault(serviceType)
			}
		} else {
			m.applyTransition(inst, state.StatusTerminated, nil)
		}
		m.provider.Withdraw(serviceType)
		inst.clear()
	}

	if dep, failed := m.failedRequiredDep(inst.reg); failed {
		err := &DependencyFailedError{Type: serviceType, Dependency: dep}
		m.applyTransition(inst, state.StatusFailed, err)
		m.events.Publish(events.Event{
			Type:     events.TypeRestartFailed,
			Service:  serviceType,
			Severity: events.SeverityError,
			Error:    err.Error(),
		})
		if m.metrics != nil {
			m.metrics.IncRestart(serviceType, "failure")
		}
		return err
	}

	m.applyTransition(inst, state.StatusInitializing, nil)

	start := time.Now()
	svc, err := m.runInit(ctx, inst.reg)
	elapsed := time.Since(start)

	if err != nil {
		m.applyTransition(inst, state.StatusFailed, err)
		m.events.Publish(events.Event{
			Type:     events.TypeRestartFailed,
			Service:  serviceType,
			Severity: events.SeverityError,
			Error:    err.Error(),
			Duration: elapsed,
		})
		if m.metrics != nil {
			m.metrics.IncRestart(serviceType, "failure")
			m.metrics.ObserveInit(serviceType, "failure", elapsed)
		}
		m.log.WithField("service", serviceType).WithError(err).Error("restart failed")
		return err
	}

	inst.adopt(svc)
	m.applyTransition(inst, state.StatusRunning, nil)
	m.provider.Publish(serviceType, svc)
	m.recordBringUp(serviceType)

	m.events.Publish(events.Event{
		Type:     events.TypeRestartSucceeded,
		Service:  serviceType,
		Status:   state.StatusRunning,
		Duration: elapsed,
	})
	if m.metrics != nil {
		m.metrics.IncRestart(serviceType, "success")
		m.metrics.ObserveInit(serviceType, "success", elapsed)
	}
	m.log.WithField("service", serviceType).Info("restart succeeded")
	return nil
}

// CheckHealth probes one service. A failing probe never changes the
// service's lifecycle state.
func (m *Manager) CheckHealth(ctx context.Context, serviceType string) (HealthEntry, error) {
	reg, ok := m.reg.Get(serviceType)
	if !ok {
		return HealthEntry{}, &provider.NotRegisteredError{Type: serviceType}
	}

	inst, managed := m.instances[serviceType]
	if !managed {
		return HealthEntry{
			Type:   serviceType,
			Status: state.StatusRegistered,
			Health: service.Health{State: service.HealthUnknown, Message: "transient services are not probed"},
		}, nil
	}

	entry := HealthEntry{Type: serviceType, Status: inst.Status()}
	if entry.Status != state.StatusRunning {
		entry.Health = service.Health{State: service.HealthUnknown, Message: "service not running"}
		return entry, nil
	}

	if !reg.SupportsHealthCheck {
		entry.Health = service.Health{State: service.HealthUnknown, Message: "health check not supported"}
		return entry, nil
	}

	checker, ok := inst.Service().(service.HealthChecker)
	if !ok {
		entry.Health = service.Health{State: service.HealthUnknown, Message: "no health probe implemented"}
		return entry, nil
	}

	start := time.Now()
	entry.Health = m.runHealthCheck(ctx, checker)
	entry.Elapsed = time.Since(start)

	if m.metrics != nil {
		m.metrics.SetServiceHealth(serviceType, int32(entry.Health.State))
	}
	m.events.Publish(events.Event{
		Type:     events.TypeHealthChecked,
		Service:  serviceType,
		Severity: events.SeverityDebug,
		Message:  entry.Health.State.String(),
		Duration: entry.Elapsed,
	})
	return entry, nil
}

func (m *Manager) runHealthCheck(ctx context.Context, checker service.HealthChecker) service.Health {
	hctx, cancel := context.WithTimeout(ctx, DefaultHealthCheckTimeout)
	defer cancel()

	done := make(chan service.Health, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- service.Unhealthy(fmt.Sprintf("health check panic: %v", r))
			}
		}()
		done <- checker.HealthCheck(hctx)
	}()

	select {
	case h := <-done:
		return h
	case <-hctx.Done():
		return service.Unhealthy("health check timed out")
	}
}

// CheckAllHealth probes every managed service and aggregates the
// results. Non-running services appear with an unknown probe result so
// failures stay visible in the report.
func (m *Manager) CheckAllHealth(ctx context.Context) *HealthReport {
	report := &HealthReport{GeneratedAt: time.Now().UTC()}

	for _, serviceType := range m.graph.Types() {
		entry, err := m.CheckHealth(ctx, serviceType)
		if err != nil {
			continue
		}
		switch entry.Health.State {
		case service.HealthHealthy:
			report.Healthy++
		case service.HealthDegraded:
			report.Degraded++
		case service.HealthUnhealthy:
			report.Unhealthy++
		}
		report.Entries = append(report.Entries, entry)
	}

	m.events.Publish(events.Event{
		Type:     events.TypeHealthSweep,
		Severity: events.SeverityDebug,
		Message: fmt.Sprintf("%d healthy, %d degraded, %d unhealthy",
			report.Healthy, report.Degraded, report.Unhealthy),
	})
	return report
}

// Status returns a snapshot of every registration in graph order.
func (m *Manager) Status() []ServiceStatus {
	var out []ServiceStatus
	for _, serviceType := range m.graph.Types() {
		reg, _ := m.reg.Get(serviceType)
		entry := ServiceStatus{
			Type:     serviceType,
			Lifetime: reg.Lifetime,
			Priority: reg.Priority,
			Status:   state.StatusRegistered,
		}
		if inst, ok := m.instances[serviceType]; ok {
			entry.Status = inst.Status()
			entry.InstanceID = inst.ID()
			entry.StartedAt = inst.StartedAt()
			if err := inst.Err(); err != nil {
				entry.Error = err.Error()
			}
		}
		out = append(out, entry)
	}
	return out
}

// ServiceStatusOf returns the snapshot for one service.
func (m *Manager) ServiceStatusOf(serviceType string) (ServiceStatus, error) {
	if _, ok := m.reg.Get(serviceType); !ok {
		return ServiceStatus{}, &provider.NotRegisteredError{Type: serviceType}
	}
	for _, entry := range m.Status() {
		if entry.Type == serviceType {
			return entry, nil
		}
	}
	return ServiceStatus{}, &provider.NotRegisteredError{Type: serviceType}
}

// --- internal helpers ---

func (m *Manager) singletonMembers(wave []string) []string {
	var members []string
	for _, serviceType := range wave {
		if _, ok := m.instances[serviceType]; ok {
			members = append(members, serviceType)
		}
	}
	return members
}

// failedRequiredDep returns the first failed required dependency.
// Transient dependencies are constructible on demand and never block.
func (m *Manager) failedRequiredDep(reg service.Registration) (string, bool) {
	for _, dep := range reg.Requires {
		if inst, ok := m.instances[dep]; ok && inst.Status() == state.StatusFailed {
			return dep, true
		}
	}
	return "", false
}

func (m *Manager) applyTransition(inst *instance, to state.Status, err error) {
	if violation := inst.transition(to, err); violation != nil {
		m.log.WithField("service", inst.reg.Type).WithError(violation).Warn("unexpected state transition")
	}
	m.setStatusMetric(inst.reg.Type, to)
}

func (m *Manager) setStatusMetric(serviceType string, status state.Status) {
	if m.metrics != nil {
		m.metrics.SetServiceStatus(serviceType, status)
	}
}

func (m *Manager) recordBringUp(serviceType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.bringUp {
		if t == serviceType {
			return
		}
	}
	m.bringUp = append(m.bringUp, serviceType)
}

func (m *Manager) publishInitFailure(serviceType string, err error, elapsed time.Duration) {
	eventType := events.TypeServiceInitFailed
	reason := "fault"
	var timeout *InitTimeoutError
	if errors.As(err, &timeout) {
		eventType = events.TypeServiceInitTimeout
		reason = "timeout"
	}

	m.events.Publish(events.Event{
		Type:     eventType,
		Service:  serviceType,
		Severity: events.SeverityError,
		Status:   state.StatusFailed,
		Error:    err.Error(),
		Duration: elapsed,
	})
	if m.metrics != nil {
		m.metrics.IncInitFailure(serviceType, reason)
		m.metrics.ObserveInit(serviceType, "failure", elapsed)
	}
	m.log.WithField("service", serviceType).WithError(err).Error("initialization failed")
}

func (m *Manager) buildInitReport(elapsed time.Duration) *InitReport {
	report := &InitReport{
		Waves:   m.Waves(),
		Elapsed: elapsed,
	}
	for _, entry := range m.Status() {
		report.Services = append(report.Services, entry)
		switch entry.Status {
		case state.StatusRunning:
			report.Initialized++
		case state.StatusFailed:
			report.Failed++
		}
	}
	return report
}
