// Package orchestrator is the public entry point of the runtime: it
// collects registrations, builds the dependency-ordered schedule, and
// drives initialization, health, restart, and shutdown.
package orchestrator

import (
	"context"
	"errors"

	"github.com/R3E-Network/service_runtime/internal/engine/events"
	"github.com/R3E-Network/service_runtime/internal/engine/lifecycle"
	"github.com/R3E-Network/service_runtime/internal/engine/metrics"
	"github.com/R3E-Network/service_runtime/internal/engine/provider"
	"github.com/R3E-Network/service_runtime/pkg/logger"
	"github.com/R3E-Network/service_runtime/registry"
	"github.com/R3E-Network/service_runtime/service"
)

// ErrNotInitialized is returned by operations that need a built
// schedule before InitializeAll has been called.
var ErrNotInitialized = errors.New("runtime not initialized")

// Config tunes a new orchestrator. The zero value is usable.
type Config struct {
	Logger *logger.Logger

	// MetricsNamespace prefixes Prometheus metric names; empty selects
	// the default namespace.
	MetricsNamespace string

	// FailFast makes InitializeAll return the first init failure after
	// its wave settles instead of continuing to later waves.
	FailFast bool

	// EventBufferSize bounds the in-memory event log (default 1000).
	EventBufferSize int
}

// Orchestrator owns the runtime's registry, event log, metrics, and
// (once initialized) the lifecycle manager.
type Orchestrator struct {
	cfg      Config
	log      *logger.Logger
	registry *registry.Registry
	provider *provider.Provider
	events   *events.RingBuffer
	metrics  *metrics.Collector
	manager  *lifecycle.Manager
}

// New creates an orchestrator accepting registrations.
func New(cfg Config) *Orchestrator {
	if cfg.Logger == nil {
		cfg.Logger = logger.NewDefault("orchestrator")
	}

	reg := registry.New()
	return &Orchestrator{
		cfg:      cfg,
		log:      cfg.Logger,
		registry: reg,
		provider: provider.New(reg),
		events:   events.NewRingBuffer(cfg.EventBufferSize),
		metrics:  metrics.NewCollector(cfg.MetricsNamespace),
	}
}

// Register adds one service registration. Registration closes once
// InitializeAll runs.
func (o *Orchestrator) Register(reg service.Registration) error {
	return o.registry.Register(reg)
}

// InitializeAll validates the registration set, computes the wave
// schedule, and brings every singleton up. The first call freezes
// registration; a second call fails with ErrAlreadyInitialized.
func (o *Orchestrator) InitializeAll(ctx context.Context) (*lifecycle.InitReport, error) {
	if o.manager == nil {
		mgr, err := lifecycle.New(lifecycle.Config{
			Registry: o.registry,
			Provider: o.provider,
			Logger:   o.log,
			Events:   o.events,
			Metrics:  o.metrics,
			FailFast: o.cfg.FailFast,
		})
		if err != nil {
			return nil, err
		}
		o.manager = mgr
	}
	return o.manager.InitializeAll(ctx)
}

// ShutdownAll tears every ever-running service down in reverse
// bring-up order. Faults are recorded in the report, never returned.
func (o *Orchestrator) ShutdownAll(ctx context.Context) *lifecycle.ShutdownReport {
	if o.manager == nil {
		return &lifecycle.ShutdownReport{}
	}
	return o.manager.ShutdownAll(ctx)
}

// Restart shuts one service down and initializes a fresh instance.
// Concurrent restarts of the same service share one attempt.
func (o *Orchestrator) Restart(ctx context.Context, serviceType string) error {
	if o.manager == nil {
		return ErrNotInitialized
	}
	return o.manager.Restart(ctx, serviceType)
}

// CheckHealth probes one service.
func (o *Orchestrator) CheckHealth(ctx context.Context, serviceType string) (lifecycle.HealthEntry, error) {
	if o.manager == nil {
		return lifecycle.HealthEntry{}, ErrNotInitialized
	}
	return o.manager.CheckHealth(ctx, serviceType)
}

// CheckAllHealth probes every managed service.
func (o *Orchestrator) CheckAllHealth(ctx context.Context) (*lifecycle.HealthReport, error) {
	if o.manager == nil {
		return nil, ErrNotInitialized
	}
	return o.manager.CheckAllHealth(ctx), nil
}

// GetService resolves a running singleton or constructs a transient
// instance.
func (o *Orchestrator) GetService(serviceType string) (service.Service, error) {
	return o.provider.Get(serviceType)
}

// Provider exposes the lookup surface handed to init hooks.
func (o *Orchestrator) Provider() service.Provider {
	return o.provider
}

// Events exposes the lifecycle event log.
func (o *Orchestrator) Events() events.Log {
	return o.events
}

// Metrics exposes the Prometheus collectors.
func (o *Orchestrator) Metrics() *metrics.Collector {
	return o.metrics
}

// Manager exposes the lifecycle manager, nil before InitializeAll.
func (o *Orchestrator) Manager() *lifecycle.Manager {
	return o.manager
}

// Status snapshots every registration in dependency order.
func (o *Orchestrator) Status() ([]lifecycle.ServiceStatus, error) {
	if o.manager == nil {
		return nil, ErrNotInitialized
	}
	return o.manager.Status(), nil
}

// Waves returns the computed initialization schedule.
func (o *Orchestrator) Waves() ([][]string, error) {
	if o.manager == nil {
		return nil, ErrNotInitialized
	}
	return o.manager.Waves(), nil
}
