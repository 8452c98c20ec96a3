// Package monitor runs periodic health sweeps over the managed
// services and publishes the results to the event log.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/R3E-Network/service_runtime/internal/engine/events"
	"github.com/R3E-Network/service_runtime/internal/engine/lifecycle"
	"github.com/R3E-Network/service_runtime/internal/engine/metrics"
	"github.com/R3E-Network/service_runtime/pkg/logger"
	"github.com/R3E-Network/service_runtime/service"
)

// DefaultInterval is the sweep cadence when none is configured.
const DefaultInterval = 30 * time.Second

// Config controls the health monitor.
type Config struct {
	// Interval between sweeps. Zero means DefaultInterval.
	Interval time.Duration

	Manager *lifecycle.Manager
	Logger  *logger.Logger
	Events  events.Log
	Metrics *metrics.Collector
}

// Monitor schedules health sweeps on a cron runner.
type Monitor struct {
	interval time.Duration
	manager  *lifecycle.Manager
	log      *logger.Logger
	events   events.Log
	metrics  *metrics.Collector

	mu      sync.Mutex
	cron    *cron.Cron
	running bool

	lastMu     sync.RWMutex
	lastReport *lifecycle.HealthReport
}

// New creates a stopped monitor.
func New(cfg Config) (*Monitor, error) {
	if cfg.Manager == nil {
		return nil, fmt.Errorf("monitor: manager is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewDefault("monitor")
	}
	if cfg.Events == nil {
		cfg.Events = events.NoOpLog{}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}

	return &Monitor{
		interval: cfg.Interval,
		manager:  cfg.Manager,
		log:      cfg.Logger,
		events:   cfg.Events,
		metrics:  cfg.Metrics,
	}, nil
}

// Start schedules the sweep. Calling Start on a running monitor is a
// no-op.
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	m.cron = cron.New()
	spec := fmt.Sprintf("@every %s", m.interval)
	if _, err := m.cron.AddFunc(spec, m.sweep); err != nil {
		return fmt.Errorf("monitor: schedule %q: %w", spec, err)
	}

	m.cron.Start()
	m.running = true
	m.log.WithField("interval", m.interval.String()).Info("health monitor started")

	// Seed the report immediately instead of waiting one full interval.
	go m.sweep()
	return nil
}

// Stop halts scheduling and waits for an in-flight sweep to finish.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	<-m.cron.Stop().Done()
	m.running = false
	m.log.Info("health monitor stopped")
}

// LastReport returns the most recent sweep result, nil before the
// first sweep completes.
func (m *Monitor) LastReport() *lifecycle.HealthReport {
	m.lastMu.RLock()
	defer m.lastMu.RUnlock()
	return m.lastReport
}

func (m *Monitor) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), m.interval)
	defer cancel()

	report := m.manager.CheckAllHealth(ctx)

	m.lastMu.Lock()
	m.lastReport = report
	m.lastMu.Unlock()

	if m.metrics != nil {
		m.metrics.TouchUptime()
	}

	if report.Unhealthy > 0 {
		for _, entry := range report.Entries {
			if entry.Health.State != service.HealthUnhealthy {
				continue
			}
			m.log.WithField("service", entry.Type).
				WithField("message", entry.Health.Message).
				Warn("service unhealthy")
		}
	}
}
