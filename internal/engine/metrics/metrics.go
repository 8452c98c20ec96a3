// Package metrics provides Prometheus telemetry for the runtime:
// per-service lifecycle status, init/shutdown latencies, restart and
// failure counters, and dependency-graph health.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/R3E-Network/service_runtime/internal/engine/state"
)

// Collector owns the runtime's Prometheus collectors.
type Collector struct {
	registry *prometheus.Registry

	serviceStatus   *prometheus.GaugeVec
	serviceHealth   *prometheus.GaugeVec
	initLatency     *prometheus.HistogramVec
	shutdownLatency *prometheus.HistogramVec
	initFailures    *prometheus.CounterVec
	shutdownFaults  *prometheus.CounterVec
	restarts        *prometheus.CounterVec

	dependencySkips   prometheus.Counter
	dependencyCycles  prometheus.Counter
	dependencyMissing prometheus.Counter

	waves  prometheus.Gauge
	uptime prometheus.Gauge

	startTime time.Time
}

// NewCollector creates and registers the runtime collectors under the
// given namespace (default "runtime").
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "runtime"
	}

	c := &Collector{
		registry:  prometheus.NewRegistry(),
		startTime: time.Now(),
	}

	c.serviceStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "status",
			Help:      "Lifecycle status of the service (0=unknown, 1=registered, 2=initializing, 3=running, 4=failed, 5=shutting_down, 6=terminated, 7=shutdown_failed)",
		},
		[]string{"service"},
	)

	c.serviceHealth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "health",
			Help:      "Last health probe result (0=unknown, 1=healthy, 2=degraded, 3=unhealthy)",
		},
		[]string{"service"},
	)

	c.initLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "init_duration_seconds",
			Help:      "Time spent initializing the service",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "outcome"},
	)

	c.shutdownLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "shutdown_duration_seconds",
			Help:      "Time spent shutting down the service",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "outcome"},
	)

	c.initFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "init_failures_total",
			Help:      "Initialization failures by reason (fault, timeout, dependency)",
		},
		[]string{"service", "reason"},
	)

	c.shutdownFaults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "shutdown_faults_total",
			Help:      "Shutdown faults recorded during teardown",
		},
		[]string{"service"},
	)

	c.restarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "restarts_total",
			Help:      "Explicit restarts by outcome",
		},
		[]string{"service", "outcome"},
	)

	c.dependencySkips = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "dependency",
		Name:      "skips_total",
		Help:      "Services failed without running init because a required dependency failed",
	})

	c.dependencyCycles = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "dependency",
		Name:      "cycles_total",
		Help:      "Dependency cycles rejected at graph build",
	})

	c.dependencyMissing = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "dependency",
		Name:      "missing_total",
		Help:      "Registration sets rejected for missing required dependencies",
	})

	c.waves = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "initialization_waves",
		Help:      "Number of waves in the computed schedule",
	})

	c.uptime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "uptime_seconds",
		Help:      "Runtime uptime in seconds",
	})

	c.registry.MustRegister(
		c.serviceStatus,
		c.serviceHealth,
		c.initLatency,
		c.shutdownLatency,
		c.initFailures,
		c.shutdownFaults,
		c.restarts,
		c.dependencySkips,
		c.dependencyCycles,
		c.dependencyMissing,
		c.waves,
		c.uptime,
	)

	return c
}

// Registry exposes the underlying Prometheus registry for HTTP serving.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// SetServiceStatus records a lifecycle transition.
func (c *Collector) SetServiceStatus(serviceType string, status state.Status) {
	c.serviceStatus.WithLabelValues(serviceType).Set(float64(status))
}

// SetServiceHealth records the last probe result (0-3 per service.HealthState).
func (c *Collector) SetServiceHealth(serviceType string, healthState int32) {
	c.serviceHealth.WithLabelValues(serviceType).Set(float64(healthState))
}

// ObserveInit records an init attempt.
func (c *Collector) ObserveInit(serviceType, outcome string, d time.Duration) {
	c.initLatency.WithLabelValues(serviceType, outcome).Observe(d.Seconds())
}

// ObserveShutdown records a shutdown attempt.
func (c *Collector) ObserveShutdown(serviceType, outcome string, d time.Duration) {
	c.shutdownLatency.WithLabelValues(serviceType, outcome).Observe(d.Seconds())
}

// IncInitFailure counts an init failure by reason.
func (c *Collector) IncInitFailure(serviceType, reason string) {
	c.initFailures.WithLabelValues(serviceType, reason).Inc()
}

// IncShutdownFault counts a recorded shutdown fault.
func (c *Collector) IncShutdownFault(serviceType string) {
	c.shutdownFaults.WithLabelValues(serviceType).Inc()
}

// IncRestart counts an explicit restart by outcome.
func (c *Collector) IncRestart(serviceType, outcome string) {
	c.restarts.WithLabelValues(serviceType, outcome).Inc()
}

// IncDependencySkip counts a dependency-failure propagation.
func (c *Collector) IncDependencySkip() {
	c.dependencySkips.Inc()
}

// IncDependencyCycle counts a rejected cyclic graph.
func (c *Collector) IncDependencyCycle() {
	c.dependencyCycles.Inc()
}

// IncDependencyMissing counts a rejected registration set.
func (c *Collector) IncDependencyMissing() {
	c.dependencyMissing.Inc()
}

// SetWaveCount records the size of the computed schedule.
func (c *Collector) SetWaveCount(n int) {
	c.waves.Set(float64(n))
}

// TouchUptime refreshes the uptime gauge.
func (c *Collector) TouchUptime() {
	c.uptime.Set(time.Since(c.startTime).Seconds())
}
