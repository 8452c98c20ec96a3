// Package service defines the contracts between the runtime and the
// services it orchestrates. Consumers implement Service (and optionally
// HealthChecker) and describe each implementation with a Registration.
package service

import (
	"context"
	"time"
)

// Service is the minimal lifecycle contract every managed service implements.
type Service interface {
	// Init prepares the service for use. It is called once per instance,
	// after every required dependency has settled, and must honor ctx
	// cancellation; the runtime additionally enforces the registration's
	// init timeout.
	Init(ctx context.Context, provider Provider) error

	// Shutdown releases the service's resources. It is called in reverse
	// bring-up order and is bounded by the registration's shutdown timeout.
	Shutdown(ctx context.Context) error
}

// HealthChecker is implemented by services that support health probes.
// Registrations must also set SupportsHealthCheck for probes to run.
type HealthChecker interface {
	HealthCheck(ctx context.Context) Health
}

// Provider is the post-initialization lookup surface handed to services
// and consumer code. Lookups are O(1) map reads, safe for concurrent use.
type Provider interface {
	// Get returns the running service of the given type, or a
	// NotRegisteredError / NotReadyError.
	Get(serviceType string) (Service, error)

	// GetOrDefault returns (nil, false) instead of failing when the
	// service is unknown or not running.
	GetOrDefault(serviceType string) (Service, bool)
}

// Factory constructs a service instance. The provider carries every
// dependency that has already settled; optional dependencies that failed
// or are absent resolve to (nil, false) through GetOrDefault.
type Factory func(ctx context.Context, provider Provider) (Service, error)

// Lifetime controls how instances are created from a registration.
type Lifetime string

const (
	// LifetimeSingleton memoizes a single shared instance for the
	// process's life. This is the default.
	LifetimeSingleton Lifetime = "singleton"

	// LifetimeTransient constructs a fresh instance per resolution.
	// Transient services participate in graph validation and ordering
	// but are not tracked for shutdown, health, or restart.
	LifetimeTransient Lifetime = "transient"
)

// Priority bounds. Higher priority services initialize earlier within a wave.
const (
	MinPriority = 0
	MaxPriority = 100
)

// Default timeouts applied when a registration leaves them zero.
const (
	DefaultInitTimeout     = 30 * time.Second
	DefaultShutdownTimeout = 15 * time.Second
)

// Registration declares one service to the runtime.
type Registration struct {
	// Type uniquely identifies the service across all registrations.
	Type string

	// Factory constructs the implementation.
	Factory Factory

	// Lifetime defaults to LifetimeSingleton.
	Lifetime Lifetime

	// Requires lists hard dependencies: each must be registered, and a
	// failed required dependency fails this service without running its
	// init hook.
	Requires []string

	// Optional lists soft dependencies: ordering hints only, tolerated
	// when absent or failed.
	Optional []string

	// Priority (0-100) breaks ties inside an initialization wave,
	// higher first. Values outside the range are clamped.
	Priority int

	// InitTimeout bounds Init; zero means DefaultInitTimeout.
	InitTimeout time.Duration

	// ShutdownTimeout bounds Shutdown; zero means DefaultShutdownTimeout.
	ShutdownTimeout time.Duration

	// SupportsHealthCheck enables health probes for the service.
	SupportsHealthCheck bool

	// SupportsRestart permits explicit restarts of the service.
	SupportsRestart bool
}

// Normalized returns a copy with defaults applied and the priority clamped.
func (r Registration) Normalized() Registration {
	out := r
	if out.Lifetime == "" {
		out.Lifetime = LifetimeSingleton
	}
	if out.Priority < MinPriority {
		out.Priority = MinPriority
	}
	if out.Priority > MaxPriority {
		out.Priority = MaxPriority
	}
	if out.InitTimeout <= 0 {
		out.InitTimeout = DefaultInitTimeout
	}
	if out.ShutdownTimeout <= 0 {
		out.ShutdownTimeout = DefaultShutdownTimeout
	}
	return out
}
