// Package provider implements the post-initialization lookup surface.
// Lookups are direct map reads guarded by a RWMutex; no graph traversal
// happens at query time.
package provider

import (
	"fmt"
	"sync"

	"github.com/R3E-Network/service_runtime/registry"
	"github.com/R3E-Network/service_runtime/service"
)

// NotRegisteredError reports a lookup for an unknown service type.
type NotRegisteredError struct {
	Type string
}

// Error implements error.
func (e *NotRegisteredError) Error() string {
	return fmt.Sprintf("service not registered: %s", e.Type)
}

// NotReadyError reports a lookup for a registered service that is not
// running (not yet initialized, failed, or shut down).
type NotReadyError struct {
	Type string
}

// Error implements error.
func (e *NotReadyError) Error() string {
	return fmt.Sprintf("service not ready: %s", e.Type)
}

// TransientResolver constructs and initializes a transient instance.
// Installed by the lifecycle manager so transient construction follows
// the same init rules as singletons.
type TransientResolver func(reg service.Registration) (service.Service, error)

// Provider is the concrete service.Provider. The lifecycle manager
// publishes singletons as they reach Running and withdraws them on
// shutdown or restart.
type Provider struct {
	mu        sync.RWMutex
	running   map[string]service.Service
	reg       *registry.Registry
	transient TransientResolver
}

// New creates a provider backed by the given registration table.
func New(reg *registry.Registry) *Provider {
	return &Provider{
		running: make(map[string]service.Service),
		reg:     reg,
	}
}

// SetTransientResolver installs the transient construction path.
func (p *Provider) SetTransientResolver(fn TransientResolver) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transient = fn
}

// Get returns the running singleton, or constructs a transient instance,
// or fails with *NotRegisteredError / *NotReadyError.
func (p *Provider) Get(serviceType string) (service.Service, error) {
	reg, ok := p.reg.Get(serviceType)
	if !ok {
		return nil, &NotRegisteredError{Type: serviceType}
	}

	if reg.Lifetime == service.LifetimeTransient {
		p.mu.RLock()
		resolve := p.transient
		p.mu.RUnlock()
		if resolve == nil {
			return nil, &NotReadyError{Type: serviceType}
		}
		return resolve(reg)
	}

	p.mu.RLock()
	svc, ok := p.running[serviceType]
	p.mu.RUnlock()
	if !ok {
		return nil, &NotReadyError{Type: serviceType}
	}
	return svc, nil
}

// GetOrDefault returns (nil, false) instead of failing. Optional
// dependency slots resolve through this path.
func (p *Provider) GetOrDefault(serviceType string) (service.Service, bool) {
	svc, err := p.Get(serviceType)
	if err != nil {
		return nil, false
	}
	return svc, true
}

// Publish makes a running singleton visible to lookups.
func (p *Provider) Publish(serviceType string, svc service.Service) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running[serviceType] = svc
}

// Withdraw removes a singleton from the lookup surface.
func (p *Provider) Withdraw(serviceType string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.running, serviceType)
}

// RunningCount returns the number of published singletons.
func (p *Provider) RunningCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.running)
}
