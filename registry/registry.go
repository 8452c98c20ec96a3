// Package registry holds the declarative registration table for the
// runtime. It validates uniqueness and dependency resolvability before
// the dependency graph is built; once the graph is built the table is
// frozen and further registration is rejected.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/R3E-Network/service_runtime/service"
)

// ErrRegistryFrozen is returned when registering after the graph is built.
var ErrRegistryFrozen = errors.New("registry is frozen: graph already built")

// ErrNilFactory is returned when a registration carries no factory.
var ErrNilFactory = errors.New("registration requires a factory")

// DuplicateServiceError reports a second registration for a service type.
type DuplicateServiceError struct {
	Type string
}

// Error implements error.
func (e *DuplicateServiceError) Error() string {
	return fmt.Sprintf("service already registered: %s", e.Type)
}

// MissingDependencyError reports every required dependency that has no
// matching registration. Validation is all-or-nothing: a nil result
// guarantees every required edge target exists.
type MissingDependencyError struct {
	// Missing maps dependent service type -> unresolved required types.
	Missing map[string][]string
}

// Error implements error.
func (e *MissingDependencyError) Error() string {
	dependents := make([]string, 0, len(e.Missing))
	for dependent := range e.Missing {
		dependents = append(dependents, dependent)
	}
	sort.Strings(dependents)

	parts := make([]string, 0, len(dependents))
	for _, dependent := range dependents {
		parts = append(parts, fmt.Sprintf("%s -> [%s]", dependent, strings.Join(e.Missing[dependent], ", ")))
	}
	return "missing required dependencies: " + strings.Join(parts, "; ")
}

// Registry is the registration table. Registration order is recorded so
// the scheduler can break priority ties deterministically.
type Registry struct {
	mu     sync.RWMutex
	byType map[string]service.Registration
	order  []string
	frozen bool
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		byType: make(map[string]service.Registration),
	}
}

// Register adds one registration. It fails with a *DuplicateServiceError
// when the type is already present and with ErrRegistryFrozen after the
// graph has been built.
func (r *Registry) Register(reg service.Registration) error {
	reg.Type = strings.TrimSpace(reg.Type)
	if reg.Type == "" {
		return fmt.Errorf("registration requires a service type")
	}
	if reg.Factory == nil {
		return fmt.Errorf("service %s: %w", reg.Type, ErrNilFactory)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("service %s: %w", reg.Type, ErrRegistryFrozen)
	}
	if _, exists := r.byType[reg.Type]; exists {
		return &DuplicateServiceError{Type: reg.Type}
	}

	r.byType[reg.Type] = reg.Normalized()
	r.order = append(r.order, reg.Type)
	return nil
}

// Validate scans all registrations and fails with a
// *MissingDependencyError naming every required dependency type that has
// no matching registration.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	missing := make(map[string][]string)
	for _, serviceType := range r.order {
		reg := r.byType[serviceType]
		for _, dep := range reg.Requires {
			if _, ok := r.byType[dep]; !ok {
				missing[serviceType] = append(missing[serviceType], dep)
			}
		}
	}

	if len(missing) > 0 {
		return &MissingDependencyError{Missing: missing}
	}
	return nil
}

// Freeze marks the table immutable. Called once the graph is built.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Frozen reports whether the table is immutable.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Get returns the registration for a service type.
func (r *Registry) Get(serviceType string) (service.Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.byType[serviceType]
	return reg, ok
}

// List returns all registrations in registration order.
func (r *Registry) List() []service.Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]service.Registration, 0, len(r.order))
	for _, serviceType := range r.order {
		result = append(result, r.byType[serviceType])
	}
	return result
}

// Len returns the number of registrations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
