// Package testutil provides common testing utilities and mock service
// implementations for exercising the runtime.
package testutil

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/R3E-Network/service_runtime/service"
)

// FakeService is a configurable service.Service for tests. The zero
// value initializes and shuts down cleanly.
type FakeService struct {
	// InitErr is returned from Init when set.
	InitErr error
	// InitDelay stalls Init; combine with a short registration timeout
	// to provoke init timeouts.
	InitDelay time.Duration
	// InitPanic makes Init panic.
	InitPanic bool
	// ShutdownErr is returned from Shutdown when set.
	ShutdownErr error
	// ShutdownDelay stalls Shutdown.
	ShutdownDelay time.Duration
	// Health is returned from HealthCheck; zero value reports healthy.
	Health service.Health

	// OnInit runs at the start of Init when set, receiving the provider.
	OnInit func(ctx context.Context, provider service.Provider) error

	initCalls     atomic.Int32
	shutdownCalls atomic.Int32
}

// Init implements service.Service.
func (f *FakeService) Init(ctx context.Context, provider service.Provider) error {
	f.initCalls.Add(1)
	if f.InitPanic {
		panic("fake service init panic")
	}
	if f.OnInit != nil {
		if err := f.OnInit(ctx, provider); err != nil {
			return err
		}
	}
	if f.InitDelay > 0 {
		select {
		case <-time.After(f.InitDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.InitErr
}

// Shutdown implements service.Service.
func (f *FakeService) Shutdown(ctx context.Context) error {
	f.shutdownCalls.Add(1)
	if f.ShutdownDelay > 0 {
		select {
		case <-time.After(f.ShutdownDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.ShutdownErr
}

// HealthCheck implements service.HealthChecker.
func (f *FakeService) HealthCheck(ctx context.Context) service.Health {
	if f.Health.State == service.HealthUnknown && f.Health.Message == "" {
		return service.Healthy("")
	}
	return f.Health
}

// InitCalls returns how many times Init ran.
func (f *FakeService) InitCalls() int {
	return int(f.initCalls.Load())
}

// ShutdownCalls returns how many times Shutdown ran.
func (f *FakeService) ShutdownCalls() int {
	return int(f.shutdownCalls.Load())
}

// CallRecorder tracks lifecycle hook ordering across services.
type CallRecorder struct {
	mu    sync.Mutex
	calls []string
}

// Record appends one call label.
func (r *CallRecorder) Record(label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, label)
}

// Calls returns the recorded labels in order.
func (r *CallRecorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// Registration builds a registration around a fixed service value.
// The factory records "factory:<type>" and Init records "init:<type>"
// on the recorder when one is supplied.
func Registration(serviceType string, svc *FakeService, recorder *CallRecorder, opts ...func(*service.Registration)) service.Registration {
	reg := service.Registration{
		Type: serviceType,
		Factory: func(ctx context.Context, provider service.Provider) (service.Service, error) {
			if recorder != nil {
				recorder.Record("factory:" + serviceType)
			}
			return svc, nil
		},
	}
	if recorder != nil {
		inner := svc.OnInit
		svc.OnInit = func(ctx context.Context, provider service.Provider) error {
			recorder.Record("init:" + serviceType)
			if inner != nil {
				return inner(ctx, provider)
			}
			return nil
		}
	}
	for _, opt := range opts {
		opt(&reg)
	}
	return reg
}

// WithRequires sets required dependencies.
func WithRequires(deps ...string) func(*service.Registration) {
	return func(r *service.Registration) { r.Requires = deps }
}

// WithOptional sets optional dependencies.
func WithOptional(deps ...string) func(*service.Registration) {
	return func(r *service.Registration) { r.Optional = deps }
}

// WithPriority sets the wave tie-break priority.
func WithPriority(p int) func(*service.Registration) {
	return func(r *service.Registration) { r.Priority = p }
}

// WithInitTimeout sets the init deadline.
func WithInitTimeout(d time.Duration) func(*service.Registration) {
	return func(r *service.Registration) { r.InitTimeout = d }
}

// WithShutdownTimeout sets the shutdown deadline.
func WithShutdownTimeout(d time.Duration) func(*service.Registration) {
	return func(r *service.Registration) { r.ShutdownTimeout = d }
}

// WithRestart marks the registration restartable.
func WithRestart() func(*service.Registration) {
	return func(r *service.Registration) { r.SupportsRestart = true }
}

// WithHealthCheck marks the registration probeable.
func WithHealthCheck() func(*service.Registration) {
	return func(r *service.Registration) { r.SupportsHealthCheck = true }
}

// WithLifetime sets the instance lifetime.
func WithLifetime(lt service.Lifetime) func(*service.Registration) {
	return func(r *service.Registration) { r.Lifetime = lt }
}
