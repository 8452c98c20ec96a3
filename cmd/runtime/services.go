package main

import (
	"context"
	"sync"
	"time"

	"github.com/R3E-Network/service_runtime/service"
)

// =============================================================================
// Built-in services
// =============================================================================

// eventStore keeps an in-memory append-only record of scheduler runs.
// It exists so a fresh checkout has something to orchestrate.
type eventStore struct {
	mu      sync.Mutex
	records []string
	opened  time.Time
}

func newEventStore(ctx context.Context, provider service.Provider) (service.Service, error) {
	return &eventStore{}, nil
}

func (s *eventStore) Init(ctx context.Context, provider service.Provider) error {
	s.opened = time.Now()
	return nil
}

func (s *eventStore) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	return nil
}

func (s *eventStore) HealthCheck(ctx context.Context) service.Health {
	return service.Healthy("")
}

func (s *eventStore) Append(record string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
}

// scheduler ticks in the background and appends a heartbeat record to
// the event store.
type scheduler struct {
	store  *eventStore
	cancel context.CancelFunc
	done   chan struct{}
}

func newScheduler(ctx context.Context, provider service.Provider) (service.Service, error) {
	return &scheduler{}, nil
}

func (s *scheduler) Init(ctx context.Context, provider service.Provider) error {
	dep, err := provider.Get("eventstore")
	if err != nil {
		return err
	}
	s.store = dep.(*eventStore)

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(runCtx)
	return nil
}

func (s *scheduler) run(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			s.store.Append("tick " + t.UTC().Format(time.RFC3339))
		}
	}
}

func (s *scheduler) Shutdown(ctx context.Context) error {
	s.cancel()
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *scheduler) HealthCheck(ctx context.Context) service.Health {
	select {
	case <-s.done:
		return service.Unhealthy("scheduler loop exited")
	default:
		return service.Healthy("")
	}
}

// reporter consumes the event store and, when present, the scheduler.
// The scheduler slot is optional so the reporter still comes up when
// the scheduler is disabled by config.
type reporter struct {
	store        *eventStore
	hasScheduler bool
}

func newReporter(ctx context.Context, provider service.Provider) (service.Service, error) {
	return &reporter{}, nil
}

func (r *reporter) Init(ctx context.Context, provider service.Provider) error {
	dep, err := provider.Get("eventstore")
	if err != nil {
		return err
	}
	r.store = dep.(*eventStore)

	_, r.hasScheduler = provider.GetOrDefault("scheduler")
	return nil
}

func (r *reporter) Shutdown(ctx context.Context) error {
	return nil
}
