package lifecycle

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/R3E-Network/service_runtime/internal/engine/state"
	"github.com/R3E-Network/service_runtime/service"
)

// instance tracks one singleton registration at runtime.
type instance struct {
	reg service.Registration

	// constructMu is the per-registration exclusive lock: concurrent
	// first-resolution and restart attempts construct exactly one
	// live instance.
	constructMu sync.Mutex

	mu        sync.RWMutex
	id        string
	status    state.Status
	err       error
	svc       service.Service
	startedAt time.Time
}

func newInstance(reg service.Registration) *instance {
	return &instance{
		reg:    reg,
		status: state.StatusRegistered,
	}
}

// Status returns the current lifecycle status.
func (i *instance) Status() state.Status {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.status
}

// Err returns the recorded failure, nil when none.
func (i *instance) Err() error {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.err
}

// Service returns the live implementation, nil unless Running.
func (i *instance) Service() service.Service {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.svc
}

// ID returns the current instance ID, empty before first construction.
func (i *instance) ID() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.id
}

// StartedAt returns when the instance last reached Running.
func (i *instance) StartedAt() time.Time {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.startedAt
}

// transition moves the instance to the given status, recording the
// failure (or clearing it) as it goes. Invalid transitions are applied
// anyway but reported so the caller can log them; the runtime is the
// sole writer, so a violation is a programming error, not a race.
func (i *instance) transition(to state.Status, err error) *state.TransitionError {
	i.mu.Lock()
	defer i.mu.Unlock()

	var violation *state.TransitionError
	if !state.CanTransition(i.status, to) {
		violation = &state.TransitionError{From: i.status, To: to}
	}

	i.status = to
	i.err = err

	switch to {
	case state.StatusRunning:
		i.startedAt = time.Now().UTC()
	case state.StatusInitializing:
		i.id = uuid.NewString()
	}

	return violation
}

// adopt stores the constructed implementation.
func (i *instance) adopt(svc service.Service) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.svc = svc
}

// clear drops the implementation reference after teardown.
func (i *instance) clear() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.svc = nil
}
