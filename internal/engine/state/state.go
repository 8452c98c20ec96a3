// Package state defines the per-instance lifecycle status shared across
// the engine packages, keeping state semantics consistent between the
// scheduler, the lifecycle manager, and the reporting surfaces.
package state

import (
	"encoding/json"
	"fmt"
)

// Status represents the lifecycle status of a service instance.
type Status int32

const (
	// StatusUnknown indicates an uninitialized or unknown state.
	StatusUnknown Status = iota

	// StatusRegistered indicates the service is declared but not started.
	StatusRegistered

	// StatusInitializing indicates the init hook is in flight.
	StatusInitializing

	// StatusRunning indicates the service initialized successfully.
	StatusRunning

	// StatusFailed indicates init failed, timed out, or a required
	// dependency failed. A failed service stays failed until an
	// explicit restart.
	StatusFailed

	// StatusShuttingDown indicates the shutdown hook is in flight.
	StatusShuttingDown

	// StatusTerminated indicates the service shut down cleanly.
	StatusTerminated

	// StatusShutdownFailed indicates the shutdown hook faulted or timed
	// out. The fault is recorded; the teardown sequence continues.
	StatusShutdownFailed
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusUnknown:
		return "unknown"
	case StatusRegistered:
		return "registered"
	case StatusInitializing:
		return "initializing"
	case StatusRunning:
		return "running"
	case StatusFailed:
		return "failed"
	case StatusShuttingDown:
		return "shutting-down"
	case StatusTerminated:
		return "terminated"
	case StatusShutdownFailed:
		return "shutdown-failed"
	default:
		return fmt.Sprintf("status(%d)", s)
	}
}

// MarshalJSON implements json.Marshaler.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Status) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*s = ParseStatus(str)
	return nil
}

// ParseStatus converts a string to a Status.
func ParseStatus(s string) Status {
	switch s {
	case "unknown":
		return StatusUnknown
	case "registered":
		return StatusRegistered
	case "initializing", "starting": // accept legacy alias
		return StatusInitializing
	case "running":
		return StatusRunning
	case "failed":
		return StatusFailed
	case "shutting-down", "stopping":
		return StatusShuttingDown
	case "terminated", "stopped":
		return StatusTerminated
	case "shutdown-failed", "stop-failed":
		return StatusShutdownFailed
	default:
		return StatusUnknown
	}
}

// IsSettled reports whether the instance reached a scheduling terminal
// state. Later waves consult settled states for failure propagation.
func (s Status) IsSettled() bool {
	return s == StatusRunning || s == StatusFailed
}

// IsTerminal reports whether the instance finished its lifecycle.
func (s Status) IsTerminal() bool {
	return s == StatusTerminated || s == StatusShutdownFailed
}

// IsHealthy reports whether the instance can serve lookups.
func (s Status) IsHealthy() bool {
	return s == StatusRunning
}

// ValidTransitions defines the allowed state transitions.
var ValidTransitions = map[Status][]Status{
	StatusUnknown:        {StatusRegistered},
	StatusRegistered:     {StatusInitializing, StatusFailed},
	StatusInitializing:   {StatusRunning, StatusFailed},
	StatusRunning:        {StatusShuttingDown},
	StatusFailed:         {StatusInitializing, StatusShuttingDown, StatusTerminated},
	StatusShuttingDown:   {StatusTerminated, StatusShutdownFailed},
	StatusTerminated:     {StatusInitializing},
	StatusShutdownFailed: {StatusInitializing},
}

// CanTransition returns true if the transition from -> to is valid.
func CanTransition(from, to Status) bool {
	for _, s := range ValidTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// TransitionError represents an invalid state transition.
type TransitionError struct {
	From Status
	To   Status
}

// Error implements error.
func (e TransitionError) Error() string {
	return fmt.Sprintf("invalid state transition: %s -> %s", e.From, e.To)
}
