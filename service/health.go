package service

import (
	"encoding/json"
	"fmt"
)

// HealthState classifies a health probe result.
type HealthState int32

const (
	// HealthUnknown indicates the service was not probed.
	HealthUnknown HealthState = iota

	// HealthHealthy indicates the service is fully operational.
	HealthHealthy

	// HealthDegraded indicates the service works with reduced capability.
	HealthDegraded

	// HealthUnhealthy indicates the service is not operational.
	HealthUnhealthy
)

// String returns the string representation of the health state.
func (s HealthState) String() string {
	switch s {
	case HealthUnknown:
		return "unknown"
	case HealthHealthy:
		return "healthy"
	case HealthDegraded:
		return "degraded"
	case HealthUnhealthy:
		return "unhealthy"
	default:
		return fmt.Sprintf("health(%d)", s)
	}
}

// MarshalJSON implements json.Marshaler.
func (s HealthState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *HealthState) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*s = ParseHealthState(str)
	return nil
}

// ParseHealthState converts a string to a HealthState.
func ParseHealthState(s string) HealthState {
	switch s {
	case "healthy", "ok": // accept legacy alias
		return HealthHealthy
	case "degraded":
		return HealthDegraded
	case "unhealthy":
		return HealthUnhealthy
	default:
		return HealthUnknown
	}
}

// Health is the result of one health probe.
type Health struct {
	State   HealthState `json:"state"`
	Message string      `json:"message,omitempty"`
}

// Healthy builds a healthy result.
func Healthy(message string) Health {
	return Health{State: HealthHealthy, Message: message}
}

// Degraded builds a degraded result.
func Degraded(message string) Health {
	return Health{State: HealthDegraded, Message: message}
}

// Unhealthy builds an unhealthy result.
func Unhealthy(message string) Health {
	return Health{State: HealthUnhealthy, Message: message}
}

// IsHealthy returns true when the probe found the service fully operational.
func (h Health) IsHealthy() bool {
	return h.State == HealthHealthy
}
