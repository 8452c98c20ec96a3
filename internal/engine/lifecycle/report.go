package lifecycle

import (
	"time"

	"github.com/R3E-Network/service_runtime/internal/engine/state"
	"github.com/R3E-Network/service_runtime/service"
)

// ServiceStatus is one service's entry in a status or init report.
type ServiceStatus struct {
	Type       string           `json:"type"`
	InstanceID string           `json:"instance_id,omitempty"`
	Lifetime   service.Lifetime `json:"lifetime"`
	Priority   int              `json:"priority"`
	Status     state.Status     `json:"status"`
	Error      string           `json:"error,omitempty"`
	StartedAt  time.Time        `json:"started_at,omitempty"`
}

// InitReport aggregates one InitializeAll run. Per-service failures are
// captured here and never thrown, unless fail-fast mode is configured.
type InitReport struct {
	Initialized int             `json:"initialized"`
	Failed      int             `json:"failed"`
	Services    []ServiceStatus `json:"services"`
	Waves       [][]string      `json:"waves"`
	Elapsed     time.Duration   `json:"elapsed_ns"`
}

// ShutdownOutcome is one service's teardown result.
type ShutdownOutcome struct {
	Type    string        `json:"type"`
	Status  state.Status  `json:"status"`
	Error   string        `json:"error,omitempty"`
	Elapsed time.Duration `json:"elapsed_ns"`
}

// ShutdownReport aggregates one ShutdownAll run. Faults are recorded
// per service; the sequence always completes.
type ShutdownReport struct {
	Outcomes []ShutdownOutcome `json:"outcomes"`
	Faults   int               `json:"faults"`
	Elapsed  time.Duration     `json:"elapsed_ns"`
}

// HealthEntry is one service's entry in a health report.
type HealthEntry struct {
	Type    string         `json:"type"`
	Status  state.Status   `json:"status"`
	Health  service.Health `json:"health"`
	Elapsed time.Duration  `json:"elapsed_ns,omitempty"`
}

// HealthReport aggregates health probes across services. Services that
// are not Running, or whose registration does not support health
// checks, appear with an unknown probe result so staleness (for
// example a failed optional dependency after a restart) stays visible.
type HealthReport struct {
	GeneratedAt time.Time     `json:"generated_at"`
	Entries     []HealthEntry `json:"entries"`
	Healthy     int           `json:"healthy"`
	Degraded    int           `json:"degraded"`
	Unhealthy   int           `json:"unhealthy"`
}
