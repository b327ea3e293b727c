package hrsync

import (
	"sync"
	"time"
)

// Health is a snapshot of the sync service's recent behavior.
type Health struct {
	Status              string     `json:"status"`
	LastSuccess         *time.Time `json:"last_success,omitempty"`
	LastError           string     `json:"last_error,omitempty"`
	LastErrorAt         *time.Time `json:"last_error_at,omitempty"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
}

const (
	healthOK       = "ok"
	healthDegraded = "degraded"
	healthFailing  = "failing"
	healthIdle     = "idle"
)

// failingThreshold marks the monitor failing after this many
// consecutive errors.
const failingThreshold = 3

// Monitor tracks sync outcomes for the status endpoint.
type Monitor struct {
	mu    sync.Mutex
	now   func() time.Time
	state Health
}

// NewMonitor creates a monitor that has seen no runs yet.
func NewMonitor() *Monitor {
	return &Monitor{now: time.Now, state: Health{Status: healthIdle}}
}

// RecordSuccess resets the failure streak.
func (m *Monitor) RecordSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()
	ts := m.now().UTC()
	m.state.LastSuccess = &ts
	m.state.ConsecutiveFailures = 0
	m.state.Status = healthOK
}

// RecordFailure notes an error and escalates the status after repeated
// failures.
func (m *Monitor) RecordFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ts := m.now().UTC()
	m.state.LastError = err.Error()
	m.state.LastErrorAt = &ts
	m.state.ConsecutiveFailures++
	if m.state.ConsecutiveFailures >= failingThreshold {
		m.state.Status = healthFailing
	} else {
		m.state.Status = healthDegraded
	}
}

// Snapshot returns a copy of the current health state.
func (m *Monitor) Snapshot() Health {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}
