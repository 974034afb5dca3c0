// Package metrics records what the materializer and sync engine do.
package metrics

import "time"

// Sync phases.
const (
	PhaseUpload = "upload"
	PhaseDelete = "delete"
	PhasePull   = "pull"
)

// Item outcomes.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// CircuitState mirrors the remote client's circuit breaker state.
type CircuitState int

const (
	// CircuitClosed lets requests through.
	CircuitClosed CircuitState = iota
	// CircuitOpen rejects requests without calling the server.
	CircuitOpen
	// CircuitHalfOpen lets a probe request through.
	CircuitHalfOpen
)

// String returns the string representation of the circuit state.
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Collector receives events from the materializer, sync engine and remote client.
type Collector interface {
	RecordSyncRun(kind string, ok, skipped bool, duration time.Duration)
	RecordSyncItem(kind, phase string, success bool)
	RecordCursor(kind string, at time.Time)
	RecordCircuitState(name string, state CircuitState)
	InstancesMaterialized(n int)
}

// NoOp discards everything.
type NoOp struct{}

// RecordSyncRun does nothing.
func (NoOp) RecordSyncRun(string, bool, bool, time.Duration) {}

// RecordSyncItem does nothing.
func (NoOp) RecordSyncItem(string, string, bool) {}

// RecordCursor does nothing.
func (NoOp) RecordCursor(string, time.Time) {}

// RecordCircuitState does nothing.
func (NoOp) RecordCircuitState(string, CircuitState) {}

// InstancesMaterialized does nothing.
func (NoOp) InstancesMaterialized(int) {}

func result(success bool) string {
	if success {
		return ResultSuccess
	}
	return ResultFailure
}
