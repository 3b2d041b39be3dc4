// Package command owns the operator command orchestration core.
//
// Ownership boundary:
// - reset fan-out: ghost and marker trigger calls joined with AND semantics
//
// - match: pose snapshot -> move_j goal -> goal lifecycle to a terminal status
//
// - failure taxonomy shared by both (dispatch, logical, transport, rejected, timeout)
//
// Every failure is converted into an outcome value at this boundary; nothing
// here panics or lets a transport error escape to the caller as a fault.
//
// Command does not own transports, pose ingestion, or deduplication of
// concurrent requests. Callers (the dispatcher) decide whether a second
// request may start while one is in flight.
package command
