// Package dispatch turns operator button presses into orchestrator calls.
//
// Ownership boundary:
// - action names accepted from the TUI and the admin HTTP surface
//
// - at most one in-flight request per action; a second press while one runs
//   is acknowledged as busy and dropped
//
// Dispatch does not interpret outcomes beyond flattening them into an Ack.
package dispatch
