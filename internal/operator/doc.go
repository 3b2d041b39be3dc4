// Package operator assembles the teaching tools console.
//
// Ownership boundary:
// - process wiring: transport node, pose ingestion, orchestrators,
//   dispatcher, and the TUI or headless admin frontend
//
// Lifecycle order:
// - bootstrap (validate, dial, build) -> serve (spin + ingest + frontends)
//
// Spin and ingestion run for the process lifetime and stop only when the
// root context is cancelled at shutdown.
package operator
