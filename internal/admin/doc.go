// Package admin exposes the operator console over HTTP.
//
// Ownership boundary:
// - probes (/health, /ready) and the Prometheus scrape endpoint
//
// - read-only pose view and the same reset/match actions the TUI offers
//
// Admin does not run commands itself; every action goes through the
// dispatcher so HTTP and TUI presses share one in-flight guard.
package admin
