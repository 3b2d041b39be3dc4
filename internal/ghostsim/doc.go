// Package ghostsim owns the simulated cell the operator console talks to.
//
// Ownership boundary:
// - ghost: a teaching pose that drifts while an operator "teaches" and
//   returns home on reset_ghost
//
// - marker: the teaching marker reset, optionally jammed
//
// - controller: the ur_control action executing move_j goals with timed
//   interpolation and feedback, plus the match_ghost trigger
//
// Lifecycle order:
// - bootstrap (validate config) -> serve (gRPC + ghost publisher + heartbeat)
//
// Ghostsim does not own the operator side; it only answers it.
package ghostsim
