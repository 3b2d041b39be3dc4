// Package tui is the terminal operator console.
//
// Ownership boundary:
// - the "reset ghost" and "match ghost" buttons and their pending spinners
//
// - the live ghost pose line and the last acknowledgement
//
// Presses are handed to the dispatcher on a tea.Cmd so the UI keeps
// rendering while a command is in flight.
package tui
