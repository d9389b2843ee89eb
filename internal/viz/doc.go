// Package viz renders optimization runs in the terminal.
//
//   - [Summary]: styled result panel for a finished run
//   - [Plot]: ASCII line charts of trace columns
//   - [Progress]: Bubble Tea view of a running optimization
//
// # Key Bindings
//
//	q, Ctrl+C - Cancel the optimization and quit
//	T         - Cycle color themes
package viz
