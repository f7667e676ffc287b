// Package supervisor owns the lifecycle of the external device-server
// subprocess.
//
// One session runs at a time: Idle -> Starting -> Running -> Stopping ->
// Idle, with an Error state for launch failures. A dedicated monitor
// goroutine is the single writer of state transitions; the output reader
// and process waiter feed it over channels, so transitions never race.
// Shutdown always escalates interrupt -> terminate -> kill rather than
// killing outright, to give instruments a chance to park safely.
package supervisor
