package supervisor

// State names the supervisor's position in the session lifecycle.
type State string

const (
	// StateIdle means no device-server process exists.
	StateIdle State = "idle"
	// StateStarting means the process has been launched but the
	// readiness marker has not appeared yet.
	StateStarting State = "starting"
	// StateRunning means the readiness marker was observed and the
	// server is accepting connections.
	StateRunning State = "running"
	// StateStopping means a stop was requested and shutdown signalling
	// is in progress.
	StateStopping State = "stopping"
	// StateError means the most recent launch failed before the process
	// ever came up. A new Run clears it.
	StateError State = "error"
)

// EventKind discriminates the values delivered on the Events channel.
type EventKind string

const (
	// EventLaunched fires once the subprocess has been spawned.
	EventLaunched EventKind = "launched"
	// EventStarted fires when the readiness marker is observed. Address
	// carries the host:port the server announced.
	EventStarted EventKind = "started"
	// EventStopped fires when the process has exited and the supervisor
	// returned to idle.
	EventStopped EventKind = "stopped"
	// EventLaunchFailed fires when the process could not be spawned or
	// exited before ever becoming ready.
	EventLaunchFailed EventKind = "launch_failed"
	// EventLogLine carries one line of combined subprocess output.
	EventLogLine EventKind = "log_line"
	// EventStartTimeout fires when the readiness marker has not appeared
	// within the configured window. The process keeps running.
	EventStartTimeout EventKind = "start_timeout"
)

// Event is a lifecycle notification from the monitor goroutine.
type Event struct {
	Kind      EventKind
	SessionID string
	PID       int
	// Address is the host:port announced by the server, populated on
	// EventStarted.
	Address string
	// Line is populated on EventLogLine.
	Line string
	// ExitCode is populated on EventStopped. -1 when the process was
	// killed by a signal.
	ExitCode int
	Err      error
}
