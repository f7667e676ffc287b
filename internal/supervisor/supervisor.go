package supervisor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"

	"chemdrive/internal/logging"
)

var (
	// ErrAlreadyRunning is returned by Run when a session is active.
	ErrAlreadyRunning = errors.New("device server already running")
	// ErrNotRunning is returned by Stop when no session is active.
	ErrNotRunning = errors.New("device server not running")
)

// Options configures a Supervisor. Values come straight from the server
// section of the daemon configuration.
type Options struct {
	// Binary is the device-server executable, resolved through PATH.
	Binary string
	// Args are inserted before the configuration file path.
	Args []string
	// ReadyMarker is the substring that promotes Starting to Running
	// when it appears in the subprocess output.
	ReadyMarker string
	// StartTimeout bounds the wait for the ready marker. Zero waits
	// forever; expiry only warns, the process is left running.
	StartTimeout time.Duration
	// StopGrace is how long to wait after the interrupt before
	// escalating to terminate.
	StopGrace time.Duration
	// KillGrace is how long to wait after terminate before killing.
	KillGrace time.Duration
	// DisplayHost replaces wildcard bind addresses in the announced
	// address.
	DisplayHost string
}

// Supervisor runs at most one device-server subprocess and reports its
// lifecycle over the Events channel.
type Supervisor struct {
	opts   Options
	logger *slog.Logger
	events chan Event

	mu      sync.Mutex
	state   State
	sess    *session
	address string
}

type session struct {
	id         string
	configPath string
	cmd        *exec.Cmd

	lines    chan string
	readDone chan struct{}
	exit     chan error
	stopReq  chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// New returns an idle Supervisor. Events must be drained by the caller;
// lifecycle events block until consumed, log lines are dropped when the
// consumer falls behind.
func New(opts Options, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Supervisor{
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "supervisor"),
		events: make(chan Event, 256),
		state:  StateIdle,
	}
}

// Events exposes the lifecycle notification stream.
func (s *Supervisor) Events() <-chan Event {
	return s.events
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Address returns the host:port announced by the running server, empty
// outside of Running.
func (s *Supervisor) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.address
}

// SessionID identifies the active session, empty when idle.
func (s *Supervisor) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil {
		return ""
	}
	return s.sess.id
}

// PID returns the subprocess pid, zero when idle.
func (s *Supervisor) PID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil || s.sess.cmd.Process == nil {
		return 0
	}
	return s.sess.cmd.Process.Pid
}

// Run launches the device server against configPath and returns once
// the process has been spawned. The session then advances on its own;
// progress is reported through Events. Cancelling ctx requests a stop.
func (s *Supervisor) Run(ctx context.Context, configPath string) error {
	s.mu.Lock()
	if s.state != StateIdle && s.state != StateError {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.state = StateStarting
	s.address = ""
	s.mu.Unlock()

	if _, err := os.Stat(configPath); err != nil {
		s.fail(fmt.Errorf("device configuration %s: %w", configPath, err))
		return fmt.Errorf("stat device configuration: %w", err)
	}

	args := append(append([]string{}, s.opts.Args...), configPath)
	cmd := exec.Command(s.opts.Binary, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		s.fail(fmt.Errorf("stdout pipe: %w", err))
		return fmt.Errorf("stdout pipe: %w", err)
	}
	// Readiness banners go to stderr, log lines to stdout. Fold both
	// into one stream so a single scanner sees everything in order.
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		s.fail(fmt.Errorf("launch %s: %w", s.opts.Binary, err))
		return fmt.Errorf("launch %s: %w", s.opts.Binary, err)
	}

	sess := &session{
		id:         uuid.NewString(),
		configPath: configPath,
		cmd:        cmd,
		lines:      make(chan string, 64),
		readDone:   make(chan struct{}),
		exit:       make(chan error, 1),
		stopReq:    make(chan struct{}),
		done:       make(chan struct{}),
	}
	s.mu.Lock()
	s.sess = sess
	s.mu.Unlock()

	s.logger.Info("device server launched",
		logging.Int(logging.FieldPID, cmd.Process.Pid),
		logging.String(logging.FieldSession, sess.id),
		logging.String("config", configPath))
	s.emit(Event{Kind: EventLaunched, SessionID: sess.id, PID: cmd.Process.Pid})

	go s.readOutput(sess, stdout)
	go func() {
		// Wait closes the stdout pipe and would discard anything the
		// scanner has not pulled out yet, so hold off until the reader
		// has seen EOF.
		<-sess.readDone
		sess.exit <- cmd.Wait()
	}()
	go s.monitor(ctx, sess)
	return nil
}

// Stop requests shutdown of the active session and blocks until the
// process has exited or ctx is cancelled. The escalation chain makes
// exit inevitable, so this returns promptly even for a hung server.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	sess := s.sess
	state := s.state
	s.mu.Unlock()
	if sess == nil || state == StateIdle || state == StateError {
		return ErrNotRunning
	}
	sess.stopOnce.Do(func() { close(sess.stopReq) })
	select {
	case <-sess.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// fail records a launch failure without an active session.
func (s *Supervisor) fail(err error) {
	s.mu.Lock()
	s.state = StateError
	s.sess = nil
	s.mu.Unlock()
	s.logger.Error("device server launch failed", logging.Error(err))
	s.emit(Event{Kind: EventLaunchFailed, Err: err})
}

func (s *Supervisor) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Supervisor) readOutput(sess *session, r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		sess.lines <- scanner.Text()
	}
	if err := scanner.Err(); err != nil {
		s.logger.Warn("device server output truncated", logging.Error(err))
	}
	close(sess.lines)
	close(sess.readDone)
}

// monitor is the sole owner of state transitions for one session. It
// consumes output lines, the stop request, and process exit, and runs
// the interrupt/terminate/kill escalation.
func (s *Supervisor) monitor(ctx context.Context, sess *session) {
	defer close(sess.done)

	var (
		startDeadline <-chan time.Time
		escalate      *time.Timer
		escalateCh    <-chan time.Time
		stopping      bool
		sawTerm       bool
		exitErr       error
		exited        bool
		lines         = sess.lines
		stopReq       = sess.stopReq
		ctxDone       = ctx.Done()
	)
	if s.opts.StartTimeout > 0 {
		t := time.NewTimer(s.opts.StartTimeout)
		defer t.Stop()
		startDeadline = t.C
	}
	defer func() {
		if escalate != nil {
			escalate.Stop()
		}
	}()

	requestStop := func() {
		if stopping {
			return
		}
		stopping = true
		s.setState(StateStopping)
		s.logger.Info("stopping device server",
			logging.String(logging.FieldSession, sess.id),
			logging.Int(logging.FieldPID, sess.cmd.Process.Pid))
		if err := interruptProcess(sess.cmd.Process); err != nil {
			s.logger.Warn("interrupt failed", logging.Error(err))
		}
		escalate = time.NewTimer(s.opts.StopGrace)
		escalateCh = escalate.C
	}

	for !exited {
		select {
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			s.handleLine(sess, line)
		case <-stopReq:
			stopReq = nil
			requestStop()
		case <-ctxDone:
			ctxDone = nil
			requestStop()
		case <-startDeadline:
			startDeadline = nil
			if s.State() == StateStarting {
				s.logger.Warn("ready marker not seen within start timeout",
					logging.String(logging.FieldSession, sess.id))
				s.emit(Event{Kind: EventStartTimeout, SessionID: sess.id})
			}
		case <-escalateCh:
			escalateCh = nil
			if !sawTerm {
				sawTerm = true
				s.logger.Warn("device server ignored interrupt, terminating",
					logging.Int(logging.FieldPID, sess.cmd.Process.Pid))
				if err := terminateProcess(sess.cmd.Process); err != nil {
					s.logger.Warn("terminate failed", logging.Error(err))
				}
				escalate = time.NewTimer(s.opts.KillGrace)
				escalateCh = escalate.C
			} else {
				s.logger.Warn("device server ignored terminate, killing",
					logging.Int(logging.FieldPID, sess.cmd.Process.Pid))
				if err := killProcess(sess.cmd.Process); err != nil {
					s.logger.Warn("kill failed", logging.Error(err))
				}
			}
		case exitErr = <-sess.exit:
			exited = true
		}
	}

	// Drain remaining buffered output so trailing lines still reach the
	// log before the stopped event.
	if lines != nil {
		for line := range lines {
			s.handleLine(sess, line)
		}
	}

	s.finish(sess, stopping, exitErr)
}

func (s *Supervisor) handleLine(sess *session, line string) {
	select {
	case s.events <- Event{Kind: EventLogLine, SessionID: sess.id, Line: line}:
	default:
	}
	if s.State() != StateStarting {
		return
	}
	addr, ok := matchReady(line, s.opts.ReadyMarker, s.opts.DisplayHost)
	if !ok {
		return
	}
	s.mu.Lock()
	s.state = StateRunning
	s.address = addr
	s.mu.Unlock()
	s.logger.Info("device server ready",
		logging.String(logging.FieldSession, sess.id),
		logging.String(logging.FieldAddress, addr))
	s.emit(Event{Kind: EventStarted, SessionID: sess.id, PID: sess.cmd.Process.Pid, Address: addr})
}

func (s *Supervisor) finish(sess *session, stopping bool, exitErr error) {
	wasStarting := s.State() == StateStarting
	exitCode := sess.cmd.ProcessState.ExitCode()

	s.mu.Lock()
	s.sess = nil
	s.address = ""
	s.mu.Unlock()

	if wasStarting && !stopping {
		err := fmt.Errorf("device server exited before becoming ready (exit code %d)", exitCode)
		if exitErr != nil {
			err = fmt.Errorf("device server exited before becoming ready: %w", exitErr)
		}
		s.setState(StateError)
		s.logger.Error("device server launch failed",
			logging.String(logging.FieldSession, sess.id),
			logging.Error(err))
		s.emit(Event{Kind: EventLaunchFailed, SessionID: sess.id, Err: err})
		return
	}

	s.setState(StateIdle)
	if !stopping && exitErr != nil {
		s.logger.Warn("device server exited unexpectedly",
			logging.String(logging.FieldSession, sess.id),
			logging.Int("exit_code", exitCode),
			logging.Error(exitErr))
	} else {
		s.logger.Info("device server stopped",
			logging.String(logging.FieldSession, sess.id),
			logging.Int("exit_code", exitCode))
	}
	var evErr error
	if !stopping {
		evErr = exitErr
	}
	s.emit(Event{Kind: EventStopped, SessionID: sess.id, ExitCode: exitCode, Err: evErr})
}

func (s *Supervisor) emit(ev Event) {
	s.events <- ev
}
