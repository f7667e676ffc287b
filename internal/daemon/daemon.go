package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"chemdrive/internal/config"
	"chemdrive/internal/devicecfg"
	"chemdrive/internal/logging"
	"chemdrive/internal/notifications"
	"chemdrive/internal/projects"
	"chemdrive/internal/supervisor"
)

// snapshotName is the file the active device configuration is copied to
// before launch. Running from a snapshot keeps the live session stable
// while the user keeps editing the original document.
const snapshotName = "temporary_cfg.toml"

// Daemon coordinates the device-server supervisor and enforces
// single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	sup      *supervisor.Supervisor
	notifier notifications.Service
	store    *projects.Store

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc

	shutdownOnce sync.Once
	shutdownCh   chan struct{}

	mu         sync.Mutex
	configPath string
	configName string
	lastError  string
}

// Status represents daemon runtime information.
type Status struct {
	Running        bool
	State          string
	Address        string
	PID            int
	SessionID      string
	ConfigPath     string
	ConfigName     string
	LastError      string
	LockPath       string
	LogPath        string
	ProjectsDBPath string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	store, err := projects.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open projects store: %w", err)
	}

	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:        cfg,
		logger:     logger,
		sup:        supervisor.New(supervisorOptions(cfg), logger),
		notifier:   notifications.NewService(cfg),
		store:      store,
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
		shutdownCh: make(chan struct{}),
	}, nil
}

// RequestShutdown signals the hosting process to exit. Safe to call
// more than once.
func (d *Daemon) RequestShutdown() {
	d.shutdownOnce.Do(func() { close(d.shutdownCh) })
}

// ShutdownRequested exposes the remote-shutdown signal to the host loop.
func (d *Daemon) ShutdownRequested() <-chan struct{} {
	return d.shutdownCh
}

func supervisorOptions(cfg *config.Config) supervisor.Options {
	return supervisor.Options{
		Binary:       cfg.Server.Binary,
		Args:         cfg.Server.Args,
		ReadyMarker:  cfg.Server.ReadyMarker,
		StartTimeout: time.Duration(cfg.Server.StartTimeout) * time.Second,
		StopGrace:    time.Duration(cfg.Server.StopGrace) * time.Second,
		KillGrace:    time.Duration(cfg.Server.KillGrace) * time.Second,
		DisplayHost:  cfg.Server.DisplayHost,
	}
}

// Start acquires the daemon lock and begins consuming supervisor events.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another chemdrive daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	go d.pumpEvents(d.ctx)

	d.running.Store(true)
	d.logger.Info("chemdrive daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts down any active device-server session and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), d.shutdownBudget())
	defer cancel()
	if err := d.sup.Stop(stopCtx); err != nil && !errors.Is(err, supervisor.ErrNotRunning) {
		d.logger.Warn("device server stop during shutdown failed", logging.Error(err))
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("chemdrive daemon stopped")
}

// shutdownBudget bounds Stop on the escalation chain plus slack.
func (d *Daemon) shutdownBudget() time.Duration {
	grace := time.Duration(d.cfg.Server.StopGrace+d.cfg.Server.KillGrace) * time.Second
	return grace + 2*time.Second
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// RunServer validates and snapshots the device configuration at path,
// then launches the device server against the snapshot. With takeOver,
// stray server processes from earlier runs are terminated first.
// waitReady > 0 blocks until the server reports ready, fails, or the
// window elapses.
func (d *Daemon) RunServer(ctx context.Context, path string, takeOver bool, waitReady time.Duration) (Status, error) {
	if !d.running.Load() {
		return d.Status(), errors.New("daemon not running")
	}

	expanded, err := config.ExpandPath(path)
	if err != nil {
		return d.Status(), err
	}
	doc, err := devicecfg.ParseFile(expanded)
	if err != nil {
		return d.Status(), fmt.Errorf("device configuration rejected: %w", err)
	}

	snapshot := filepath.Join(d.cfg.SnapshotDir(), snapshotName)
	if err := doc.WriteFile(snapshot); err != nil {
		return d.Status(), fmt.Errorf("write configuration snapshot: %w", err)
	}

	if takeOver {
		reaped, reapErr := supervisor.TerminateStrays(ctx, d.cfg.Server.Binary, d.logger)
		if reapErr != nil {
			d.logger.Warn("stray process scan failed", logging.Error(reapErr))
		} else if reaped > 0 {
			d.logger.Info("stray device servers terminated", logging.Int("count", reaped))
		}
	}

	name := strings.TrimSuffix(filepath.Base(expanded), filepath.Ext(expanded))
	d.mu.Lock()
	d.configPath = expanded
	d.configName = name
	d.lastError = ""
	d.mu.Unlock()

	if err := d.store.Touch(ctx, expanded, name); err != nil {
		d.logger.Warn("failed to record recent project", logging.Error(err))
	}

	if err := d.sup.Run(d.ctx, snapshot); err != nil {
		return d.Status(), err
	}

	if waitReady > 0 {
		if err := d.waitForReady(ctx, waitReady); err != nil {
			return d.Status(), err
		}
	}
	return d.Status(), nil
}

// waitForReady polls the supervisor until it leaves Starting.
func (d *Daemon) waitForReady(ctx context.Context, window time.Duration) error {
	deadline := time.Now().Add(window)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		switch d.sup.State() {
		case supervisor.StateRunning:
			return nil
		case supervisor.StateError:
			d.mu.Lock()
			lastError := d.lastError
			d.mu.Unlock()
			if lastError == "" {
				lastError = "device server failed to start"
			}
			return errors.New(lastError)
		case supervisor.StateIdle:
			return errors.New("device server exited before becoming ready")
		}
		if time.Now().After(deadline) {
			// Still starting. Not an error; slow rigs keep booting and
			// status will flip to running when the marker appears.
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// StopServer shuts down the active device-server session.
func (d *Daemon) StopServer(ctx context.Context) error {
	return d.sup.Stop(ctx)
}

// Status reports combined daemon and session state.
func (d *Daemon) Status() Status {
	d.mu.Lock()
	configPath := d.configPath
	configName := d.configName
	lastError := d.lastError
	d.mu.Unlock()

	return Status{
		Running:        d.running.Load(),
		State:          string(d.sup.State()),
		Address:        d.sup.Address(),
		PID:            d.sup.PID(),
		SessionID:      d.sup.SessionID(),
		ConfigPath:     configPath,
		ConfigName:     configName,
		LastError:      lastError,
		LockPath:       d.lockPath,
		LogPath:        d.cfg.LogPath(),
		ProjectsDBPath: d.cfg.ProjectsDBPath(),
	}
}

// ListProjects returns the recent-projects records, newest first.
func (d *Daemon) ListProjects(ctx context.Context, limit int) ([]projects.Record, error) {
	return d.store.List(ctx, limit)
}

// RemoveProject forgets one recent project.
func (d *Daemon) RemoveProject(ctx context.Context, path string) error {
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return err
	}
	return d.store.Remove(ctx, expanded)
}

// ClearProjects forgets all recent projects.
func (d *Daemon) ClearProjects(ctx context.Context) error {
	return d.store.Clear(ctx)
}

// PruneProjects drops recent projects whose files no longer exist.
func (d *Daemon) PruneProjects(ctx context.Context) ([]string, error) {
	return d.store.Prune(ctx, func(path string) bool {
		_, err := os.Stat(path)
		return err == nil
	})
}

// TestNotification sends a test push and reports the outcome.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, err.Error(), nil
	}
	return true, "notification sent", nil
}

// LogPath exposes the daemon log file location for IPC log tailing.
func (d *Daemon) LogPath() string {
	return d.cfg.LogPath()
}

// pumpEvents consumes supervisor events, mirroring server output into
// the daemon log and pushing lifecycle notifications.
func (d *Daemon) pumpEvents(ctx context.Context) {
	serverLog := logging.NewComponentLogger(d.logger, "device-server")
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-d.sup.Events():
			d.handleEvent(ctx, ev, serverLog)
		}
	}
}

func (d *Daemon) handleEvent(ctx context.Context, ev supervisor.Event, serverLog *slog.Logger) {
	d.mu.Lock()
	configName := d.configName
	d.mu.Unlock()

	switch ev.Kind {
	case supervisor.EventLogLine:
		serverLog.Info(ev.Line)
	case supervisor.EventLaunched:
		d.logger.Info("device server process launched",
			logging.Int("pid", ev.PID),
			logging.String("config", configName))
	case supervisor.EventStarted:
		if err := d.notifier.NotifyServerStarted(ctx, ev.Address, configName); err != nil {
			d.logger.Warn("start notification failed", logging.Error(err))
		}
	case supervisor.EventStopped:
		if ev.Err != nil {
			d.setLastError(fmt.Sprintf("device server exited unexpectedly: %v", ev.Err))
			if err := d.notifier.NotifyError(ctx, ev.Err, configName); err != nil {
				d.logger.Warn("error notification failed", logging.Error(err))
			}
		}
		if err := d.notifier.NotifyServerStopped(ctx, configName); err != nil {
			d.logger.Warn("stop notification failed", logging.Error(err))
		}
	case supervisor.EventStartTimeout:
		d.logger.Warn("device server has not reported ready yet",
			logging.String("config", configName))
	case supervisor.EventLaunchFailed:
		if ev.Err != nil {
			d.setLastError(ev.Err.Error())
		}
		if err := d.notifier.NotifyLaunchFailed(ctx, configName, ev.Err); err != nil {
			d.logger.Warn("failure notification failed", logging.Error(err))
		}
	}
}

func (d *Daemon) setLastError(message string) {
	d.mu.Lock()
	d.lastError = message
	d.mu.Unlock()
}
