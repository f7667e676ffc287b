// Package daemonrun hosts the daemon process runtime: logging setup,
// pid file, IPC socket, and the shutdown wait loop.
package daemonrun

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"chemdrive/internal/config"
	"chemdrive/internal/daemon"
	"chemdrive/internal/ipc"
	"chemdrive/internal/logging"
	"chemdrive/internal/preflight"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel   string
	SocketPath string
}

// Run starts the chemdrive daemon runtime loop and blocks until a
// termination signal or a remote shutdown request arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", cfg.LogPath()},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if results := preflight.Run(signalCtx, cfg); preflight.HasFailure(results) {
		for _, res := range results {
			if !res.Passed {
				logger.Warn("preflight check failed",
					logging.String("check", res.Name),
					logging.String("detail", res.Detail))
			}
		}
	}

	if err := writePIDFile(cfg.PIDPath()); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(cfg.PIDPath())

	d, err := daemon.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	socketPath := opts.SocketPath
	if socketPath == "" {
		socketPath = cfg.SocketPath()
	}
	ipcServer, err := ipc.NewServer(signalCtx, socketPath, d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	select {
	case <-signalCtx.Done():
	case <-d.ShutdownRequested():
	}
	logger.Info("chemdrive daemon shutting down")
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
