package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"chemdrive/internal/logging"
)

// TerminateStrays finds device-server processes left behind by earlier
// runs or other frontends and shuts them down. A process matches when
// its command line mentions the server binary and a .toml configuration
// file. Each match gets a terminate, a short wait, then a kill.
// Returns the number of processes reaped.
func TerminateStrays(ctx context.Context, binary string, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("list processes: %w", err)
	}
	self := int32(os.Getpid())
	reaped := 0
	for _, p := range procs {
		if p.Pid == self {
			continue
		}
		cmdline, err := p.CmdlineWithContext(ctx)
		if err != nil || cmdline == "" {
			continue
		}
		if !strings.Contains(cmdline, binary) || !strings.Contains(cmdline, ".toml") {
			continue
		}
		logger.Warn("terminating stray device server",
			logging.Int(logging.FieldPID, int(p.Pid)),
			logging.String("cmdline", cmdline))
		if err := reapProcess(ctx, p); err != nil {
			logger.Warn("failed to reap stray process",
				logging.Int(logging.FieldPID, int(p.Pid)),
				logging.Error(err))
			continue
		}
		reaped++
	}
	return reaped, nil
}

func reapProcess(ctx context.Context, p *process.Process) error {
	if err := p.TerminateWithContext(ctx); err != nil {
		return fmt.Errorf("terminate: %w", err)
	}
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		running, err := p.IsRunningWithContext(ctx)
		if err != nil || !running {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
	if err := p.KillWithContext(ctx); err != nil {
		return fmt.Errorf("kill: %w", err)
	}
	return nil
}
