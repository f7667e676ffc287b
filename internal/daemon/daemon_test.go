package daemon_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"chemdrive/internal/daemon"
	"chemdrive/internal/testsupport"
)

const banner = "INFO:     Uvicorn running on http://0.0.0.0:8000 (Press CTRL+C to quit)"

func newRunningDaemon(t *testing.T, serverBinary string) *daemon.Daemon {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithServerBinary(serverBinary))
	d, err := daemon.New(cfg, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	return d
}

func TestRunServerLifecycle(t *testing.T) {
	script := testsupport.ServerScript(t, banner)
	d := newRunningDaemon(t, script)
	deviceCfg := testsupport.DeviceConfig(t, "")

	status, err := d.RunServer(context.Background(), deviceCfg, false, 10*time.Second)
	if err != nil {
		t.Fatalf("RunServer: %v", err)
	}
	if status.State != "running" {
		t.Fatalf("state = %s, want running", status.State)
	}
	if status.Address != "127.0.0.1:8000" {
		t.Fatalf("address = %q", status.Address)
	}
	if status.ConfigName != "devices" {
		t.Fatalf("config name = %q, want devices", status.ConfigName)
	}

	// The run was recorded as a recent project.
	records, err := d.ListProjects(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(records) != 1 || records[0].Path != status.ConfigPath {
		t.Fatalf("projects = %+v", records)
	}

	if err := d.StopServer(context.Background()); err != nil {
		t.Fatalf("StopServer: %v", err)
	}
	waitForState(t, d, "idle")
}

func TestRunServerRejectsInvalidDocument(t *testing.T) {
	script := testsupport.ServerScript(t, banner)
	d := newRunningDaemon(t, script)
	deviceCfg := testsupport.DeviceConfig(t, "[device.pump\ntype = broken\n")

	if _, err := d.RunServer(context.Background(), deviceCfg, false, 0); err == nil {
		t.Fatal("expected error for malformed device configuration")
	} else if !strings.Contains(err.Error(), "rejected") {
		t.Fatalf("unexpected error: %v", err)
	}
	status := d.Status()
	if status.State != "idle" {
		t.Fatalf("state = %s, want idle", status.State)
	}
}

func TestRunServerSurfacesLaunchFailure(t *testing.T) {
	script := testsupport.CrashingServerScript(t, 7)
	d := newRunningDaemon(t, script)
	deviceCfg := testsupport.DeviceConfig(t, "")

	if _, err := d.RunServer(context.Background(), deviceCfg, false, 10*time.Second); err == nil {
		t.Fatal("expected launch failure error")
	}
	status := d.Status()
	if status.LastError == "" {
		t.Fatal("expected last error to be recorded")
	}
}

func TestSecondDaemonInstanceRejected(t *testing.T) {
	script := testsupport.ServerScript(t, banner)
	cfg := testsupport.NewConfig(t, testsupport.WithServerBinary(script))

	first, err := daemon.New(cfg, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	defer first.Close()
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("first Start: %v", err)
	}

	second, err := daemon.New(cfg, nil)
	if err != nil {
		t.Fatalf("daemon.New second: %v", err)
	}
	defer second.Close()
	if err := second.Start(context.Background()); err == nil {
		t.Fatal("expected second daemon instance to be rejected")
	}
}

func TestProjectsMaintenance(t *testing.T) {
	script := testsupport.ServerScript(t, banner)
	d := newRunningDaemon(t, script)
	deviceCfg := testsupport.DeviceConfig(t, "")

	if _, err := d.RunServer(context.Background(), deviceCfg, false, 10*time.Second); err != nil {
		t.Fatalf("RunServer: %v", err)
	}
	if err := d.StopServer(context.Background()); err != nil {
		t.Fatalf("StopServer: %v", err)
	}
	waitForState(t, d, "idle")

	if err := d.RemoveProject(context.Background(), deviceCfg); err != nil {
		t.Fatalf("RemoveProject: %v", err)
	}
	records, err := d.ListProjects(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("projects after remove = %+v", records)
	}
}

func waitForState(t *testing.T, d *daemon.Daemon, want string) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if d.Status().State == want {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("state = %s, want %s", d.Status().State, want)
}
