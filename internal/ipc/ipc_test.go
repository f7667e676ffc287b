package ipc_test

import (
	"context"
	"testing"
	"time"

	"chemdrive/internal/daemon"
	"chemdrive/internal/ipc"
	"chemdrive/internal/testsupport"
)

const banner = "INFO:     Uvicorn running on http://0.0.0.0:8000 (Press CTRL+C to quit)"

func startServer(t *testing.T) (*ipc.Client, string) {
	t.Helper()

	script := testsupport.ServerScript(t, banner)
	cfg := testsupport.NewConfig(t, testsupport.WithServerBinary(script))

	d, err := daemon.New(cfg, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}

	server, err := ipc.NewServer(ctx, cfg.SocketPath(), d, nil)
	if err != nil {
		t.Fatalf("ipc.NewServer: %v", err)
	}
	t.Cleanup(server.Close)
	server.Serve()

	client, err := ipc.Dial(cfg.SocketPath())
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	return client, testsupport.DeviceConfig(t, "")
}

func TestRunStatusStopOverSocket(t *testing.T) {
	client, deviceCfg := startServer(t)

	run, err := client.Run(ipc.RunRequest{
		ConfigPath: deviceCfg,
		WaitMillis: int((10 * time.Second).Milliseconds()),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !run.Started {
		t.Fatalf("run not started: %s", run.Message)
	}
	if run.Status.Address != "127.0.0.1:8000" {
		t.Fatalf("address = %q", run.Status.Address)
	}

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Status.State != "running" {
		t.Fatalf("state = %s, want running", status.Status.State)
	}
	if status.Status.PID == 0 {
		t.Fatal("expected pid in status")
	}

	stop, err := client.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !stop.Stopped {
		t.Fatalf("stop failed: %s", stop.Message)
	}
}

func TestStopWithoutSessionReportsMessage(t *testing.T) {
	client, _ := startServer(t)

	stop, err := client.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if stop.Stopped {
		t.Fatal("expected stop to report no active session")
	}
	if stop.Message == "" {
		t.Fatal("expected explanatory message")
	}
}

func TestProjectsRoundTripOverSocket(t *testing.T) {
	client, deviceCfg := startServer(t)

	run, err := client.Run(ipc.RunRequest{
		ConfigPath: deviceCfg,
		WaitMillis: int((10 * time.Second).Milliseconds()),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !run.Started {
		t.Fatalf("run not started: %s", run.Message)
	}

	list, err := client.ProjectsList(0)
	if err != nil {
		t.Fatalf("ProjectsList: %v", err)
	}
	if len(list.Projects) != 1 {
		t.Fatalf("projects = %+v", list.Projects)
	}

	if _, err := client.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	removed, err := client.ProjectsRemove(list.Projects[0].Path)
	if err != nil {
		t.Fatalf("ProjectsRemove: %v", err)
	}
	if !removed.Removed {
		t.Fatal("expected removal to be acknowledged")
	}

	cleared, err := client.ProjectsClear()
	if err != nil {
		t.Fatalf("ProjectsClear: %v", err)
	}
	if !cleared.Cleared {
		t.Fatal("expected clear to be acknowledged")
	}
}

func TestInvalidConfigSurfacesMessage(t *testing.T) {
	client, _ := startServer(t)
	badCfg := testsupport.DeviceConfig(t, "[device.pump\n")

	run, err := client.Run(ipc.RunRequest{ConfigPath: badCfg})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.Started {
		t.Fatal("expected run to be rejected")
	}
	if run.Message == "" {
		t.Fatal("expected rejection message")
	}
}
