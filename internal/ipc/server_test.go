package ipc

import (
	"log/slog"
	"testing"
)

type fakeDaemon struct {
	enabled     bool
	reloads     int
	hides       int
	reloadError error
}

func (d *fakeDaemon) Status() StatusData {
	return StatusData{
		DaemonRunning: true,
		Enabled:       d.enabled,
		HoverPreview:  true,
		DockRegions:   4,
		PreviewState:  "hidden",
		UptimeSeconds: 12,
	}
}

func (d *fakeDaemon) ReloadConfig() error { d.reloads++; return d.reloadError }
func (d *fakeDaemon) SetEnabled(v bool)   { d.enabled = v }
func (d *fakeDaemon) HidePreview()        { d.hides++ }

func newTestServer(t *testing.T) (*Server, *fakeDaemon) {
	t.Helper()
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	daemon := &fakeDaemon{enabled: true}
	srv, err := NewServer(daemon, slog.Default())
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(srv.Stop)
	return srv, daemon
}

func TestClientServer_Status(t *testing.T) {
	newTestServer(t)

	status, err := NewClient().GetStatus()
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if !status.DaemonRunning || !status.Enabled {
		t.Fatalf("unexpected status: %+v", status)
	}
	if status.DockRegions != 4 {
		t.Fatalf("expected 4 dock regions, got %d", status.DockRegions)
	}
}

func TestClientServer_EnableDisable(t *testing.T) {
	_, daemon := newTestServer(t)

	client := NewClient()
	if err := client.Disable(); err != nil {
		t.Fatalf("Disable: %v", err)
	}
	if daemon.enabled {
		t.Fatal("expected daemon disabled")
	}
	if err := client.Enable(); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	if !daemon.enabled {
		t.Fatal("expected daemon enabled")
	}
}

func TestClientServer_ReloadAndHidePreview(t *testing.T) {
	_, daemon := newTestServer(t)

	client := NewClient()
	if err := client.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if err := client.HidePreview(); err != nil {
		t.Fatalf("HidePreview: %v", err)
	}
	if daemon.reloads != 1 || daemon.hides != 1 {
		t.Fatalf("expected one reload and one hide, got %d/%d", daemon.reloads, daemon.hides)
	}
}

func TestClientServer_UnknownCommand(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := srv.handleCommand(&Request{Command: "BOGUS"})
	if resp.Status != "ERROR" {
		t.Fatalf("expected ERROR status, got %q", resp.Status)
	}
}
