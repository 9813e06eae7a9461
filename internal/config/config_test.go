package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault_Validates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
	if !cfg.HoverPreview {
		t.Fatalf("expected hover previews enabled by default")
	}
}

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadFromPath(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.IndependentWindows {
		t.Fatalf("expected default independent_windows=true")
	}
}

func TestLoadFromPath_OverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
hover_preview: false
blacklist: [finder, systemsettings]
anchor_apps: [gimp]
timings:
  hover_debounce_ms: 200
  click_budget_ms: 8
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HoverPreview {
		t.Fatalf("expected hover_preview=false")
	}
	if !cfg.IndependentWindows {
		t.Fatalf("expected untouched independent_windows to keep default")
	}
	if got := len(cfg.Blacklist); got != 2 {
		t.Fatalf("expected 2 blacklist entries, got %d", got)
	}
	if cfg.Timings.HoverDebounceMS != 200 {
		t.Fatalf("expected hover_debounce_ms=200, got %d", cfg.Timings.HoverDebounceMS)
	}
	if ids := cfg.AnchorIDs(); len(ids) != 1 || string(ids[0]) != "gimp" {
		t.Fatalf("unexpected anchor ids: %v", ids)
	}
}

func TestLoadFromPath_RejectsInvalidTimings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := "timings:\n  click_budget_ms: 500\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err := LoadFromPath(path)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if !strings.Contains(err.Error(), "click_budget_ms") {
		t.Fatalf("expected click_budget_ms in error, got %v", err)
	}
}

func TestLoadFromPath_RejectsNegativeTimings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := "timings:\n  exit_grace_ms: -5\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := LoadFromPath(path); err == nil {
		t.Fatalf("expected validation error for negative timing")
	}
}

func TestValidate_RejectsEmptyBlacklistEntry(t *testing.T) {
	cfg := Default()
	cfg.Blacklist = []string{"finder", ""}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for empty blacklist entry")
	}
}
