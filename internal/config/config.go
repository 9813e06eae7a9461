// Package config loads and validates the dockpeek configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"dockpeek/internal/platform"
)

// Timings groups the tunable delays and budgets, all in milliseconds.
// Zero values fall back to the built-in component defaults.
type Timings struct {
	DockRefreshMS   int `yaml:"dock_refresh_ms"`
	PointerPollMS   int `yaml:"pointer_poll_ms"`
	ClickBudgetMS   int `yaml:"click_budget_ms"`
	ClickCooldownMS int `yaml:"click_cooldown_ms"`
	HoverDebounceMS int `yaml:"hover_debounce_ms"`
	HoverCooldownMS int `yaml:"hover_cooldown_ms"`
	ExitGraceMS     int `yaml:"exit_grace_ms"`
	PeekDebounceMS  int `yaml:"peek_debounce_ms"`
	PeekCloseMS     int `yaml:"peek_close_ms"`
	LockGraceMS     int `yaml:"lock_grace_ms"`
	AnchorGraceMS   int `yaml:"anchor_grace_ms"`
}

// Config is the user-facing configuration.
type Config struct {
	// HoverPreview enables hover-triggered window previews.
	HoverPreview bool `yaml:"hover_preview"`
	// IndependentWindows enables per-window control from the preview
	// panel (peek, close, focus a single window).
	IndependentWindows bool `yaml:"independent_windows"`

	// Blacklist names applications excluded from dock hit-testing.
	// Entries are WM_CLASS class names.
	Blacklist []string `yaml:"blacklist"`
	// AnchorApps lists applications whose windows are always shown and
	// hidden together as a group.
	AnchorApps []string `yaml:"anchor_apps"`

	Timings Timings `yaml:"timings"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		HoverPreview:       true,
		IndependentWindows: true,
	}
}

// DefaultConfigPath returns ~/.config/dockpeek/config.yaml.
func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "dockpeek", "config.yaml"), nil
}

// Load reads the configuration from the standard location. A missing
// file is not an error; the defaults apply.
func Load() (*Config, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads the configuration from path.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects configurations the daemon cannot run with.
func (c *Config) Validate() error {
	t := c.Timings
	fields := []struct {
		name  string
		value int
	}{
		{"dock_refresh_ms", t.DockRefreshMS},
		{"pointer_poll_ms", t.PointerPollMS},
		{"click_budget_ms", t.ClickBudgetMS},
		{"click_cooldown_ms", t.ClickCooldownMS},
		{"hover_debounce_ms", t.HoverDebounceMS},
		{"hover_cooldown_ms", t.HoverCooldownMS},
		{"exit_grace_ms", t.ExitGraceMS},
		{"peek_debounce_ms", t.PeekDebounceMS},
		{"peek_close_ms", t.PeekCloseMS},
		{"lock_grace_ms", t.LockGraceMS},
		{"anchor_grace_ms", t.AnchorGraceMS},
	}
	for _, f := range fields {
		if f.value < 0 {
			return fmt.Errorf("timings.%s must not be negative (got %d)", f.name, f.value)
		}
	}

	// A click budget much above 10ms makes delayed input perceptible on
	// the button-grab path.
	if t.ClickBudgetMS > 50 {
		return fmt.Errorf("timings.click_budget_ms must be at most 50 (got %d)", t.ClickBudgetMS)
	}

	for i, app := range c.Blacklist {
		if app == "" {
			return fmt.Errorf("blacklist entry %d is empty", i)
		}
	}
	for i, app := range c.AnchorApps {
		if app == "" {
			return fmt.Errorf("anchor_apps entry %d is empty", i)
		}
	}
	return nil
}

// BlacklistIDs returns the blacklist as application identifiers.
func (c *Config) BlacklistIDs() []platform.AppID {
	return toAppIDs(c.Blacklist)
}

// AnchorIDs returns the anchor list as application identifiers.
func (c *Config) AnchorIDs() []platform.AppID {
	return toAppIDs(c.AnchorApps)
}

func toAppIDs(names []string) []platform.AppID {
	out := make([]platform.AppID, 0, len(names))
	for _, n := range names {
		out = append(out, platform.AppID(n))
	}
	return out
}

// Duration converts a millisecond field to a duration. Zero means "use
// the component default" and maps to zero.
func Duration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
