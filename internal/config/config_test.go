package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/julianstephens/focusbot/internal/constants"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)
	for _, k := range []string{"DISCORD_TOKEN", "FOCUSBOT_DATA_DIR", "FOCUSBOT_STORE", "FOCUSBOT_DEBUG",
		"FOCUSBOT_DEFAULT_FOCUS_MINUTES", "FOCUSBOT_MAX_FOCUS_MINUTES", "FOCUSBOT_REMINDER_HOUR", "FOCUSBOT_LOCKED_CHANNELS",
		"FOCUSBOT_LOG_LEVEL", "FOCUSBOT_LOG_FORMAT"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.DataDir != constants.DefaultDataDir {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, constants.DefaultDataDir)
	}
	if cfg.Store != "json" {
		t.Errorf("Store = %q, want json", cfg.Store)
	}
	if cfg.DefaultFocusMinutes != 25 || cfg.MaxFocusMinutes != 120 {
		t.Errorf("focus minutes = %d/%d, want 25/120", cfg.DefaultFocusMinutes, cfg.MaxFocusMinutes)
	}
	if cfg.ReminderHour != -1 {
		t.Errorf("ReminderHour = %d, want -1", cfg.ReminderHour)
	}
	if len(cfg.LockedChannels) != 0 {
		t.Errorf("LockedChannels = %v, want none", cfg.LockedChannels)
	}
	if cfg.LogLevel != "" || cfg.LogFormat != "" {
		t.Errorf("log settings = %q/%q, want unset", cfg.LogLevel, cfg.LogFormat)
	}
}

func TestLoadFromDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	t.Setenv("FOCUSBOT_STORE", "")
	t.Setenv("FOCUSBOT_LOCKED_CHANNELS", "")
	os.Unsetenv("FOCUSBOT_STORE")
	os.Unsetenv("FOCUSBOT_LOCKED_CHANNELS")

	env := "FOCUSBOT_STORE=sqlite\nFOCUSBOT_LOCKED_CHANNELS=111, 222,,333\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Store != "sqlite" {
		t.Errorf("Store = %q, want sqlite", cfg.Store)
	}
	want := []string{"111", "222", "333"}
	if len(cfg.LockedChannels) != len(want) {
		t.Fatalf("LockedChannels = %v, want %v", cfg.LockedChannels, want)
	}
	for i := range want {
		if cfg.LockedChannels[i] != want[i] {
			t.Errorf("LockedChannels[%d] = %q, want %q", i, cfg.LockedChannels[i], want[i])
		}
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	chdirTemp(t)
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"non-numeric minutes", "FOCUSBOT_MAX_FOCUS_MINUTES", "lots"},
		{"reminder hour out of range", "FOCUSBOT_REMINDER_HOUR", "24"},
		{"default above max", "FOCUSBOT_DEFAULT_FOCUS_MINUTES", "500"},
		{"bad debug flag", "FOCUSBOT_DEBUG", "maybe"},
		{"non-numeric channel", "FOCUSBOT_LOCKED_CHANNELS", "general"},
		{"unknown log level", "FOCUSBOT_LOG_LEVEL", "verbose"},
		{"unknown log format", "FOCUSBOT_LOG_FORMAT", "xml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			if _, err := Load(); err == nil {
				t.Errorf("Load() with %s=%q should fail", tt.key, tt.val)
			}
		})
	}
}
