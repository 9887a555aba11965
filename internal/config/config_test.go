package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "actiond.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[driver]
tick_rate = "20ms"

[logging]
level = "debug"

[timelines]
autostart = ["intro", "pulse"]

[database]
enabled = true
journal_flush_ticks = 10
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Driver.TickRate != 20*time.Millisecond {
		t.Errorf("tick_rate = %s", cfg.Driver.TickRate)
	}
	if cfg.Driver.SlowTick != 40*time.Millisecond {
		t.Errorf("slow_tick default lost: %s", cfg.Driver.SlowTick)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "console" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	if len(cfg.Timelines.Autostart) != 2 || cfg.Timelines.File != "data/timelines.yaml" {
		t.Errorf("timelines = %+v", cfg.Timelines)
	}
	if !cfg.Database.Enabled || cfg.Database.JournalFlushTicks != 10 || cfg.Database.MaxOpenConns != 4 {
		t.Errorf("database = %+v", cfg.Database)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"zero tick":    "[driver]\ntick_rate = \"0s\"\n",
		"bad format":   "[logging]\nformat = \"xml\"\n",
		"flush ticks":  "[database]\nenabled = true\njournal_flush_ticks = 0\n",
		"syntax error": "[driver\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestPath(t *testing.T) {
	t.Setenv(EnvPath, "/etc/actiond.toml")
	if got := Path("custom.toml"); got != "custom.toml" {
		t.Errorf("flag ignored: %s", got)
	}
	if got := Path(""); got != "/etc/actiond.toml" {
		t.Errorf("env ignored: %s", got)
	}
	t.Setenv(EnvPath, "")
	if got := Path(""); got != "config/actiond.toml" {
		t.Errorf("default = %s", got)
	}
}
