package main

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/l1jgo/action/internal/config"
	"github.com/l1jgo/action/internal/scripting"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestValidate(t *testing.T) {
	log := zap.NewNop()
	lua, err := scripting.NewEngine("", log)
	if err != nil {
		t.Fatal(err)
	}
	defer lua.Close()
	if err := lua.DoString(`function spin() coroutine.yield() end`); err != nil {
		t.Fatal(err)
	}

	good := writeFile(t, "good.yaml", `
timelines:
  - name: ok
    steps:
      - wait: 1s
      - lua: spin
`)
	if err := validate(good, lua, log); err != nil {
		t.Fatalf("validate good: %v", err)
	}

	bad := writeFile(t, "bad.yaml", `
timelines:
  - name: ok
    steps:
      - wait: 1s
  - name: missing
    steps:
      - lua: not_defined
`)
	if err := validate(bad, lua, log); err == nil {
		t.Fatal("expected a compile failure")
	}
	if err := validate(good, nil, log); err == nil {
		t.Fatal("lua steps must fail with scripting disabled")
	}
}

func TestNewLogger(t *testing.T) {
	for _, cfg := range []config.LoggingConfig{
		{Level: "debug", Format: "console"},
		{Level: "warn", Format: "json"},
		{Level: "bogus", Format: "console"},
	} {
		log, err := newLogger(cfg)
		if err != nil {
			t.Fatalf("%+v: %v", cfg, err)
		}
		log.Sync()
	}
}

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	want := map[string]bool{"run": false, "validate": false, "journal": false}
	for _, c := range root.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing %s command", name)
		}
	}
}

func TestJournalFlags(t *testing.T) {
	cmd := newJournalCmd()
	for _, name := range []string{"limit", "run"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("journal has no --%s flag", name)
		}
	}
}
