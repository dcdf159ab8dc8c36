package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Foldover/wscript"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Runtime.StackBudget != wscript.DefaultStackBudget {
		t.Fatalf("expected default budget, got %d", cfg.Runtime.StackBudget)
	}
	if cfg.Server.Addr != ":8080" || cfg.Log.Level != "info" || cfg.REPL.HistoryFile == "" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestLoadFromStringYAML(t *testing.T) {
	content := `
runtime:
  stack_budget: 50
  max_bounces: 1000
log:
  level: debug
server:
  addr: ":9999"
`
	cfg, err := LoadFromString(content, "yaml")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Runtime.StackBudget != 50 || cfg.Runtime.MaxBounces != 1000 {
		t.Fatalf("unexpected runtime section %+v", cfg.Runtime)
	}
	if cfg.Server.Addr != ":9999" || cfg.Log.Level != "debug" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Server.Version != "1.0.0" {
		t.Fatalf("expected defaults for missing keys, got %q", cfg.Server.Version)
	}
	rc := cfg.RuntimeConfig()
	if rc.StackBudget != 50 || rc.MaxBounces != 1000 {
		t.Fatalf("unexpected runtime config %+v", rc)
	}
}

func TestLoadFromStringJSON(t *testing.T) {
	cfg, err := LoadFromString(`{"runtime": {"stack_budget": 7, "log_evaluation": true}, "repl": {"prompt": "mc> "}}`, "json")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Runtime.StackBudget != 7 || !cfg.Runtime.LogEvaluation || cfg.REPL.Prompt != "mc> " {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("WSCRIPT_TEST_ADDR", ":7070")
	dir := t.TempDir()
	path := filepath.Join(dir, "wscript.yml")
	if err := os.WriteFile(path, []byte("server:\n  addr: \"${WSCRIPT_TEST_ADDR}\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":7070" {
		t.Fatalf("expected expanded address, got %q", cfg.Server.Addr)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	if _, err := LoadFromString("runtime:\n  stack_budget: -1\n", "yaml"); err == nil {
		t.Fatal("expected a negative budget to be rejected")
	}
	if _, err := LoadFromString(`{"runtime": {"stack_budget": 2000000000}}`, "json"); err == nil {
		t.Fatal("expected an oversized budget to be rejected")
	}
	cfg := Default()
	cfg.Runtime.StackBudget = wscript.MaxStackBudget + 1
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "stack_budget") {
		t.Fatalf("expected Validate to reject an override above the maximum, got %v", err)
	}
	if _, err := LoadFromString("log:\n  level: loud\n", "yaml"); err == nil || !strings.Contains(err.Error(), "log.level") {
		t.Fatalf("expected an invalid level error, got %v", err)
	}
	if _, err := LoadFromString("a = 1", "toml"); err == nil {
		t.Fatal("expected an unsupported format error")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected a missing file error")
	}
}

func TestApplySetsRuntimeDefaults(t *testing.T) {
	saved := wscript.GetRuntimeConfig()
	defer wscript.SetRuntimeConfig(saved)

	cfg := Default()
	cfg.Runtime.MaxBounces = 42
	cfg.Apply()
	if got := wscript.GetRuntimeConfig(); got.MaxBounces != 42 || got.StackBudget != wscript.DefaultStackBudget {
		t.Fatalf("unexpected runtime config %+v", got)
	}
}

func TestNewLoggerWritesToWriter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("info", &buf)
	logger.Info().Str("component", "config").Msg("hello")
	if !strings.Contains(buf.String(), "hello") {
		t.Fatalf("expected the message in the output, got %q", buf.String())
	}
	buf.Reset()
	logger.Debug().Msg("hidden")
	if strings.Contains(buf.String(), "hidden") {
		t.Fatalf("expected debug to be filtered at info level, got %q", buf.String())
	}
}
