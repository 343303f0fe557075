package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"pycleaner/internal/core/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pycleaner.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
version = 1

[project]
root = "./app"
targets = ["main.py", "cli"]
deep = true
source_roots = ["src"]

[exclude]
dirs = [".git", "build*"]
files = ["*_pb2.py"]

[python]
interpreter = "/usr/bin/python3.12"
use_interpreter = false

[scan]
skip_unparsable = true

[report]
format = "JSON"
width = 100
suggest = false

[output]
log = true
zip = "deps.zip"

[history]
enabled = true
project_key = "app"

[watch]
debounce = "1s"
max_runs_per_minute = 5
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Project.Root != "./app" || !cfg.Project.Deep {
		t.Errorf("unexpected project section %+v", cfg.Project)
	}
	if len(cfg.Project.Targets) != 2 || cfg.Project.Targets[1] != "cli" {
		t.Errorf("unexpected targets %v", cfg.Project.Targets)
	}
	if cfg.Python.InterpreterEnabled() {
		t.Error("use_interpreter = false must disable the interpreter")
	}
	if !cfg.Python.StdlibEnabled() {
		t.Error("stdlib fallback defaults to enabled")
	}
	if cfg.Report.Format != FormatJSON {
		t.Errorf("format must be normalized, got %q", cfg.Report.Format)
	}
	if cfg.Report.SuggestEnabled() {
		t.Error("suggest = false must disable hints")
	}
	if cfg.Watch.Debounce != time.Second || cfg.Watch.MaxRunsPerMinute != 5 {
		t.Errorf("unexpected watch section %+v", cfg.Watch)
	}
	if cfg.Output.LibsLog != "pycleaner-libs.log" {
		t.Errorf("expected default libs log, got %q", cfg.Output.LibsLog)
	}
	if !cfg.Scan.SkipUnparsable || !cfg.History.Enabled {
		t.Error("expected scan and history flags to be set")
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Version != 1 {
		t.Errorf("expected version 1, got %d", cfg.Version)
	}
	if len(cfg.Project.Targets) != 1 || cfg.Project.Targets[0] != "core" {
		t.Errorf("expected default target core, got %v", cfg.Project.Targets)
	}
	if cfg.Python.Interpreter != "python3" || cfg.Python.LookupCache != 4096 {
		t.Errorf("unexpected python defaults %+v", cfg.Python)
	}
	if cfg.Watch.Debounce != 500*time.Millisecond {
		t.Errorf("unexpected debounce %s", cfg.Watch.Debounce)
	}
	found := false
	for _, dir := range cfg.Exclude.Dirs {
		if dir == "__pycache__" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected __pycache__ in default excludes, got %v", cfg.Exclude.Dirs)
	}
}

func TestLoad_InvalidToml(t *testing.T) {
	_, err := Load(writeConfig(t, "[project\nroot = "))
	if !errors.IsCode(err, errors.CodeConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestLoadOrDefault(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.toml")

	cfg, err := LoadOrDefault(missing, false)
	if err != nil {
		t.Fatalf("missing optional config must fall back to defaults: %v", err)
	}
	if cfg.Report.Format != FormatText {
		t.Errorf("unexpected default format %q", cfg.Report.Format)
	}

	if _, err := LoadOrDefault(missing, true); err == nil {
		t.Fatal("missing required config must fail")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("PYCLEANER_PROJECT_TARGETS", "main.py, tools ,")
	t.Setenv("PYCLEANER_PROJECT_DEEP", "true")
	t.Setenv("PYCLEANER_PYTHON_USE_INTERPRETER", "false")
	t.Setenv("PYCLEANER_REPORT_FORMAT", "YAML")
	t.Setenv("PYCLEANER_WATCH_DEBOUNCE", "2s")
	t.Setenv("PYCLEANER_REPORT_WIDTH", "not-a-number")

	cfg := Default()
	ApplyEnvOverrides(cfg)

	if len(cfg.Project.Targets) != 2 || cfg.Project.Targets[1] != "tools" {
		t.Errorf("unexpected targets %v", cfg.Project.Targets)
	}
	if !cfg.Project.Deep {
		t.Error("expected deep override")
	}
	if cfg.Python.InterpreterEnabled() {
		t.Error("expected interpreter disabled")
	}
	if cfg.Report.Format != FormatYAML {
		t.Errorf("expected yaml, got %q", cfg.Report.Format)
	}
	if cfg.Watch.Debounce != 2*time.Second {
		t.Errorf("expected 2s debounce, got %s", cfg.Watch.Debounce)
	}
	if cfg.Report.Width != 0 {
		t.Errorf("invalid ints must be ignored, got %d", cfg.Report.Width)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("PYCLEANER_HISTORY_PROJECT_KEY=from-dotenv\nPYCLEANER_OUTPUT_ZIP=preset.zip\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PYCLEANER_OUTPUT_ZIP", "already-set.zip")
	t.Setenv("PYCLEANER_HISTORY_PROJECT_KEY", "")
	os.Unsetenv("PYCLEANER_HISTORY_PROJECT_KEY")

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), envFile); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("PYCLEANER_HISTORY_PROJECT_KEY"); got != "from-dotenv" {
		t.Errorf("expected value from .env, got %q", got)
	}
	if got := os.Getenv("PYCLEANER_OUTPUT_ZIP"); got != "already-set.zip" {
		t.Errorf("existing variables must win, got %q", got)
	}
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	path := writeConfig(t, "[report]\nwidth = 80\n")
	reloaded := make(chan *Config, 1)
	w := NewWatcher(path, func(cfg *Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	})
	ctx := t.Context()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("start watcher: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte("[report]\nwidth = 132\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case cfg := <-reloaded:
		if cfg.Report.Width != 132 {
			t.Fatalf("expected reloaded width 132, got %d", cfg.Report.Width)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}
}
