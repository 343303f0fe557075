package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pycleaner/internal/shared/version"
	"pycleaner/internal/ui/report"
)

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	return root
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(append([]string{"pycleaner"}, args...), strings.NewReader(""), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestParseSince(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"", time.Time{}, false},
		{"2026-02-03", time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC), false},
		{"2026-02-03T10:00:00+02:00", time.Date(2026, 2, 3, 8, 0, 0, 0, time.UTC), false},
		{"yesterday", time.Time{}, true},
	}
	for _, tt := range tests {
		got, err := parseSince(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("parseSince(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("parseSince(%q): %v", tt.in, err)
		}
		if !got.Equal(tt.want) {
			t.Fatalf("parseSince(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSplitTargets(t *testing.T) {
	got := splitTargets(" core, ,lib/main.py,")
	if len(got) != 2 || got[0] != "core" || got[1] != "lib/main.py" {
		t.Fatalf("unexpected targets: %v", got)
	}
}

func TestRun_ClassifyJSON(t *testing.T) {
	root := writeProject(t, map[string]string{
		"main.py":  "import os\nimport lib\nimport missing_mod\n",
		"lib.py":   "",
		"setup.py": "",
	})

	code, stdout, stderr := runCLI(t, "-p", root, "-t", "main.py", "--no-interpreter", "--format", "json")
	if code != exitOK {
		t.Fatalf("exit code %d, stderr: %s", code, stderr)
	}

	var doc report.Document
	if err := json.Unmarshal([]byte(stdout), &doc); err != nil {
		t.Fatalf("decode report: %v\n%s", err, stdout)
	}
	if len(doc.Libraries) != 1 || doc.Libraries[0] != "lib.py" {
		t.Fatalf("unexpected libraries: %v", doc.Libraries)
	}
	if len(doc.Scripts) != 1 || doc.Scripts[0] != "setup.py" {
		t.Fatalf("unexpected scripts: %v", doc.Scripts)
	}
	if len(doc.NotFound) != 1 || doc.NotFound[0].Name != "missing_mod" {
		t.Fatalf("unexpected not found: %v", doc.NotFound)
	}
}

func TestRun_ClassifyText(t *testing.T) {
	root := writeProject(t, map[string]string{
		"core/main.py": "import helpers\n",
		"helpers.py":   "",
		"old.py":       "",
	})

	code, stdout, stderr := runCLI(t, "-p", root, "-t", "core", "--no-interpreter", "-2")
	if code != exitOK {
		t.Fatalf("exit code %d, stderr: %s", code, stderr)
	}
	want := "SCRIPTS\nold.py\n\nThere are 1 files that can be considered as libraries, and 1 ─ as scripts\n"
	if stdout != want {
		t.Fatalf("unexpected report:\n%q\nwant\n%q", stdout, want)
	}
}

func TestRun_ConfigurationErrors(t *testing.T) {
	root := writeProject(t, map[string]string{
		"src/app/main.py": "",
		"src/lib.py":      "",
	})

	tests := []struct {
		name string
		args []string
	}{
		{"overlapping targets", []string{"-t", "src,src/app"}},
		{"missing target", []string{"-t", "nowhere"}},
		{"remove with zip", []string{"-t", "src/app", "--rm-scripts", "-z", filepath.Join(t.TempDir(), "libs.zip")}},
		{"stray argument", []string{"-t", "src/app", "extra"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"-p", root, "--no-interpreter"}, tt.args...)
			code, stdout, stderr := runCLI(t, args...)
			if code != exitConfiguration {
				t.Fatalf("exit code %d, want %d; stderr: %s", code, exitConfiguration, stderr)
			}
			if stdout != "" {
				t.Fatalf("expected no report, got %q", stdout)
			}
		})
	}
}

func TestRun_RemoveScripts(t *testing.T) {
	root := writeProject(t, map[string]string{
		"main.py": "import lib\n",
		"lib.py":  "",
		"old.py":  "",
	})

	code, _, stderr := runCLI(t, "-p", root, "-t", "main.py", "--no-interpreter", "--rm-scripts", "--yes", "-1")
	if code != exitOK {
		t.Fatalf("exit code %d, stderr: %s", code, stderr)
	}
	if _, err := os.Stat(filepath.Join(root, "old.py")); !os.IsNotExist(err) {
		t.Fatalf("expected old.py to be removed, stat err: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "lib.py")); err != nil {
		t.Fatalf("library must survive: %v", err)
	}
}

func TestRun_History(t *testing.T) {
	root := writeProject(t, map[string]string{
		"main.py":  "",
		"spare.py": "",
	})

	for i := 0; i < 2; i++ {
		if code, _, stderr := runCLI(t, "-p", root, "-t", "main.py", "--no-interpreter", "--history", "--format", "json"); code != exitOK {
			t.Fatalf("classify exit code %d, stderr: %s", code, stderr)
		}
	}

	code, stdout, stderr := runCLI(t, "-p", root, "history", "--format", "json")
	if code != exitOK {
		t.Fatalf("history exit code %d, stderr: %s", code, stderr)
	}
	var entries []report.HistoryEntry
	if err := json.Unmarshal([]byte(stdout), &entries); err != nil {
		t.Fatalf("decode history: %v\n%s", err, stdout)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(entries))
	}
	if entries[1].Change == nil || !entries[1].Change.Empty() {
		t.Fatalf("expected an empty change between identical runs, got %+v", entries[1].Change)
	}

	code, _, _ = runCLI(t, "-p", root, "history", "--since", "not-a-date")
	if code != exitConfiguration {
		t.Fatalf("expected configuration exit code for a bad --since, got %d", code)
	}
}

func TestRun_Version(t *testing.T) {
	code, stdout, _ := runCLI(t, "version")
	if code != exitOK {
		t.Fatalf("exit code %d", code)
	}
	if !strings.Contains(stdout, version.Version) {
		t.Fatalf("unexpected version output %q", stdout)
	}
}
