// # internal/engine/resolver/finder_interpreter.go
package resolver

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"pycleaner/internal/core/errors"
	"pycleaner/internal/core/ports"
)

// lookupHelper answers one find_spec query per input line with one JSON
// line. Anything imported modules print goes to stderr so the protocol
// stream stays clean. Paths passed as arguments are removed from sys.path,
// so the analyzed project itself is never imported.
const lookupHelper = `
import importlib.util, json, os, sys
out = sys.stdout
sys.stdout = sys.stderr
drop = {os.path.realpath(p) for p in sys.argv[1:]}
sys.path[:] = [p for p in sys.path if p and os.path.realpath(p) not in drop]
for line in sys.stdin:
    name = line.strip()
    answer = {"found": False}
    if name:
        try:
            spec = importlib.util.find_spec(name)
        except BaseException:
            spec = None
        if spec is not None:
            origin = spec.origin if spec.has_location else None
            answer = {
                "found": True,
                "origin": origin or "",
                "package": spec.submodule_search_locations is not None,
            }
    out.write(json.dumps(answer) + "\n")
    out.flush()
`

type lookupAnswer struct {
	Found   bool   `json:"found"`
	Origin  string `json:"origin"`
	Package bool   `json:"package"`
}

// InterpreterFinder asks a long-lived Python process where modules live.
// The process is started on first use and serves queries sequentially.
type InterpreterFinder struct {
	interpreter string
	hidden      []string

	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stdout  *bufio.Reader
	failed  error
	closed  bool
	queries int
}

// NewInterpreterFinder prepares a finder backed by interpreter. hidden lists
// directories to strip from the interpreter's search path.
func NewInterpreterFinder(interpreter string, hidden ...string) *InterpreterFinder {
	if interpreter == "" {
		interpreter = "python3"
	}
	return &InterpreterFinder{interpreter: interpreter, hidden: hidden}
}

// InterpreterAvailable reports whether interpreter can be located on PATH.
func InterpreterAvailable(interpreter string) bool {
	if interpreter == "" {
		return false
	}
	_, err := exec.LookPath(interpreter)
	return err == nil
}

func (f *InterpreterFinder) FindModule(ctx context.Context, dotted string) (ports.ModuleSpec, bool, error) {
	if err := ctx.Err(); err != nil {
		return ports.ModuleSpec{}, false, err
	}
	if IsRelative(dotted) || strings.TrimSpace(dotted) == "" {
		return ports.ModuleSpec{}, false, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.start(); err != nil {
		return ports.ModuleSpec{}, false, err
	}

	if _, err := fmt.Fprintln(f.stdin, dotted); err != nil {
		return ports.ModuleSpec{}, false, f.fail(err)
	}
	line, err := f.stdout.ReadBytes('\n')
	if err != nil {
		return ports.ModuleSpec{}, false, f.fail(err)
	}
	f.queries++

	var answer lookupAnswer
	if err := json.Unmarshal(line, &answer); err != nil {
		return ports.ModuleSpec{}, false, f.fail(err)
	}
	if !answer.Found {
		return ports.ModuleSpec{}, false, nil
	}
	return ports.ModuleSpec{Name: dotted, Origin: answer.Origin, IsPackage: answer.Package}, true, nil
}

// Queries returns how many lookups the helper process has answered.
func (f *InterpreterFinder) Queries() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries
}

func (f *InterpreterFinder) start() error {
	if f.closed {
		return errors.New(errors.CodeInternal, "interpreter finder is closed")
	}
	if f.failed != nil {
		return f.failed
	}
	if f.cmd != nil {
		return nil
	}

	args := []string{"-c", lookupHelper}
	for _, dir := range f.hidden {
		if abs, err := filepath.Abs(dir); err == nil {
			args = append(args, abs)
		}
	}
	cmd := exec.Command(f.interpreter, args...)
	cmd.Dir = os.TempDir()
	cmd.Stderr = io.Discard

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return f.fail(err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return f.fail(err)
	}
	if err := cmd.Start(); err != nil {
		return f.fail(err)
	}

	slog.Debug("module lookup helper started", "interpreter", f.interpreter, "pid", cmd.Process.Pid)
	f.cmd = cmd
	f.stdin = stdin
	f.stdout = bufio.NewReader(stdout)
	return nil
}

func (f *InterpreterFinder) fail(err error) error {
	f.failed = errors.AddContext(
		errors.Wrap(err, errors.CodeInternal, "module lookup helper failed"),
		errors.CtxOperation, f.interpreter)
	f.stop()
	return f.failed
}

func (f *InterpreterFinder) stop() {
	if f.cmd == nil {
		return
	}
	_ = f.stdin.Close()
	if err := f.cmd.Wait(); err != nil {
		slog.Debug("module lookup helper exited", "error", err)
	}
	f.cmd = nil
}

// Close stops the helper process. It is safe to call more than once.
func (f *InterpreterFinder) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.stop()
	return nil
}
