package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	coreapp "pycleaner/internal/core/app"
	"pycleaner/internal/core/config"
	"pycleaner/internal/core/errors"
	"pycleaner/internal/engine/graph"
	"pycleaner/internal/engine/resolver"
	"pycleaner/internal/shared/observability"
	"pycleaner/internal/shared/version"
	"pycleaner/internal/ui/report"

	"github.com/charmbracelet/x/term"
	ucli "github.com/urfave/cli/v2"
)

// Exit codes.
const (
	exitOK            = 0
	exitFailure       = 1
	exitConfiguration = 2
)

// Run executes the command line and returns the process exit code.
func Run(args []string) int {
	return run(args, os.Stdin, os.Stdout, os.Stderr)
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	app := newApp()
	app.Reader = stdin
	app.Writer = stdout
	app.ErrWriter = stderr

	if err := app.Run(args); err != nil {
		fmt.Fprintln(stderr, "pycleaner:", err)
		if errors.IsCode(err, errors.CodeConfiguration) {
			return exitConfiguration
		}
		return exitFailure
	}
	return exitOK
}

func beforeCommand(c *ucli.Context) error {
	configureLogging(c.App.ErrWriter, c.Bool("verbose"))
	return nil
}

func configureLogging(w io.Writer, verbose bool) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
}

// loadSettings layers the configuration: defaults, the config file, .env and
// PYCLEANER_* variables, then command-line flags. The returned path is the
// config file to watch, empty when none exists.
func loadSettings(c *ucli.Context) (*config.Config, string, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, "", fmt.Errorf("load .env: %w", err)
	}

	path := strings.TrimSpace(c.String("config"))
	required := path != ""
	if path == "" {
		path = config.DefaultFile
	}
	cfg, err := config.LoadOrDefault(path, required)
	if err != nil {
		return nil, "", err
	}
	config.ApplyEnvOverrides(cfg)
	applyFlags(c, cfg)

	if _, err := os.Stat(path); err != nil {
		path = ""
	}
	return cfg, path, nil
}

func applyFlags(c *ucli.Context, cfg *config.Config) {
	if c.IsSet("project") {
		cfg.Project.Root = c.String("project")
	}
	if c.IsSet("target") {
		cfg.Project.Targets = splitTargets(c.String("target"))
	}
	if c.Bool("deep") {
		cfg.Project.Deep = true
	}
	if c.Bool("no-interpreter") {
		disabled := false
		cfg.Python.UseInterpreter = &disabled
	}
	if c.Bool("skip-unparsable") {
		cfg.Scan.SkipUnparsable = true
	}
	if c.Bool("abs-path") {
		cfg.Report.AbsPaths = true
	}
	if c.IsSet("format") {
		cfg.Report.Format = strings.ToLower(strings.TrimSpace(c.String("format")))
	}
	if c.Bool("no-suggest") {
		disabled := false
		cfg.Report.Suggest = &disabled
	}
	if c.Bool("log") {
		cfg.Output.Log = true
	}
	if c.IsSet("zip-lib") {
		cfg.Output.Zip = c.String("zip-lib")
	}
	if c.Bool("history") {
		cfg.History.Enabled = true
	}
}

// splitTargets splits a comma-separated --target value, dropping blanks.
func splitTargets(raw string) []string {
	var targets []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			targets = append(targets, part)
		}
	}
	return targets
}

func parseSince(value string) (time.Time, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return time.Time{}, nil
	}

	rfc3339, err := time.Parse(time.RFC3339, raw)
	if err == nil {
		return rfc3339.UTC(), nil
	}

	dateOnly, err := time.Parse("2006-01-02", raw)
	if err == nil {
		return dateOnly.UTC(), nil
	}

	return time.Time{}, errors.Newf(errors.CodeConfiguration, "--since must be RFC3339 or YYYY-MM-DD, got %q", value)
}

func setupTracing(ctx context.Context, cfg *config.Config) func() {
	if !cfg.Observability.EnableTracing || cfg.Observability.OTLPEndpoint == "" {
		return func() {}
	}
	shutdown, err := observability.SetupTracing(ctx, cfg.Observability.OTLPEndpoint, version.Version)
	if err != nil {
		slog.Warn("tracing unavailable", "endpoint", cfg.Observability.OTLPEndpoint, "error", err)
		return func() {}
	}
	return func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			slog.Warn("failed to flush traces", "error", err)
		}
	}
}

func reportOptions(c *ucli.Context, cfg *config.Config) report.Options {
	return report.Options{
		Format:   cfg.Report.Format,
		AbsPaths: cfg.Report.AbsPaths,
		Width:    cfg.Report.Width,
		Blocks: report.Blocks{
			Libraries: c.Bool("libs"),
			Scripts:   c.Bool("scripts"),
			NotFound:  c.Bool("not-found"),
			MayFound:  c.Bool("may-found"),
		},
		Suggest: cfg.Report.SuggestEnabled(),
		Styled:  isTerminal(c.App.Writer),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(f.Fd())
}

func classifyCommand(c *ucli.Context) error {
	if c.NArg() > 0 {
		return errors.Newf(errors.CodeConfiguration, "unexpected argument %q", c.Args().First())
	}

	cfg, configPath, err := loadSettings(c)
	if err != nil {
		return err
	}
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("detect working directory: %w", err)
	}

	a, err := coreapp.New(cfg, cwd)
	if err != nil {
		return err
	}
	defer a.Close()

	flush := setupTracing(c.Context, cfg)
	defer flush()

	actions := coreapp.ActionsFromConfig(cfg, a.Paths())
	actions.RemoveScripts = c.Bool("rm-scripts")
	actions.AssumeYes = c.Bool("yes")
	if err := actions.Validate(); err != nil {
		return err
	}
	opts := reportOptions(c, cfg)
	out := c.App.Writer

	if c.Bool("watch") {
		if actions.RemoveScripts {
			return errors.New(errors.CodeConfiguration, "--rm-scripts cannot be used with --watch")
		}
		ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
		defer stop()
		return a.Watch(ctx, configPath, func(result *graph.Classification, err error) {
			if err != nil {
				slog.Error("classification failed", "error", err)
				return
			}
			if err := emit(out, result, opts, actions, nil); err != nil {
				slog.Error("failed to report classification", "error", err)
			}
		})
	}

	result, err := a.Classify(c.Context)
	if err != nil {
		return err
	}
	return emit(out, result, opts, actions, promptConfirmer(c.App.Reader, c.App.ErrWriter))
}

func emit(w io.Writer, result *graph.Classification, opts report.Options, actions coreapp.Actions, confirm coreapp.Confirmer) error {
	if err := report.Write(w, result, projectFiles(result), opts); err != nil {
		return err
	}
	return coreapp.ApplyActions(result, actions, confirm)
}

// projectFiles lists every file of the classification.
func projectFiles(result *graph.Classification) []string {
	all := make([]string, 0, len(result.Core)+len(result.Libraries)+len(result.Scripts)+len(result.Suppressed))
	all = append(all, result.Core...)
	all = append(all, result.Libraries...)
	all = append(all, result.Scripts...)
	all = append(all, result.Suppressed...)
	return all
}

func historyCommand(c *ucli.Context) error {
	since, err := parseSince(c.String("since"))
	if err != nil {
		return err
	}
	cfg, _, err := loadSettings(c)
	if err != nil {
		return err
	}
	cfg.History.Enabled = true

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("detect working directory: %w", err)
	}
	a, err := coreapp.New(cfg, cwd, coreapp.WithModuleFinder(resolver.StaticFinder{}))
	if err != nil {
		return err
	}
	defer a.Close()

	snapshots, err := a.History(since)
	if err != nil {
		return err
	}
	return report.WriteHistory(c.App.Writer, snapshots, cfg.Report.Format)
}

func versionCommand(c *ucli.Context) error {
	_, err := fmt.Fprintln(c.App.Writer, version.Info())
	return err
}
