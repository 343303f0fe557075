package config

import (
	"fmt"
	"net"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

func validateVersion(cfg *Config) error {
	if cfg.Version < 1 {
		return fmt.Errorf("version must be >= 1, got %d", cfg.Version)
	}
	if cfg.Version > 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateProject(cfg *Config) error {
	if strings.TrimSpace(cfg.Project.Root) == "" {
		return fmt.Errorf("project.root must not be empty")
	}
	for i, target := range cfg.Project.Targets {
		target = strings.TrimSpace(target)
		if target == "" {
			return fmt.Errorf("project.targets[%d] must not be empty", i)
		}
		if filepath.IsAbs(target) {
			return fmt.Errorf("project.targets[%d] must be relative to project.root, got %q", i, target)
		}
	}
	for i, root := range cfg.Project.SourceRoots {
		if strings.TrimSpace(root) == "" {
			return fmt.Errorf("project.source_roots[%d] must not be empty", i)
		}
	}
	return nil
}

func validateExclude(cfg *Config) error {
	for _, pattern := range cfg.Exclude.Dirs {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("exclude.dirs pattern %q is invalid: %w", pattern, err)
		}
	}
	for _, pattern := range cfg.Exclude.Files {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("exclude.files pattern %q is invalid: %w", pattern, err)
		}
	}
	return nil
}

func validatePython(cfg *Config) error {
	if cfg.Python.InterpreterEnabled() && strings.TrimSpace(cfg.Python.Interpreter) == "" {
		return fmt.Errorf("python.interpreter must not be empty when python.use_interpreter is set")
	}
	if cfg.Python.LookupCache < 0 {
		return fmt.Errorf("python.lookup_cache must be >= 0, got %d", cfg.Python.LookupCache)
	}
	return nil
}

func validateReport(cfg *Config) error {
	switch cfg.Report.Format {
	case FormatText, FormatJSON, FormatYAML:
	default:
		return fmt.Errorf("report.format must be one of: text, json, yaml; got %q", cfg.Report.Format)
	}
	if cfg.Report.Width < 0 {
		return fmt.Errorf("report.width must be >= 0, got %d", cfg.Report.Width)
	}
	return nil
}

func validateOutput(cfg *Config) error {
	if strings.TrimSpace(cfg.Output.LibsLog) == "" || strings.TrimSpace(cfg.Output.ScriptsLog) == "" {
		return fmt.Errorf("output.libs_log and output.scripts_log must not be empty")
	}
	if filepath.Clean(cfg.Output.LibsLog) == filepath.Clean(cfg.Output.ScriptsLog) {
		return fmt.Errorf("output.libs_log and output.scripts_log must differ, both are %q", cfg.Output.LibsLog)
	}
	if zip := strings.TrimSpace(cfg.Output.Zip); zip != "" && !strings.EqualFold(filepath.Ext(zip), ".zip") {
		return fmt.Errorf("output.zip must name a .zip file, got %q", cfg.Output.Zip)
	}
	return nil
}

func validateHistory(cfg *Config) error {
	if cfg.History.Enabled && strings.TrimSpace(cfg.History.Path) == "" {
		return fmt.Errorf("history.path must not be empty when history is enabled")
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must be >= 0, got %s", cfg.Watch.Debounce)
	}
	if cfg.Watch.MaxRunsPerMinute < 1 {
		return fmt.Errorf("watch.max_runs_per_minute must be >= 1, got %d", cfg.Watch.MaxRunsPerMinute)
	}
	return nil
}

func validateObservability(cfg *Config) error {
	if !cfg.Observability.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(cfg.Observability.Address); err != nil {
		return fmt.Errorf("observability.address %q is not host:port: %w", cfg.Observability.Address, err)
	}
	if cfg.Observability.EnableTracing && strings.TrimSpace(cfg.Observability.OTLPEndpoint) == "" {
		return fmt.Errorf("observability.otlp_endpoint is required when tracing is enabled")
	}
	return nil
}
