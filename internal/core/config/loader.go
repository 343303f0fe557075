package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	coreerrors "pycleaner/internal/core/errors"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, coreerrors.AddContext(
			coreerrors.Wrap(err, coreerrors.CodeConfiguration, "decode config"), coreerrors.CtxPath, path)
	}

	applyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads path when it exists. A missing file yields the
// defaults unless required is set.
func LoadOrDefault(path string, required bool) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if !required && errors.Is(err, fs.ErrNotExist) {
		slog.Debug("no config file, using defaults", "path", path)
		return Default(), nil
	}
	return nil, err
}

// LoadDotEnv loads KEY=VALUE pairs from files into the process environment
// without overriding variables that are already set. Missing files are
// skipped.
func LoadDotEnv(files ...string) error {
	for _, file := range files {
		if _, err := os.Stat(file); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return err
		}
		slog.Debug("loaded environment file", "path", file)
	}
	return nil
}

// Validate runs every section validator. Failures are configuration errors.
func Validate(cfg *Config) error {
	for _, check := range []func(*Config) error{
		validateVersion,
		validateProject,
		validateExclude,
		validatePython,
		validateReport,
		validateOutput,
		validateHistory,
		validateWatch,
		validateObservability,
	} {
		if err := check(cfg); err != nil {
			return coreerrors.Wrap(err, coreerrors.CodeConfiguration, "invalid configuration")
		}
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if strings.TrimSpace(cfg.Project.Root) == "" {
		cfg.Project.Root = "."
	}
	if len(cfg.Project.Targets) == 0 {
		cfg.Project.Targets = []string{"core"}
	}

	if cfg.Exclude.Dirs == nil {
		cfg.Exclude.Dirs = []string{".git", "__pycache__", ".venv", "venv", "node_modules", ".tox", ".mypy_cache"}
	}

	if strings.TrimSpace(cfg.Python.Interpreter) == "" {
		cfg.Python.Interpreter = "python3"
	}
	if cfg.Python.LookupCache == 0 {
		cfg.Python.LookupCache = 4096
	}

	if strings.TrimSpace(cfg.Report.Format) == "" {
		cfg.Report.Format = FormatText
	}
	cfg.Report.Format = strings.ToLower(strings.TrimSpace(cfg.Report.Format))

	if strings.TrimSpace(cfg.Output.LibsLog) == "" {
		cfg.Output.LibsLog = "pycleaner-libs.log"
	}
	if strings.TrimSpace(cfg.Output.ScriptsLog) == "" {
		cfg.Output.ScriptsLog = "pycleaner-scripts.log"
	}

	if strings.TrimSpace(cfg.History.Path) == "" {
		cfg.History.Path = ".pycleaner/history.db"
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	if cfg.Watch.MaxRunsPerMinute == 0 {
		cfg.Watch.MaxRunsPerMinute = 30
	}

	if strings.TrimSpace(cfg.Observability.Address) == "" {
		cfg.Observability.Address = "127.0.0.1:9464"
	}
}
