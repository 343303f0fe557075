package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: PYCLEANER_[SECTION]_[KEY] (e.g., PYCLEANER_PYTHON_INTERPRETER).
// List values are comma separated.
func ApplyEnvOverrides(cfg *Config) {
	// Project
	setEnvString(&cfg.Project.Root, "PYCLEANER_PROJECT_ROOT")
	setEnvList(&cfg.Project.Targets, "PYCLEANER_PROJECT_TARGETS")
	setEnvBool(&cfg.Project.Deep, "PYCLEANER_PROJECT_DEEP")
	setEnvList(&cfg.Project.SourceRoots, "PYCLEANER_PROJECT_SOURCE_ROOTS")

	// Exclude
	setEnvList(&cfg.Exclude.Dirs, "PYCLEANER_EXCLUDE_DIRS")
	setEnvList(&cfg.Exclude.Files, "PYCLEANER_EXCLUDE_FILES")

	// Python
	setEnvString(&cfg.Python.Interpreter, "PYCLEANER_PYTHON_INTERPRETER")
	setEnvBoolPtr(&cfg.Python.UseInterpreter, "PYCLEANER_PYTHON_USE_INTERPRETER")
	setEnvBoolPtr(&cfg.Python.StdlibFallback, "PYCLEANER_PYTHON_STDLIB_FALLBACK")
	setEnvInt(&cfg.Python.LookupCache, "PYCLEANER_PYTHON_LOOKUP_CACHE")

	// Scan
	setEnvBool(&cfg.Scan.SkipUnparsable, "PYCLEANER_SCAN_SKIP_UNPARSABLE")

	// Report
	setEnvBool(&cfg.Report.AbsPaths, "PYCLEANER_REPORT_ABS_PATHS")
	setEnvString(&cfg.Report.Format, "PYCLEANER_REPORT_FORMAT")
	setEnvInt(&cfg.Report.Width, "PYCLEANER_REPORT_WIDTH")
	setEnvBoolPtr(&cfg.Report.Suggest, "PYCLEANER_REPORT_SUGGEST")

	// Output
	setEnvBool(&cfg.Output.Log, "PYCLEANER_OUTPUT_LOG")
	setEnvString(&cfg.Output.LibsLog, "PYCLEANER_OUTPUT_LIBS_LOG")
	setEnvString(&cfg.Output.ScriptsLog, "PYCLEANER_OUTPUT_SCRIPTS_LOG")
	setEnvString(&cfg.Output.Zip, "PYCLEANER_OUTPUT_ZIP")

	// History
	setEnvBool(&cfg.History.Enabled, "PYCLEANER_HISTORY_ENABLED")
	setEnvString(&cfg.History.Path, "PYCLEANER_HISTORY_PATH")
	setEnvString(&cfg.History.ProjectKey, "PYCLEANER_HISTORY_PROJECT_KEY")

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "PYCLEANER_WATCH_DEBOUNCE")
	setEnvInt(&cfg.Watch.MaxRunsPerMinute, "PYCLEANER_WATCH_MAX_RUNS_PER_MINUTE")

	// Observability
	setEnvBool(&cfg.Observability.Enabled, "PYCLEANER_OBSERVABILITY_ENABLED")
	setEnvString(&cfg.Observability.Address, "PYCLEANER_OBSERVABILITY_ADDRESS")
	setEnvString(&cfg.Observability.OTLPEndpoint, "PYCLEANER_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvBool(&cfg.Observability.EnableTracing, "PYCLEANER_OBSERVABILITY_ENABLE_TRACING")

	cfg.Report.Format = strings.ToLower(strings.TrimSpace(cfg.Report.Format))
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvList(target *[]string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		var items []string
		for _, item := range strings.Split(val, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		slog.Debug("applying env override", "key", key, "value", val)
		*target = items
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvBoolPtr(target **bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = &b
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
