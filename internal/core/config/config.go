package config

import (
	"time"
)

// DefaultFile is looked up in the working directory when no --config is given.
const DefaultFile = "pycleaner.toml"

type Config struct {
	Version       int           `toml:"version"`
	Project       Project       `toml:"project"`
	Exclude       Exclude       `toml:"exclude"`
	Python        Python        `toml:"python"`
	Scan          Scan          `toml:"scan"`
	Report        Report        `toml:"report"`
	Output        Output        `toml:"output"`
	History       History       `toml:"history"`
	Watch         Watch         `toml:"watch"`
	Observability Observability `toml:"observability"`
}

type Project struct {
	Root        string   `toml:"root"`
	Targets     []string `toml:"targets"`
	Deep        bool     `toml:"deep"`
	SourceRoots []string `toml:"source_roots"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Python struct {
	Interpreter    string `toml:"interpreter"`
	UseInterpreter *bool  `toml:"use_interpreter"`
	StdlibFallback *bool  `toml:"stdlib_fallback"`
	LookupCache    int    `toml:"lookup_cache"`
}

// InterpreterEnabled reports whether module lookups may ask a live interpreter.
func (p Python) InterpreterEnabled() bool {
	return p.UseInterpreter == nil || *p.UseInterpreter
}

// StdlibEnabled reports whether the embedded stdlib list answers lookups.
func (p Python) StdlibEnabled() bool {
	return p.StdlibFallback == nil || *p.StdlibFallback
}

type Scan struct {
	SkipUnparsable bool `toml:"skip_unparsable"`
}

type Report struct {
	AbsPaths bool   `toml:"abs_paths"`
	Format   string `toml:"format"`
	Width    int    `toml:"width"`
	Suggest  *bool  `toml:"suggest"`
}

func (r Report) SuggestEnabled() bool {
	return r.Suggest == nil || *r.Suggest
}

type Output struct {
	Log        bool   `toml:"log"`
	LibsLog    string `toml:"libs_log"`
	ScriptsLog string `toml:"scripts_log"`
	Zip        string `toml:"zip"`
}

type History struct {
	Enabled    bool   `toml:"enabled"`
	Path       string `toml:"path"`
	ProjectKey string `toml:"project_key"`
}

type Watch struct {
	Debounce         time.Duration `toml:"debounce"`
	MaxRunsPerMinute int           `toml:"max_runs_per_minute"`
}

type Observability struct {
	Enabled       bool   `toml:"enabled"`
	Address       string `toml:"address"`
	OTLPEndpoint  string `toml:"otlp_endpoint"`
	EnableTracing bool   `toml:"enable_tracing"`
}

// Report formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}
