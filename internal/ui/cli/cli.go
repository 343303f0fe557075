package cli

import (
	"pycleaner/internal/shared/version"

	ucli "github.com/urfave/cli/v2"
)

func globalFlags() []ucli.Flag {
	return []ucli.Flag{
		&ucli.StringFlag{
			Name:  "config",
			Usage: "Config file path (default ./pycleaner.toml when present)",
		},
		&ucli.StringFlag{
			Name:    "project",
			Aliases: []string{"p"},
			Usage:   "Project root directory (overrides config)",
		},
		&ucli.BoolFlag{
			Name:  "verbose",
			Usage: "Enable debug logging on stderr",
		},
		&ucli.BoolFlag{
			Name:  "no-interpreter",
			Usage: "Do not ask a python interpreter where modules live",
		},
		&ucli.BoolFlag{
			Name:  "history",
			Usage: "Record every classification in the history store",
		},
	}
}

func classifyFlags() []ucli.Flag {
	return []ucli.Flag{
		&ucli.StringFlag{
			Name:    "target",
			Aliases: []string{"t"},
			Usage:   "Comma-separated core files or directories, relative to the project root",
		},
		&ucli.BoolFlag{
			Name:  "deep",
			Usage: "Also follow imports nested inside functions, classes and conditionals",
		},
		&ucli.BoolFlag{
			Name:  "abs-path",
			Usage: "Print absolute paths",
		},
		&ucli.BoolFlag{
			Name:  "log",
			Usage: "Write the libraries and scripts log files",
		},
		&ucli.StringFlag{
			Name:    "zip-lib",
			Aliases: []string{"z"},
			Usage:   "Archive the libraries into this zip file",
		},
		&ucli.BoolFlag{
			Name:  "rm-scripts",
			Usage: "Remove the scripts after confirmation",
		},
		&ucli.BoolFlag{
			Name:  "yes",
			Usage: "Answer yes to the removal confirmation",
		},
		&ucli.BoolFlag{
			Name:    "libs",
			Aliases: []string{"1"},
			Usage:   "Print the libraries block",
		},
		&ucli.BoolFlag{
			Name:    "scripts",
			Aliases: []string{"2"},
			Usage:   "Print the scripts block",
		},
		&ucli.BoolFlag{
			Name:    "not-found",
			Aliases: []string{"3"},
			Usage:   "Print the not found block",
		},
		&ucli.BoolFlag{
			Name:    "may-found",
			Aliases: []string{"4"},
			Usage:   "Print the might be found block",
		},
		&ucli.StringFlag{
			Name:  "format",
			Usage: "Report format: text, json or yaml",
		},
		&ucli.BoolFlag{
			Name:  "no-suggest",
			Usage: "Do not print \"did you mean\" hints for missing modules",
		},
		&ucli.BoolFlag{
			Name:  "skip-unparsable",
			Usage: "Treat files that fail to parse as having no imports",
		},
		&ucli.BoolFlag{
			Name:  "watch",
			Usage: "Re-classify whenever Python files change",
		},
	}
}

func newApp() *ucli.App {
	return &ucli.App{
		Name:    "pycleaner",
		Usage:   "Split a Python project into libraries used by its core files and standalone scripts",
		Version: version.Version,
		Flags:   append(globalFlags(), classifyFlags()...),
		Before:  beforeCommand,
		Action:  classifyCommand,
		Commands: []*ucli.Command{
			{
				Name:   "classify",
				Usage:  "Classify the project files (default command)",
				Flags:  classifyFlags(),
				Action: classifyCommand,
			},
			{
				Name:  "history",
				Usage: "List recorded classification runs",
				Flags: []ucli.Flag{
					&ucli.StringFlag{
						Name:  "since",
						Usage: "Only runs at or after this time (RFC3339 or YYYY-MM-DD)",
					},
					&ucli.StringFlag{
						Name:  "format",
						Usage: "Output format: text, json or yaml",
					},
				},
				Action: historyCommand,
			},
			{
				Name:   "version",
				Usage:  "Print version information",
				Action: versionCommand,
			},
		},
	}
}
