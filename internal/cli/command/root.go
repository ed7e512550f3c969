package command

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/stowage-go/internal/config"
	"github.com/yndnr/stowage-go/internal/infra/buildinfo"
	"github.com/yndnr/stowage-go/internal/infra/confloader"
	"github.com/yndnr/stowage-go/internal/telemetry/logger"
)

const (
	metaConfig = "config"
	metaLoader = "loader"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "stowage",
		Usage:   "Key-value storage over layered local backends",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			GetCommand(),
			SetCommand(),
			DeleteCommand(),
			HasCommand(),
			KeysCommand(),
			ClearCommand(),
			StatsCommand(),
			ConfigCommand(),
			WatchCommand(),
			VersionCommand(),
		},
		Before: loadConfig,
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Configuration file (YAML)",
			EnvVars: []string{"STOWAGE_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "data-dir",
			Aliases: []string{"d"},
			Usage:   "Directory for durable backends",
		},
		&cli.StringFlag{
			Name:    "primary",
			Aliases: []string{"p"},
			Usage:   "Primary adapter: indexedDB, localStorage, sessionStorage, cache, memory",
		},
		&cli.StringSliceFlag{
			Name:    "fallback",
			Aliases: []string{"f"},
			Usage:   "Fallback adapter, in order (repeatable)",
		},
		&cli.StringFlag{
			Name:    "namespace",
			Aliases: []string{"n"},
			Usage:   "Key namespace",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   "table",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
	}
}

// flagOverrides maps explicitly set global flags onto configuration keys.
func flagOverrides(c *cli.Context) map[string]any {
	overrides := make(map[string]any)
	if c.IsSet("data-dir") {
		overrides["storage.data_dir"] = c.String("data-dir")
	}
	if c.IsSet("primary") {
		overrides["manager.primary"] = c.String("primary")
	}
	if c.IsSet("fallback") {
		overrides["manager.fallbacks"] = c.StringSlice("fallback")
	}
	if c.IsSet("namespace") {
		overrides["manager.namespace"] = c.String("namespace")
	}
	if c.IsSet("log-level") {
		overrides["log.level"] = c.String("log-level")
	}
	return overrides
}

// loadConfig resolves the configuration and installs the logger.
func loadConfig(c *cli.Context) error {
	loader := confloader.NewLoader(
		confloader.WithConfigFile(c.String("config")),
		confloader.WithOverrides(flagOverrides(c)),
	)

	cfg := config.Default()
	if err := loader.Load(cfg); err != nil {
		return cli.Exit(err.Error(), 2)
	}
	if err := config.Verify(cfg); err != nil {
		return cli.Exit(fmt.Sprintf("invalid configuration: %v", err), 2)
	}

	l, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: c.App.ErrWriter,
	})
	if err != nil {
		return err
	}
	logger.SetDefault(l)

	if c.App.Metadata == nil {
		c.App.Metadata = make(map[string]any)
	}
	c.App.Metadata[metaConfig] = cfg
	c.App.Metadata[metaLoader] = loader
	return nil
}

// Config returns the configuration resolved for this invocation.
func Config(c *cli.Context) *config.Config {
	if cfg, ok := c.App.Metadata[metaConfig].(*config.Config); ok {
		return cfg
	}
	return config.Default()
}

func configLoader(c *cli.Context) *confloader.Loader {
	if l, ok := c.App.Metadata[metaLoader].(*confloader.Loader); ok {
		return l
	}
	return confloader.NewLoader()
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
