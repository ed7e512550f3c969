package command

import (
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/stowage-go/internal/cli/output"
	"github.com/yndnr/stowage-go/internal/infra/buildinfo"
	"github.com/yndnr/stowage-go/internal/manager"
)

// StatsCommand returns the stats command.
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show per-adapter usage",
		Action: func(c *cli.Context) error {
			return withSession(c, func(s *session) error {
				stats, err := s.manager.Stats(c.Context)
				if err != nil {
					return err
				}
				if c.String("output") == string(output.FormatTable) {
					return statsTable(stats).Render(c.App.Writer)
				}
				return render(c, stats)
			})
		},
	}
}

func statsTable(stats manager.Stats) *output.Table {
	t := &output.Table{Headers: []string{"ADAPTER", "ROLE", "AVAILABLE", "ITEMS", "SIZE", "USED"}}
	for i, a := range stats.Adapters {
		role := "fallback"
		if i == 0 {
			role = "primary"
		}
		used := "-"
		if a.MaxSize > 0 {
			used = fmt.Sprintf("%.1f%%", a.UsedPercentage)
		}
		t.AddRow(string(a.Type), role, strconv.FormatBool(a.Available),
			strconv.Itoa(a.ItemCount), strconv.FormatInt(a.Size, 10), used)
	}
	return t
}

// ConfigCommand returns the config command.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Show the effective configuration",
		Action: func(c *cli.Context) error {
			format := c.String("output")
			if format == string(output.FormatTable) {
				format = string(output.FormatYAML)
			}
			f, err := output.ParseFormat(format)
			if err != nil {
				return cli.Exit(err.Error(), 2)
			}
			return output.NewFormatter(f, false).Format(c.App.Writer, Config(c))
		},
	}
}

// VersionCommand returns the version command.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show build information",
		Action: func(c *cli.Context) error {
			return render(c, buildinfo.Get())
		},
	}
}
