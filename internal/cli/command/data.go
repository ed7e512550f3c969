package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/stowage-go/internal/manager"
)

// GetCommand returns the get command.
func GetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Read one or more values",
		ArgsUsage: "KEY [KEY...]",
		Action:    getAction,
	}
}

func getAction(c *cli.Context) error {
	keys := c.Args().Slice()
	if len(keys) == 0 {
		return cli.Exit("get: at least one KEY is required", 2)
	}

	return withSession(c, func(s *session) error {
		if len(keys) == 1 {
			v, err := s.manager.Get(c.Context, keys[0])
			if errors.Is(err, manager.ErrNotFound) {
				return cli.Exit(fmt.Sprintf("key %q not found", keys[0]), 3)
			}
			if err != nil {
				return err
			}
			return render(c, v)
		}

		values, err := s.manager.GetMany(c.Context, keys)
		if err != nil {
			return err
		}
		return render(c, values)
	})
}

// SetCommand returns the set command.
func SetCommand() *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "Store a value (JSON, or a plain string); VALUE - reads stdin",
		ArgsUsage: "KEY VALUE",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "ttl",
				Usage: "Expiry for this value (0 keeps the configured default)",
			},
			&cli.BoolFlag{
				Name:  "skip-fallbacks",
				Usage: "Write to the primary adapter only",
			},
			&cli.BoolFlag{
				Name:  "string",
				Usage: "Store VALUE as a string even if it parses as JSON",
			},
		},
		Action: setAction,
	}
}

func setAction(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.Exit("set: KEY and VALUE are required", 2)
	}
	key := c.Args().Get(0)

	raw := c.Args().Get(1)
	if raw == "-" {
		b, err := io.ReadAll(c.App.Reader)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		raw = strings.TrimRight(string(b), "\n")
	}
	value := parseValue(raw, c.Bool("string"))

	var opts []manager.SetOption
	if c.IsSet("ttl") {
		opts = append(opts, manager.WithTTL(c.Duration("ttl")))
	}
	if c.Bool("skip-fallbacks") {
		opts = append(opts, manager.SkipFallbacks())
	}

	return withSession(c, func(s *session) error {
		return s.manager.Set(c.Context, key, value, opts...)
	})
}

// parseValue keeps valid JSON as-is and wraps anything else as a string.
func parseValue(raw string, forceString bool) any {
	if !forceString && json.Valid([]byte(raw)) {
		return json.RawMessage(raw)
	}
	return raw
}

// DeleteCommand returns the del command.
func DeleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "del",
		Aliases:   []string{"delete", "rm"},
		Usage:     "Delete one or more keys from every adapter",
		ArgsUsage: "KEY [KEY...]",
		Action:    deleteAction,
	}
}

func deleteAction(c *cli.Context) error {
	keys := c.Args().Slice()
	if len(keys) == 0 {
		return cli.Exit("del: at least one KEY is required", 2)
	}

	return withSession(c, func(s *session) error {
		if len(keys) == 1 {
			return s.manager.Delete(c.Context, keys[0])
		}
		results, err := s.manager.DeleteMany(c.Context, keys)
		if err != nil {
			return err
		}
		return render(c, results)
	})
}

// HasCommand returns the has command.
func HasCommand() *cli.Command {
	return &cli.Command{
		Name:      "has",
		Usage:     "Report whether a key exists in any adapter",
		ArgsUsage: "KEY",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("has: KEY is required", 2)
			}
			return withSession(c, func(s *session) error {
				ok, err := s.manager.Has(c.Context, c.Args().First())
				if err != nil {
					return err
				}
				return render(c, ok)
			})
		},
	}
}

// KeysCommand returns the keys command.
func KeysCommand() *cli.Command {
	return &cli.Command{
		Name:  "keys",
		Usage: "List keys across all adapters",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "prefix",
				Usage: "Only list keys starting with this prefix",
			},
		},
		Action: func(c *cli.Context) error {
			return withSession(c, func(s *session) error {
				keys, err := s.manager.Keys(c.Context)
				if err != nil {
					return err
				}
				prefix := c.String("prefix")
				filtered := make([]string, 0, len(keys))
				for _, k := range keys {
					if strings.HasPrefix(k, prefix) {
						filtered = append(filtered, k)
					}
				}
				return render(c, filtered)
			})
		},
	}
}

// ClearCommand returns the clear command.
func ClearCommand() *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "Remove every key of the namespace from every adapter",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "yes",
				Usage: "Confirm the removal",
			},
		},
		Action: func(c *cli.Context) error {
			if !c.Bool("yes") {
				return cli.Exit("clear: refusing to run without --yes", 2)
			}
			return withSession(c, func(s *session) error {
				return s.manager.Clear(c.Context)
			})
		},
	}
}
