package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/urfave/cli/v2"

	"vaibvoice/internal/app"
	"vaibvoice/internal/config"
	verrors "vaibvoice/internal/errors"
	"vaibvoice/internal/mcpserver"
)

// Version is set via -ldflags at build time.
var Version = "dev"

const defaultConfigPath = "config.json"

// errDefaultWritten stops the run after a fresh config file was created.
var errDefaultWritten = errors.New("default config written")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCLIApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newCLIApp() *cli.App {
	flags := append([]cli.Flag{
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to config file (JSON or YAML); defaults to ./config.json when present"},
	}, config.Flags()...)

	app := &cli.App{
		Name:    "vaibvoice",
		Usage:   "Hold a key, speak, release: the formatted text lands where the cursor is",
		Version: Version,
		Flags:   flags,
		Action:  runCmd().Action,
		Commands: []*cli.Command{
			runCmd(),
			serveCmd(),
			transcribeCmd(),
			historyCmd(),
			statsCmd(),
			resetCmd(),
			mcpCmd(),
		},
	}
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

func runCmd() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Listen for the record key and serve the local API (default)",
		Action: func(c *cli.Context) error {
			rt, err := openRuntime(c, true)
			if errors.Is(err, errDefaultWritten) {
				return nil
			}
			if err != nil {
				return err
			}
			defer rt.Close()
			return app.RunRecordMode(c.Context, rt)
		},
	}
}

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the local API and GUI without the keyboard hook",
		Action: func(c *cli.Context) error {
			rt, err := openRuntime(c, false)
			if err != nil {
				return err
			}
			defer rt.Close()
			return app.RunServe(c.Context, rt)
		},
	}
}

func transcribeCmd() *cli.Command {
	return &cli.Command{
		Name:      "transcribe",
		Usage:     "Transcribe and format an existing audio file",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "text output path (default ./<name>.txt)"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return outputError(verrors.NewInvalidRequest("exactly one audio file is required"))
			}
			rt, err := openRuntime(c, false)
			if err != nil {
				return err
			}
			defer rt.Close()
			out, err := app.RunFileMode(c.Context, rt, c.Args().First(), c.String("output"))
			if err != nil {
				return outputError(err)
			}
			rt.Log.Info("transcript written", slog.String("path", out))
			return nil
		},
	}
}

func historyCmd() *cli.Command {
	return &cli.Command{
		Name:      "history",
		Usage:     "Print transcriptions as JSON, newest first, or one by id",
		ArgsUsage: "[id]",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: -1, Usage: "maximum entries (-1 for all)"},
		},
		Action: func(c *cli.Context) error {
			rt, err := openRuntime(c, false)
			if err != nil {
				return err
			}
			defer rt.Close()

			if c.NArg() > 0 {
				id, err := strconv.ParseInt(c.Args().First(), 10, 64)
				if err != nil {
					return outputError(verrors.NewInvalidRequest("id must be an integer"))
				}
				t, err := rt.History.GetByID(c.Context, id)
				if err != nil {
					return outputError(err)
				}
				return outputJSON(t)
			}
			items, err := rt.History.Recent(c.Context, c.Int("limit"))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(items)
		},
	}
}

func statsCmd() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Print aggregate dictation statistics as JSON",
		Action: func(c *cli.Context) error {
			rt, err := openRuntime(c, false)
			if err != nil {
				return err
			}
			defer rt.Close()
			st, err := rt.History.Stats(c.Context)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(st)
		},
	}
}

func resetCmd() *cli.Command {
	return &cli.Command{
		Name:  "reset",
		Usage: "Restore default settings and clear the transcription history",
		Action: func(c *cli.Context) error {
			rt, err := openRuntime(c, false)
			if err != nil {
				return err
			}
			defer rt.Close()
			s, err := rt.Settings.Reset(c.Context)
			if err != nil {
				return outputError(err)
			}
			if err := rt.History.Clear(c.Context); err != nil {
				return outputError(err)
			}
			return outputJSON(s)
		},
	}
}

func mcpCmd() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve read-only history tools to an MCP client over stdio",
		Action: func(c *cli.Context) error {
			rt, err := openRuntime(c, false)
			if err != nil {
				return err
			}
			defer rt.Close()
			return mcpserver.Run(rt.History, Version)
		},
	}
}

// openRuntime resolves the config and opens the stores. Logs go to stderr
// so stdout stays clean for JSON and MCP output.
func openRuntime(c *cli.Context, createDefault bool) (*app.Runtime, error) {
	cfg, err := resolveConfig(c, createDefault)
	if err != nil {
		return nil, err
	}
	log := app.NewLogger(cfg, os.Stderr)
	slog.SetDefault(log)
	return app.Open(c.Context, cfg, log)
}

// resolveConfig loads --config, else ./config.json when present. With no
// file and no override flags, the run command writes a default config.json
// and returns errDefaultWritten so the user can edit it first.
func resolveConfig(c *cli.Context, createDefault bool) (config.Config, error) {
	path := c.String("config")
	if path == "" {
		if _, err := os.Stat(defaultConfigPath); err == nil {
			path = defaultConfigPath
		} else if !os.IsNotExist(err) {
			return config.Config{}, fmt.Errorf("failed to stat %s: %w", defaultConfigPath, err)
		} else if createDefault && !config.AnySet(c) {
			if err := config.SaveDefault(defaultConfigPath); err != nil {
				return config.Config{}, fmt.Errorf("failed to write default config: %w", err)
			}
			fmt.Fprintf(os.Stderr, "default config created at %s. Please edit it and re-run.\n", defaultConfigPath)
			return config.Config{}, errDefaultWritten
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to load config '%s': %w", path, err)
	}
	config.ApplyFlags(&cfg, c)
	if err := config.Validate(&cfg); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	if err := config.ResolveDirs(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func outputError(err error) error {
	ve := verrors.As(err)
	return cli.Exit(fmt.Sprintf("[%s] %s", ve.Code, ve.Message), 1)
}
