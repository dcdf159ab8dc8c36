package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oarkflow/log"
	"github.com/urfave/cli/v2"

	"github.com/Foldover/wscript"
	"github.com/Foldover/wscript/pkg/config"
	"github.com/Foldover/wscript/pkg/server"
)

func main() {
	app := &cli.App{
		Name:  "wscript",
		Usage: "Run Mycel (.mc) programs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a configuration file (YAML, JSON, or BCL)",
				EnvVars: []string{"WSCRIPT_CONFIG"},
			},
			&cli.IntFlag{
				Name:  "stack-budget",
				Usage: "Evaluation steps allowed before the trampoline unwinds the stack",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (trace, debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "Evaluate one or more .mc files",
				ArgsUsage: "FILE.mc...",
				Action:    runFiles,
			},
			{
				Name:   "repl",
				Usage:  "Start an interactive session",
				Action: startRepl,
			},
			{
				Name:  "serve",
				Usage: "Start the evaluation server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Address to listen on",
					},
					&cli.DurationFlag{
						Name:  "eval-timeout",
						Value: 10 * time.Second,
						Usage: "Maximum wall time of a single evaluation",
					},
					&cli.BoolFlag{
						Name:  "access-log",
						Usage: "Log every request",
					},
				},
				Action: startServer,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the optional config file and applies command-line
// overrides on top of it.
func loadConfig(c *cli.Context) (*config.Config, *log.Logger, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, nil, fmt.Errorf("load config %s: %w", path, err)
		}
		cfg = loaded
	}
	if c.IsSet("stack-budget") {
		cfg.Runtime.StackBudget = c.Int("stack-budget")
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	cfg.Apply()
	return cfg, cfg.Logger(nil), nil
}

func runFiles(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("usage: wscript run FILE.mc...", 2)
	}
	_, logger, err := loadConfig(c)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, path := range c.Args().Slice() {
		src, err := wscript.ReadSource(path)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		val, err := wscript.Exec(ctx, src, nil, wscript.WithLogger(logger))
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %s\n", path, wscript.FormatError(err, src))
			return cli.Exit("", 1)
		}
		fmt.Printf("Program ended with: %s\n", val.Inspect())
	}
	return nil
}

func startServer(c *cli.Context) error {
	cfg, logger, err := loadConfig(c)
	if err != nil {
		return err
	}
	addr := cfg.Server.Addr
	if c.IsSet("addr") {
		addr = c.String("addr")
	}
	srv, err := server.NewServer(server.Config{
		Version:     cfg.Server.Version,
		CacheSize:   cfg.Server.CacheSize,
		BodyLimit:   cfg.Server.MaxBodySize,
		EvalTimeout: c.Duration("eval-timeout"),
		RequestLog:  c.Bool("access-log"),
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Listen(addr)
	}()

	select {
	case err := <-serverErr:
		return err
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		return srv.Shutdown()
	}
}
