package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/spf13/pflag"

	"github.com/stefur/tempapp/internal/app"
	"github.com/stefur/tempapp/internal/config"
	"github.com/stefur/tempapp/internal/logging"
)

var version = "dev"
var appName = "tempapp"

const usage = `usage: tempapp <command> [flags]

commands:
  serve     run the dashboard (default)
  fetch     read every sensor once and store the batch
  migrate   apply database migrations and exit
  version   print the version
`

type command func(context.Context, config.Config) error

var commands = map[string]command{
	"serve":   app.Serve,
	"fetch":   app.Fetch,
	"migrate": app.Migrate,
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	name := "serve"
	if len(args) > 0 && len(args[0]) > 0 && args[0][0] != '-' {
		name, args = args[0], args[1:]
	}
	switch name {
	case "version":
		fmt.Println(version)
		return 0
	case "help":
		fmt.Print(usage)
		return 0
	}
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", name, usage)
		return 2
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return 1
	}

	fs := pflag.NewFlagSet(appName+" "+name, pflag.ContinueOnError)
	cfg.BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "flag error: %v\n", err)
		return 2
	}
	if err := cfg.Resolve(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return 1
	}

	logger := logging.New(cfg, version, appName)
	slog.SetDefault(logger)

	slog.Info("starting",
		"app", appName,
		"command", name,
		"version", version,
		"env", cfg.AppEnv,
		"log_level", cfg.LogLevel.String(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run failed", "command", name, "err", err)
		return 1
	}

	slog.Info("shutting down")
	return 0
}
