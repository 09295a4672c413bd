package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/rickgao/warplog/internal/config"
	"github.com/rickgao/warplog/internal/version"
)

const usage = `usage: warplog [--config path] <command> [flags]

commands:
  migrate   create or update the database schema
  sync      refresh configured accounts from the upstream
  import    import an SRGF or UIGF archive
  export    export an account as SRGF or UIGF
  batches   list an account's ingestion history
  serve     run scheduled syncs and serve metrics
  version   print the build version
`

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"migrate": runMigrate,
	"sync":    runSync,
	"import":  runImport,
	"export":  runExport,
	"batches": runBatches,
	"serve":   runServe,
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("warplog", pflag.ContinueOnError)
	flags.SetInterspersed(false)
	configPath := flags.StringP("config", "c", "configs/warplog.yaml", "path to config file")
	flags.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	if err := flags.Parse(args); err != nil {
		return err
	}

	rest := flags.Args()
	if len(rest) == 0 {
		flags.Usage()
		return errors.New("no command given")
	}
	name, cmdArgs := rest[0], rest[1:]

	if name == "version" {
		fmt.Println(version.String())
		return nil
	}
	cmd, ok := commands[name]
	if !ok {
		flags.Usage()
		return fmt.Errorf("unknown command %q", name)
	}

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Debug("starting warplog",
		"command", name,
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return cmd(ctx, a, cmdArgs)
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
