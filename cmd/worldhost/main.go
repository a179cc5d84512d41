package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/worldhost/internal/config"
	"git.home.luguber.info/inful/worldhost/internal/daemon"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"config.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Serve struct{} `cmd:"" help:"Run the world data service with scheduled maintenance and the admin API"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Initialize a new configuration file"`

	Migrate struct {
		Dir  string `short:"d" help:"Directory holding the legacy data files" default:"."`
		Kind string `short:"k" help:"Record kind to import" enum:"all,world,player,portal" default:"all"`
	} `cmd:"" help:"Import legacy world/player/portal data into the current schema"`

	ArchiveExpired struct{} `cmd:"" name:"archive-expired" help:"Archive every world whose expiration date has passed, then exit"`
}

func main() {
	ctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	switch ctx.Command() {
	case "serve":
		if err := runServe(); err != nil {
			slog.Error("Serve failed", "error", err)
			os.Exit(1)
		}
	case "init":
		if err := runInit(CLI.Config, CLI.Init.Force); err != nil {
			slog.Error("Init failed", "error", err)
			os.Exit(1)
		}
	case "migrate":
		if err := runMigrate(CLI.Migrate.Dir, CLI.Migrate.Kind); err != nil {
			slog.Error("Migration failed", "error", err)
			os.Exit(1)
		}
	case "archive-expired":
		if err := runArchiveExpired(); err != nil {
			slog.Error("Archiving failed", "error", err)
			os.Exit(1)
		}
	}
}

func runServe() error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	d, err := daemon.New(cfg, CLI.Config)
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	if err := d.Start(ctx); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	slog.Info("Daemon started, waiting for shutdown signal...")
	<-ctx.Done()
	slog.Info("Shutdown signal received, stopping daemon...")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()

	if err := d.Stop(stopCtx); err != nil {
		return fmt.Errorf("failed to stop daemon: %w", err)
	}

	slog.Info("Daemon stopped successfully")
	return nil
}

func runInit(configPath string, force bool) error {
	slog.Info("Initializing configuration", "path", configPath, "force", force)
	return config.Init(configPath, force)
}

func runMigrate(legacyDir, kind string) error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	d, err := daemon.New(cfg, CLI.Config)
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// The repositories must be loaded so migration can validate references
	// and overlay existing records.
	if err := d.Reload(ctx); err != nil {
		return err
	}

	report, err := d.Migrate(legacyDir, kind)
	if err != nil {
		return err
	}

	slog.Info("Migration completed",
		"succeeded", report.Succeeded,
		"total", report.Total)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	return d.Stop(stopCtx)
}

func runArchiveExpired() error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	d, err := daemon.New(cfg, CLI.Config)
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := d.Reload(ctx); err != nil {
		return err
	}

	report := d.ArchiveExpired(ctx)
	slog.Info("Archiving completed",
		"succeeded", report.Succeeded,
		"total", report.Total)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	return d.Stop(stopCtx)
}
