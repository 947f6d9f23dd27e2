// Package main implements the entry point for the SHDR Adapter: a TCP
// server that streams MTConnect device observations to agents over the
// SHDR line protocol.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/c360/shdr-adapter/internal/adapter"
	"github.com/c360/shdr-adapter/internal/adminserver"
	"github.com/c360/shdr-adapter/internal/config"
	"github.com/c360/shdr-adapter/internal/natsbridge"
	"github.com/c360/shdr-adapter/internal/observer"
	"github.com/c360/shdr-adapter/metric"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "shdr-adapter"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("application failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cliCfg, shouldExit, err := initializeCLI()
	if shouldExit || err != nil {
		return err
	}

	cfg, err := config.Load(cliCfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cliCfg.Validate {
		slog.Info("configuration is valid")
		return nil
	}

	metricsRegistry := metric.NewMetricsRegistry()
	a := adapter.NewAdapter(cfg.AdapterConfig(), slog.Default(), metricsRegistry)
	core := a.Core()

	registerComponents(core, cfg, metricsRegistry, a)

	if err := core.Initialize(); err != nil {
		return fmt.Errorf("initialize adapter: %w", err)
	}

	return runWithSignalHandling(context.Background(), core, cliCfg.ShutdownTimeout)
}

func initializeCLI() (*CLIConfig, bool, error) {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, true, nil
	}

	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil, true, nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("starting shdr-adapter",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	return cliCfg, false, nil
}

// registerComponents wires the optional admin server, NATS ingestion
// bridge, and observer feed onto core, gated by their own config sections.
func registerComponents(core *adapter.Core, cfg *config.Config, registry *metric.MetricsRegistry, a *adapter.Adapter) {
	if cfg.Admin.Enabled {
		core.AddComponent(adminserver.New(adminserver.Config{
			Bind: cfg.Admin.Bind,
			Port: cfg.Admin.Port,
		}, core, registry, slog.Default()))
	}

	if cfg.NATS.Enabled {
		core.AddComponent(natsbridge.New(natsbridge.Config{
			URLs:      cfg.NATS.URLs,
			Subject:   cfg.NATS.Subject,
			Queue:     cfg.NATS.Queue,
			Workers:   cfg.NATS.Workers,
			QueueSize: cfg.NATS.QueueSize,
		}, a, slog.Default(), registry))
	}

	if cfg.Observer.Enabled {
		core.AddComponent(observer.New(observer.Config{
			Bind: cfg.Observer.Bind,
			Port: cfg.Observer.Port,
			Path: cfg.Observer.Path,
		}, core, slog.Default()))
	}
}

func runWithSignalHandling(ctx context.Context, core *adapter.Core, shutdownTimeout time.Duration) error {
	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	if err := core.Start(signalCtx); err != nil {
		return fmt.Errorf("start adapter: %w", err)
	}
	slog.Info("shdr-adapter started")

	<-signalCtx.Done()
	slog.Info("received shutdown signal")

	if err := core.Stop(shutdownTimeout); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("shdr-adapter shutdown complete")
	return nil
}
