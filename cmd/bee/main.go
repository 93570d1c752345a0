// Package main is the bee command: it loads a pipeline configuration and
// runs the pipeline until it finishes or the process is signalled.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/c360/bee/component"
	"github.com/c360/bee/componentregistry"
	"github.com/c360/bee/config"
	"github.com/c360/bee/errors"
	"github.com/c360/bee/metric"
	"github.com/c360/bee/pipeline"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "bee"
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

	if err := run(os.Args[1:]); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run(args []string) error {
	cliCfg, shouldExit, err := initializeCLI(args)
	if shouldExit || err != nil {
		return err
	}
	logger := slog.Default()

	cfg, err := loadConfig(cliCfg)
	if err != nil {
		return err
	}

	registry, err := componentregistry.NewRegistry()
	if err != nil {
		return fmt.Errorf("register components: %w", err)
	}
	logger.Debug("Component factories registered", "count", len(registry.ListAvailable()))

	metricsRegistry := metric.NewMetricsRegistry()
	p, err := pipeline.New(cfg, registry, component.Dependencies{
		MetricsRegistry: metricsRegistry,
		Logger:          logger,
	})
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if cliCfg.Validate {
		s := p.Settings()
		logger.Info("Configuration is valid",
			"source", s.SourceType,
			"decoder", s.DecoderType,
			"processors", s.ProcessorTypes,
			"sink", s.SinkType,
			"buffer_size", s.BufferSize)
		return nil
	}

	if cliCfg.MetricsAddr != "" {
		server := metric.NewServer(cliCfg.MetricsAddr, "", metricsRegistry)
		server.Handle("/health", healthHandler(p.Health))
		if err := server.Start(); err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
		logger.Info("Metrics server listening", "addr", server.Address())
		defer func() {
			if err := server.Stop(5 * time.Second); err != nil {
				logger.Warn("Metrics server shutdown failed", "error", err)
			}
		}()
	}

	return runWithSignalHandling(context.Background(), p, cliCfg.ShutdownTimeout)
}

// initializeCLI parses flags and sets up logging
func initializeCLI(args []string) (*CLIConfig, bool, error) {
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	cliCfg, err := parseFlags(fs, args)
	if err == flag.ErrHelp {
		return nil, true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("invalid flags: %w", err)
	}
	if err := validateFlags(cliCfg); err != nil {
		return nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, true, nil
	}

	if cliCfg.ShowHelp {
		printDetailedHelp(os.Stderr, fs)
		return nil, true, nil
	}

	logger := newLogger(os.Stderr, cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("Starting bee",
		"version", Version,
		"build_time", BuildTime,
		"config", cliCfg.ConfigPaths,
		"mode", cliCfg.Mode)

	return cliCfg, false, nil
}

// loadConfig resolves every layer for the path mode and merges them.
func loadConfig(cliCfg *CLIConfig) (*config.Config, error) {
	mode, err := config.ParseMode(cliCfg.Mode)
	if err != nil {
		return nil, err
	}
	loader := config.NewLoader()
	for _, name := range cliCfg.ConfigPaths {
		path, err := config.FindPath(mode, name)
		if err != nil {
			return nil, fmt.Errorf("resolve config path %s: %w", name, err)
		}
		loader.AddLayer(path)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// runWithSignalHandling runs the pipeline until it ends on its own or a
// signal arrives, then drains it within shutdownTimeout.
func runWithSignalHandling(ctx context.Context, p *pipeline.Pipeline, shutdownTimeout time.Duration) error {
	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	slog.Info("Pipeline starting", "run_id", p.RunID())
	err := p.Run(signalCtx, shutdownTimeout)

	for _, s := range p.States() {
		if s.Err != nil {
			slog.Error("Stage failed", "stage", s.Kind.String(), "state", s.State.String(), "error", s.Err)
			continue
		}
		slog.Info("Stage finished", "stage", s.Kind.String(), "state", s.State.String())
	}
	if err != nil {
		if errors.IsTimeout(err) {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return fmt.Errorf("pipeline failed: %w", err)
	}

	slog.Info("bee shutdown complete", "run_id", p.RunID())
	return nil
}
