package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/c360/bee/config"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPaths     []string
	Mode            string
	LogLevel        string
	LogFormat       string
	MetricsAddr     string
	ShutdownTimeout time.Duration
	ShowVersion     bool
	ShowHelp        bool
	Validate        bool
}

func parseFlags(fs *flag.FlagSet, args []string) (*CLIConfig, error) {
	cfg := &CLIConfig{}
	var configPaths string

	// Define flags with environment variable fallback
	fs.StringVar(&configPaths, "config",
		getEnv("BEE_CONFIG", "bee.toml"),
		"Configuration file, or comma-separated layers merged in order (env: BEE_CONFIG)")

	fs.StringVar(&configPaths, "c",
		getEnv("BEE_CONFIG", "bee.toml"),
		"Configuration file (env: BEE_CONFIG)")

	fs.StringVar(&cfg.Mode, "mode",
		getEnv("BEE_MODE", "debug"),
		"Path mode: debug, test, prod (env: BEE_MODE)")

	fs.StringVar(&cfg.LogLevel, "log-level",
		getEnv("BEE_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: BEE_LOG_LEVEL)")

	fs.StringVar(&cfg.LogFormat, "log-format",
		getEnv("BEE_LOG_FORMAT", "json"),
		"Log format: json, text (env: BEE_LOG_FORMAT)")

	fs.StringVar(&cfg.MetricsAddr, "metrics-addr",
		getEnv("BEE_METRICS_ADDR", ""),
		"Prometheus listen address such as :9090, empty to disable (env: BEE_METRICS_ADDR)")

	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout",
		getEnvDuration("BEE_SHUTDOWN_TIMEOUT", 30*time.Second),
		"Graceful drain timeout (env: BEE_SHUTDOWN_TIMEOUT)")

	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	fs.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	fs.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	fs.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	fs.BoolVar(&cfg.Validate, "validate",
		getEnvBool("BEE_VALIDATE", false),
		"Validate configuration and exit (env: BEE_VALIDATE)")

	fs.Usage = func() {
		printDetailedHelp(fs.Output(), fs)
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	for _, p := range strings.Split(configPaths, ",") {
		if p = strings.TrimSpace(p); p != "" {
			cfg.ConfigPaths = append(cfg.ConfigPaths, p)
		}
	}
	return cfg, nil
}

func validateFlags(cfg *CLIConfig) error {
	// Skip validation for special flags
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	if len(cfg.ConfigPaths) == 0 {
		return fmt.Errorf("no config file given")
	}

	if _, err := config.ParseMode(cfg.Mode); err != nil {
		return err
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	validFormats := []string{"json", "text"}
	if !slices.Contains(validFormats, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	if cfg.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid shutdown timeout: %s", cfg.ShutdownTimeout)
	}

	return nil
}

func printDetailedHelp(w io.Writer, fs *flag.FlagSet) {
	_, _ = fmt.Fprintf(w, `%s - streaming event pipeline

Usage: %s [options]

Options:
`, appName, os.Args[0])
	fs.PrintDefaults()
	_, _ = fmt.Fprintf(w, `
Examples:
  # Run with a config file
  %s --config=/etc/bee/bee.toml

  # Layer a local override on top of the base file
  %s --config=bee.toml,local.yaml

  # Debug logging and metrics
  %s --log-level=debug --log-format=text --metrics-addr=:9090

  # Override single keys from the environment
  export BEECFG_SINK__TYPE=console
  %s

  # Validate configuration only
  %s --validate

Version: %s
Build: %s
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0], Version, BuildTime)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
