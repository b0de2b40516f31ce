package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath      string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	Query           string
	Watch           bool
	WriteConfig     string
	ShowVersion     bool
	ShowHelp        bool
	Validate        bool
}

func parseFlags(fs *flag.FlagSet, args []string) (*CLIConfig, error) {
	cfg := &CLIConfig{}

	// Empty log settings defer to the config file
	fs.StringVar(&cfg.ConfigPath, "config",
		getEnv("CACHESTATS_CONFIG", ""),
		"Path to a JSON or YAML configuration file (env: CACHESTATS_CONFIG)")
	fs.StringVar(&cfg.ConfigPath, "c",
		getEnv("CACHESTATS_CONFIG", ""),
		"Path to a JSON or YAML configuration file (env: CACHESTATS_CONFIG)")

	fs.StringVar(&cfg.LogLevel, "log-level",
		getEnv("CACHESTATS_LOG_LEVEL", ""),
		"Log level: debug, info, warn, error (env: CACHESTATS_LOG_LEVEL)")

	fs.StringVar(&cfg.LogFormat, "log-format",
		getEnv("CACHESTATS_LOG_FORMAT", ""),
		"Log format: json, text (env: CACHESTATS_LOG_FORMAT)")

	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout",
		getEnvDuration("CACHESTATS_SHUTDOWN_TIMEOUT", 30*time.Second),
		"Graceful shutdown timeout (env: CACHESTATS_SHUTDOWN_TIMEOUT)")

	fs.StringVar(&cfg.Query, "query", "",
		"Query a running instance over NATS: namespace/name[/attribute], segments path-escaped")

	fs.BoolVar(&cfg.Watch, "watch", false,
		"Print registry events published by running instances over NATS until interrupted")

	fs.StringVar(&cfg.WriteConfig, "write-config", "",
		"Write the effective configuration to a .json, .yaml or .yml file and exit")

	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	fs.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	fs.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	fs.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	fs.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	fs.Usage = func() {
		printDetailedHelp(fs)
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateFlags(cfg *CLIConfig) error {
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	if cfg.ConfigPath != "" {
		if _, err := os.Stat(cfg.ConfigPath); err != nil {
			return fmt.Errorf("config file not found: %s", cfg.ConfigPath)
		}
	}

	if cfg.LogLevel != "" && !contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(cfg.LogLevel)) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	if cfg.LogFormat != "" && !contains([]string{"json", "text"}, strings.ToLower(cfg.LogFormat)) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	if cfg.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid shutdown timeout: %s", cfg.ShutdownTimeout)
	}

	if cfg.Query != "" {
		if _, err := parseQueryTarget(cfg.Query); err != nil {
			return err
		}
	}

	modes := 0
	for _, set := range []bool{cfg.Query != "", cfg.Watch, cfg.WriteConfig != "", cfg.Validate} {
		if set {
			modes++
		}
	}
	if modes > 1 {
		return fmt.Errorf("--query, --watch, --write-config and --validate are mutually exclusive")
	}

	if cfg.WriteConfig != "" {
		switch strings.ToLower(filepath.Ext(cfg.WriteConfig)) {
		case ".json", ".yaml", ".yml":
		default:
			return fmt.Errorf("invalid --write-config file %q: want .json, .yaml or .yml", cfg.WriteConfig)
		}
	}

	return nil
}

func printDetailedHelp(fs *flag.FlagSet) {
	out := fs.Output()
	_, _ = fmt.Fprintf(out, `%s - cache statistics monitoring

Usage: %s [options]

Options:
`, appName, os.Args[0])
	fs.PrintDefaults()
	_, _ = fmt.Fprintf(out, `
Examples:
  # Serve the caches declared in a config file
  %s --config=/etc/cachestats/config.yaml

  # Run with debug logging
  %s --log-level=debug --log-format=text

  # Ask a running instance for one attribute over NATS
  %s --config=config.yaml --query=app/sessions/CacheHitPercentage

  # Follow registrations across every instance sharing the prefix
  %s --config=config.yaml --watch

  # Write the defaults merged with the environment to a file
  %s --write-config=effective.yaml

  # Validate configuration only
  %s --config=config.yaml --validate

Version: %s
Build: %s
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0], Version, BuildTime)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
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

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
