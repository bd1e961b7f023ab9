// Package cli holds the startup steps shared by cmd/spendchart and
// cmd/ledger-audit.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"spendchart/internal/config"
	"spendchart/internal/log"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// NewLogger builds the process logger from configuration and installs it as
// the slog default.
func NewLogger(cfg *config.Config, component string, out io.Writer) *log.Logger {
	if out == nil {
		out = os.Stdout
	}
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: component,
		Output:    out,
	})
	log.SetDefault(logger)
	return logger
}

// Bootstrap loads .env and the environment, validates it and returns the
// configuration with a logger for component.
func Bootstrap(component string) (*config.Config, *log.Logger, error) {
	LoadEnvFile()
	cfg := config.Load()
	logger := NewLogger(cfg, component, os.Stdout)
	if err := cfg.Validate(); err != nil {
		return cfg, logger, fmt.Errorf("load config: %w", err)
	}
	return cfg, logger, nil
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
