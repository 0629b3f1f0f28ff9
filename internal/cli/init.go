// Package cli holds the start-up steps shared by cmd/opensheets and
// cmd/ledger-worker.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/gladysonss/opensheets-app-sub000/internal/config"
	"github.com/gladysonss/opensheets-app-sub000/internal/log"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile(filenames ...string) {
	_ = godotenv.Load(filenames...)
}

// LoadConfig loads the configuration and runs validate on it.
func LoadConfig(validate func(*config.Config) error) (*config.Config, error) {
	cfg := config.Load()
	if validate != nil {
		if err := validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func SetupLogger(cfg *config.Config, component string) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: component,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)
	return logger
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM. The stop
// function releases the signal handler.
func SignalContext(parent context.Context, logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigs:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		signal.Stop(sigs)
		cancel()
	}
}

// Fatal logs err and exits with status 1.
func Fatal(logger *log.Logger, msg string, err error) {
	if logger == nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	} else {
		logger.Error(msg, log.FieldError, err)
	}
	os.Exit(1)
}
