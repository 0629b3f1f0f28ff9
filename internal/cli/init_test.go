package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gladysonss/opensheets-app-sub000/internal/config"
	"github.com/gladysonss/opensheets-app-sub000/internal/log"
)

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("OPENSHEETS_TEST_KEY=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("OPENSHEETS_TEST_KEY", "")
	os.Unsetenv("OPENSHEETS_TEST_KEY")

	LoadEnvFile(path)
	if got := os.Getenv("OPENSHEETS_TEST_KEY"); got != "from-file" {
		t.Fatalf("OPENSHEETS_TEST_KEY = %q, want from-file", got)
	}

	// A missing file is not an error.
	LoadEnvFile(filepath.Join(t.TempDir(), "missing.env"))
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("PORT", "9191")

	cfg, err := LoadConfig(nil)
	if err != nil || cfg.Port != "9191" {
		t.Fatalf("LoadConfig() = %+v, %v", cfg, err)
	}

	boom := errors.New("boom")
	if _, err := LoadConfig(func(*config.Config) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSetupLogger(t *testing.T) {
	logger := SetupLogger(&config.Config{LogLevel: "debug", LogFormat: "json"}, log.ComponentWorker)
	if logger.Component() != log.ComponentWorker {
		t.Fatalf("component = %q", logger.Component())
	}
	if !logger.Enabled(context.Background(), -4) {
		t.Fatal("debug level should be enabled")
	}
}

func TestSignalContextStops(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	ctx, stop := SignalContext(parent, log.New(log.DefaultConfig()))
	defer stop()

	cancel()
	<-ctx.Done()
}
