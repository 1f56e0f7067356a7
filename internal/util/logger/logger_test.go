package logger

import (
	"log/slog"
	"os"
	"strings"
	"testing"
)

func TestParseLevelConfig_DefaultAndPerSubsystem(t *testing.T) {
	c := &config{subsystemLevels: make(map[string]slog.Level)}
	parseLevelConfig(c, "peertest.responder=debug,ivfilter=warn,info")

	if got := c.subsystemLevels["peertest.responder"]; got != slog.LevelDebug {
		t.Fatalf("expected DEBUG for peertest.responder, got %v", got)
	}
	if got := c.subsystemLevels["ivfilter"]; got != slog.LevelWarn {
		t.Fatalf("expected WARN for ivfilter, got %v", got)
	}
	if c.defaultLevel != slog.LevelInfo {
		t.Fatalf("expected bare token to set default level to INFO, got %v", c.defaultLevel)
	}
}

func TestLogger_WritesToRedirectedOutput(t *testing.T) {
	t.Setenv("PEERTEST_LOG_LEVEL", "test.logger=debug")
	resetForTest()

	f, err := os.CreateTemp(t.TempDir(), "peertest-log-*.txt")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	defer f.Close()

	SetOutput(f)
	log := Logger("test.logger")
	log.Info("hello", "key", "value")

	data, err := os.ReadFile(f.Name())
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "hello") {
		t.Fatalf("expected log output to contain message, got: %s", data)
	}
	if !strings.Contains(string(data), "test.logger") {
		t.Fatalf("expected log output to contain subsystem tag, got: %s", data)
	}
}

func TestLogger_RespectsPerSubsystemLevel(t *testing.T) {
	t.Setenv("PEERTEST_LOG_LEVEL", "quiet.subsystem=error")
	resetForTest()

	f, err := os.CreateTemp(t.TempDir(), "peertest-log-*.txt")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	defer f.Close()
	SetOutput(f)

	log := Logger("quiet.subsystem")
	log.Info("should be suppressed")
	log.Error("should appear")

	data, err := os.ReadFile(f.Name())
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(data), "should be suppressed") {
		t.Fatal("expected info-level message to be suppressed by error-level subsystem config")
	}
	if !strings.Contains(string(data), "should appear") {
		t.Fatal("expected error-level message to appear")
	}
}
