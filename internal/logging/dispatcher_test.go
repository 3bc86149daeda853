package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/cargotrack/routeplay/internal/dispatcher"
	"github.com/rs/zerolog"
)

func newBufferedLogger(level zerolog.Level) (*DispatcherLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewDispatcherLogger(zerolog.New(&buf).Level(level)), &buf
}

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var logEntry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}
	return logEntry
}

func TestNewDispatcherLogger(t *testing.T) {
	dl := NewDispatcherLogger(zerolog.Nop())

	if dl == nil {
		t.Fatal("expected non-nil DispatcherLogger")
	}
}

func TestDispatcherLogger_Debug(t *testing.T) {
	dl, buf := newBufferedLogger(zerolog.DebugLevel)

	dl.Debug("test message", "key1", "value1", "key2", 42)

	logEntry := decodeEntry(t, buf)
	if logEntry["level"] != "debug" {
		t.Errorf("expected level 'debug', got %v", logEntry["level"])
	}
	if logEntry["message"] != "test message" {
		t.Errorf("expected message 'test message', got %v", logEntry["message"])
	}
	if logEntry["key1"] != "value1" {
		t.Errorf("expected key1='value1', got %v", logEntry["key1"])
	}
	if logEntry["key2"] != float64(42) { // JSON numbers are float64
		t.Errorf("expected key2=42, got %v", logEntry["key2"])
	}
}

func TestDispatcherLogger_Info(t *testing.T) {
	dl, buf := newBufferedLogger(zerolog.InfoLevel)

	dl.Info("route loaded", "route", "01-1-123456")

	logEntry := decodeEntry(t, buf)
	if logEntry["level"] != "info" {
		t.Errorf("expected level 'info', got %v", logEntry["level"])
	}
	if logEntry["route"] != "01-1-123456" {
		t.Errorf("expected route field, got %v", logEntry["route"])
	}
}

func TestDispatcherLogger_Error(t *testing.T) {
	dl, buf := newBufferedLogger(zerolog.InfoLevel)

	dl.Error("event failed", "command", ":PLAYBACK:START:")

	logEntry := decodeEntry(t, buf)
	if logEntry["level"] != "error" {
		t.Errorf("expected level 'error', got %v", logEntry["level"])
	}
	if logEntry["command"] != ":PLAYBACK:START:" {
		t.Errorf("expected command field, got %v", logEntry["command"])
	}
}

func TestDispatcherLogger_FiltersBelowLevel(t *testing.T) {
	dl, buf := newBufferedLogger(zerolog.InfoLevel)

	dl.Debug("hidden")

	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestDispatcherLogger_OddKeyValues(t *testing.T) {
	dl, buf := newBufferedLogger(zerolog.InfoLevel)

	dl.Info("odd", "key1", "v1", 7, "ignored", "dangling")

	logEntry := decodeEntry(t, buf)
	if logEntry["key1"] != "v1" {
		t.Errorf("expected key1='v1', got %v", logEntry["key1"])
	}
	if _, ok := logEntry["dangling"]; ok {
		t.Error("dangling key should be dropped")
	}
}

func TestDispatcherLogger_TypedFields(t *testing.T) {
	dl, buf := newBufferedLogger(zerolog.InfoLevel)

	dl.Error("event failed",
		"command", ":PLAYBACK:LOAD:",
		"duration", 1500*time.Millisecond,
		"error", errors.New("route not found"),
		"args", []string{"01-1-123456"},
	)

	logEntry := decodeEntry(t, buf)
	if logEntry["duration"] != float64(1500) {
		t.Errorf("expected duration in milliseconds, got %v", logEntry["duration"])
	}
	if logEntry["error"] != "route not found" {
		t.Errorf("expected error text, got %v", logEntry["error"])
	}
	args, ok := logEntry["args"].([]any)
	if !ok || len(args) != 1 || args[0] != "01-1-123456" {
		t.Errorf("expected args encoded as a JSON array, got %v", logEntry["args"])
	}
}

func TestDispatcherLogger_NilError(t *testing.T) {
	dl, buf := newBufferedLogger(zerolog.InfoLevel)

	var err error
	dl.Info("event complete", "error", err)

	logEntry := decodeEntry(t, buf)
	if v, ok := logEntry["error"]; ok && v != nil {
		t.Errorf("expected no error text, got %v", v)
	}
}

func TestDispatcherLogger_ImplementsInterface(t *testing.T) {
	var _ dispatcher.Logger = NewDispatcherLogger(zerolog.Nop())
}
