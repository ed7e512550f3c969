package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func newJSONLogger(t *testing.T, level string) (Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l, err := New(Config{Level: level, Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return l, &buf
}

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse JSON log: %v", err)
	}
	return entry
}

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"default config", DefaultConfig()},
		{"text format", Config{Level: "debug", Format: "text"}},
		{"console format", Config{Level: "info", Format: "console"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if l == nil || l.Slog() == nil {
				t.Fatal("New() returned nil logger")
			}
		})
	}
}

func TestLogger_Levels(t *testing.T) {
	l, buf := newJSONLogger(t, "debug")

	tests := []struct {
		level   string
		logFunc func(string, ...any)
	}{
		{"DEBUG", l.Debug},
		{"INFO", l.Info},
		{"WARN", l.Warn},
		{"ERROR", l.Error},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			buf.Reset()
			tt.logFunc("test message", "component", "test-value")

			entry := decodeEntry(t, buf)
			if entry["level"] != tt.level {
				t.Errorf("level = %v, want %s", entry["level"], tt.level)
			}
			if entry["component"] != "test-value" {
				t.Errorf("component = %v, want test-value", entry["component"])
			}
		})
	}
}

func TestLogger_WithAndSlog(t *testing.T) {
	l, buf := newJSONLogger(t, "info")

	l.With("adapter", "memory").Slog().Info("opened")

	entry := decodeEntry(t, buf)
	if entry["adapter"] != "memory" {
		t.Errorf("adapter = %v, want memory", entry["adapter"])
	}
}

func TestSetLevel(t *testing.T) {
	l, buf := newJSONLogger(t, "info")
	defer SetLevel("info")

	l.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug logged at info level: %s", buf.String())
	}

	SetLevel("debug")
	if GetLevel() != "debug" {
		t.Errorf("GetLevel() = %q, want debug", GetLevel())
	}
	l.Debug("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Error("debug not logged after SetLevel(debug)")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]string{
		"debug":   "debug",
		"WARNING": "warn",
		"error":   "error",
		"bogus":   "info",
	}
	for in, want := range tests {
		level.Set(parseLevel(in))
		if got := GetLevel(); got != want {
			t.Errorf("parseLevel(%q) = %s, want %s", in, got, want)
		}
	}
	level.Set(parseLevel("info"))

	if !ValidLevel("warn") || ValidLevel("loud") {
		t.Error("ValidLevel() misclassified levels")
	}
}

func TestDefaultLogger(t *testing.T) {
	if Default() == nil {
		t.Fatal("Default() returned nil")
	}

	l, buf := newJSONLogger(t, "info")
	prev := Default()
	SetDefault(l)
	defer SetDefault(prev)

	Info("package level", "n", 1)
	if !strings.Contains(buf.String(), "package level") {
		t.Error("package-level Info did not use the default logger")
	}
}

func TestL_ContextAttrs(t *testing.T) {
	l, buf := newJSONLogger(t, "info")

	ctx := WithLogger(context.Background(), l)
	ctx = WithAttrs(ctx, "command", "watch")
	ctx = WithAttrs(ctx, "namespace", "notes")
	L(ctx).Info("with attrs")

	entry := decodeEntry(t, buf)
	if entry["command"] != "watch" || entry["namespace"] != "notes" {
		t.Errorf("entry = %v, want command and namespace attrs", entry)
	}
}

func TestL_Default(t *testing.T) {
	if L(context.Background()) == nil {
		t.Fatal("L() returned nil")
	}

	l, buf := newJSONLogger(t, "info")
	prev := Default()
	SetDefault(l)
	defer SetDefault(prev)

	L(WithAttrs(context.Background(), "k", "v")).Info("fallback")
	if !strings.Contains(buf.String(), `"k":"v"`) {
		t.Errorf("L() without a logger should use Default(), got %q", buf.String())
	}
}
