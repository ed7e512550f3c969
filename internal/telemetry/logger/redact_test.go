package logger

import (
	"encoding/json"
	"testing"
)

func TestRedact_ContentKeys(t *testing.T) {
	l, buf := newJSONLogger(t, "info")

	tests := []struct {
		key   string
		value any
		want  string
	}{
		{"value", "my private draft", "[16 bytes]"},
		{"data", json.RawMessage(`{"a":1}`), "[7 bytes]"},
		{"draft", []byte("abc"), "[3 bytes]"},
		{"body", 42, redactedValue},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			buf.Reset()
			l.Info("stored", tt.key, tt.value)

			entry := decodeEntry(t, buf)
			if entry[tt.key] != tt.want {
				t.Errorf("%s = %v, want %s", tt.key, entry[tt.key], tt.want)
			}
		})
	}
}

func TestRedact_SensitiveKeyName(t *testing.T) {
	l, buf := newJSONLogger(t, "info")

	for _, key := range []string{"password", "user_password", "api_key", "auth_token", "credential"} {
		t.Run(key, func(t *testing.T) {
			buf.Reset()
			l.Info("test", key, "hunter2")

			entry := decodeEntry(t, buf)
			if entry[key] != redactedValue {
				t.Errorf("%s = %v, want %s", key, entry[key], redactedValue)
			}
		})
	}
}

func TestRedact_NormalValues(t *testing.T) {
	l, buf := newJSONLogger(t, "info")

	l.Info("read", "key", "draft:42", "adapter", "indexedDB", "group_key", "")

	entry := decodeEntry(t, buf)
	if entry["key"] != "draft:42" {
		t.Errorf("key = %v, want draft:42 (storage keys are not secrets)", entry["key"])
	}
	if entry["adapter"] != "indexedDB" {
		t.Errorf("adapter = %v, want indexedDB", entry["adapter"])
	}
}

func TestRedact_Group(t *testing.T) {
	l, buf := newJSONLogger(t, "info")

	l.Slog().WithGroup("item").Info("nested", "value", "secret text", "ttl", 10)

	entry := decodeEntry(t, buf)
	group, ok := entry["item"].(map[string]any)
	if !ok {
		t.Fatalf("item group missing: %v", entry)
	}
	if group["value"] != "[11 bytes]" {
		t.Errorf("item.value = %v, want [11 bytes]", group["value"])
	}
}

func TestIsSensitiveKey(t *testing.T) {
	tests := map[string]bool{
		"password":  true,
		"AuthToken": true,
		"apikey":    true,
		"key":       false,
		"namespace": false,
	}
	for key, want := range tests {
		if got := IsSensitiveKey(key); got != want {
			t.Errorf("IsSensitiveKey(%q) = %v, want %v", key, got, want)
		}
	}
}
