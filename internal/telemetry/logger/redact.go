package logger

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// Attribute names carrying stored user content. Their values never reach
// the log; only their size does.
var contentKeys = []string{
	"value",
	"data",
	"draft",
	"body",
}

// Sensitive key patterns that should be redacted.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"token",
	"credential",
	"auth",
	"bearer",
	"api_key",
	"apikey",
}

// redactedValue is the placeholder for redacted sensitive data.
const redactedValue = "***REDACTED***"

func redactSensitive(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		newAttrs := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			newAttrs[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(newAttrs...)}
	}

	if IsContentKey(a.Key) {
		return slog.String(a.Key, summarize(a.Value))
	}

	if a.Value.Kind() == slog.KindString && IsSensitiveKey(a.Key) && a.Value.String() != "" {
		return slog.String(a.Key, redactedValue)
	}
	return a
}

// summarize replaces content with its length.
func summarize(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return fmt.Sprintf("[%d bytes]", len(v.String()))
	case slog.KindAny:
		switch b := v.Any().(type) {
		case []byte:
			return fmt.Sprintf("[%d bytes]", len(b))
		case json.RawMessage:
			return fmt.Sprintf("[%d bytes]", len(b))
		}
	}
	return redactedValue
}

// IsContentKey reports whether an attribute name carries stored content.
func IsContentKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, k := range contentKeys {
		if keyLower == k {
			return true
		}
	}
	return false
}

// IsSensitiveKey checks if a key name suggests a credential.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}
