package adapter

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors
var (
	ErrNotInitialized = errors.New("adapter not initialized")
	ErrUnknownKind    = errors.New("unknown adapter kind")
	ErrUnavailable    = errors.New("adapter backend unavailable")
)

// QuotaExceededName is the error name reported by capacity failures.
const QuotaExceededName = "QuotaExceededError"

// QuotaExceededError reports a write rejected for capacity.
type QuotaExceededError struct {
	Used  int64
	Limit int64
}

func (e *QuotaExceededError) Error() string {
	if e.Limit > 0 {
		return fmt.Sprintf("%s: quota of %d bytes exceeded (%d requested)", QuotaExceededName, e.Limit, e.Used)
	}
	return QuotaExceededName + ": quota exceeded"
}

// Name mirrors the DOMException name.
func (e *QuotaExceededError) Name() string { return QuotaExceededName }

// namedError is implemented by errors that report a DOMException-style name.
type namedError interface {
	Name() string
}

// IsQuotaExceeded classifies err as a capacity failure. Besides the typed
// error it accepts any error naming QuotaExceededError or whose message
// mentions "quota", "storage" or "exceeded".
func IsQuotaExceeded(err error) bool {
	if err == nil {
		return false
	}
	var qe *QuotaExceededError
	if errors.As(err, &qe) {
		return true
	}
	var named namedError
	if errors.As(err, &named) && named.Name() == QuotaExceededName {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "quota") ||
		strings.Contains(msg, "storage") ||
		strings.Contains(msg, "exceeded")
}
