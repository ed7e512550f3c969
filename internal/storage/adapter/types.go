package adapter

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind tags a concrete backend. It is fixed by the factory at construction.
type Kind string

// Supported backend kinds.
const (
	KindMemory         Kind = "memory"
	KindLocalStorage   Kind = "localStorage"
	KindSessionStorage Kind = "sessionStorage"
	KindIndexedDB      Kind = "indexedDB"
	KindCache          Kind = "cache"
)

// Kinds lists every supported kind in preference order.
var Kinds = []Kind{KindIndexedDB, KindLocalStorage, KindSessionStorage, KindCache, KindMemory}

// ParseKind converts a config tag to a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Checksum algorithms accepted by Config.ChecksumAlgorithm.
const (
	ChecksumSHA256  = "sha256"
	ChecksumMurmur3 = "murmur3"
)

// Config configures one adapter. It is immutable after construction.
type Config struct {
	// Type selects the backend.
	Type Kind

	// Name is the namespace; backend keys are derived as "<Name>:<key>".
	Name string

	// Version is the schema version (used by the indexedDB backend).
	Version int

	// TTL is the default time-to-live applied when Set gets none. Zero disables expiry.
	TTL time.Duration

	// MaxSize is the capacity in bytes used for stats and, where the backend
	// supports it, quota enforcement. Zero means unbounded.
	MaxSize int64

	// Compression and Encryption are flags recorded on the envelope. Either
	// one enables checksums.
	Compression bool
	Encryption  bool

	// ChecksumAlgorithm is ChecksumSHA256 (default) or ChecksumMurmur3.
	ChecksumAlgorithm string
}

// withDefaults fills unset fields.
func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = "stowage"
	}
	if c.Version <= 0 {
		c.Version = 1
	}
	if c.ChecksumAlgorithm == "" {
		c.ChecksumAlgorithm = ChecksumSHA256
	}
	return c
}

// DerivedKey returns the backend key for key within namespace.
func DerivedKey(namespace, key string) string {
	return namespace + ":" + key
}

// Result is the uniform return of reading and mutating calls.
type Result[T any] struct {
	Success   bool
	Data      T
	Err       error
	FromCache bool
}

// Outcome is a Result without payload.
type Outcome = Result[struct{}]

func ok[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: data}
}

func fail[T any](err error) Result[T] {
	return Result[T]{Err: err}
}

// Stats describes an adapter at the time of the call.
type Stats struct {
	Type           Kind    `json:"type" yaml:"type"`
	Size           int64   `json:"size" yaml:"size"`
	ItemCount      int     `json:"item_count" yaml:"item_count"`
	Available      bool    `json:"available" yaml:"available"`
	MaxSize        int64   `json:"max_size,omitempty" yaml:"max_size,omitempty"`
	UsedPercentage float64 `json:"used_percentage,omitempty" yaml:"used_percentage,omitempty"`
}

// EventType enumerates adapter events.
type EventType string

// Adapter event types.
const (
	EventInitialized   EventType = "initialized"
	EventSet           EventType = "set"
	EventDelete        EventType = "delete"
	EventClear         EventType = "clear"
	EventError         EventType = "error"
	EventQuotaExceeded EventType = "quota-exceeded"
)

// Event is emitted by an adapter after a state change or failure.
type Event struct {
	Type      EventType
	Adapter   Kind
	Timestamp time.Time
	Key       string
	Value     json.RawMessage
	Err       error
}

// Listener receives adapter events.
type Listener func(Event)

// ListenerID identifies a subscription for OffEvent.
type ListenerID uint64

// Decode unmarshals stored JSON into T.
func Decode[T any](raw json.RawMessage) (T, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("adapter: decode: %w", err)
	}
	return v, nil
}
