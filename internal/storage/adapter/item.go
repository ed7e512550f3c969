package adapter

import (
	"encoding/json"
	"time"
)

// ItemVersion is the envelope version written by Set.
const ItemVersion = 1

// Item is the envelope persisted for every stored value.
type Item struct {
	Value      json.RawMessage `json:"value"`
	Timestamp  int64           `json:"timestamp"`
	TTL        *int64          `json:"ttl,omitempty"`
	Version    int             `json:"version"`
	Compressed bool            `json:"compressed"`
	Encrypted  bool            `json:"encrypted"`
	Checksum   string          `json:"checksum,omitempty"`
}

// NewItem wraps an already serialized value. A ttl <= 0 means no expiry.
func NewItem(value json.RawMessage, ttl time.Duration, now time.Time) *Item {
	item := &Item{
		Value:     value,
		Timestamp: now.UnixMilli(),
		Version:   ItemVersion,
	}
	if ttl > 0 {
		ms := ttl.Milliseconds()
		item.TTL = &ms
	}
	return item
}

// Live reports whether the item is still readable at now.
func (i *Item) Live(now time.Time) bool {
	if i.TTL == nil {
		return true
	}
	return now.UnixMilli() <= i.Timestamp+*i.TTL
}

// ExpiresAt returns the expiry time, or the zero time when the item never expires.
func (i *Item) ExpiresAt() time.Time {
	if i.TTL == nil {
		return time.Time{}
	}
	return time.UnixMilli(i.Timestamp + *i.TTL)
}

// TTLDuration returns the configured TTL, zero when absent.
func (i *Item) TTLDuration() time.Duration {
	if i.TTL == nil {
		return 0
	}
	return time.Duration(*i.TTL) * time.Millisecond
}

// Marshal serializes the envelope.
func (i *Item) Marshal() ([]byte, error) {
	return json.Marshal(i)
}

// UnmarshalItem parses a serialized envelope. Malformed input returns an error
// that callers treat as "not found".
func UnmarshalItem(data []byte) (*Item, error) {
	var item Item
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// UTF16Size returns the number of bytes s occupies as UTF-16, the unit web
// storage quotas are measured in.
func UTF16Size(s string) int64 {
	var units int64
	for _, r := range s {
		if r >= 0x10000 {
			units += 2
		} else {
			units++
		}
	}
	return units * 2
}

// Clone returns a deep copy of the envelope.
func (i *Item) Clone() *Item {
	c := *i
	c.Value = append(json.RawMessage(nil), i.Value...)
	if i.TTL != nil {
		ttl := *i.TTL
		c.TTL = &ttl
	}
	return &c
}
