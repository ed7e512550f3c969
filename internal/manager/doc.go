// Package manager presents one logical key-value store over a primary
// adapter and an ordered chain of fallbacks.
//
// Reads try the primary first and fall through the chain; a hit served by
// a fallback is written back into the primary in the background. Writes fan
// out to every adapter and succeed when at least one accepts them. A
// capacity failure on any adapter evicts the first quarter of its keys.
// At Init, data held by the fallbacks is migrated into the primary.
//
// Concurrent writes to the same key are not serialized: the last write to
// reach an adapter wins.
package manager
