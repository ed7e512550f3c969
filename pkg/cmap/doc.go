// Package cmap provides a sharded concurrent map keyed by strings.
//
// Keys are spread over a power-of-two number of shards by maphash, each
// guarded by its own RWMutex, so unrelated keys rarely contend.
//
// Usage:
//
//	m := cmap.New[*adapter.Item]()
//	m.Set("drafts:42", item)
//	item, ok := m.Get("drafts:42")
//
// Iteration (Range, Keys) locks one shard at a time, so it observes a
// consistent view per shard but not across shards.
package cmap
