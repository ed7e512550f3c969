// Package memory provides the in-memory stowage backend.
//
// Envelopes live in a sharded concurrent map owned by one adapter
// instance; nothing survives a restart, which makes this backend the
// last-resort fallback of a manager.
//
// Features:
//
//   - Always available
//   - Size accounting in UTF-16 bytes of key plus serialized envelope
//   - Optional quota: with a MaxSize, writes that would exceed it fail
//     with *adapter.QuotaExceededError
//
// Thread Safety:
//
// Reads go straight to the sharded map. Writes serialize on a mutex so
// the byte accounting stays exact.
package memory
