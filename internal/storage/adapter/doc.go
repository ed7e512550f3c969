// Package adapter defines the storage adapter contract shared by every
// stowage backend, and the Base policy layer that sits on top of the
// backend primitives.
//
// Every stored value is wrapped in an Item envelope carrying a write
// timestamp, an optional TTL, a version and an optional checksum.
// Expiry is lazy: an expired item is deleted when a read discovers it,
// never by a background sweep.
//
// Layering:
//
//   - Backend: nine primitives implemented per store (memory, web storage
//     areas, Badger, on-disk HTTP cache)
//   - BatchBackend: optional native multi-key operations
//   - Base: TTL enforcement, checksums, error classification, events and
//     the default batch fan-out
//
// Failure policy:
//
// Read probes (Has, Keys, Size, Available) fail soft and return zero
// values. Get, Set, Delete and Clear report failure through Result and
// an "error" or "quota-exceeded" event. Calling any operation before
// Init returns ErrNotInitialized without touching the backend.
//
// Concurrency:
//
// Base is safe for concurrent use. There is no per-key locking: two
// concurrent Set calls for the same key race and the last write wins.
package adapter
