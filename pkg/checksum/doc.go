// Package checksum computes integrity checksums for stored envelopes.
//
// SHA-256 is the default. A 32-bit murmur3 hash is available as a fast
// fallback for hosts where a cryptographic digest is not wanted.
package checksum
