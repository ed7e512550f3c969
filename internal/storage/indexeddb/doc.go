// Package indexeddb provides the indexedDB stowage backend on Badger v3.
//
// Each namespace gets its own database directory. Inside it, keys are laid
// out as a single object store plus one secondary index:
//
//	storage/<namespace>:<key>                    -> {key,item,timestamp,ttl}
//	index/timestamp/<20-digit ms>/<namespace>:<key> -> (empty)
//	meta/version                                  -> schema version
//
// Batch operations run inside one Badger transaction and therefore succeed
// or fail as a whole. Destroy closes the database and deletes its directory.
package indexeddb
