// Package storage builds adapters for the storage manager.
//
// A Factory maps an adapter kind onto one of the backends:
//
//   - memory: sharded in-process map (memory)
//   - localStorage: SQLite-backed web storage area in DataDir/local.db (webstore)
//   - sessionStorage: process-lifetime web storage area (webstore)
//   - indexedDB: one Badger database per namespace in DataDir/indexeddb (indexeddb)
//   - cache: HTTP response files in DataDir/caches (cachestore)
//
// The factory owns the areas shared by several adapters and releases them
// on Close.
package storage
