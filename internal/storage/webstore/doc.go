// Package webstore provides the localStorage and sessionStorage backends.
//
// Both backends sit on an Area: a flat string-to-string store shared by
// every namespace that uses it, with a byte quota measured in UTF-16
// units like the browser Web Storage objects.
//
//   - SQLArea: durable area in an SQLite file (localStorage)
//   - MemArea: process-lifetime area (sessionStorage)
//
// The Backend derives "<namespace>:<key>" keys and stores JSON envelopes.
// Clear, Keys and Size scan the entire area and filter by namespace
// prefix, so their cost grows with every namespace in the area.
package webstore
