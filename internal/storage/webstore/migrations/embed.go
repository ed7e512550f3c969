package migrations

import "embed"

// FS contains the embedded SQLite migrations for the localStorage area.
//
//go:embed *.sql
var FS embed.FS
