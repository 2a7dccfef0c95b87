// Package migrations embeds the SQL schema of the SQLite memory backend.
package migrations

import "embed"

// FS holds the numbered up/down migrations applied by database.ApplyMigrations.
//
//go:embed *.sql
var FS embed.FS
