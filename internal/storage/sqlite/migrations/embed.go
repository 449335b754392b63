// Package migrations embeds the SQLite schema for the local solution store.
package migrations

import "embed"

// FS contains the embedded SQLite migrations.
//
//go:embed *.sql
var FS embed.FS
