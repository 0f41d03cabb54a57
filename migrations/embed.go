// Package migrations embeds the SQL schema files applied by db.Migrate.
package migrations

import "embed"

// FS holds the NNN_description.sql files.
//
//go:embed *.sql
var FS embed.FS
