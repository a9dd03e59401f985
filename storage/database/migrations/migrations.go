// Package migrations embeds the SQL Server schema migrations run by goose.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

// Dir is the migrations directory within FS.
const Dir = "."
