// Package migrations embeds SQL migration files.
package migrations

import "embed"

// FS contains the Postgres schema migrations, applied in filename order.
//
//go:embed *.sql
var FS embed.FS
