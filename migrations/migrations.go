// Package migrations embeds the SQL schema applied by store.Migrate and cmd/migrate.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
