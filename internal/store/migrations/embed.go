// Package migrations embeds the schema DDL applied by the store at open.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
