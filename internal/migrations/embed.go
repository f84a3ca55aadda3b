// Package migrations embeds the goose SQL migrations that define the
// identity schema and its stored-procedure API.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
