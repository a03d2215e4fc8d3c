// Package migrations embeds the secret store schema migration files.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
