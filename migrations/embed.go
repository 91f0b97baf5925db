// Package migrations embeds the goose SQL migrations so the migrate
// command and integration tests can run them without a working directory.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
