package migrations

import "embed"

// FS holds the goose SQL migrations of the quote store.
//
//go:embed *.sql
var FS embed.FS
