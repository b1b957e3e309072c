// migrations/embed.go
package migrations

import "embed"

// FS holds the goose SQL migrations so cmd/migrate works from any directory.
//
//go:embed *.sql
var FS embed.FS
