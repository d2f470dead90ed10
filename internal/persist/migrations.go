package persist

import "embed"

// Schema lives next to the code that depends on it. DB.Migrate applies
// these through goose at boot when auto_migrate is on.
//
//go:embed migrations/*.sql
var migrationFS embed.FS
