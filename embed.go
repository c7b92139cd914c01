package solace

import "embed"

// MigrationsFS embeds the SQL migrations so the binary can apply them on boot.
//
//go:embed migrations/*.sql
var MigrationsFS embed.FS
