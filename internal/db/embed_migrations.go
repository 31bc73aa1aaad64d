package db

import "embed"

// MigrationFS holds the tenant and audit schema, applied by internal/db/migrate.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
