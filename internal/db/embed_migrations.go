package db

import "embed"

// MigrationFS embeds the SQL migrations for users, access_pools and audit_logs.
// Applied by cmd/migrate through internal/db/migrate.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
