package migrations

import "github.com/uptrace/bun/migrate"

// Migrations is the schema of the result journal. Each migration registers
// itself from a file named {timestamp}_{comment}.go.
var Migrations = migrate.NewMigrations()
