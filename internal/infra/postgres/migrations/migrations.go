// Package migrations holds the schema, applied in file-name order by the
// bun migrator.
package migrations

import "github.com/uptrace/bun/migrate"

var Migrations = migrate.NewMigrations()
