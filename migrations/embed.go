// Package migrations embeds the SQLite schema for standalone stores.
//
// Importing this package registers the files with the database package,
// so db.Migrate can create numeric_data without SQL files on disk.
package migrations

import (
	"embed"

	"github.com/nerrad567/gray-logic-charts/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
