// Package migrations embeds the audit log schema so the binary can migrate
// without a MIGRATION_PATH on disk.
package migrations

import (
	"embed"
	"fmt"
	"log/slog"
	"os"

	"github.com/morezero/fred-gateway/pkg/db"
)

const logPrefix = "migrations:embed"

// FS holds the *.sql migration files.
//
//go:embed *.sql
var FS embed.FS

// Load reads migrations from dir when it exists on disk, otherwise from the
// embedded copy.
func Load(dir string) ([]db.Migration, error) {
	if dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return db.LoadMigrationFiles(dir)
		}
		slog.Info(fmt.Sprintf("%s - %s not found, using embedded migrations", logPrefix, dir))
	}
	return db.LoadMigrationFS(FS, ".")
}
