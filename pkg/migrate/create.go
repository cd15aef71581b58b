package migrate

import (
	"fmt"

	"github.com/pressly/goose/v3"
)

// CreateSQLMigration scaffolds a new timestamped SQL migration file under dir.
func CreateSQLMigration(dir, name string) error {
	if name == "" {
		return fmt.Errorf("migration name is required")
	}
	if dir == "" {
		dir = DefaultDir
	}
	if err := goose.Create(nil, dir, name, "sql"); err != nil {
		return fmt.Errorf("creating migration %q: %w", name, err)
	}
	return nil
}
