package migrate

import (
	"fmt"

	"github.com/pressly/goose/v3"
)

// ValidateDir checks that every migration in dir parses and is correctly
// versioned. Useful as a CI gate before deploys.
func ValidateDir(dir string) error {
	if dir == "" {
		dir = DefaultDir
	}
	migrations, err := goose.CollectMigrations(dir, 0, goose.MaxVersion)
	if err != nil {
		return fmt.Errorf("collecting migrations in %s: %w", dir, err)
	}
	if len(migrations) == 0 {
		return fmt.Errorf("no migrations found in %s", dir)
	}
	seen := make(map[int64]string, len(migrations))
	for _, m := range migrations {
		if prev, ok := seen[m.Version]; ok {
			return fmt.Errorf("duplicate migration version %d: %s and %s", m.Version, prev, m.Source)
		}
		seen[m.Version] = m.Source
	}
	return nil
}
