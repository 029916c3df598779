package gormrepo

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"gorm.io/gorm"
)

// migrationLockID keys the advisory lock that serializes servers migrating
// the same database on startup.
const migrationLockID = 0x68687631

const createMigrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
  version TEXT PRIMARY KEY,
  applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

// ApplyMigrations runs the *.sql files of fsys that schema_migrations has not
// recorded yet, in lexical order, each under its own savepoint. It returns
// the versions it applied.
func ApplyMigrations(ctx context.Context, db *gorm.DB, fsys fs.FS) ([]string, error) {
	names, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)

	var applied []string
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`SELECT pg_advisory_xact_lock(?)`, migrationLockID).Error; err != nil {
			return fmt.Errorf("lock migrations: %w", err)
		}
		if err := tx.Exec(createMigrationsTable).Error; err != nil {
			return fmt.Errorf("create schema_migrations: %w", err)
		}
		var done []string
		if err := tx.Table("schema_migrations").Pluck("version", &done).Error; err != nil {
			return fmt.Errorf("read schema_migrations: %w", err)
		}
		seen := make(map[string]bool, len(done))
		for _, v := range done {
			seen[v] = true
		}

		for _, name := range names {
			version := strings.TrimSuffix(name, ".sql")
			if seen[version] {
				continue
			}
			content, err := fs.ReadFile(fsys, name)
			if err != nil {
				return fmt.Errorf("read migration %s: %w", name, err)
			}
			err = tx.Transaction(func(step *gorm.DB) error {
				if err := step.Exec(string(content)).Error; err != nil {
					return fmt.Errorf("apply migration %s: %w", name, err)
				}
				return step.Exec(`INSERT INTO schema_migrations(version) VALUES (?)`, version).Error
			})
			if err != nil {
				return err
			}
			applied = append(applied, version)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return applied, nil
}
