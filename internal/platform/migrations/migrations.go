// Package migrations owns the database schema. Migration files are embedded
// so a deployed binary can bring a database up to date without shipping SQL
// alongside it.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed *.sql
var files embed.FS

// Up applies all pending migrations through golang-migrate, recording the
// schema version in the usual schema_migrations table.
func Up(db *sql.DB) error {
	source, err := iofs.New(files, ".")
	if err != nil {
		return fmt.Errorf("load migration source: %w", err)
	}

	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("init migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("init migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Apply executes every up migration directly, without version bookkeeping.
// It exists for tests and for stores that are recreated from scratch.
func Apply(ctx context.Context, db *sql.DB) error {
	for _, stmt := range Statements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration statement: %w", err)
		}
	}
	return nil
}

// Statements returns the up-migration statements in application order.
func Statements() []string {
	names, err := fs.Glob(files, "*.up.sql")
	if err != nil {
		return nil
	}
	sort.Strings(names)

	var statements []string
	for _, name := range names {
		data, err := files.ReadFile(name)
		if err != nil {
			continue
		}
		for _, stmt := range strings.Split(string(data), ";") {
			if trimmed := strings.TrimSpace(stmt); trimmed != "" {
				statements = append(statements, trimmed)
			}
		}
	}
	return statements
}
