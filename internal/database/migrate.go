package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrations returns the embedded goose migration sources
func Migrations() (fs.FS, error) {
	return fs.Sub(migrationFiles, "migrations")
}

// Migrate applies every embedded migration newer than the recorded schema
// version and returns the names of the ones it ran.
func (db *DB) Migrate(ctx context.Context) ([]string, error) {
	fsys, err := Migrations()
	if err != nil {
		return nil, fmt.Errorf("failed to open migrations: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, db.DB, fsys)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	applied := make([]string, 0, len(results))
	for _, r := range results {
		if r.Error != nil || r.Source == nil {
			continue
		}
		name := path.Base(r.Source.Path)
		applied = append(applied, strings.TrimSuffix(name, path.Ext(name)))
	}
	if err != nil {
		return applied, fmt.Errorf("failed to apply migrations: %w", err)
	}
	return applied, nil
}
