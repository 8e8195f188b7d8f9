// Package factory selects an ImageRepository implementation by driver name.
package factory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sakif/visions/internal/repository"
	"github.com/sakif/visions/internal/repository/postgres"
	"github.com/sakif/visions/internal/repository/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// New opens the store named by driver. The returned repository has already
// created its schema.
func New(ctx context.Context, driver, dsn string) (repository.ImageRepository, error) {
	switch driver {
	case DriverSQLite:
		if err := ensureDir(dsn); err != nil {
			return nil, err
		}
		db, err := sqlite.New(dsn)
		if err != nil {
			return nil, err
		}
		return db, nil
	case DriverPostgres:
		db, err := postgres.New(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported store driver: %q", driver)
	}
}

// ensureDir creates the parent directory of a file-backed SQLite database.
func ensureDir(dsn string) error {
	if dsn == ":memory:" || dsn == "" {
		return nil
	}
	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating database directory %s: %w", dir, err)
	}
	return nil
}
