package database

import (
	"context"
	"embed"
	"io/fs"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	goosedb "github.com/pressly/goose/v3/database"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// NewMigrationProvider returns the goose provider of the versioned data migrations.
// They run after AutoMigrate, so they can rely on the declared schema.
func NewMigrationProvider(db *sqlx.DB) (*goose.Provider, error) {
	var dialect goosedb.Dialect
	switch db.DriverName() {
	case "sqlite3":
		dialect = goosedb.DialectSQLite3
	case "postgres":
		dialect = goosedb.DialectPostgres
	default:
		return nil, errors.Errorf("unsupported database engine %q", db.DriverName())
	}

	fsys, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return nil, errors.Wrap(err, "opening migrations")
	}
	provider, err := goose.NewProvider(dialect, db.DB, fsys)
	return provider, errors.Wrap(err, "creating migration provider")
}

func RunDataMigrations(ctx context.Context, db *sqlx.DB) ([]*goose.MigrationResult, error) {
	provider, err := NewMigrationProvider(db)
	if err != nil {
		return nil, err
	}
	return provider.Up(ctx)
}
