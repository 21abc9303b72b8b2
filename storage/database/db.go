package database

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/trezcool/quickreceipt/core"
)

func sqliteDSN(path string) string {
	q := make(url.Values)
	q.Set("_foreign_keys", "on")
	q.Set("_busy_timeout", "5000")
	q.Set("_journal_mode", "WAL")
	q.Set("_txlock", "immediate") // serializes writers, numbering reads happen under the write lock
	return "file:" + path + "?" + q.Encode()
}

func postgresDSN(dbName string, admin bool, conf *core.Config) string {
	user := url.UserPassword(conf.Database.User, conf.Database.Password)
	if admin && conf.Database.AdminUser != "" {
		user = url.UserPassword(conf.Database.AdminUser, conf.Database.AdminPassword)
	}

	sslMode := "require"
	if conf.Database.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   "postgres",
		User:     user,
		Host:     conf.Database.Address(),
		Path:     dbName,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// Open opens the configured database (sqlite3 or postgres) and waits for it to be ready.
func Open(conf *core.Config) (*sqlx.DB, error) {
	var dsn string
	switch conf.Database.Engine {
	case "sqlite3":
		dsn = sqliteDSN(conf.Database.Name)
	case "postgres":
		dsn = postgresDSN(conf.Database.Name, false, conf)
	default:
		return nil, errors.Errorf("unsupported database engine %q", conf.Database.Engine)
	}

	db, err := sqlx.Open(conf.Database.Engine, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err = ping(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// OpenSQLite opens a sqlite3 database file.
func OpenSQLite(path string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite3", sqliteDSN(path))
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	return db, errors.Wrap(db.Ping(), "pinging database")
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sqlx.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

func createDB(db *sqlx.DB, conf *core.Config) error {
	var exists bool
	if err := db.Get(&exists, "SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", conf.Database.Name); err != nil {
		return errors.Wrap(err, "checking DB")
	}
	if !exists {
		if _, err := db.Exec(fmt.Sprintf("CREATE DATABASE %q", conf.Database.Name)); err != nil {
			return errors.Wrap(err, "creating database")
		}
	}
	return nil
}

// CreateIfNotExist creates the postgres database when missing. sqlite3 files are created on open.
func CreateIfNotExist(conf *core.Config) error {
	if conf.Database.Engine != "postgres" {
		return nil
	}

	db, err := sqlx.Open("postgres", postgresDSN("postgres", true, conf))
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = db.Close() }()

	if err = ping(db); err != nil {
		return errors.Wrap(err, "pinging database")
	}
	return createDB(db, conf)
}

// Migrate runs the schema auto-migration, the versioned data migrations, then adopts the legacy rows.
func Migrate(ctx context.Context, db *sqlx.DB, logger core.Logger) error {
	d, err := DialectFor(db.DriverName())
	if err != nil {
		return err
	}

	stmts, err := AutoMigrate(ctx, db, d, AppSchema, AppManualMigrations)
	if err != nil {
		return errors.Wrap(err, "auto-migrating schema")
	}
	for _, stmt := range stmts {
		logger.Info("schema migration: " + stmt)
	}

	results, err := RunDataMigrations(ctx, db)
	if err != nil {
		return errors.Wrap(err, "running data migrations")
	}
	for _, res := range results {
		logger.Info(fmt.Sprintf("data migration: %s (%s)", res.Source.Path, res.Duration))
	}

	adopted, err := AdoptLegacyRows(ctx, db)
	if err != nil {
		return errors.Wrap(err, "adopting legacy rows")
	}
	if adopted > 0 {
		logger.Info(fmt.Sprintf("%d legacy rows adopted", adopted))
	}
	return nil
}

// DryRunMigrate runs the schema auto-migration inside a transaction which is always rolled back,
// returning the statements Migrate would execute.
func DryRunMigrate(ctx context.Context, db *sqlx.DB) ([]string, error) {
	d, err := DialectFor(db.DriverName())
	if err != nil {
		return nil, err
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	stmts, err := AutoMigrate(ctx, tx, d, AppSchema, AppManualMigrations)
	return stmts, errors.Wrap(err, "auto-migrating schema")
}
