package database

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/quickreceipt/core"
)

// Dialect renders DDL and introspects a live database.
type Dialect interface {
	Name() string
	ColumnType(c Column) string
	Literal(v interface{}) string
	TableExists(ctx context.Context, db core.DBExecutor, table string) (bool, error)
	TableColumns(ctx context.Context, db core.DBExecutor, table string) (map[string]bool, error)
	IndexExists(ctx context.Context, db core.DBExecutor, index string) (bool, error)
	// UniqueConstraints returns the columns of each UNIQUE table constraint, by constraint name.
	// Primary keys and unique indexes are not included.
	UniqueConstraints(ctx context.Context, db core.DBExecutor, table string) (map[string][]string, error)
	DropUniqueSQL(table Table, constraints []string) []string
}

func DialectFor(engine string) (Dialect, error) {
	switch engine {
	case "sqlite3":
		return sqliteDialect{}, nil
	case "postgres":
		return postgresDialect{}, nil
	default:
		return nil, errors.Errorf("unsupported database engine %q", engine)
	}
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite3" }

func (sqliteDialect) ColumnType(c Column) string {
	switch c.Type {
	case TypeID:
		return "VARCHAR(36)"
	case TypeString:
		return fmt.Sprintf("VARCHAR(%d)", c.Size)
	case TypeInteger:
		return "INTEGER"
	case TypeBoolean:
		return "BOOLEAN"
	case TypeDecimal:
		return "NUMERIC(10,2)"
	case TypeTimestamp:
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

func (sqliteDialect) Literal(v interface{}) string {
	switch val := v.(type) {
	case bool:
		if val {
			return "1"
		}
		return "0"
	case int:
		return strconv.Itoa(val)
	case string:
		return quoteString(val)
	default:
		return quoteString(fmt.Sprint(val))
	}
}

func (sqliteDialect) TableExists(ctx context.Context, db core.DBExecutor, table string) (bool, error) {
	var count int
	row := db.QueryRowxContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table)
	if err := row.Scan(&count); err != nil {
		return false, errors.Wrapf(err, "checking table %s", table)
	}
	return count > 0, nil
}

func (sqliteDialect) TableColumns(ctx context.Context, db core.DBExecutor, table string) (map[string]bool, error) {
	cols := make(map[string]bool)
	// PRAGMA does not accept bound parameters
	err := pragmaRows(ctx, db, "PRAGMA table_info("+quoteString(table)+")", func(info map[string]interface{}) {
		cols[asString(info["name"])] = true
	})
	return cols, errors.Wrapf(err, "reading columns of %s", table)
}

func (sqliteDialect) IndexExists(ctx context.Context, db core.DBExecutor, index string) (bool, error) {
	var count int
	row := db.QueryRowxContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name = ?", index)
	if err := row.Scan(&count); err != nil {
		return false, errors.Wrapf(err, "checking index %s", index)
	}
	return count > 0, nil
}

// sqlite reports the UNIQUE constraints of a table as auto indexes of origin "u".
func (sqliteDialect) UniqueConstraints(ctx context.Context, db core.DBExecutor, table string) (map[string][]string, error) {
	var names []string
	err := pragmaRows(ctx, db, "PRAGMA index_list("+quoteString(table)+")", func(info map[string]interface{}) {
		if asString(info["origin"]) == "u" {
			names = append(names, asString(info["name"]))
		}
	})
	if err != nil {
		return nil, errors.Wrapf(err, "reading constraints of %s", table)
	}

	constraints := make(map[string][]string, len(names))
	for _, name := range names {
		var cols []string
		err = pragmaRows(ctx, db, "PRAGMA index_info("+quoteString(name)+")", func(info map[string]interface{}) {
			cols = append(cols, asString(info["name"]))
		})
		if err != nil {
			return nil, errors.Wrapf(err, "reading constraint %s", name)
		}
		constraints[name] = cols
	}
	return constraints, nil
}

// sqlite cannot drop a constraint in place.
func (d sqliteDialect) DropUniqueSQL(table Table, _ []string) []string {
	return RebuildTableSQL(d, table)
}

func pragmaRows(ctx context.Context, db core.DBExecutor, pragma string, fn func(map[string]interface{})) error {
	rows, err := db.QueryxContext(ctx, pragma)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		info := make(map[string]interface{})
		if err = rows.MapScan(info); err != nil {
			return err
		}
		fn(info)
	}
	return rows.Err()
}

func asString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	case nil:
		return ""
	default:
		return fmt.Sprint(val)
	}
}

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }

func (postgresDialect) ColumnType(c Column) string {
	switch c.Type {
	case TypeID:
		return "VARCHAR(36)"
	case TypeString:
		return fmt.Sprintf("VARCHAR(%d)", c.Size)
	case TypeInteger:
		return "INTEGER"
	case TypeBoolean:
		return "BOOLEAN"
	case TypeDecimal:
		return "NUMERIC(10,2)"
	case TypeTimestamp:
		return "TIMESTAMPTZ"
	default:
		return "TEXT"
	}
}

func (postgresDialect) Literal(v interface{}) string {
	switch val := v.(type) {
	case bool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	case int:
		return strconv.Itoa(val)
	case string:
		return quoteString(val)
	default:
		return quoteString(fmt.Sprint(val))
	}
}

func (postgresDialect) TableExists(ctx context.Context, db core.DBExecutor, table string) (bool, error) {
	var exists bool
	q := "SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1)"
	if err := db.QueryRowxContext(ctx, q, table).Scan(&exists); err != nil {
		return false, errors.Wrapf(err, "checking table %s", table)
	}
	return exists, nil
}

func (postgresDialect) TableColumns(ctx context.Context, db core.DBExecutor, table string) (map[string]bool, error) {
	q := "SELECT column_name FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = $1"
	rows, err := db.QueryxContext(ctx, q, table)
	if err != nil {
		return nil, errors.Wrapf(err, "reading columns of %s", table)
	}
	defer func() { _ = rows.Close() }()

	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err = rows.Scan(&name); err != nil {
			return nil, errors.Wrapf(err, "reading columns of %s", table)
		}
		cols[name] = true
	}
	return cols, errors.Wrapf(rows.Err(), "reading columns of %s", table)
}

func (postgresDialect) IndexExists(ctx context.Context, db core.DBExecutor, index string) (bool, error) {
	var exists bool
	q := "SELECT EXISTS (SELECT 1 FROM pg_indexes WHERE schemaname = current_schema() AND indexname = $1)"
	if err := db.QueryRowxContext(ctx, q, index).Scan(&exists); err != nil {
		return false, errors.Wrapf(err, "checking index %s", index)
	}
	return exists, nil
}

func (postgresDialect) UniqueConstraints(ctx context.Context, db core.DBExecutor, table string) (map[string][]string, error) {
	q := `SELECT tc.constraint_name, kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON kcu.constraint_name = tc.constraint_name AND kcu.table_schema = tc.table_schema AND kcu.table_name = tc.table_name
		WHERE tc.table_schema = current_schema() AND tc.table_name = $1 AND tc.constraint_type = 'UNIQUE'
		ORDER BY tc.constraint_name, kcu.ordinal_position`
	rows, err := db.QueryxContext(ctx, q, table)
	if err != nil {
		return nil, errors.Wrapf(err, "reading constraints of %s", table)
	}
	defer func() { _ = rows.Close() }()

	constraints := make(map[string][]string)
	for rows.Next() {
		var name, col string
		if err = rows.Scan(&name, &col); err != nil {
			return nil, errors.Wrapf(err, "reading constraints of %s", table)
		}
		constraints[name] = append(constraints[name], col)
	}
	return constraints, errors.Wrapf(rows.Err(), "reading constraints of %s", table)
}

func (postgresDialect) DropUniqueSQL(table Table, constraints []string) []string {
	stmts := make([]string, 0, len(constraints))
	for _, name := range constraints {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %q", table.Name, name))
	}
	return stmts
}
