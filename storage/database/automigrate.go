package database

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/quickreceipt/core"
)

// AutoMigrate brings the live database up to the declared schema and returns the executed statements:
//  1. manual migrations run for the (table, column) pairs they handle, when the table exists but lacks the column;
//  2. missing tables are created;
//  3. every declared column missing from an existing table, and not handled by (1), is added along with its default;
//  4. UNIQUE constraints matching no declared unique index are dropped (sqlite3 rebuilds the table to do so);
//  5. missing indexes are created.
// Existing columns are never altered. A rebuilt table only keeps its declared columns.
func AutoMigrate(ctx context.Context, db core.DBExecutor, d Dialect, schema Schema, manual []ManualMigration) ([]string, error) {
	var executed []string
	exec := func(stmt string) error {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "executing %q", stmt)
		}
		executed = append(executed, stmt)
		return nil
	}

	handled := make(map[string]bool, len(manual))
	for _, m := range manual {
		handled[m.Table+"."+m.Column] = true

		exists, err := d.TableExists(ctx, db, m.Table)
		if err != nil {
			return executed, err
		}
		if !exists {
			continue
		}
		cols, err := d.TableColumns(ctx, db, m.Table)
		if err != nil {
			return executed, err
		}
		if cols[m.Column] {
			continue
		}
		for _, stmt := range m.SQL(d) {
			if err = exec(stmt); err != nil {
				return executed, err
			}
		}
	}

	for _, table := range schema {
		exists, err := d.TableExists(ctx, db, table.Name)
		if err != nil {
			return executed, err
		}
		if !exists {
			if err = exec(CreateTableSQL(d, table)); err != nil {
				return executed, err
			}
			continue
		}

		cols, err := d.TableColumns(ctx, db, table.Name)
		if err != nil {
			return executed, err
		}
		for _, col := range table.Columns {
			if cols[col.Name] || handled[table.Name+"."+col.Name] {
				continue
			}
			if err = exec(AddColumnSQL(d, table.Name, col)); err != nil {
				return executed, err
			}
		}
	}

	for _, table := range schema {
		constraints, err := d.UniqueConstraints(ctx, db, table.Name)
		if err != nil {
			return executed, err
		}
		var stale []string
		for _, name := range sortedKeys(constraints) {
			if !table.declaresUnique(constraints[name]) {
				stale = append(stale, name)
			}
		}
		if len(stale) == 0 {
			continue
		}
		for _, stmt := range d.DropUniqueSQL(table, stale) {
			if err = exec(stmt); err != nil {
				return executed, err
			}
		}
	}

	for _, table := range schema {
		for _, idx := range table.Indexes {
			exists, err := d.IndexExists(ctx, db, idx.Name)
			if err != nil {
				return executed, err
			}
			if exists {
				continue
			}
			if err = exec(CreateIndexSQL(table.Name, idx)); err != nil {
				return executed, err
			}
		}
	}
	return executed, nil
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func columnDefinition(d Dialect, col Column, inCreate bool) string {
	var b strings.Builder
	b.WriteString(col.Name + " " + d.ColumnType(col))
	if col.PrimaryKey && inCreate {
		b.WriteString(" PRIMARY KEY")
	}
	// NOT NULL can only be added along with a default, so that existing rows get a value
	if col.NotNull && (inCreate || col.Default != nil) {
		b.WriteString(" NOT NULL")
	}
	if col.Default != nil {
		b.WriteString(" DEFAULT " + d.Literal(col.Default))
	}
	if col.References != "" {
		b.WriteString(" REFERENCES " + col.References)
	}
	return b.String()
}

func CreateTableSQL(d Dialect, table Table) string {
	defs := make([]string, 0, len(table.Columns))
	for _, col := range table.Columns {
		defs = append(defs, columnDefinition(d, col, true))
	}
	return "CREATE TABLE IF NOT EXISTS " + table.Name + " (" + strings.Join(defs, ", ") + ")"
}

func AddColumnSQL(d Dialect, table string, col Column) string {
	return "ALTER TABLE " + table + " ADD COLUMN " + columnDefinition(d, col, false)
}

func CreateIndexSQL(table string, idx Index) string {
	unique := ""
	if idx.Unique {
		unique = "UNIQUE "
	}
	return "CREATE " + unique + "INDEX IF NOT EXISTS " + idx.Name + " ON " + table + " (" + strings.Join(idx.Columns, ", ") + ")"
}

// RebuildTableSQL recreates table under its declared definition, copying the declared columns over.
// NULLs are replaced by the column default where the declared column is NOT NULL.
func RebuildTableSQL(d Dialect, table Table) []string {
	tmp := table.Name + "_rebuild"
	cols := make([]string, 0, len(table.Columns))
	exprs := make([]string, 0, len(table.Columns))
	for _, col := range table.Columns {
		cols = append(cols, col.Name)
		if col.NotNull && col.Default != nil {
			exprs = append(exprs, "COALESCE("+col.Name+", "+d.Literal(col.Default)+")")
		} else {
			exprs = append(exprs, col.Name)
		}
	}
	return []string{
		CreateTableSQL(d, Table{Name: tmp, Columns: table.Columns}),
		"INSERT INTO " + tmp + " (" + strings.Join(cols, ", ") + ") SELECT " + strings.Join(exprs, ", ") + " FROM " + table.Name,
		"DROP TABLE " + table.Name,
		"ALTER TABLE " + tmp + " RENAME TO " + table.Name,
	}
}
