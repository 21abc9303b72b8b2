// Package sqlxrepos implements the domain repositories with sqlx, for both sqlite3 and postgres.
// Queries use `?` placeholders, rebound for the driver in use.
package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/trezcool/quickreceipt/core"
)

type baseRepository struct {
	db core.DB
}

func (repo baseRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.db
}

func get(ctx context.Context, exec core.DBExecutor, dest interface{}, query string, args ...interface{}) error {
	return sqlx.GetContext(ctx, exec, dest, exec.Rebind(query), args...)
}

func selectAll(ctx context.Context, exec core.DBExecutor, dest interface{}, query string, args ...interface{}) error {
	return sqlx.SelectContext(ctx, exec, dest, exec.Rebind(query), args...)
}

func execQuery(ctx context.Context, exec core.DBExecutor, query string, args ...interface{}) (sql.Result, error) {
	return exec.ExecContext(ctx, exec.Rebind(query), args...)
}

func namedExec(ctx context.Context, exec core.DBExecutor, query string, arg interface{}) error {
	_, err := sqlx.NamedExecContext(ctx, exec, query, arg)
	return err
}

// trapNoRowsErr maps the "no rows" err to notFound
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// checkAffected returns notFound when res did not affect any row.
func checkAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "reading affected rows")
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// isUniqueViolation reports whether err breaks a UNIQUE constraint; primary key clashes are not reported.
func isUniqueViolation(err error) bool {
	switch e := errors.Cause(err).(type) {
	case sqlite3.Error:
		return e.ExtendedCode == sqlite3.ErrConstraintUnique
	case *pq.Error:
		return e.Code == "23505" && !strings.HasSuffix(e.Constraint, "_pkey")
	}
	return false
}

func likePattern(search string) string {
	return "%" + strings.ToLower(search) + "%"
}
