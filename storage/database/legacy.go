package database

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/quickreceipt/core"
)

// AdoptLegacyRows hands the rows created before multi-tenancy (user_id NULL) to the oldest superadmin,
// and numbers the adopted receipts after the ones the superadmin already holds.
// It does nothing until a superadmin exists, so it is run after every migration and superadmin creation.
// Returns the number of adopted rows.
func AdoptLegacyRows(ctx context.Context, db *sqlx.DB) (int64, error) {
	d, err := DialectFor(db.DriverName())
	if err != nil {
		return 0, err
	}

	var adopted int64
	err = core.RunInTx(ctx, db, func(tx core.DBExecutor) error {
		var owner string
		q := tx.Rebind("SELECT id FROM users WHERE role = ? ORDER BY created_at, id LIMIT 1")
		if err := sqlx.GetContext(ctx, tx, &owner, q, "superadmin"); err != nil {
			if errors.Cause(err) == sql.ErrNoRows {
				return nil
			}
			return errors.Wrap(err, "getting legacy owner")
		}

		for _, table := range []string{"companies", "clients", "receipts"} {
			res, err := tx.ExecContext(ctx, tx.Rebind("UPDATE "+table+" SET user_id = ? WHERE user_id IS NULL"), owner)
			if err != nil {
				return errors.Wrapf(err, "adopting legacy %s", table)
			}
			n, _ := res.RowsAffected()
			adopted += n
		}

		n, err := adoptLegacySettings(ctx, tx, d, owner)
		if err != nil {
			return err
		}
		adopted += n

		return numberLegacyReceipts(ctx, tx, owner)
	})
	if err != nil {
		return 0, err
	}
	return adopted, nil
}

// adoptLegacySettings gives the single-tenant settings row (keyed by an integer id) to owner,
// unless owner already has settings.
func adoptLegacySettings(ctx context.Context, tx core.DBExecutor, d Dialect, owner string) (int64, error) {
	cols, err := d.TableColumns(ctx, tx, "settings")
	if err != nil {
		return 0, err
	}
	if !cols["id"] {
		return 0, nil
	}

	q := tx.Rebind(`UPDATE settings SET user_id = ?, updated_at = COALESCE(updated_at, CURRENT_TIMESTAMP)
		WHERE id = (SELECT MIN(id) FROM settings WHERE user_id IS NULL)
		AND NOT EXISTS (SELECT 1 FROM settings WHERE user_id = ?)`)
	res, err := tx.ExecContext(ctx, q, owner, owner)
	if err != nil {
		return 0, errors.Wrap(err, "adopting legacy settings")
	}
	return res.RowsAffected()
}

// numberLegacyReceipts gives the owner's unnumbered receipts a sequence in creation order.
func numberLegacyReceipts(ctx context.Context, tx core.DBExecutor, owner string) error {
	var ids []string
	q := tx.Rebind("SELECT id FROM receipts WHERE user_id = ? AND sequence = 0 ORDER BY created_at, id")
	if err := sqlx.SelectContext(ctx, tx, &ids, q, owner); err != nil {
		return errors.Wrap(err, "listing legacy receipts")
	}
	if len(ids) == 0 {
		return nil
	}

	var last int
	q = tx.Rebind("SELECT COALESCE(MAX(sequence), 0) FROM receipts WHERE user_id = ?")
	if err := sqlx.GetContext(ctx, tx, &last, q, owner); err != nil {
		return errors.Wrap(err, "getting last sequence")
	}
	for i, id := range ids {
		if _, err := tx.ExecContext(ctx, tx.Rebind("UPDATE receipts SET sequence = ? WHERE id = ?"), last+i+1, id); err != nil {
			return errors.Wrap(err, "numbering legacy receipt")
		}
	}
	return nil
}
