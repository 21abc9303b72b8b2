package sqlxrepos

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/quickreceipt/core"
	"github.com/trezcool/quickreceipt/core/receipt"
)

const receiptColumns = "id, user_id, receipt_number, sequence, client_id, company_id, description, amount, payment_method, created_at"

type receiptRepository struct {
	baseRepository
}

var _ receipt.Repository = (*receiptRepository)(nil) // interface compliance check

func NewReceiptRepository(db core.DB) *receiptRepository {
	return &receiptRepository{baseRepository{db: db}}
}

// NextSequence bumps the user's receipt counter and returns it.
// The counter never goes below the user's highest stored sequence, so numbers freed by deletions are not reissued.
func (repo receiptRepository) NextSequence(ctx context.Context, userID string, exec ...core.DBExecutor) (int, error) {
	ex := repo.getExec(exec)
	q := "INSERT INTO receipt_counters (user_id, last_sequence) VALUES (?, 0) ON CONFLICT (user_id) DO NOTHING"
	if _, err := execQuery(ctx, ex, q, userID); err != nil {
		return 0, errors.Wrap(err, "creating receipt counter")
	}

	q = `UPDATE receipt_counters SET last_sequence = 1 + (
		SELECT CASE WHEN COALESCE(MAX(r.sequence), 0) > receipt_counters.last_sequence
			THEN COALESCE(MAX(r.sequence), 0) ELSE receipt_counters.last_sequence END
		FROM receipts r WHERE r.user_id = receipt_counters.user_id
	) WHERE user_id = ?`
	if _, err := execQuery(ctx, ex, q, userID); err != nil {
		return 0, errors.Wrap(err, "bumping receipt counter")
	}

	var seq int
	if err := get(ctx, ex, &seq, "SELECT last_sequence FROM receipt_counters WHERE user_id = ?", userID); err != nil {
		return 0, errors.Wrap(err, "reading receipt counter")
	}
	return seq, nil
}

func (repo receiptRepository) CreateReceipt(ctx context.Context, r receipt.Receipt, exec ...core.DBExecutor) (receipt.Receipt, error) {
	q := "INSERT INTO receipts (" + receiptColumns + ") VALUES " +
		"(:id, :user_id, :receipt_number, :sequence, :client_id, :company_id, :description, :amount, :payment_method, :created_at)"
	if err := namedExec(ctx, repo.getExec(exec), q, r); err != nil {
		if isUniqueViolation(err) {
			return receipt.Receipt{}, receipt.ErrDuplicateNumber
		}
		return receipt.Receipt{}, errors.Wrap(err, "inserting receipt")
	}
	return r, nil
}

func (repo receiptRepository) QueryReceipts(ctx context.Context, userID string, filter receipt.QueryFilter) ([]receipt.Receipt, error) {
	conds := []string{"user_id = ?"}
	args := []interface{}{userID}
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		conds = append(conds, "(LOWER(receipt_number) LIKE ? OR LOWER(description) LIKE ? OR "+
			"client_id IN (SELECT id FROM clients WHERE user_id = ? AND LOWER(name) LIKE ?))")
		args = append(args, pattern, pattern, userID, pattern)
	}
	if filter.ClientID != "" {
		conds = append(conds, "client_id = ?")
		args = append(args, filter.ClientID)
	}
	if filter.CompanyID != "" {
		conds = append(conds, "company_id = ?")
		args = append(args, filter.CompanyID)
	}
	if filter.PaymentMethod != "" {
		conds = append(conds, "payment_method = ?")
		args = append(args, filter.PaymentMethod)
	}
	if !filter.CreatedFrom.IsZero() {
		conds = append(conds, "created_at >= ?")
		args = append(args, filter.CreatedFrom.UTC())
	}
	if !filter.CreatedTo.IsZero() {
		conds = append(conds, "created_at <= ?")
		args = append(args, filter.CreatedTo.UTC())
	}

	q := "SELECT " + receiptColumns + " FROM receipts WHERE " + strings.Join(conds, " AND ") +
		" ORDER BY created_at DESC, sequence DESC"
	if filter.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	receipts := make([]receipt.Receipt, 0)
	if err := selectAll(ctx, repo.db, &receipts, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying receipts")
	}
	return receipts, nil
}

func (repo receiptRepository) GetReceipt(ctx context.Context, userID, id string) (receipt.Receipt, error) {
	var r receipt.Receipt
	q := "SELECT " + receiptColumns + " FROM receipts WHERE id = ? AND user_id = ?"
	if err := get(ctx, repo.db, &r, q, id, userID); err != nil {
		return receipt.Receipt{}, trapNoRowsErr(err, receipt.ErrNotFound, "finding receipt")
	}
	return r, nil
}

func (repo receiptRepository) DeleteReceipt(ctx context.Context, userID, id string) error {
	res, err := execQuery(ctx, repo.db, "DELETE FROM receipts WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return errors.Wrap(err, "deleting receipt")
	}
	return checkAffected(res, receipt.ErrNotFound)
}

func (repo receiptRepository) CountReceipts(ctx context.Context, userID string) (int, error) {
	var count int
	err := get(ctx, repo.db, &count, "SELECT COUNT(*) FROM receipts WHERE user_id = ?", userID)
	return count, errors.Wrap(err, "counting receipts")
}

func (repo receiptRepository) TotalAmount(ctx context.Context, userID string) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := get(ctx, repo.db, &total, "SELECT COALESCE(SUM(amount), 0) FROM receipts WHERE user_id = ?", userID)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "summing receipts")
	}
	return total.Round(2), nil
}
