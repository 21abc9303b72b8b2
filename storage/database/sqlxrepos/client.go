package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/quickreceipt/core"
	"github.com/trezcool/quickreceipt/core/client"
)

const clientColumns = "id, user_id, name, whatsapp, email, created_at, updated_at"

type clientRepository struct {
	baseRepository
}

var _ client.Repository = (*clientRepository)(nil) // interface compliance check

func NewClientRepository(db core.DB) *clientRepository {
	return &clientRepository{baseRepository{db: db}}
}

func (repo clientRepository) CreateClient(ctx context.Context, c client.Client, exec ...core.DBExecutor) (client.Client, error) {
	q := "INSERT INTO clients (" + clientColumns + ") VALUES " +
		"(:id, :user_id, :name, :whatsapp, :email, :created_at, :updated_at)"
	if err := namedExec(ctx, repo.getExec(exec), q, c); err != nil {
		return client.Client{}, errors.Wrap(err, "inserting client")
	}
	return c, nil
}

func (repo clientRepository) QueryClients(ctx context.Context, userID string, filter client.QueryFilter) ([]client.Client, error) {
	q := "SELECT " + clientColumns + " FROM clients WHERE user_id = ?"
	args := []interface{}{userID}
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		q += " AND (LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR whatsapp LIKE ?)"
		args = append(args, pattern, pattern, pattern)
	}
	q += " ORDER BY name"

	clients := make([]client.Client, 0)
	if err := selectAll(ctx, repo.db, &clients, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying clients")
	}
	return clients, nil
}

func (repo clientRepository) GetClient(ctx context.Context, userID, id string, exec ...core.DBExecutor) (client.Client, error) {
	var c client.Client
	q := "SELECT " + clientColumns + " FROM clients WHERE id = ? AND user_id = ?"
	if err := get(ctx, repo.getExec(exec), &c, q, id, userID); err != nil {
		return client.Client{}, trapNoRowsErr(err, client.ErrNotFound, "finding client")
	}
	return c, nil
}

func (repo clientRepository) UpdateClient(ctx context.Context, c client.Client) (client.Client, error) {
	q := "UPDATE clients SET name = ?, whatsapp = ?, email = ?, updated_at = ? WHERE id = ? AND user_id = ?"
	res, err := execQuery(ctx, repo.db, q, c.Name, c.WhatsApp, c.Email, c.UpdatedAt, c.ID, c.UserID)
	if err != nil {
		return client.Client{}, errors.Wrap(err, "updating client")
	}
	if err = checkAffected(res, client.ErrNotFound); err != nil {
		return client.Client{}, err
	}
	return c, nil
}

func (repo clientRepository) DeleteClient(ctx context.Context, userID, id string) error {
	return core.RunInTx(ctx, repo.db, func(tx core.DBExecutor) error {
		// receipts are detached first, databases may still enforce receipts.client_id references
		if _, err := execQuery(ctx, tx, "UPDATE receipts SET client_id = NULL WHERE client_id = ? AND user_id = ?", id, userID); err != nil {
			return errors.Wrap(err, "detaching receipts")
		}
		res, err := execQuery(ctx, tx, "DELETE FROM clients WHERE id = ? AND user_id = ?", id, userID)
		if err != nil {
			return errors.Wrap(err, "deleting client")
		}
		return checkAffected(res, client.ErrNotFound)
	})
}

func (repo clientRepository) CountClients(ctx context.Context, userID string) (int, error) {
	var count int
	err := get(ctx, repo.db, &count, "SELECT COUNT(*) FROM clients WHERE user_id = ?", userID)
	return count, errors.Wrap(err, "counting clients")
}
