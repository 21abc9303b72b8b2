package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/quickreceipt/core"
	"github.com/trezcool/quickreceipt/core/company"
)

const companyColumns = "id, user_id, name, address, tax_id, phone, logo, created_at, updated_at"

type companyRepository struct {
	baseRepository
}

var _ company.Repository = (*companyRepository)(nil) // interface compliance check

func NewCompanyRepository(db core.DB) *companyRepository {
	return &companyRepository{baseRepository{db: db}}
}

func (repo companyRepository) CreateCompany(ctx context.Context, c company.Company) (company.Company, error) {
	q := "INSERT INTO companies (" + companyColumns + ") VALUES " +
		"(:id, :user_id, :name, :address, :tax_id, :phone, :logo, :created_at, :updated_at)"
	if err := namedExec(ctx, repo.db, q, c); err != nil {
		return company.Company{}, errors.Wrap(err, "inserting company")
	}
	return c, nil
}

func (repo companyRepository) QueryCompanies(ctx context.Context, userID string) ([]company.Company, error) {
	companies := make([]company.Company, 0)
	q := "SELECT " + companyColumns + " FROM companies WHERE user_id = ? ORDER BY created_at DESC"
	if err := selectAll(ctx, repo.db, &companies, q, userID); err != nil {
		return nil, errors.Wrap(err, "querying companies")
	}
	return companies, nil
}

func (repo companyRepository) GetCompany(ctx context.Context, userID, id string, exec ...core.DBExecutor) (company.Company, error) {
	var c company.Company
	q := "SELECT " + companyColumns + " FROM companies WHERE id = ? AND user_id = ?"
	if err := get(ctx, repo.getExec(exec), &c, q, id, userID); err != nil {
		return company.Company{}, trapNoRowsErr(err, company.ErrNotFound, "finding company")
	}
	return c, nil
}

func (repo companyRepository) UpdateCompany(ctx context.Context, c company.Company) (company.Company, error) {
	q := "UPDATE companies SET name = ?, address = ?, tax_id = ?, phone = ?, logo = ?, updated_at = ? " +
		"WHERE id = ? AND user_id = ?"
	res, err := execQuery(ctx, repo.db, q, c.Name, c.Address, c.TaxID, c.Phone, c.Logo, c.UpdatedAt, c.ID, c.UserID)
	if err != nil {
		return company.Company{}, errors.Wrap(err, "updating company")
	}
	if err = checkAffected(res, company.ErrNotFound); err != nil {
		return company.Company{}, err
	}
	return c, nil
}

func (repo companyRepository) DeleteCompany(ctx context.Context, userID, id string) error {
	return core.RunInTx(ctx, repo.db, func(tx core.DBExecutor) error {
		if _, err := execQuery(ctx, tx, "UPDATE receipts SET company_id = NULL WHERE company_id = ? AND user_id = ?", id, userID); err != nil {
			return errors.Wrap(err, "detaching receipts")
		}
		if _, err := execQuery(ctx, tx, "UPDATE settings SET default_company_id = NULL WHERE default_company_id = ? AND user_id = ?", id, userID); err != nil {
			return errors.Wrap(err, "clearing default company")
		}
		res, err := execQuery(ctx, tx, "DELETE FROM companies WHERE id = ? AND user_id = ?", id, userID)
		if err != nil {
			return errors.Wrap(err, "deleting company")
		}
		return checkAffected(res, company.ErrNotFound)
	})
}
