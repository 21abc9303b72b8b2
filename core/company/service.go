package company

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/quickreceipt/core"
)

var ErrNotFound = errors.New("company not found")

type (
	// Repository methods are scoped to the owning user: a company owned by
	// another user is reported as ErrNotFound.
	Repository interface {
		CreateCompany(ctx context.Context, c Company) (Company, error)
		QueryCompanies(ctx context.Context, userID string) ([]Company, error)
		GetCompany(ctx context.Context, userID, id string, exec ...core.DBExecutor) (Company, error)
		UpdateCompany(ctx context.Context, c Company) (Company, error)
		// DeleteCompany also detaches the company from its receipts.
		DeleteCompany(ctx context.Context, userID, id string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, userID string, data CompanyData) (Company, error) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return svc.repo.CreateCompany(ctx, Company{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      data.Name,
		Address:   data.Address,
		TaxID:     data.TaxID,
		Phone:     data.Phone,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// Query returns the user's companies, newest first.
func (svc *Service) Query(ctx context.Context, userID string) ([]Company, error) {
	return svc.repo.QueryCompanies(ctx, userID)
}

func (svc *Service) Get(ctx context.Context, userID, id string) (Company, error) {
	return svc.repo.GetCompany(ctx, userID, id)
}

func (svc *Service) Update(ctx context.Context, c Company, data CompanyData) (Company, error) {
	c.Name = data.Name
	c.Address = data.Address
	c.TaxID = data.TaxID
	c.Phone = data.Phone
	c.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
	return svc.repo.UpdateCompany(ctx, c)
}

// SetLogo stores the URL of the company's uploaded logo.
func (svc *Service) SetLogo(ctx context.Context, c Company, logo string) (Company, error) {
	c.Logo = logo
	c.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
	return svc.repo.UpdateCompany(ctx, c)
}

func (svc *Service) Delete(ctx context.Context, userID, id string) error {
	return svc.repo.DeleteCompany(ctx, userID, id)
}
