package receipt

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/quickreceipt/core"
	"github.com/trezcool/quickreceipt/core/client"
	"github.com/trezcool/quickreceipt/core/company"
	"github.com/trezcool/quickreceipt/core/settings"
)

// maxCreateAttempts bounds the retries of a receipt creation that lost a numbering race.
const maxCreateAttempts = 3

var (
	// errors
	ErrNotFound        = errors.New("receipt not found")
	ErrDuplicateNumber = errors.New("receipt number already taken")
)

type (
	// Repository methods are scoped to the owning user: a receipt owned by
	// another user is reported as ErrNotFound.
	Repository interface {
		// NextSequence reserves the user's next sequence. Sequences are never reissued,
		// even after the receipt holding the last one is deleted.
		NextSequence(ctx context.Context, userID string, exec ...core.DBExecutor) (int, error)
		// CreateReceipt returns ErrDuplicateNumber when (user_id, receipt_number) is already taken.
		CreateReceipt(ctx context.Context, r Receipt, exec ...core.DBExecutor) (Receipt, error)
		// QueryReceipts returns the user's receipts, newest first.
		QueryReceipts(ctx context.Context, userID string, filter QueryFilter) ([]Receipt, error)
		GetReceipt(ctx context.Context, userID, id string) (Receipt, error)
		DeleteReceipt(ctx context.Context, userID, id string) error
		CountReceipts(ctx context.Context, userID string) (int, error)
		TotalAmount(ctx context.Context, userID string) (decimal.Decimal, error)
	}

	Service struct {
		db          core.DB
		repo        Repository
		clientRepo  client.Repository
		companyRepo company.Repository
		settingsSvc *settings.Service
		now         func() time.Time
	}
)

func NewService(
	db core.DB,
	repo Repository,
	clientRepo client.Repository,
	companyRepo company.Repository,
	settingsSvc *settings.Service,
) *Service {
	return &Service{
		db:          db,
		repo:        repo,
		clientRepo:  clientRepo,
		companyRepo: companyRepo,
		settingsSvc: settingsSvc,
		now:         func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// Create issues a new receipt numbered after the user's last one.
// The client is created in the same transaction when nr asks for a new one.
// Losing a numbering race to a concurrent creation is retried.
func (svc *Service) Create(ctx context.Context, userID string, nr NewReceipt) (Receipt, error) {
	prefs, err := svc.settingsSvc.Get(ctx, userID)
	if err != nil {
		return Receipt{}, errors.Wrap(err, "getting user settings")
	}
	companyID := nr.CompanyID
	if companyID == "" && prefs.DefaultCompanyID.Valid {
		companyID = prefs.DefaultCompanyID.String
	}

	var created Receipt
	for attempt := 1; attempt <= maxCreateAttempts; attempt++ {
		err = core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
			clientID, err := svc.resolveClient(ctx, tx, userID, nr)
			if err != nil {
				return err
			}
			if companyID != "" {
				if _, err = svc.companyRepo.GetCompany(ctx, userID, companyID, tx); err != nil {
					if errors.Cause(err) == company.ErrNotFound {
						return core.NewFieldError("company_id", company.ErrNotFound.Error())
					}
					return errors.Wrap(err, "getting company")
				}
			}

			seq, err := svc.repo.NextSequence(ctx, userID, tx)
			if err != nil {
				return errors.Wrap(err, "getting next sequence")
			}
			now := svc.now()
			r := Receipt{
				ID:            uuid.NewString(),
				UserID:        userID,
				ReceiptNumber: FormatNumber(prefs.ReceiptPrefix, now, seq),
				Sequence:      seq,
				ClientID:      null.StringFrom(clientID),
				CompanyID:     null.NewString(companyID, companyID != ""),
				Description:   nr.Description,
				Amount:        nr.amount,
				PaymentMethod: nr.PaymentMethod,
				CreatedAt:     now,
			}
			created, err = svc.repo.CreateReceipt(ctx, r, tx)
			return err
		})
		if errors.Cause(err) != ErrDuplicateNumber {
			break
		}
	}
	if err != nil {
		return Receipt{}, err
	}
	return created, nil
}

func (svc *Service) resolveClient(ctx context.Context, tx core.DBExecutor, userID string, nr NewReceipt) (string, error) {
	if nr.IsNewClient() {
		c, err := svc.clientRepo.CreateClient(ctx, client.New(userID, nr.NewClientData()), tx)
		if err != nil {
			return "", errors.Wrap(err, "creating client")
		}
		return c.ID, nil
	}

	c, err := svc.clientRepo.GetClient(ctx, userID, nr.ClientID, tx)
	if err != nil {
		if errors.Cause(err) == client.ErrNotFound {
			return "", core.NewFieldError("client_id", errClientRequired)
		}
		return "", errors.Wrap(err, "getting client")
	}
	return c.ID, nil
}

func (svc *Service) Query(ctx context.Context, userID string, filter QueryFilter) ([]Receipt, error) {
	return svc.repo.QueryReceipts(ctx, userID, filter)
}

// Recent returns the user's `limit` latest receipts.
func (svc *Service) Recent(ctx context.Context, userID string, limit int) ([]Receipt, error) {
	return svc.repo.QueryReceipts(ctx, userID, QueryFilter{Limit: limit})
}

func (svc *Service) Get(ctx context.Context, userID, id string) (Receipt, error) {
	return svc.repo.GetReceipt(ctx, userID, id)
}

func (svc *Service) Delete(ctx context.Context, userID, id string) error {
	return svc.repo.DeleteReceipt(ctx, userID, id)
}

func (svc *Service) Count(ctx context.Context, userID string) (int, error) {
	return svc.repo.CountReceipts(ctx, userID)
}

func (svc *Service) TotalAmount(ctx context.Context, userID string) (decimal.Decimal, error) {
	return svc.repo.TotalAmount(ctx, userID)
}
