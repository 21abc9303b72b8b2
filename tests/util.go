package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/quickreceipt/core/client"
	"github.com/trezcool/quickreceipt/core/company"
	"github.com/trezcool/quickreceipt/core/receipt"
	"github.com/trezcool/quickreceipt/core/user"
	"github.com/trezcool/quickreceipt/services/logger"
	"github.com/trezcool/quickreceipt/storage/database"
)

// PrepareDB opens a fresh, migrated sqlite3 database, closed at the end of the test.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(context.Background(), db, logsvc.NewNopLogger()); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	uname, pwd string,
	role string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC().Truncate(time.Microsecond)
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC().Truncate(time.Microsecond)
	}
	usr := user.User{
		Username:  uname,
		Role:      role,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateClient(t *testing.T, repo client.Repository, userID, name, whatsapp, email string) client.Client {
	t.Helper()
	c, err := repo.CreateClient(context.Background(), client.New(userID, client.ClientData{
		Name:     name,
		WhatsApp: whatsapp,
		Email:    email,
	}))
	if err != nil {
		t.Fatalf("CreateClient() failed: %v", err)
	}
	return c
}

func CreateCompany(t *testing.T, svc *company.Service, userID, name string) company.Company {
	t.Helper()
	c, err := svc.Create(context.Background(), userID, company.CompanyData{Name: name})
	if err != nil {
		t.Fatalf("CreateCompany() failed: %v", err)
	}
	return c
}

// CreateReceipt inserts a receipt as is, bypassing the numbering of receipt.Service.
func CreateReceipt(
	t *testing.T,
	repo receipt.Repository,
	userID, number string,
	seq int,
	clientID string,
	amount string,
	createdAt time.Time,
) receipt.Receipt {
	t.Helper()
	r, err := repo.CreateReceipt(context.Background(), receipt.Receipt{
		ID:            userID + "-" + number,
		UserID:        userID,
		ReceiptNumber: number,
		Sequence:      seq,
		ClientID:      null.NewString(clientID, clientID != ""),
		Amount:        decimal.RequireFromString(amount),
		PaymentMethod: receipt.PaymentCash,
		CreatedAt:     createdAt.UTC().Truncate(time.Microsecond),
	})
	if err != nil {
		t.Fatalf("CreateReceipt() failed: %v", err)
	}
	return r
}
