package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/quickreceipt/core"
	"github.com/trezcool/quickreceipt/core/receipt"
	"github.com/trezcool/quickreceipt/core/settings"
	"github.com/trezcool/quickreceipt/core/user"
	logsvc "github.com/trezcool/quickreceipt/services/logger"
	"github.com/trezcool/quickreceipt/storage/database"
	"github.com/trezcool/quickreceipt/storage/database/sqlxrepos"
	"github.com/trezcool/quickreceipt/tests"
)

func TestMigrate_legacyDatabaseInUse(t *testing.T) {
	ctx := context.Background()
	db := database.SetUpLegacyDB(t)
	today := time.Now().UTC().Format("20060102")

	// a legacy receipt holding the number the next tenant will get today
	_, err := db.ExecContext(ctx, "INSERT INTO receipts (id, receipt_number, client_id, description, amount, payment_method, created_at) "+
		"VALUES ('r3', ?, 'c1', 'Audit', 5, 'cash', '2023-01-03 11:00:00.000000')", "REC-"+today+"-0001")
	require.NoError(t, err)

	require.NoError(t, database.Migrate(ctx, db, logsvc.NewNopLogger()))

	usrRepo := sqlxrepos.NewUserRepository(db)
	clientRepo := sqlxrepos.NewClientRepository(db)
	companyRepo := sqlxrepos.NewCompanyRepository(db)
	settingsRepo := sqlxrepos.NewSettingsRepository(db)
	settingsSvc := settings.NewService(settingsRepo, settings.Options{DefaultCurrency: "MAD", DefaultLocale: "fr"})
	receiptSvc := receipt.NewService(db, sqlxrepos.NewReceiptRepository(db), clientRepo, companyRepo, settingsSvc)

	admin := testutil.CreateUser(t, usrRepo, "admin", "", user.RoleSuperadmin, true)
	bob := testutil.CreateUser(t, usrRepo, "bob", "", user.RoleUser, true)
	adopted, err := database.AdoptLegacyRows(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, int64(6), adopted)

	t.Run("settings", func(t *testing.T) {
		s, err := settingsSvc.Get(ctx, admin.ID)
		require.NoError(t, err)
		assert.Equal(t, 80, s.ThermalWidth)

		_, err = settingsSvc.Save(ctx, s, settings.SettingsData{ThermalWidth: 58, Currency: "EUR", Locale: "en", ReceiptPrefix: "INV"})
		require.NoError(t, err)
		s, err = settingsSvc.Get(ctx, admin.ID)
		require.NoError(t, err)
		assert.Equal(t, "INV", s.ReceiptPrefix)

		bobs, err := settingsSvc.Get(ctx, bob.ID)
		require.NoError(t, err)
		_, err = settingsSvc.Save(ctx, bobs, settings.SettingsData{ThermalWidth: 80, Currency: "MAD", Locale: "fr", ReceiptPrefix: "REC"})
		require.NoError(t, err)
	})

	t.Run("tenants share receipt numbers", func(t *testing.T) {
		validate, _ := core.NewValidator()
		nr := receipt.NewReceipt{ClientID: receipt.NewClientID, NewClientName: "Beta", Amount: "12"}
		require.NoError(t, nr.Validate(validate))

		r, err := receiptSvc.Create(ctx, bob.ID, nr)
		require.NoError(t, err)
		assert.Equal(t, "REC-"+today+"-0001", r.ReceiptNumber)

		// the admin's numbering resumes after the adopted receipts
		acme, err := clientRepo.GetClient(ctx, admin.ID, "c1")
		require.NoError(t, err)
		nr = receipt.NewReceipt{ClientID: acme.ID, Amount: "7"}
		require.NoError(t, nr.Validate(validate))
		r, err = receiptSvc.Create(ctx, admin.ID, nr)
		require.NoError(t, err)
		assert.Equal(t, 4, r.Sequence)
	})

	t.Run("delete client and company", func(t *testing.T) {
		require.NoError(t, clientRepo.DeleteClient(ctx, admin.ID, "c1"))
		require.NoError(t, companyRepo.DeleteCompany(ctx, admin.ID, "co1"))

		rs, err := receiptSvc.Query(ctx, admin.ID, receipt.QueryFilter{})
		require.NoError(t, err)
		require.Len(t, rs, 4)
		for _, r := range rs {
			assert.False(t, r.ClientID.Valid, r.ReceiptNumber)
			assert.False(t, r.CompanyID.Valid, r.ReceiptNumber)
		}
	})
}
