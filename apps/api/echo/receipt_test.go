package echoapi_test

import (
	"bytes"
	"context"
	"image/png"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/quickreceipt/apps/api/echo"
	"github.com/trezcool/quickreceipt/core/receipt"
	"github.com/trezcool/quickreceipt/core/user"
	"github.com/trezcool/quickreceipt/services/email"
	"github.com/trezcool/quickreceipt/services/render"
	"github.com/trezcool/quickreceipt/services/share"
	"github.com/trezcool/quickreceipt/tests"
)

func createReceipt(t *testing.T, app Server, session, body string) receipt.Receipt {
	req, rec := newAuthRequest(http.MethodPost, "/api/receipts", session, []byte(body))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var r receipt.Receipt
	decode(t, rec, &r)
	return r
}

func Test_receiptApi_create(t *testing.T) {
	ta := setup(t)
	alice := ta.createUser(t, "alice", user.RoleUser)
	bob := ta.createUser(t, "bob", user.RoleUser)
	acme := testutil.CreateClient(t, ta.clientRepo, alice.ID, "Acme", "", "")
	bobs := testutil.CreateClient(t, ta.clientRepo, bob.ID, "Bob's", "", "")
	bobsCompany := testutil.CreateCompany(t, ta.companySvc, bob.ID, "Bob SARL")
	session := login(t, ta.app, alice)
	today := time.Now().UTC().Format("20060102")

	runHTTPTests(t, ta.app, []httpTest{
		{
			name:     "no client",
			method:   http.MethodPost,
			path:     "/api/receipts",
			body:     []byte(`{"amount": "10"}`),
			session:  session,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"client_id": "please select or add a client"}`),
		},
		{
			name:     "new client without name",
			method:   http.MethodPost,
			path:     "/api/receipts",
			body:     []byte(`{"client_id": "new", "amount": "10"}`),
			session:  session,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"new_client_name": "please enter the client name"}`),
		},
		{
			name:     "negative amount",
			method:   http.MethodPost,
			path:     "/api/receipts",
			body:     []byte(`{"client_id": "` + acme.ID + `", "amount": "-5"}`),
			session:  session,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"amount": "enter a valid, positive amount"}`),
		},
		{
			name:     "invalid payment method",
			method:   http.MethodPost,
			path:     "/api/receipts",
			body:     []byte(`{"client_id": "` + acme.ID + `", "amount": "5", "payment_method": "bitcoin"}`),
			session:  session,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"payment_method": "must be one of [cash card transfer check]"}`),
		},
		{
			name:     "other tenant's client",
			method:   http.MethodPost,
			path:     "/api/receipts",
			body:     []byte(`{"client_id": "` + bobs.ID + `", "amount": "5"}`),
			session:  session,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"client_id": "please select or add a client"}`),
		},
		{
			name:     "other tenant's company",
			method:   http.MethodPost,
			path:     "/api/receipts",
			body:     []byte(`{"client_id": "` + acme.ID + `", "company_id": "` + bobsCompany.ID + `", "amount": "5"}`),
			session:  session,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"company_id": "company not found"}`),
		},
	})

	r1 := createReceipt(t, ta.app, session, `{"client_id": "`+acme.ID+`", "amount": 120.5, "description": "Consulting"}`)
	assert.Equal(t, "REC-"+today+"-0001", r1.ReceiptNumber)
	assert.Equal(t, "120.50", r1.FormattedAmount())
	assert.Equal(t, receipt.PaymentCash, r1.PaymentMethod)

	r2 := createReceipt(t, ta.app, session,
		`{"client_id": "new", "new_client_name": "Zeta", "new_client_email": "zeta@test.ma", "amount": "", "payment_method": "card"}`)
	assert.Equal(t, "REC-"+today+"-0002", r2.ReceiptNumber)
	assert.True(t, r2.Amount.IsZero())

	newClient, err := ta.clientRepo.GetClient(context.Background(), alice.ID, r2.ClientID.String)
	require.NoError(t, err)
	assert.Equal(t, "Zeta", newClient.Name)

	// numbers are per user
	bobSession := login(t, ta.app, bob)
	rb := createReceipt(t, ta.app, bobSession, `{"client_id": "`+bobs.ID+`", "amount": "1"}`)
	assert.Equal(t, "REC-"+today+"-0001", rb.ReceiptNumber)
}

func Test_receiptApi_query(t *testing.T) {
	ta := setup(t)
	alice := ta.createUser(t, "alice", user.RoleUser)
	bob := ta.createUser(t, "bob", user.RoleUser)
	acme := testutil.CreateClient(t, ta.clientRepo, alice.ID, "Acme", "", "")
	beta := testutil.CreateClient(t, ta.clientRepo, alice.ID, "Beta", "", "")

	now := time.Now().UTC()
	r1 := testutil.CreateReceipt(t, ta.receiptRepo, alice.ID, "REC-1", 1, acme.ID, "10", now.Add(-48*time.Hour))
	r2 := testutil.CreateReceipt(t, ta.receiptRepo, alice.ID, "REC-2", 2, beta.ID, "20", now.Add(-time.Hour))
	r3 := testutil.CreateReceipt(t, ta.receiptRepo, alice.ID, "REC-3", 3, "", "30", now)
	testutil.CreateReceipt(t, ta.receiptRepo, bob.ID, "REC-B", 1, "", "99", now)

	session := login(t, ta.app, alice)

	runHTTPTests(t, ta.app, []httpTest{
		{
			name:     "all, newest first",
			method:   http.MethodGet,
			path:     "/api/receipts",
			session:  session,
			wantCode: http.StatusOK,
			wantData: marchallList(t,
				ReceiptResponse{Receipt: r3},
				ReceiptResponse{Receipt: r2, Client: &beta},
				ReceiptResponse{Receipt: r1, Client: &acme},
			),
		},
		{
			name:     "by client",
			method:   http.MethodGet,
			path:     "/api/receipts?client_id=" + acme.ID,
			session:  session,
			wantCode: http.StatusOK,
			wantData: marchallList(t, ReceiptResponse{Receipt: r1, Client: &acme}),
		},
		{
			name:     "search client name",
			method:   http.MethodGet,
			path:     "/api/receipts?search=bet",
			session:  session,
			wantCode: http.StatusOK,
			wantData: marchallList(t, ReceiptResponse{Receipt: r2, Client: &beta}),
		},
		{
			name:     "limit",
			method:   http.MethodGet,
			path:     "/api/receipts?limit=1",
			session:  session,
			wantCode: http.StatusOK,
			wantData: marchallList(t, ReceiptResponse{Receipt: r3}),
		},
		{
			name:     "other tenant's receipt",
			method:   http.MethodGet,
			path:     "/api/receipts/r-REC-B",
			session:  session,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: receipt.ErrNotFound.Error()}),
		},
	})

	t.Run("dashboard", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/dashboard", session)
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got DashboardResponse
		decode(t, rec, &got)
		assert.Equal(t, 3, got.TotalReceipts)
		assert.Equal(t, 2, got.TotalClients)
		assert.Equal(t, "60.00", got.TotalAmount.StringFixed(2))
		assert.Equal(t, "MAD", got.Currency)
		require.Len(t, got.RecentReceipts, 3)
		assert.Equal(t, r3.ID, got.RecentReceipts[0].ID)
		assert.Nil(t, got.RecentReceipts[0].Client)
		require.NotNil(t, got.RecentReceipts[1].Client)
		assert.Equal(t, "Beta", got.RecentReceipts[1].Client.Name)
	})

	t.Run("delete", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/api/receipts/"+r1.ID, session)
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)

		req, rec = newAuthRequest(http.MethodGet, "/api/receipts/"+r1.ID, session)
		ta.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func Test_receiptApi_documents(t *testing.T) {
	ta := setup(t)
	alice := ta.createUser(t, "alice", user.RoleUser)
	acme := testutil.CreateClient(t, ta.clientRepo, alice.ID, "Acme", "+212 600 000 001", "contact@acme.ma")
	silent := testutil.CreateClient(t, ta.clientRepo, alice.ID, "Silent", "", "")
	session := login(t, ta.app, alice)

	r := createReceipt(t, ta.app, session, `{"client_id": "`+acme.ID+`", "amount": "250", "description": "Design"}`)
	rNoEmail := createReceipt(t, ta.app, session, `{"client_id": "`+silent.ID+`", "amount": "5"}`)

	t.Run("pdf", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/receipts/"+r.ID+"/pdf", session)
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), r.ReceiptNumber+".pdf")
		assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
	})

	t.Run("thermal", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/receipts/"+r.ID+"/thermal", session)
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), r.ReceiptNumber+"_thermal.png")

		img, err := png.Decode(rec.Body)
		require.NoError(t, err)
		assert.Equal(t, 463, img.Bounds().Dx()) // 58mm
	})

	var msg sharesvc.Message
	t.Run("share", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/receipts/"+r.ID+"/share", session)
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		decode(t, rec, &msg)

		assert.Contains(t, msg.Message, "Acme")
		assert.Contains(t, msg.Message, "QuickReceipt")
		assert.Contains(t, msg.Message, r.ReceiptNumber)
		assert.Contains(t, msg.Message, "250.00 MAD")
		assert.Equal(t, "+212 600 000 001", msg.WhatsAppNumber)
		assert.True(t, strings.HasPrefix(msg.WhatsAppURL, "https://wa.me/212600000001?text="))
		assert.Equal(t, "contact@acme.ma", msg.Email)
		assert.True(t, strings.HasPrefix(msg.PublicURL, "http://receipts.test/s/"))
	})

	t.Run("public link", func(t *testing.T) {
		path := strings.TrimPrefix(msg.PublicURL, "http://receipts.test")
		req, rec := newRequest(http.MethodGet, path)
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))

		req, rec = newRequest(http.MethodGet, "/s/not-a-token")
		ta.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}, rec)

		// the link dies with its receipt
		gone := createReceipt(t, ta.app, session, `{"client_id": "`+acme.ID+`", "amount": "1"}`)
		token, err := ta.shareSvc.Sign(alice.ID, gone.ID)
		require.NoError(t, err)
		require.NoError(t, ta.receiptRepo.DeleteReceipt(context.Background(), alice.ID, gone.ID))
		req, rec = newRequest(http.MethodGet, "/s/"+token)
		ta.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("email", func(t *testing.T) {
		emailsvc.ResetSentMessages()

		req, rec := newAuthRequest(http.MethodPost, "/api/receipts/"+rNoEmail.ID+"/email", session)
		ta.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"email": "the client has no email address"}`),
		}, rec)

		req, rec = newAuthRequest(http.MethodPost, "/api/receipts/"+r.ID+"/email", session)
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		require.Len(t, emailsvc.SentMessages, 1)
		sent := emailsvc.SentMessages[0]
		assert.Equal(t, "contact@acme.ma", sent.To[0].Address)
		assert.Equal(t, "Reçu "+r.ReceiptNumber, sent.Subject)
		assert.Contains(t, sent.BodyStr, "Bonjour Acme")
		require.Len(t, sent.Attachments, 1)
		assert.Equal(t, r.ReceiptNumber+".pdf", sent.Attachments[0].Filename)
		assert.Equal(t, "application/pdf", sent.Attachments[0].ContentType)
		assert.True(t, strings.HasSuffix(sent.BodyStr, "\n"+render.DefaultCompanyName), sent.BodyStr)
	})

	t.Run("email: unnamed company", func(t *testing.T) {
		emailsvc.ResetSentMessages()
		unnamed := testutil.CreateCompany(t, ta.companySvc, alice.ID, "")
		rc := createReceipt(t, ta.app, session, `{"client_id": "`+acme.ID+`", "company_id": "`+unnamed.ID+`", "amount": "3"}`)

		req, rec := newAuthRequest(http.MethodPost, "/api/receipts/"+rc.ID+"/email", session)
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		require.Len(t, emailsvc.SentMessages, 1)
		body := emailsvc.SentMessages[0].BodyStr
		assert.True(t, strings.HasSuffix(body, "Cordialement,\n"+render.DefaultCompanyName), body)
	})
}
