package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/quickreceipt/apps/api/echo"
	"github.com/trezcool/quickreceipt/core"
	"github.com/trezcool/quickreceipt/core/client"
	"github.com/trezcool/quickreceipt/core/company"
	"github.com/trezcool/quickreceipt/core/receipt"
	"github.com/trezcool/quickreceipt/core/settings"
	"github.com/trezcool/quickreceipt/core/user"
	"github.com/trezcool/quickreceipt/services/email"
	"github.com/trezcool/quickreceipt/services/logger"
	"github.com/trezcool/quickreceipt/services/render"
	"github.com/trezcool/quickreceipt/services/share"
	"github.com/trezcool/quickreceipt/services/upload"
	"github.com/trezcool/quickreceipt/storage/database/sqlxrepos"
	"github.com/trezcool/quickreceipt/tests"
)

const testPassword = "Rcpt.Pass123"

var errUnauthenticated = httpErr{Error: "user not authenticated"}

type testApp struct {
	app         Server
	conf        *core.Config
	usrRepo     user.Repository
	clientRepo  client.Repository
	receiptRepo receipt.Repository
	companySvc  *company.Service
	settingsSvc *settings.Service
	shareSvc    *sharesvc.Service
}

func setup(t *testing.T) testApp {
	conf := &core.Config{
		Env:             "test",
		TestMode:        true,
		AppName:         "QuickReceipt",
		SecretKey:       "test-secret-key",
		DefaultCurrency: "MAD",
		DefaultLocale:   "fr",
		Server: core.ServerConfig{
			PublicBaseURL: "http://receipts.test",
			SessionMaxAge: time.Hour,
			ShareLinkTTL:  time.Hour,
		},
		Uploads: core.UploadsConfig{
			Dir:     t.TempDir(),
			URL:     "/static/uploads",
			MaxSize: 5 << 20,
		},
	}

	// set up DB & repos
	db := testutil.PrepareDB(t)
	usrRepo := sqlxrepos.NewUserRepository(db)
	clientRepo := sqlxrepos.NewClientRepository(db)
	companyRepo := sqlxrepos.NewCompanyRepository(db)
	receiptRepo := sqlxrepos.NewReceiptRepository(db)

	// set up services
	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)
	tr := core.NewTranslations()
	settingsSvc := settings.NewService(sqlxrepos.NewSettingsRepository(db), settings.Options{
		AppName:         conf.AppName,
		DefaultCurrency: conf.DefaultCurrency,
		DefaultLocale:   conf.DefaultLocale,
	})
	companySvc := company.NewService(companyRepo)
	shareSvc := sharesvc.NewService(tr, sharesvc.Options{
		AppName: conf.AppName,
		Secret:  conf.SecretKey,
		BaseURL: conf.Server.PublicBaseURL,
		TTL:     conf.Server.ShareLinkTTL,
	})
	emailsvc.ResetSentMessages()

	// set up server
	app := NewServer(&Options{
		Conf:           conf,
		DisableReqLogs: true,
		Logger:         logsvc.NewNopLogger(),
		Validate:       validate,
		Translator:     translator,
		Translations:   tr,
		UserSvc:        user.NewService(usrRepo),
		ClientSvc:      client.NewService(clientRepo),
		CompanySvc:     companySvc,
		ReceiptSvc:     receipt.NewService(db, receiptRepo, clientRepo, companyRepo, settingsSvc),
		SettingsSvc:    settingsSvc,
		Renderer:       render.NewRenderer(tr, conf.Uploads),
		ShareSvc:       shareSvc,
		UploadSvc:      uploadsvc.NewService(conf.Uploads),
		EmailSvc:       emailsvc.NewConsoleServiceMock(),
	})

	return testApp{
		app:         app,
		conf:        conf,
		usrRepo:     usrRepo,
		clientRepo:  clientRepo,
		receiptRepo: receiptRepo,
		companySvc:  companySvc,
		settingsSvc: settingsSvc,
		shareSvc:    shareSvc,
	}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	session  string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, session string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if session != "" {
		req.Header.Set("Cookie", session)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// login signs usr in and returns the session cookie to send along with the next requests.
func login(t *testing.T, app Server, usr user.User) string {
	body := marchallObj(t, LoginRequest{Username: usr.Username, Password: testPassword})
	req, rec := newRequest(http.MethodPost, "/auth/login", body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login() failed: %d %s", rec.Code, rec.Body.String())
	}

	cookies := rec.Result().Cookies()
	pairs := make([]string, 0, len(cookies))
	for _, c := range cookies {
		pairs = append(pairs, c.Name+"="+c.Value)
	}
	return strings.Join(pairs, "; ")
}

func (ta testApp) createUser(t *testing.T, uname, role string) user.User {
	return testutil.CreateUser(t, ta.usrRepo, uname, testPassword, role, true)
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode() failed: %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if _, ok := j1.([]interface{}); !ok {
		return false, nil
	}
	if _, ok := j2.([]interface{}); !ok {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, app Server, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.session, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
