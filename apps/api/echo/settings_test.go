package echoapi_test

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/quickreceipt/core/settings"
	"github.com/trezcool/quickreceipt/core/user"
	"github.com/trezcool/quickreceipt/tests"
)

// newUploadRequest builds a multipart request posting content as `field`.
func newUploadRequest(t *testing.T, path, session, field, filename string, content []byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fw, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Cookie", session)
	return req, httptest.NewRecorder()
}

func pngBytes(t *testing.T, w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 59, G: 130, B: 246, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func Test_settingsApi(t *testing.T) {
	ta := setup(t)
	alice := ta.createUser(t, "alice", user.RoleUser)
	bob := ta.createUser(t, "bob", user.RoleUser)
	aliceCompany := testutil.CreateCompany(t, ta.companySvc, alice.ID, "Alice SARL")
	bobsCompany := testutil.CreateCompany(t, ta.companySvc, bob.ID, "Bob SARL")
	session := login(t, ta.app, alice)

	defaults := settings.Defaults(alice.ID, "MAD", "fr")

	runHTTPTests(t, ta.app, []httpTest{
		{
			name:     "defaults",
			method:   http.MethodGet,
			path:     "/api/settings",
			session:  session,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, defaults),
		},
		{
			name:     "invalid",
			method:   http.MethodPut,
			path:     "/api/settings",
			body:     []byte(`{"thermal_width": 60, "currency": "EURO", "locale": "de", "receipt_prefix": "R-1"}`),
			session:  session,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"thermal_width":  "must be one of [48 58 80]",
				"currency":       "currency must be 3 characters in length",
				"locale":         "unsupported language",
				"receipt_prefix": "receipt_prefix can only contain alphanumeric characters",
			}),
		},
		{
			name:     "other tenant's default company",
			method:   http.MethodPut,
			path:     "/api/settings",
			body:     []byte(`{"default_company_id": "` + bobsCompany.ID + `"}`),
			session:  session,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"default_company_id": "company not found"}`),
		},
		{
			name:     "unsupported locale",
			method:   http.MethodPost,
			path:     "/api/locale/de",
			session:  session,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"locale": "unsupported language"}`),
		},
	})

	t.Run("update", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/api/settings", session,
			[]byte(`{"thermal_width": 80, "currency": "eur", "receipt_prefix": "inv", "default_company_id": "`+aliceCompany.ID+`"}`))
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got settings.Settings
		decode(t, rec, &got)
		assert.Equal(t, 80, got.ThermalWidth)
		assert.Equal(t, "EUR", got.Currency)
		assert.Equal(t, "fr", got.Locale)
		assert.Equal(t, "INV", got.ReceiptPrefix)
		assert.Equal(t, aliceCompany.ID, got.DefaultCompanyID.String)
	})

	t.Run("locale", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/locale/AR", session)
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got settings.Settings
		decode(t, rec, &got)
		assert.Equal(t, "ar", got.Locale)
		assert.Equal(t, "INV", got.ReceiptPrefix)
	})
}

func Test_appSettingsApi(t *testing.T) {
	ta := setup(t)
	admin := ta.createUser(t, "admin", user.RoleSuperadmin)
	alice := ta.createUser(t, "alice", user.RoleUser)
	adminSession := login(t, ta.app, admin)
	aliceSession := login(t, ta.app, alice)
	forbidden := marchallObj(t, httpErr{Error: "permission denied"})

	runHTTPTests(t, ta.app, []httpTest{
		{
			name:     "regular user: get",
			method:   http.MethodGet,
			path:     "/api/app-settings",
			session:  aliceSession,
			wantCode: http.StatusForbidden,
			wantData: forbidden,
		},
		{
			name:     "regular user: update",
			method:   http.MethodPut,
			path:     "/api/app-settings",
			body:     []byte(`{"app_name": "Mine"}`),
			session:  aliceSession,
			wantCode: http.StatusForbidden,
			wantData: forbidden,
		},
		{
			name:     "invalid",
			method:   http.MethodPut,
			path:     "/api/app-settings",
			body:     []byte(`{"site_url": "nope", "pwa_theme_color": "blue", "twitter_card": "huge"}`),
			session:  adminSession,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"site_url":        "site_url must be a valid URL",
				"pwa_theme_color": "pwa_theme_color must be a valid HEX color",
				"twitter_card":    "must be one of [summary summary_large_image app player]",
			}),
		},
	})

	t.Run("update", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/api/app-settings", adminSession,
			[]byte(`{"app_name": "Reçus Pro", "site_url": "https://recus.ma/", "pwa_enabled": false, "pwa_theme_color": "#000000"}`))
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got settings.AppSettings
		decode(t, rec, &got)
		assert.Equal(t, "Reçus Pro", got.AppName)
		assert.Equal(t, "https://recus.ma", got.SiteURL)
		assert.Equal(t, "summary_large_image", got.TwitterCard)
		assert.False(t, got.PWAEnabled)
		assert.Equal(t, "#000000", got.PWAThemeColor)
		assert.Equal(t, "Receipts", got.PWAShortName)

		// the cache is invalidated on save
		req, rec = newRequest(http.MethodGet, "/manifest.json")
		ta.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("uploads", func(t *testing.T) {
		req, rec := newUploadRequest(t, "/api/app-settings/uploads/icon", adminSession, "file", "icon.png", pngBytes(t, 1024, 1024))
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got settings.AppSettings
		decode(t, rec, &got)
		require.True(t, strings.HasPrefix(got.PWAIconURL, "/static/uploads/icon_"), got.PWAIconURL)
		assert.Equal(t, "image/png", got.IconType())

		f, err := os.Open(filepath.Join(ta.conf.Uploads.Dir, filepath.Base(got.PWAIconURL)))
		require.NoError(t, err)
		defer f.Close()
		cfg, err := png.DecodeConfig(f)
		require.NoError(t, err)
		assert.Equal(t, 512, cfg.Width)
		assert.Equal(t, 512, cfg.Height)

		// served as static file
		req, rec = newRequest(http.MethodGet, got.PWAIconURL)
		ta.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("invalid uploads", func(t *testing.T) {
		req, rec := newUploadRequest(t, "/api/app-settings/uploads/logo", adminSession, "file", "logo.svg", []byte("<svg/>"))
		ta.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"file": "allowed file types: png, jpg, jpeg, gif"}`),
		}, rec)

		req, rec = newUploadRequest(t, "/api/app-settings/uploads/logo", adminSession, "file", "logo.png", []byte("not an image"))
		ta.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"file": "file is not a valid image"}`),
		}, rec)

		req, rec = newUploadRequest(t, "/api/app-settings/uploads/banner", adminSession, "file", "banner.png", pngBytes(t, 10, 10))
		ta.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
