package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/quickreceipt/core/user"
)

func usernames(users []user.User) []string {
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.Username)
	}
	return names
}

func Test_userApi_permissions(t *testing.T) {
	ta := setup(t)
	alice := ta.createUser(t, "alice", user.RoleUser)
	session := login(t, ta.app, alice)
	forbidden := marchallObj(t, httpErr{Error: "permission denied"})

	tests := []httpTest{
		{
			name:     "unauthenticated",
			method:   http.MethodGet,
			path:     "/api/users",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errUnauthenticated),
		},
		{
			name:     "list",
			method:   http.MethodGet,
			path:     "/api/users",
			session:  session,
			wantCode: http.StatusForbidden,
			wantData: forbidden,
		},
		{
			name:     "create",
			method:   http.MethodPost,
			path:     "/api/users",
			body:     []byte(`{"username": "bob"}`),
			session:  session,
			wantCode: http.StatusForbidden,
			wantData: forbidden,
		},
		{
			name:     "detail",
			method:   http.MethodGet,
			path:     "/api/users/" + alice.ID,
			session:  session,
			wantCode: http.StatusForbidden,
			wantData: forbidden,
		},
	}
	runHTTPTests(t, ta.app, tests)
}

func Test_userApi(t *testing.T) {
	ta := setup(t)
	admin := ta.createUser(t, "admin", user.RoleSuperadmin)
	alice := ta.createUser(t, "alice", user.RoleUser)
	session := login(t, ta.app, admin)

	runHTTPTests(t, ta.app, []httpTest{
		{
			name:     "roles",
			method:   http.MethodGet,
			path:     "/api/users/roles",
			session:  session,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, user.Roles),
		},
		{
			name:     "create: no data",
			method:   http.MethodPost,
			path:     "/api/users",
			body:     []byte(`{}`),
			session:  session,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"username":         "this field is required",
				"password":         "this field is required",
				"password_confirm": "this field is required",
			}),
		},
		{
			name:     "create: invalid username",
			method:   http.MethodPost,
			path:     "/api/users",
			body:     []byte(`{"username": "bob smith", "password": "Rcpt.Pass123", "password_confirm": "Rcpt.Pass123"}`),
			session:  session,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"username": "only alphanumeric characters and underscores are allowed"}`),
		},
		{
			name:     "create: username taken",
			method:   http.MethodPost,
			path:     "/api/users",
			body:     []byte(`{"username": "ALICE", "password": "Rcpt.Pass123", "password_confirm": "Rcpt.Pass123"}`),
			session:  session,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"username": "a user with this username already exists"}`),
		},
		{
			name:     "create: short password",
			method:   http.MethodPost,
			path:     "/api/users",
			body:     []byte(`{"username": "bob", "password": "Ab1.", "password_confirm": "Ab1."}`),
			session:  session,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"password": "password must contain at least 8 characters"}`),
		},
		{
			name:     "create: numeric password",
			method:   http.MethodPost,
			path:     "/api/users",
			body:     []byte(`{"username": "bob", "password": "1234567890", "password_confirm": "1234567890"}`),
			session:  session,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"password": "password cannot be entirely numeric"}`),
		},
		{
			name:     "create: simple password",
			method:   http.MethodPost,
			path:     "/api/users",
			body:     []byte(`{"username": "bob", "password": "receipts2024", "password_confirm": "receipts2024"}`),
			session:  session,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"password": "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character",
			}),
		},
		{
			name:     "create: invalid role",
			method:   http.MethodPost,
			path:     "/api/users",
			body:     []byte(`{"username": "bob", "password": "Rcpt.Pass123", "password_confirm": "Rcpt.Pass123", "role": "owner"}`),
			session:  session,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"role": "must be one of [superadmin user]"}`),
		},
		{
			name:     "unknown user",
			method:   http.MethodGet,
			path:     "/api/users/nope",
			session:  session,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: user.ErrNotFound.Error()}),
		},
		{
			name:     "deactivate self",
			method:   http.MethodPut,
			path:     "/api/users/" + admin.ID,
			body:     []byte(`{"is_active": false}`),
			session:  session,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"is_active": "you cannot deactivate your own account"}`),
		},
		{
			name:     "delete self",
			method:   http.MethodDelete,
			path:     "/api/users/" + admin.ID,
			session:  session,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: user.ErrCannotDeleteSelf.Error()}),
		},
	})

	var bob user.User
	t.Run("create", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/users", session,
			[]byte(`{"username": " Bob ", "password": "Rcpt.Pass123", "password_confirm": "Rcpt.Pass123"}`))
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		decode(t, rec, &bob)
		assert.Equal(t, "bob", bob.Username)
		assert.Equal(t, user.RoleUser, bob.Role)
		assert.True(t, bob.IsActive)

		// the new user can sign in
		login(t, ta.app, bob)
	})

	t.Run("query", func(t *testing.T) {
		var got []user.User
		req, rec := newAuthRequest(http.MethodGet, "/api/users?ordering=username", session)
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		decode(t, rec, &got)
		assert.Equal(t, []string{"admin", "alice", "bob"}, usernames(got))

		req, rec = newAuthRequest(http.MethodGet, "/api/users?role=superadmin", session)
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		decode(t, rec, &got)
		assert.Equal(t, []string{"admin"}, usernames(got))

		req, rec = newAuthRequest(http.MethodGet, "/api/users?search=AL&ordering=-username", session)
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		decode(t, rec, &got)
		assert.Equal(t, []string{"alice"}, usernames(got))
	})

	t.Run("update", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/api/users/"+alice.ID, session,
			[]byte(`{"role": "superadmin", "is_active": false}`))
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got user.User
		decode(t, rec, &got)
		assert.Equal(t, "alice", got.Username)
		assert.Equal(t, user.RoleSuperadmin, got.Role)
		assert.False(t, got.IsActive)
	})

	t.Run("password mismatch", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/api/users/"+bob.ID, session,
			[]byte(`{"password": "New.Pass4567", "password_confirm": "Other.Pass4567"}`))
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var errs map[string]string
		decode(t, rec, &errs)
		assert.Contains(t, errs, "password_confirm")
	})

	t.Run("change password", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/api/users/"+bob.ID, session,
			[]byte(`{"password": "New.Pass4567", "password_confirm": "New.Pass4567"}`))
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		req, rec = newRequest(http.MethodPost, "/auth/login", []byte(`{"username": "bob", "password": "New.Pass4567"}`))
		ta.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("delete", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/api/users/"+bob.ID, session)
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)

		req, rec = newAuthRequest(http.MethodGet, "/api/users/"+bob.ID, session)
		ta.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
