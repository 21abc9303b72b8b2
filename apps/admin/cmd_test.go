package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/quickreceipt/core"
	"github.com/trezcool/quickreceipt/core/user"
	logsvc "github.com/trezcool/quickreceipt/services/logger"
	"github.com/trezcool/quickreceipt/storage/database"
	"github.com/trezcool/quickreceipt/storage/database/sqlxrepos"
	"github.com/trezcool/quickreceipt/tests"
)

const testPassword = "Rcpt.Pass123"

var usrRepo user.Repository

func setup(t *testing.T, db *sqlx.DB) (*commandLine, *bytes.Buffer) {
	if db == nil {
		db = testutil.PrepareDB(t)
	}
	usrRepo = sqlxrepos.NewUserRepository(db)

	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)

	var out bytes.Buffer
	return &commandLine{
		db:         db,
		usrSvc:     user.NewService(usrRepo),
		validate:   validate,
		translator: translator,
		logger:     logsvc.NewNopLogger(),
		out:        &out,
	}, &out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

type pwdExtra struct {
	pwd string
}

func runCLITests(t *testing.T, cli *commandLine, tests []cliTest, check func(t *testing.T, tt cliTest)) {
	for _, tt := range tests {
		tt := tt
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(pwdExtra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrStr)
			default:
				require.NoError(t, err)
				if check != nil {
					check(t, tt)
				}
			}
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli, out := setup(t, nil)
	testutil.CreateUser(t, usrRepo, "alice", testPassword, user.RoleUser, true)

	tests := []cliTest{
		{name: "unknown command", args: []string{"lol"}, wantErrStr: `unknown command "lol" for "admin"`},
		{name: "no username", args: []string{"adduser"}, wantErrStr: `required flag(s) "username" not set`},
		{name: "no password", args: []string{"adduser", "--username", "bob"}, wantErr: errEmptyPassword},
		{
			name:       "username taken",
			args:       []string{"adduser", "--username", "Alice"},
			extra:      pwdExtra{pwd: testPassword},
			wantErrStr: "username: a user with this username already exists",
		},
		{
			name:       "weak password",
			args:       []string{"adduser", "--username", "bob"},
			extra:      pwdExtra{pwd: "12345678"},
			wantErrStr: "password: password cannot be entirely numeric",
		},
		{
			name:       "invalid username",
			args:       []string{"adduser", "--username", "bob smith"},
			extra:      pwdExtra{pwd: testPassword},
			wantErrStr: "username: only alphanumeric characters and underscores are allowed",
		},
		{name: "user", args: []string{"adduser", "--username", "bob"}, extra: pwdExtra{pwd: testPassword}},
		{name: "superadmin", args: []string{"adduser", "--username", "root", "--superadmin"}, extra: pwdExtra{pwd: testPassword}},
	}

	wantRoles := map[string]string{"user": user.RoleUser, "superadmin": user.RoleSuperadmin}
	wantNames := map[string]string{"user": "bob", "superadmin": "root"}
	runCLITests(t, cli, tests, func(t *testing.T, tt cliTest) {
		usr, err := usrRepo.GetUserByUsername(context.Background(), wantNames[tt.name])
		require.NoError(t, err)
		assert.Equal(t, wantRoles[tt.name], usr.Role)
		assert.True(t, usr.IsActive)
		assert.NoError(t, usr.CheckPassword(testPassword))
	})
	assert.Contains(t, out.String(), `user "root" created (superadmin)`)
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, _ := setup(t, nil)
	usr := testutil.CreateUser(t, usrRepo, "alice", testPassword, user.RoleUser, true)

	tests := []cliTest{
		{name: "no username", args: []string{"resetpassword"}, wantErrStr: `required flag(s) "username" not set`},
		{name: "no password", args: []string{"resetpassword", "--username", "alice"}, wantErr: errEmptyPassword},
		{name: "user not found", args: []string{"resetpassword", "--username", "bob"}, extra: pwdExtra{pwd: "New.Pass4567"}, wantErr: user.ErrNotFound},
		{
			name:       "too short",
			args:       []string{"resetpassword", "--username", "alice"},
			extra:      pwdExtra{pwd: "Ab1."},
			wantErrStr: "password: password must contain at least 8 characters",
		},
		{name: "reset", args: []string{"resetpassword", "--username", "ALICE"}, extra: pwdExtra{pwd: "New.Pass4567"}},
	}
	runCLITests(t, cli, tests, func(t *testing.T, tt cliTest) {
		refreshed, err := usrRepo.GetUserByID(context.Background(), usr.ID)
		require.NoError(t, err)
		assert.NotEqual(t, usr.PasswordHash, refreshed.PasswordHash)
		assert.NoError(t, refreshed.CheckPassword("New.Pass4567"))
	})
}

func Test_commandLine_migrate(t *testing.T) {
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "admin.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	cli, out := setup(t, db)

	tableExists := func(name string) bool {
		var n int
		require.NoError(t, db.Get(&n, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name))
		return n > 0
	}

	t.Run("unexpected args", func(t *testing.T) {
		err := cli.run([]string{"admin", "migrate", "lol"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown command "lol"`)
	})

	t.Run("dry run", func(t *testing.T) {
		out.Reset()
		require.NoError(t, cli.run([]string{"admin", "migrate", "--dry-run"}))
		assert.Contains(t, out.String(), "CREATE TABLE")
		assert.False(t, tableExists("receipts"))
	})

	t.Run("migrate", func(t *testing.T) {
		out.Reset()
		require.NoError(t, cli.run([]string{"admin", "migrate"}))
		assert.Contains(t, out.String(), "database migrated")
		assert.True(t, tableExists("receipts"))
	})

	t.Run("dry run: up to date", func(t *testing.T) {
		out.Reset()
		require.NoError(t, cli.run([]string{"admin", "migrate", "--dry-run"}))
		assert.Equal(t, "schema is up to date\n", out.String())
	})

	t.Run("status", func(t *testing.T) {
		out.Reset()
		require.NoError(t, cli.run([]string{"admin", "migrate", "status"}))
		assert.NotContains(t, out.String(), "pending")
		assert.Contains(t, out.String(), ".sql")
	})
}
