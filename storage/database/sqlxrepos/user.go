package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/quickreceipt/core"
	"github.com/trezcool/quickreceipt/core/user"
)

const userColumns = "id, username, password_hash, role, is_active, company_id, created_at, updated_at, last_login"

var userOrderings = map[string]bool{"username": true, "role": true, "is_active": true, "created_at": true, "last_login": true}

type userRepository struct {
	baseRepository
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db core.DB) *userRepository {
	return &userRepository{baseRepository{db: db}}
}

func (repo userRepository) UsernameExists(ctx context.Context, username string, excludedIDs ...string) (bool, error) {
	q := "SELECT COUNT(*) FROM users WHERE username = ?"
	args := []interface{}{username}
	if len(excludedIDs) > 0 {
		inQ, inArgs, err := sqlx.In(" AND id NOT IN (?)", excludedIDs)
		if err != nil {
			return false, errors.Wrap(err, "building query")
		}
		q += inQ
		args = append(args, inArgs...)
	}

	var count int
	if err := get(ctx, repo.db, &count, q, args...); err != nil {
		return false, errors.Wrap(err, "checking username uniqueness")
	}
	return count > 0, nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID == "" {
		usr.ID = uuid.NewString()
	}
	q := "INSERT INTO users (" + userColumns + ") VALUES " +
		"(:id, :username, :password_hash, :role, :is_active, :company_id, :created_at, :updated_at, :last_login)"
	if err := namedExec(ctx, repo.db, q, usr); err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrUsernameExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.Search != "" {
		conds = append(conds, "LOWER(username) LIKE ?")
		args = append(args, likePattern(filter.Search))
	}
	if filter.Role != "" {
		conds = append(conds, "role = ?")
		args = append(args, filter.Role)
	}
	if filter.IsActive != nil {
		conds = append(conds, "is_active = ?")
		args = append(args, *filter.IsActive)
	}

	q := "SELECT " + userColumns + " FROM users"
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += core.OrderByClause(ordering, userOrderings, "created_at DESC")

	users := make([]user.User, 0)
	if err := selectAll(ctx, repo.db, &users, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return users, nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	var usr user.User
	err := get(ctx, repo.db, &usr, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	if err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user by ID")
	}
	return usr, nil
}

func (repo userRepository) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	var usr user.User
	err := get(ctx, repo.db, &usr, "SELECT "+userColumns+" FROM users WHERE username = ?", username)
	if err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user by username")
	}
	return usr, nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := "UPDATE users SET username = :username, password_hash = :password_hash, role = :role, " +
		"is_active = :is_active, company_id = :company_id, updated_at = :updated_at WHERE id = :id"
	res, err := sqlx.NamedExecContext(ctx, repo.db, q, usr)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrUsernameExists
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if err = checkAffected(res, user.ErrNotFound); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo userRepository) SetLastLogin(ctx context.Context, id string, t time.Time) error {
	_, err := execQuery(ctx, repo.db, "UPDATE users SET last_login = ? WHERE id = ?", t, id)
	return errors.Wrap(err, "setting last login")
}

func (repo userRepository) DeleteUser(ctx context.Context, id string) error {
	return core.RunInTx(ctx, repo.db, func(tx core.DBExecutor) error {
		for _, table := range []string{"receipts", "receipt_counters", "clients", "companies", "settings"} {
			if _, err := execQuery(ctx, tx, "DELETE FROM "+table+" WHERE user_id = ?", id); err != nil {
				return errors.Wrapf(err, "deleting user's %s", table)
			}
		}
		res, err := execQuery(ctx, tx, "DELETE FROM users WHERE id = ?", id)
		if err != nil {
			return errors.Wrap(err, "deleting user")
		}
		return checkAffected(res, user.ErrNotFound)
	})
}

func (repo userRepository) CountUsers(ctx context.Context) (int, error) {
	var count int
	err := get(ctx, repo.db, &count, "SELECT COUNT(*) FROM users")
	return count, errors.Wrap(err, "counting users")
}
