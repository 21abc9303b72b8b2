package user

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/quickreceipt/core"
)

var (
	// errors
	ErrNotFound             = errors.New("user not found")
	ErrUsernameExists       = errors.New("a user with this username already exists")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrAccountDeactivated   = errors.New("account deactivated")
	ErrCannotDeleteSelf     = errors.New("you cannot delete your own account")
	ErrCannotDeactivateSelf = errors.New("you cannot deactivate your own account")
)

type (
	Repository interface {
		UsernameExists(ctx context.Context, username string, excludedIDs ...string) (bool, error)
		CreateUser(ctx context.Context, usr User) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on User.Username.
		QueryUsers(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByUsername(ctx context.Context, username string) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		SetLastLogin(ctx context.Context, id string, t time.Time) error
		// DeleteUser deletes the user along with everything they own.
		DeleteUser(ctx context.Context, id string) error
		CountUsers(ctx context.Context) (int, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func (svc *Service) checkUniqueness(uname string, exclUsers ...User) error {
	ids := make([]string, 0, len(exclUsers))
	for _, u := range exclUsers {
		ids = append(ids, u.ID)
	}
	exists, err := svc.repo.UsernameExists(context.Background(), uname, ids...)
	if err != nil {
		return errors.Wrap(err, "checking username uniqueness")
	}
	if exists {
		return core.NewValidationError(ErrUsernameExists, core.FieldError{Field: "username", Error: ErrUsernameExists.Error()})
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	tstamp := now()
	role := nu.Role
	if role == "" {
		role = RoleUser
	}
	usr := User{
		Username:  core.CleanString(nu.Username, true /* lower */),
		Role:      role,
		IsActive:  true,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByUsername(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUserByUsername(ctx, core.CleanString(uname, true /* lower */))
}

func (svc *Service) Count(ctx context.Context) (int, error) {
	return svc.repo.CountUsers(ctx)
}

// Authenticate returns the active User matching the credentials and records the login time.
// Unknown usernames and wrong passwords both fail with ErrInvalidCredentials.
func (svc *Service) Authenticate(ctx context.Context, uname, pwd string) (User, error) {
	usr, err := svc.GetByUsername(ctx, uname)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "finding user by username")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if !usr.IsActive {
		return User{}, ErrAccountDeactivated
	}

	tstamp := now()
	if err = svc.repo.SetLastLogin(ctx, usr.ID, tstamp); err != nil {
		return User{}, errors.Wrap(err, "setting lastLogin")
	}
	usr.LastLogin = null.TimeFrom(tstamp)
	return usr, nil
}

// Update applies uu to usr. actor is the user performing the change.
func (svc *Service) Update(ctx context.Context, actor, usr User, uu UpdateUser) (User, error) {
	if uu.IsActive != nil && !*uu.IsActive && actor.ID == usr.ID {
		return User{}, core.NewValidationError(ErrCannotDeactivateSelf, core.FieldError{Field: "is_active", Error: ErrCannotDeactivateSelf.Error()})
	}

	usr.Username = uu.Username
	usr.Role = uu.Role
	if uu.IsActive != nil {
		usr.IsActive = *uu.IsActive
	}
	usr.UpdatedAt = now()
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "setting password")
		}
	}
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) SetPassword(ctx context.Context, usr User, pwd string) (User, error) {
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = now()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) Delete(ctx context.Context, actor User, id string) error {
	if actor.ID == id {
		return ErrCannotDeleteSelf
	}
	return svc.repo.DeleteUser(ctx, id)
}

// SeedSuperadmin creates the initial superadmin when no user exists yet.
// It reports whether a user was created.
func (svc *Service) SeedSuperadmin(ctx context.Context, uname, pwd string) (bool, error) {
	if uname == "" || pwd == "" {
		return false, nil
	}
	count, err := svc.repo.CountUsers(ctx)
	if err != nil {
		return false, errors.Wrap(err, "counting users")
	}
	if count > 0 {
		return false, nil
	}
	if _, err = svc.Create(ctx, NewUser{Username: uname, Password: pwd, Role: RoleSuperadmin}); err != nil {
		return false, errors.Wrap(err, "creating superadmin")
	}
	return true, nil
}
