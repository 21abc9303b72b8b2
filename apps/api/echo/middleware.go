package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/quickreceipt/core/user"
)

const ctxUserKey = "user"

// loginRequiredMiddleware reloads the session's user on every request.
// Deleted or deactivated users lose their session.
func loginRequiredMiddleware(svc *user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			sess, err := getSession(ctx)
			if err != nil {
				return errUnauthorized
			}
			uid, _ := sess.Values[sessUserID].(string)
			if uid == "" {
				return errUnauthorized
			}

			usr, err := svc.GetByID(ctx.Request().Context(), uid)
			if err != nil && errors.Cause(err) != user.ErrNotFound {
				return errors.Wrap(err, "getting session user")
			}
			if err != nil || !usr.IsActive {
				if err = clearSession(ctx, sess); err != nil {
					return err
				}
				return errUnauthorized
			}

			ctx.Set(ctxUserKey, usr)
			return next(ctx)
		}
	}
}

// superadminRequiredMiddleware must run after loginRequiredMiddleware.
func superadminRequiredMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if usr := getContextUser(ctx); usr.IsSuperadmin() {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// getContextUser returns the user set by loginRequiredMiddleware.
func getContextUser(ctx echo.Context) user.User {
	usr, _ := ctx.Get(ctxUserKey).(user.User)
	return usr
}
