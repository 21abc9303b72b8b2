package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/quickreceipt/core"
	"github.com/trezcool/quickreceipt/core/user"
)

const (
	sessionName = "quickreceipt_session"

	// session values
	sessUserID    = "user_id"
	sessRole      = "role"
	sessUsername  = "username"
	sessCompanyID = "company_id"
)

type LoginRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return validate.Struct(lr)
}

type authApi struct {
	svc      *user.Service
	validate *validator.Validate
	conf     *core.Config
}

func registerAuthAPI(g *echo.Group, loginRequired echo.MiddlewareFunc, opts *Options) {
	api := authApi{
		svc:      opts.UserSvc,
		validate: opts.Validate,
		conf:     opts.Conf,
	}

	// TODO: rate limit `/login`
	g.POST("/login", api.login)
	g.POST("/logout", api.logout)
	g.GET("/me", api.me, loginRequired)
}

// getSession returns the request's session; a cookie that fails to decode yields a new, empty session.
func getSession(ctx echo.Context) (*sessions.Session, error) {
	sess, err := session.Get(sessionName, ctx)
	if sess != nil {
		return sess, nil
	}
	return nil, errors.Wrap(err, "getting session")
}

func clearSession(ctx echo.Context, sess *sessions.Session) error {
	sess.Values = make(map[interface{}]interface{})
	sess.Options = &sessions.Options{Path: "/", MaxAge: -1, HttpOnly: true}
	return errors.Wrap(sess.Save(ctx.Request(), ctx.Response()), "clearing session")
}

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), data.Username, data.Password)
	if err != nil {
		switch errors.Cause(err) {
		case user.ErrInvalidCredentials:
			return errInvalidCredentials
		case user.ErrAccountDeactivated:
			return errAccountDeactivated
		}
		return errors.Wrap(err, "authenticating")
	}

	sess, err := getSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting session")
	}
	sess.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(api.conf.Server.SessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   api.conf.Server.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	sess.Values[sessUserID] = usr.ID
	sess.Values[sessRole] = usr.Role
	sess.Values[sessUsername] = usr.Username
	sess.Values[sessCompanyID] = usr.CompanyID.String
	if err = sess.Save(ctx.Request(), ctx.Response()); err != nil {
		return errors.Wrap(err, "saving session")
	}

	return ctx.JSON(http.StatusOK, usr)
}

func (api *authApi) logout(ctx echo.Context) error {
	sess, err := getSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting session")
	}
	if err = clearSession(ctx, sess); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *authApi) me(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, getContextUser(ctx))
}
