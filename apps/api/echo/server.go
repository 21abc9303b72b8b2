package echoapi

import (
	"context"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/quickreceipt/core"
	"github.com/trezcool/quickreceipt/core/client"
	"github.com/trezcool/quickreceipt/core/company"
	"github.com/trezcool/quickreceipt/core/receipt"
	"github.com/trezcool/quickreceipt/core/settings"
	"github.com/trezcool/quickreceipt/core/user"
	"github.com/trezcool/quickreceipt/services/render"
	"github.com/trezcool/quickreceipt/services/share"
	"github.com/trezcool/quickreceipt/services/upload"
)

type (
	Options struct {
		Conf           *core.Config
		DisableReqLogs bool
		Logger         core.Logger
		SignalShutdown func()

		Validate     *validator.Validate
		Translator   ut.Translator
		Translations *core.Translations

		UserSvc     *user.Service
		ClientSvc   *client.Service
		CompanySvc  *company.Service
		ReceiptSvc  *receipt.Service
		SettingsSvc *settings.Service
		Renderer    *render.Renderer
		ShareSvc    *sharesvc.Service
		UploadSvc   *uploadsvc.Service
		EmailSvc    core.EmailService
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts    *Options
		app     *echo.Echo
		metrics *metrics
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	if opts.SignalShutdown == nil {
		opts.SignalShutdown = func() {}
	}
	s := &server{
		opts:    opts,
		app:     echo.New(),
		metrics: newMetrics(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.opts.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(s.metrics.middleware())
	s.app.Use(session.Middleware(sessions.NewCookieStore([]byte(conf.SecretKey))))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Translator, s.opts.SignalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/healthz", healthz)
	s.app.GET("/metrics", s.metrics.handler())
	s.app.Static(conf.Uploads.URL, s.opts.UploadSvc.Dir())

	loginRequired := loginRequiredMiddleware(s.opts.UserSvc)
	superadminRequired := superadminRequiredMiddleware()

	registerAuthAPI(s.app.Group("/auth"), loginRequired, s.opts)
	registerPWA(s.app, s.opts)
	registerPublicShareAPI(s.app, s.opts)

	api := s.app.Group("/api", loginRequired)
	registerDashboardAPI(api, s.opts)
	registerClientAPI(api, s.opts)
	registerCompanyAPI(api, s.opts)
	registerReceiptAPI(api, s.opts, s.metrics)
	registerSettingsAPI(api, s.opts)
	registerUserAPI(api, superadminRequired, s.opts)
	registerAppSettingsAPI(api, superadminRequired, s.opts)
}

func (s *server) Start() error {
	return s.app.Start(s.opts.Conf.Server.Address)
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func healthz(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
