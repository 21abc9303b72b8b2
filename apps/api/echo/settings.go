package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/quickreceipt/core"
	"github.com/trezcool/quickreceipt/core/company"
	"github.com/trezcool/quickreceipt/core/settings"
	"github.com/trezcool/quickreceipt/services/upload"
)

type settingsApi struct {
	svc        *settings.Service
	companySvc *company.Service
	uploadSvc  *uploadsvc.Service
	validate   *validator.Validate
	logger     core.Logger
}

func newSettingsApi(opts *Options) *settingsApi {
	return &settingsApi{
		svc:        opts.SettingsSvc,
		companySvc: opts.CompanySvc,
		uploadSvc:  opts.UploadSvc,
		validate:   opts.Validate,
		logger:     opts.Logger,
	}
}

func registerSettingsAPI(g *echo.Group, opts *Options) {
	api := newSettingsApi(opts)
	g.GET("/settings", api.retrieve)
	g.PUT("/settings", api.update)
	g.POST("/locale/:locale", api.setLocale)
}

func registerAppSettingsAPI(g *echo.Group, superadminRequired echo.MiddlewareFunc, opts *Options) {
	api := newSettingsApi(opts)
	ag := g.Group("/app-settings", superadminRequired)
	ag.GET("", api.retrieveApp)
	ag.PUT("", api.updateApp)
	ag.POST("/uploads/:kind", api.uploadApp)
}

func (api *settingsApi) retrieve(ctx echo.Context) error {
	s, err := api.svc.Get(ctx.Request().Context(), getContextUser(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "getting settings")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *settingsApi) update(ctx echo.Context) error {
	c := ctx.Request().Context()
	userID := getContextUser(ctx).ID

	orig, err := api.svc.Get(c, userID)
	if err != nil {
		return errors.Wrap(err, "getting settings")
	}
	var data settings.SettingsData
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SettingsData")
	}
	if err = data.Validate(orig, api.validate); err != nil {
		return err
	}
	if data.DefaultCompanyID != "" {
		if _, err = api.companySvc.Get(c, userID, data.DefaultCompanyID); err != nil {
			if errors.Cause(err) == company.ErrNotFound {
				return errDefaultCompanyAbsent
			}
			return errors.Wrap(err, "getting default company")
		}
	}

	s, err := api.svc.Save(c, orig, data)
	if err != nil {
		return errors.Wrap(err, "saving settings")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *settingsApi) setLocale(ctx echo.Context) error {
	locale := core.CleanString(ctx.Param("locale"), true /* lower */)
	if !core.IsSupportedLocale(locale) {
		return errUnsupportedLocale
	}
	s, err := api.svc.SetLocale(ctx.Request().Context(), getContextUser(ctx).ID, locale)
	if err != nil {
		return errors.Wrap(err, "setting locale")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *settingsApi) retrieveApp(ctx echo.Context) error {
	as, err := api.svc.GetApp(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting app settings")
	}
	return ctx.JSON(http.StatusOK, as)
}

func (api *settingsApi) updateApp(ctx echo.Context) error {
	var data settings.AppSettingsData
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AppSettingsData")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	as, err := api.svc.GetApp(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting app settings")
	}
	if as, err = api.svc.SaveApp(ctx.Request().Context(), data.Apply(as)); err != nil {
		return errors.Wrap(err, "saving app settings")
	}
	return ctx.JSON(http.StatusOK, as)
}

// appUploadFields maps an upload kind to the app settings field holding its URL.
var appUploadFields = map[uploadsvc.Kind]func(as *settings.AppSettings) *string{
	uploadsvc.KindLogo:    func(as *settings.AppSettings) *string { return &as.LogoURL },
	uploadsvc.KindFavicon: func(as *settings.AppSettings) *string { return &as.FaviconURL },
	uploadsvc.KindOGImage: func(as *settings.AppSettings) *string { return &as.OGImageURL },
	uploadsvc.KindIcon:    func(as *settings.AppSettings) *string { return &as.PWAIconURL },
}

func (api *settingsApi) uploadApp(ctx echo.Context) error {
	kind := uploadsvc.Kind(ctx.Param("kind"))
	field, ok := appUploadFields[kind]
	if !ok {
		return errUnknownUploadKind
	}

	as, err := api.svc.GetApp(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting app settings")
	}
	url, err := saveUpload(ctx, api.uploadSvc, "file", kind)
	if err != nil {
		return err
	}

	dst := field(&as)
	old := *dst
	*dst = url
	if as, err = api.svc.SaveApp(ctx.Request().Context(), as); err != nil {
		_ = api.uploadSvc.Remove(url)
		return errors.Wrap(err, "saving app settings")
	}
	if err = api.uploadSvc.Remove(old); err != nil {
		api.logger.Warn("removing upload", err)
	}
	return ctx.JSON(http.StatusOK, as)
}
