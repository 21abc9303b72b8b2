package echoapi

import (
	_ "embed"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/quickreceipt/core/settings"
)

//go:embed static/sw.js
var serviceWorkerJS []byte

type ManifestIcon struct {
	Src   string `json:"src"`
	Sizes string `json:"sizes"`
	Type  string `json:"type"`
}

type Manifest struct {
	Name            string         `json:"name"`
	ShortName       string         `json:"short_name"`
	StartURL        string         `json:"start_url"`
	Display         string         `json:"display"`
	BackgroundColor string         `json:"background_color"`
	ThemeColor      string         `json:"theme_color"`
	Description     string         `json:"description"`
	Icons           []ManifestIcon `json:"icons"`
}

func newManifest(as settings.AppSettings) Manifest {
	return Manifest{
		Name:            as.PWAAppName,
		ShortName:       as.PWAShortName,
		StartURL:        "/",
		Display:         "standalone",
		BackgroundColor: as.PWABackgroundColor,
		ThemeColor:      as.PWAThemeColor,
		Description:     as.PWADescription,
		Icons:           []ManifestIcon{{Src: as.PWAIconURL, Sizes: "any", Type: as.IconType()}},
	}
}

func registerPWA(e *echo.Echo, opts *Options) {
	svc := opts.SettingsSvc

	e.GET("/manifest.json", func(ctx echo.Context) error {
		as, err := svc.GetApp(ctx.Request().Context())
		if err != nil {
			return errors.Wrap(err, "getting app settings")
		}
		if !as.PWAEnabled {
			return errHttpNotFound
		}
		return ctx.JSON(http.StatusOK, newManifest(as))
	})
	e.GET("/sw.js", func(ctx echo.Context) error {
		return ctx.Blob(http.StatusOK, "application/javascript", serviceWorkerJS)
	})
}
