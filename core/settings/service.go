package settings

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
)

var ErrNotFound = errors.New("settings not found")

const appSettingsKey = "app_settings"

type (
	Repository interface {
		// GetSettings returns ErrNotFound when the user never saved their settings.
		GetSettings(ctx context.Context, userID string) (Settings, error)
		SaveSettings(ctx context.Context, s Settings) (Settings, error)
		// GetAppSettings returns ErrNotFound when the global settings were never saved.
		GetAppSettings(ctx context.Context) (AppSettings, error)
		SaveAppSettings(ctx context.Context, as AppSettings) (AppSettings, error)
	}

	Options struct {
		AppName         string
		DefaultCurrency string
		DefaultLocale   string
		CacheTTL        time.Duration
	}

	Service struct {
		repo  Repository
		opts  Options
		cache *gocache.Cache
	}
)

func NewService(repo Repository, opts Options) *Service {
	if opts.CacheTTL == 0 {
		opts.CacheTTL = 10 * time.Minute
	}
	return &Service{
		repo:  repo,
		opts:  opts,
		cache: gocache.New(opts.CacheTTL, time.Minute),
	}
}

// Get returns the user's settings, or the defaults when none were saved.
func (svc *Service) Get(ctx context.Context, userID string) (Settings, error) {
	s, err := svc.repo.GetSettings(ctx, userID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Defaults(userID, svc.opts.DefaultCurrency, svc.opts.DefaultLocale), nil
		}
		return Settings{}, errors.Wrap(err, "getting settings")
	}
	return s, nil
}

func (svc *Service) Save(ctx context.Context, orig Settings, data SettingsData) (Settings, error) {
	s := orig
	s.ThermalWidth = data.ThermalWidth
	s.Currency = data.Currency
	s.Locale = data.Locale
	s.ReceiptPrefix = data.ReceiptPrefix
	if data.DefaultCompanyID != "" {
		s.DefaultCompanyID = null.StringFrom(data.DefaultCompanyID)
	} else {
		s.DefaultCompanyID = null.String{}
	}
	s.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
	return svc.repo.SaveSettings(ctx, s)
}

// SetLocale only changes the user's locale.
func (svc *Service) SetLocale(ctx context.Context, userID, locale string) (Settings, error) {
	s, err := svc.Get(ctx, userID)
	if err != nil {
		return Settings{}, err
	}
	s.Locale = locale
	s.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
	return svc.repo.SaveSettings(ctx, s)
}

// GetApp returns the global settings, served from an in-process cache.
func (svc *Service) GetApp(ctx context.Context) (AppSettings, error) {
	if cached, ok := svc.cache.Get(appSettingsKey); ok {
		if as, ok := cached.(AppSettings); ok {
			return as, nil
		}
	}

	as, err := svc.repo.GetAppSettings(ctx)
	if err != nil {
		if errors.Cause(err) != ErrNotFound {
			return AppSettings{}, errors.Wrap(err, "getting app settings")
		}
		as = DefaultAppSettings(svc.opts.AppName)
	}
	svc.cache.SetDefault(appSettingsKey, as)
	return as, nil
}

func (svc *Service) SaveApp(ctx context.Context, as AppSettings) (AppSettings, error) {
	as.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
	saved, err := svc.repo.SaveAppSettings(ctx, as)
	if err != nil {
		return AppSettings{}, errors.Wrap(err, "saving app settings")
	}
	svc.cache.Delete(appSettingsKey)
	return saved, nil
}
