package settings

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/quickreceipt/core"
)

const (
	DefaultThermalWidth  = 58
	DefaultReceiptPrefix = "REC"
)

// ThermalWidths are the supported thermal paper widths, in millimeters.
var ThermalWidths = []int{48, 58, 80}

// Settings are the per-user preferences.
type Settings struct {
	UserID           string      `json:"-" db:"user_id"`
	ThermalWidth     int         `json:"thermal_width" db:"thermal_width"`
	Currency         string      `json:"currency" db:"currency"`
	Locale           string      `json:"locale" db:"locale"`
	ReceiptPrefix    string      `json:"receipt_prefix" db:"receipt_prefix"`
	DefaultCompanyID null.String `json:"default_company_id" db:"default_company_id"`
	UpdatedAt        time.Time   `json:"updated_at" db:"updated_at"` // UTC
}

func Defaults(userID, currency, locale string) Settings {
	if currency == "" {
		currency = "MAD"
	}
	if !core.IsSupportedLocale(locale) {
		locale = core.DefaultLocale
	}
	return Settings{
		UserID:        userID,
		ThermalWidth:  DefaultThermalWidth,
		Currency:      currency,
		Locale:        locale,
		ReceiptPrefix: DefaultReceiptPrefix,
	}
}

type SettingsData struct {
	ThermalWidth     int    `json:"thermal_width" form:"thermal_width" validate:"oneof=48 58 80"`
	Currency         string `json:"currency" form:"currency" validate:"required,len=3,alpha"`
	Locale           string `json:"locale" form:"locale" validate:"locale"`
	ReceiptPrefix    string `json:"receipt_prefix" form:"receipt_prefix" validate:"required,max=10,alphanum"`
	DefaultCompanyID string `json:"default_company_id" form:"default_company_id"`
}

// Validate fills missing fields from orig before validating.
func (sd *SettingsData) Validate(orig Settings, validate *validator.Validate) error {
	if sd.ThermalWidth == 0 {
		sd.ThermalWidth = orig.ThermalWidth
	}
	if sd.Currency = strings.ToUpper(core.CleanString(sd.Currency)); sd.Currency == "" {
		sd.Currency = orig.Currency
	}
	if sd.Locale = core.CleanString(sd.Locale, true /* lower */); sd.Locale == "" {
		sd.Locale = orig.Locale
	}
	if sd.ReceiptPrefix = strings.ToUpper(core.CleanString(sd.ReceiptPrefix)); sd.ReceiptPrefix == "" {
		sd.ReceiptPrefix = orig.ReceiptPrefix
	}
	sd.DefaultCompanyID = core.CleanString(sd.DefaultCompanyID)
	return validate.Struct(sd)
}

// AppSettings are the global branding, SEO and PWA settings, managed by superadmins.
type AppSettings struct {
	AppName    string `json:"app_name" db:"app_name"`
	LogoURL    string `json:"logo_url" db:"logo_url"`
	FaviconURL string `json:"favicon_url" db:"favicon_url"`

	TitleSuffix     string `json:"title_suffix" db:"seo_title_suffix"`
	MetaDescription string `json:"meta_description" db:"seo_meta_description"`
	Keywords        string `json:"keywords" db:"seo_keywords"`
	OGTitle         string `json:"og_title" db:"seo_og_title"`
	OGDescription   string `json:"og_description" db:"seo_og_description"`
	OGImageURL      string `json:"og_image_url" db:"seo_og_image_url"`
	TwitterCard     string `json:"twitter_card" db:"seo_twitter_card"`
	SiteURL         string `json:"site_url" db:"site_url"`

	PWAEnabled         bool   `json:"pwa_enabled" db:"pwa_enabled"`
	PWAAppName         string `json:"pwa_app_name" db:"pwa_app_name"`
	PWAShortName       string `json:"pwa_short_name" db:"pwa_short_name"`
	PWADescription     string `json:"pwa_description" db:"pwa_description"`
	PWAThemeColor      string `json:"pwa_theme_color" db:"pwa_theme_color"`
	PWABackgroundColor string `json:"pwa_background_color" db:"pwa_background_color"`
	PWAIconURL         string `json:"pwa_icon_url" db:"pwa_icon_url"`

	UpdatedAt time.Time `json:"updated_at" db:"updated_at"` // UTC
}

func DefaultAppSettings(appName string) AppSettings {
	return AppSettings{
		AppName:            appName,
		TwitterCard:        "summary_large_image",
		PWAEnabled:         true,
		PWAAppName:         "Receipt App",
		PWAShortName:       "Receipts",
		PWADescription:     "Receipt Management Application",
		PWAThemeColor:      "#3B82F6",
		PWABackgroundColor: "#ffffff",
		PWAIconURL:         "/static/favicon.svg",
	}
}

// IconType derives the PWA icon MIME type from its URL.
func (as AppSettings) IconType() string {
	icon := strings.ToLower(as.PWAIconURL)
	switch {
	case strings.HasSuffix(icon, ".png"):
		return "image/png"
	case strings.HasSuffix(icon, ".jpg"), strings.HasSuffix(icon, ".jpeg"):
		return "image/jpeg"
	default:
		return "image/svg+xml"
	}
}

type AppSettingsData struct {
	AppName         string `json:"app_name" form:"app_name" validate:"max=100"`
	TitleSuffix     string `json:"title_suffix" form:"title_suffix" validate:"max=100"`
	MetaDescription string `json:"meta_description" form:"meta_description" validate:"max=500"`
	Keywords        string `json:"keywords" form:"keywords" validate:"max=500"`
	OGTitle         string `json:"og_title" form:"og_title" validate:"max=200"`
	OGDescription   string `json:"og_description" form:"og_description" validate:"max=500"`
	TwitterCard     string `json:"twitter_card" form:"twitter_card" validate:"omitempty,oneof=summary summary_large_image app player"`
	SiteURL         string `json:"site_url" form:"site_url" validate:"omitempty,url"`

	PWAEnabled         *bool  `json:"pwa_enabled" form:"pwa_enabled"`
	PWAAppName         string `json:"pwa_app_name" form:"pwa_app_name" validate:"max=100"`
	PWAShortName       string `json:"pwa_short_name" form:"pwa_short_name" validate:"max=30"`
	PWADescription     string `json:"pwa_description" form:"pwa_description" validate:"max=500"`
	PWAThemeColor      string `json:"pwa_theme_color" form:"pwa_theme_color" validate:"omitempty,hexcolor"`
	PWABackgroundColor string `json:"pwa_background_color" form:"pwa_background_color" validate:"omitempty,hexcolor"`
}

func (ad *AppSettingsData) Validate(validate *validator.Validate) error {
	ad.AppName = core.CleanString(ad.AppName)
	ad.SiteURL = strings.TrimRight(core.CleanString(ad.SiteURL), "/")
	ad.TwitterCard = core.CleanString(ad.TwitterCard)
	ad.PWAThemeColor = core.CleanString(ad.PWAThemeColor)
	ad.PWABackgroundColor = core.CleanString(ad.PWABackgroundColor)
	return validate.Struct(ad)
}

// Apply copies the non-empty fields of ad onto as.
func (ad AppSettingsData) Apply(as AppSettings) AppSettings {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&as.AppName, ad.AppName)
	as.TitleSuffix = ad.TitleSuffix
	as.MetaDescription = ad.MetaDescription
	as.Keywords = ad.Keywords
	as.OGTitle = ad.OGTitle
	as.OGDescription = ad.OGDescription
	as.SiteURL = ad.SiteURL
	if ad.TwitterCard != "" {
		as.TwitterCard = ad.TwitterCard
	} else {
		as.TwitterCard = "summary_large_image"
	}
	if ad.PWAEnabled != nil {
		as.PWAEnabled = *ad.PWAEnabled
	}
	set(&as.PWAAppName, ad.PWAAppName)
	set(&as.PWAShortName, ad.PWAShortName)
	set(&as.PWADescription, ad.PWADescription)
	set(&as.PWAThemeColor, ad.PWAThemeColor)
	set(&as.PWABackgroundColor, ad.PWABackgroundColor)
	return as
}
