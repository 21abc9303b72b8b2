package sqlxrepos

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/quickreceipt/core"
	"github.com/trezcool/quickreceipt/core/settings"
)

const (
	settingsColumns    = "user_id, thermal_width, currency, locale, receipt_prefix, default_company_id, updated_at"
	appSettingsColumns = "app_name, logo_url, favicon_url, seo_title_suffix, seo_meta_description, seo_keywords, " +
		"seo_og_title, seo_og_description, seo_og_image_url, seo_twitter_card, site_url, pwa_enabled, pwa_app_name, " +
		"pwa_short_name, pwa_description, pwa_theme_color, pwa_background_color, pwa_icon_url, updated_at"

	// the global settings are a single row
	appSettingsID = 1
)

type settingsRepository struct {
	baseRepository
}

var _ settings.Repository = (*settingsRepository)(nil) // interface compliance check

func NewSettingsRepository(db core.DB) *settingsRepository {
	return &settingsRepository{baseRepository{db: db}}
}

// upsertSQL builds an "INSERT ... ON CONFLICT DO UPDATE" statement, understood by both sqlite3 and postgres.
func upsertSQL(table, conflictCol, columns string) string {
	cols := strings.Split(columns, ", ")
	params := make([]string, 0, len(cols))
	updates := make([]string, 0, len(cols))
	for _, col := range cols {
		params = append(params, ":"+col)
		if col != conflictCol {
			updates = append(updates, col+" = excluded."+col)
		}
	}
	return "INSERT INTO " + table + " (" + columns + ") VALUES (" + strings.Join(params, ", ") + ") " +
		"ON CONFLICT (" + conflictCol + ") DO UPDATE SET " + strings.Join(updates, ", ")
}

func (repo settingsRepository) GetSettings(ctx context.Context, userID string) (settings.Settings, error) {
	var s settings.Settings
	q := "SELECT " + settingsColumns + " FROM settings WHERE user_id = ?"
	if err := get(ctx, repo.db, &s, q, userID); err != nil {
		return settings.Settings{}, trapNoRowsErr(err, settings.ErrNotFound, "finding settings")
	}
	return s, nil
}

func (repo settingsRepository) SaveSettings(ctx context.Context, s settings.Settings) (settings.Settings, error) {
	if err := namedExec(ctx, repo.db, upsertSQL("settings", "user_id", settingsColumns), s); err != nil {
		return settings.Settings{}, errors.Wrap(err, "saving settings")
	}
	return s, nil
}

// appSettingsRow carries the row ID the AppSettings model does not expose.
type appSettingsRow struct {
	ID int `db:"id"`
	settings.AppSettings
}

func (repo settingsRepository) GetAppSettings(ctx context.Context) (settings.AppSettings, error) {
	var as settings.AppSettings
	q := "SELECT " + appSettingsColumns + " FROM app_settings WHERE id = ?"
	if err := get(ctx, repo.db, &as, q, appSettingsID); err != nil {
		return settings.AppSettings{}, trapNoRowsErr(err, settings.ErrNotFound, "finding app settings")
	}
	return as, nil
}

func (repo settingsRepository) SaveAppSettings(ctx context.Context, as settings.AppSettings) (settings.AppSettings, error) {
	q := upsertSQL("app_settings", "id", "id, "+appSettingsColumns)
	if err := namedExec(ctx, repo.db, q, appSettingsRow{ID: appSettingsID, AppSettings: as}); err != nil {
		return settings.AppSettings{}, errors.Wrap(err, "saving app settings")
	}
	return as, nil
}
