// Package render produces the printable documents of a receipt: an A4 PDF and a thermal printer PNG.
package render

import (
	"path/filepath"
	"strings"

	"github.com/trezcool/quickreceipt/core"
	"github.com/trezcool/quickreceipt/core/client"
	"github.com/trezcool/quickreceipt/core/company"
	"github.com/trezcool/quickreceipt/core/receipt"
	"github.com/trezcool/quickreceipt/core/settings"
)

// DefaultCompanyName is printed when the receipt has no company.
const DefaultCompanyName = "QuickReceipt"

// Context is everything a document needs. Client and Company are optional.
type Context struct {
	Receipt  receipt.Receipt
	Client   *client.Client
	Company  *company.Company
	Settings settings.Settings
	Locale   string
	Currency string
}

func (rc Context) currency() string {
	if rc.Currency != "" {
		return rc.Currency
	}
	return rc.Settings.Currency
}

func (rc Context) amount() string {
	return strings.TrimSpace(rc.Receipt.FormattedAmount() + " " + rc.currency())
}

// CompanyName is the name messages are signed with.
func (rc Context) CompanyName() string {
	if rc.Company != nil && rc.Company.Name != "" {
		return rc.Company.Name
	}
	return DefaultCompanyName
}

func (rc Context) date() string {
	return rc.Receipt.CreatedAt.UTC().Format("2006-01-02")
}

type Renderer struct {
	tr         *core.Translations
	uploadsDir string
	uploadsURL string
}

func NewRenderer(tr *core.Translations, uploads core.UploadsConfig) *Renderer {
	return &Renderer{
		tr:         tr,
		uploadsDir: uploads.Dir,
		uploadsURL: strings.TrimRight(uploads.URL, "/"),
	}
}

// t translates document labels. The embedded fonts have no Arabic glyphs, so RTL locales print with the default locale.
func (r *Renderer) t(locale, key string, params ...string) string {
	if core.IsRTL(locale) {
		locale = core.DefaultLocale
	}
	return r.tr.T(locale, key, params...)
}

// companyDetails returns the lines printed under the company name: address, phone and tax ID.
func (r *Renderer) companyDetails(locale string, c *company.Company) []string {
	if c == nil {
		return nil
	}
	lines := c.AddressLines()
	if c.Phone != "" {
		lines = append(lines, r.t(locale, "phone")+": "+c.Phone)
	}
	if c.TaxID != "" {
		lines = append(lines, r.t(locale, "tax_id")+": "+c.TaxID)
	}
	return lines
}

// logoPath maps an uploaded logo URL to its file, "" when the logo is not an upload.
func (r *Renderer) logoPath(logo string) string {
	if logo == "" || !strings.HasPrefix(logo, r.uploadsURL+"/") {
		return ""
	}
	return filepath.Join(r.uploadsDir, filepath.Base(logo))
}

func PDFFilename(number string) string     { return number + ".pdf" }
func ThermalFilename(number string) string { return number + "_thermal.png" }
