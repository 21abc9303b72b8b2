package render

import (
	"bytes"
	"image"
	"os"

	"github.com/disintegration/imaging"
	"github.com/go-pdf/fpdf"
	"github.com/pkg/errors"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	pdfMargin     = 20.0 // mm
	pdfFont       = "go"
	pdfLogoWidth  = 50.0
	pdfLogoHeight = 25.0
)

// PDF renders the A4 receipt.
func (r *Renderer) PDF(rc Context) (*bytes.Buffer, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.AddUTF8FontFromBytes(pdfFont, "", goregular.TTF)
	pdf.AddUTF8FontFromBytes(pdfFont, "B", gobold.TTF)
	pdf.SetTitle(rc.Receipt.ReceiptNumber, true)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 2*pdfMargin
	locale := rc.Locale

	centered := func(style string, size, h float64, txt string) {
		pdf.SetFont(pdfFont, style, size)
		pdf.CellFormat(contentW, h, txt, "", 1, "C", false, 0, "")
	}

	// header
	if rc.Company != nil {
		r.pdfLogo(pdf, rc.Company.Logo, pageW)
		if rc.Company.Name != "" {
			centered("B", 24, 12, rc.Company.Name)
			pdf.Ln(2)
		}
		pdf.SetTextColor(128, 128, 128)
		for _, line := range r.companyDetails(locale, rc.Company) {
			centered("", 10, 5, line)
		}
		pdf.SetTextColor(0, 0, 0)
	}
	pdf.Ln(15)

	centered("B", 18, 10, r.t(locale, "receipt"))
	pdf.Ln(3)
	centered("", 12, 6, "N: "+rc.Receipt.ReceiptNumber)
	centered("", 12, 6, r.t(locale, "date")+": "+rc.date())
	pdf.Ln(10)

	// client
	if rc.Client != nil {
		labeled := func(label, value string) {
			pdf.SetFont(pdfFont, "B", 12)
			pdf.CellFormat(pdf.GetStringWidth(label+": ")+1, 7, label+": ", "", 0, "L", false, 0, "")
			pdf.SetFont(pdfFont, "", 12)
			pdf.CellFormat(0, 7, value, "", 1, "L", false, 0, "")
		}
		labeled(r.t(locale, "client"), rc.Client.Name)
		if rc.Client.Email != "" {
			labeled(r.t(locale, "email"), rc.Client.Email)
		}
		if rc.Client.WhatsApp != "" {
			labeled(r.t(locale, "whatsapp"), rc.Client.WhatsApp)
		}
	}
	pdf.Ln(10)

	// description / amount table
	descW, amountW := 120.0, 40.0
	pdf.SetFont(pdfFont, "B", 12)
	pdf.SetFillColor(0x3B, 0x82, 0xF6)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetDrawColor(0xE5, 0xE7, 0xEB)
	pdf.CellFormat(descW, 10, r.t(locale, "description"), "1", 0, "L", true, 0, "")
	pdf.CellFormat(amountW, 10, r.t(locale, "amount"), "1", 1, "R", true, 0, "")

	pdf.SetFont(pdfFont, "", 11)
	pdf.SetTextColor(0, 0, 0)
	x, y := pdf.GetX(), pdf.GetY()
	pdf.MultiCell(descW, 8, rc.Receipt.Description, "1", "L", false)
	rowH := pdf.GetY() - y
	pdf.SetXY(x+descW, y)
	pdf.CellFormat(amountW, rowH, rc.amount(), "1", 1, "R", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont(pdfFont, "B", 12)
	label := r.t(locale, "payment_method") + ": "
	pdf.CellFormat(pdf.GetStringWidth(label)+1, 7, label, "", 0, "L", false, 0, "")
	pdf.SetFont(pdfFont, "", 12)
	pdf.CellFormat(0, 7, r.t(locale, rc.Receipt.PaymentLabelKey()), "", 1, "L", false, 0, "")

	pdf.Ln(20)
	pdf.SetTextColor(128, 128, 128)
	centered("", 12, 6, r.t(locale, "thank_you"))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, errors.Wrap(err, "rendering pdf")
	}
	return &buf, nil
}

// pdfLogo draws the company logo centered, scaled to fit the logo box. Unreadable logos are skipped.
func (r *Renderer) pdfLogo(pdf *fpdf.Fpdf, logo string, pageW float64) {
	path := r.logoPath(logo)
	if path == "" {
		return
	}
	if _, err := os.Stat(path); err != nil {
		return
	}
	img, err := imaging.Open(path)
	if err != nil {
		return
	}

	var png bytes.Buffer
	if err = imaging.Encode(&png, img, imaging.PNG); err != nil {
		return
	}
	pdf.RegisterImageOptionsReader("logo", fpdf.ImageOptions{ImageType: "PNG"}, &png)
	if !pdf.Ok() {
		pdf.ClearError()
		return
	}

	w, h := fitBox(img.Bounds(), pdfLogoWidth, pdfLogoHeight)
	pdf.ImageOptions("logo", (pageW-w)/2, pdf.GetY(), w, h, true, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	pdf.Ln(5)
}

// fitBox scales bounds to fit in maxW x maxH, keeping the aspect ratio.
func fitBox(bounds image.Rectangle, maxW, maxH float64) (float64, float64) {
	w, h := float64(bounds.Dx()), float64(bounds.Dy())
	if w == 0 || h == 0 {
		return maxW, maxH
	}
	scale := maxW / w
	if h*scale > maxH {
		scale = maxH / h
	}
	return w * scale, h * scale
}
