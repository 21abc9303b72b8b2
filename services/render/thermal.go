package render

import (
	"bytes"
	"image"
	"image/color"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/pkg/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	thermalDPI      = 203
	thermalMargin   = 8
	thermalMaxLines = 4 // description
	thermalMaxRows  = 30
)

// thermalMetrics are the font sizes (px) and line heights of a paper width class.
type thermalMetrics struct {
	bold, normal, small    float64
	lineHeight, smallLineH float64
}

func metricsFor(widthMM int) thermalMetrics {
	switch {
	case widthMM <= 48:
		return thermalMetrics{bold: 14, normal: 12, small: 10, lineHeight: 22, smallLineH: 18}
	case widthMM <= 58:
		return thermalMetrics{bold: 18, normal: 14, small: 12, lineHeight: 28, smallLineH: 22}
	default:
		return thermalMetrics{bold: 22, normal: 16, small: 14, lineHeight: 32, smallLineH: 26}
	}
}

// ThermalWidthPx converts a paper width to printer dots.
func ThermalWidthPx(widthMM int) int {
	return int(float64(widthMM) * thermalDPI / 25.4)
}

var (
	fontsOnce             sync.Once
	regularFont, boldFont *truetype.Font
)

func loadFonts() {
	regularFont, _ = truetype.Parse(goregular.TTF)
	boldFont, _ = truetype.Parse(gobold.TTF)
}

// face falls back to the fixed basic font when the TrueType font could not be parsed.
func face(f *truetype.Font, size float64) font.Face {
	if f == nil {
		return basicfont.Face7x13
	}
	return truetype.NewFace(f, &truetype.Options{Size: size, Hinting: font.HintingFull})
}

type thermalCanvas struct {
	dc    *gg.Context
	width float64
	y     float64

	bold, normal, small font.Face
}

func (c *thermalCanvas) centered(f font.Face, txt string, advance float64) {
	c.dc.SetFontFace(f)
	w, _ := c.dc.MeasureString(txt)
	c.dc.DrawStringAnchored(txt, (c.width-w)/2, c.y, 0, 1)
	c.y += advance
}

func (c *thermalCanvas) left(f font.Face, txt string, advance float64) {
	c.dc.SetFontFace(f)
	c.dc.DrawStringAnchored(txt, thermalMargin, c.y, 0, 1)
	c.y += advance
}

func (c *thermalCanvas) separator(before, lineWidth, after float64) {
	c.y += before
	c.dc.SetLineWidth(lineWidth)
	c.dc.DrawLine(thermalMargin, c.y, c.width-thermalMargin, c.y)
	c.dc.Stroke()
	c.y += after
}

// Thermal renders the receipt for a thermal printer, as a PNG cropped to its content.
func (r *Renderer) Thermal(rc Context) (*bytes.Buffer, error) {
	fontsOnce.Do(loadFonts)

	widthMM := rc.Settings.ThermalWidth
	if widthMM == 0 {
		widthMM = 58
	}
	m := metricsFor(widthMM)
	widthPx := ThermalWidthPx(widthMM)
	heightPx := thermalMaxRows*int(m.lineHeight) + 150

	dc := gg.NewContext(widthPx, heightPx)
	dc.SetColor(color.White)
	dc.Clear()
	dc.SetColor(color.Black)

	c := &thermalCanvas{
		dc:     dc,
		width:  float64(widthPx),
		y:      thermalMargin + 5,
		bold:   face(boldFont, m.bold),
		normal: face(regularFont, m.normal),
		small:  face(regularFont, m.small),
	}
	locale := rc.Locale

	// header
	companyName := DefaultCompanyName
	if rc.Company != nil {
		companyName = rc.Company.Name
	}
	if companyName != "" {
		c.centered(c.bold, companyName, m.lineHeight+2)
	}
	for _, line := range r.companyDetails(locale, rc.Company) {
		c.centered(c.small, line, m.smallLineH)
	}
	c.separator(8, 2, 12)

	title := strings.ToUpper(r.t(locale, "receipt")) + " N: " + rc.Receipt.ReceiptNumber
	c.centered(c.bold, title, m.lineHeight)
	c.centered(c.normal, r.t(locale, "date")+": "+rc.date(), m.lineHeight)
	c.separator(8, 1, 12)

	if rc.Client != nil {
		c.centered(c.normal, r.t(locale, "client")+": "+rc.Client.Name, m.lineHeight)
	}
	c.separator(8, 1, 12)

	// description
	dc.SetFontFace(c.normal)
	lines := dc.WordWrap(rc.Receipt.Description, float64(widthPx-2*thermalMargin))
	if len(lines) > thermalMaxLines {
		lines = lines[:thermalMaxLines]
	}
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			c.left(c.normal, line, m.smallLineH)
		}
	}
	c.separator(12, 3, 15)

	c.centered(c.bold, r.t(locale, "total")+": "+rc.amount(), m.lineHeight+5)
	c.centered(c.normal, r.t(locale, "payment")+": "+r.t(locale, rc.Receipt.PaymentLabelKey()), m.lineHeight)
	c.separator(12, 1, 15)

	c.centered(c.small, r.t(locale, "thank_you"), m.smallLineH+15)

	height := int(c.y)
	if height > heightPx {
		height = heightPx
	}
	img := imaging.Crop(dc.Image(), image.Rect(0, 0, widthPx, height))

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, errors.Wrap(err, "encoding thermal receipt")
	}
	return &buf, nil
}
