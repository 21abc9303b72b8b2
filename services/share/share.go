package sharesvc

import (
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/trezcool/quickreceipt/core"
	"github.com/trezcool/quickreceipt/services/render"
)

var ErrInvalidLink = errors.New("invalid or expired link")

// Claims of a public receipt link.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
}

// Message is what the UI needs to share a receipt by WhatsApp or e-mail.
type Message struct {
	Message        string `json:"message"`
	WhatsAppNumber string `json:"whatsapp_number"`
	WhatsAppURL    string `json:"whatsapp_url"`
	Email          string `json:"email"`
	Subject        string `json:"subject"`
	PublicURL      string `json:"public_url"`
}

type Options struct {
	AppName string
	Secret  string
	BaseURL string // public base URL of the server
	TTL     time.Duration
}

type Service struct {
	tr   *core.Translations
	opts Options
	now  func() time.Time
}

func NewService(tr *core.Translations, opts Options) *Service {
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &Service{tr: tr, opts: opts, now: time.Now}
}

// Build composes the share message of rc.Receipt, along with a signed public link to its PDF.
func (svc *Service) Build(rc render.Context) (Message, error) {
	var clientName, number, email string
	if rc.Client != nil {
		clientName = rc.Client.Name
		number = rc.Client.WhatsApp
		email = rc.Client.Email
	}
	currency := rc.Currency
	if currency == "" {
		currency = rc.Settings.Currency
	}

	text := svc.tr.T(rc.Locale, "share_message",
		clientName,
		rc.Receipt.ReceiptNumber,
		rc.CompanyName(),
		strings.TrimSpace(rc.Receipt.FormattedAmount()+" "+currency),
	)
	if rc.Company != nil && rc.Company.TaxID != "" {
		text += "\n\n" + svc.tr.T(rc.Locale, "tax_id") + ": " + rc.Company.TaxID
	}

	token, err := svc.Sign(rc.Receipt.UserID, rc.Receipt.ID)
	if err != nil {
		return Message{}, err
	}
	publicURL := svc.opts.BaseURL + "/s/" + token
	text += "\n\n" + publicURL

	return Message{
		Message:        text,
		WhatsAppNumber: number,
		WhatsAppURL:    WhatsAppURL(number, text),
		Email:          email,
		Subject:        svc.tr.T(rc.Locale, "receipt") + " " + rc.Receipt.ReceiptNumber,
		PublicURL:      publicURL,
	}, nil
}

// WhatsAppURL builds a wa.me link; the number keeps its digits only.
func WhatsAppURL(number, text string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, number)
	return "https://wa.me/" + digits + "?text=" + url.QueryEscape(text)
}

// Sign returns a token granting read access to a receipt until the link expires.
func (svc *Service) Sign(userID, receiptID string) (string, error) {
	now := svc.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    svc.opts.AppName,
			Subject:   receiptID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(svc.opts.TTL)),
		},
		UserID: userID,
	}
	ss, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(svc.opts.Secret))
	if err != nil {
		return "", errors.Wrap(err, "signing share link")
	}
	return ss, nil
}

// Parse returns the owner and receipt IDs of a share token.
func (svc *Service) Parse(token string) (userID, receiptID string, err error) {
	var claims Claims
	_, err = jwt.ParseWithClaims(
		token,
		&claims,
		func(*jwt.Token) (interface{}, error) { return []byte(svc.opts.Secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(svc.opts.AppName),
		jwt.WithTimeFunc(svc.now),
	)
	if err != nil || claims.Subject == "" || claims.UserID == "" {
		return "", "", ErrInvalidLink
	}
	return claims.UserID, claims.Subject, nil
}
