package receipt

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/quickreceipt/core"
	"github.com/trezcool/quickreceipt/core/client"
)

// Payment methods
const (
	PaymentCash     = "cash"
	PaymentCard     = "card"
	PaymentTransfer = "transfer"
	PaymentCheck    = "check"
)

// NewClientID is the client_id value asking for the client to be created along with the receipt.
const NewClientID = "new"

var (
	PaymentMethods = []string{PaymentCash, PaymentCard, PaymentTransfer, PaymentCheck}

	// MaxAmount is the largest amount a NUMERIC(10,2) column holds.
	MaxAmount = decimal.RequireFromString("99999999.99")

	errClientNameRequired = "please enter the client name"
	errClientRequired     = "please select or add a client"
	errInvalidAmount      = "enter a valid, positive amount"
)

type Receipt struct {
	ID            string          `json:"id" db:"id"`
	UserID        string          `json:"-" db:"user_id"`
	ReceiptNumber string          `json:"receipt_number" db:"receipt_number"`
	Sequence      int             `json:"sequence" db:"sequence"`
	ClientID      null.String     `json:"client_id" db:"client_id"`
	CompanyID     null.String     `json:"company_id" db:"company_id"`
	Description   string          `json:"description" db:"description"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	PaymentMethod string          `json:"payment_method" db:"payment_method"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"` // UTC
}

// PaymentLabelKey is the translation key of the receipt's payment method.
func (r Receipt) PaymentLabelKey() string {
	return "payment." + r.PaymentMethod
}

// FormattedAmount renders the amount with 2 decimals.
func (r Receipt) FormattedAmount() string {
	return r.Amount.StringFixed(2)
}

// AmountInput accepts a JSON number or string. A blank amount means zero.
type AmountInput string

func (a *AmountInput) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "null" {
		s = ""
	}
	*a = AmountInput(s)
	return nil
}

// ParseAmount parses a decimal amount; "," is accepted as the decimal separator.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return decimal.Zero, nil
	}
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "parsing amount")
	}
	amount = amount.Round(2)
	if amount.IsNegative() || amount.GreaterThan(MaxAmount) {
		return decimal.Zero, errors.Errorf("amount out of range: %s", s)
	}
	return amount, nil
}

// NewReceipt contains information needed to issue a new Receipt.
type NewReceipt struct {
	// ClientID is either an existing client's ID or NewClientID.
	ClientID          string      `json:"client_id" form:"client_id"`
	NewClientName     string      `json:"new_client_name" form:"new_client_name"`
	NewClientWhatsApp string      `json:"new_client_whatsapp" form:"new_client_whatsapp"`
	NewClientEmail    string      `json:"new_client_email" form:"new_client_email" validate:"omitempty,email"`
	CompanyID         string      `json:"company_id" form:"company_id"`
	Description       string      `json:"description" form:"description" validate:"max=2000"`
	Amount            AmountInput `json:"amount" form:"amount"`
	PaymentMethod     string      `json:"payment_method" form:"payment_method" validate:"oneof=cash card transfer check"`

	amount decimal.Decimal
}

func (nr *NewReceipt) IsNewClient() bool { return nr.ClientID == NewClientID }

func (nr *NewReceipt) NewClientData() client.ClientData {
	cd := client.ClientData{
		Name:     nr.NewClientName,
		WhatsApp: nr.NewClientWhatsApp,
		Email:    nr.NewClientEmail,
	}
	cd.Clean()
	return cd
}

func (nr *NewReceipt) Validate(validate *validator.Validate) error {
	nr.ClientID = core.CleanString(nr.ClientID)
	nr.CompanyID = core.CleanString(nr.CompanyID)
	nr.NewClientName = core.CleanString(nr.NewClientName)
	nr.NewClientEmail = core.CleanString(nr.NewClientEmail, true /* lower */)
	nr.Description = strings.TrimSpace(nr.Description)
	if nr.PaymentMethod = core.CleanString(nr.PaymentMethod, true /* lower */); nr.PaymentMethod == "" {
		nr.PaymentMethod = PaymentCash
	}

	if err := validate.Struct(nr); err != nil {
		return err
	}

	var fldErrs []core.FieldError
	switch {
	case nr.ClientID == "":
		fldErrs = append(fldErrs, core.FieldError{Field: "client_id", Error: errClientRequired})
	case nr.IsNewClient() && nr.NewClientName == "":
		fldErrs = append(fldErrs, core.FieldError{Field: "new_client_name", Error: errClientNameRequired})
	}
	amount, err := ParseAmount(string(nr.Amount))
	if err != nil {
		fldErrs = append(fldErrs, core.FieldError{Field: "amount", Error: errInvalidAmount})
	}
	if len(fldErrs) > 0 {
		return core.NewValidationError(nil, fldErrs...)
	}
	nr.amount = amount
	return nil
}

type QueryFilter struct {
	Search        string    `query:"search"`
	ClientID      string    `query:"client_id"`
	CompanyID     string    `query:"company_id"`
	PaymentMethod string    `query:"payment_method"`
	CreatedFrom   time.Time `query:"created_from"`
	CreatedTo     time.Time `query:"created_to"`
	Limit         int       `query:"limit"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.ClientID = core.CleanString(qf.ClientID)
	qf.CompanyID = core.CleanString(qf.CompanyID)
	qf.PaymentMethod = core.CleanString(qf.PaymentMethod, true /* lower */)
	if qf.Limit < 0 {
		qf.Limit = 0
	}
}
