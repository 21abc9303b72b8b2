package client

import (
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/quickreceipt/core"
)

type Client struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"-" db:"user_id"`
	Name      string    `json:"name" db:"name"`
	WhatsApp  string    `json:"whatsapp" db:"whatsapp"`
	Email     string    `json:"email" db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// ClientData contains the editable information of a Client.
type ClientData struct {
	Name     string `json:"name" form:"name" validate:"notblank,max=200"`
	WhatsApp string `json:"whatsapp" form:"whatsapp" validate:"max=30"`
	Email    string `json:"email" form:"email" validate:"omitempty,email,max=200"`
}

func (cd *ClientData) Validate(validate *validator.Validate) error {
	cd.Clean()
	return validate.Struct(cd)
}

func (cd *ClientData) Clean() {
	cd.Name = core.CleanString(cd.Name)
	cd.WhatsApp = CleanPhone(cd.WhatsApp)
	cd.Email = core.CleanString(cd.Email, true /* lower */)
}

// CleanPhone keeps the digits of a phone number and its leading "+".
func CleanPhone(phone string) string {
	phone = strings.TrimSpace(phone)
	var b strings.Builder
	for i, r := range phone {
		if unicode.IsDigit(r) || (i == 0 && r == '+') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

type QueryFilter struct {
	Search string `query:"search"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
