package company

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/quickreceipt/core"
)

type Company struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"-" db:"user_id"`
	Name      string    `json:"name" db:"name"`
	Address   string    `json:"address" db:"address"`
	TaxID     string    `json:"tax_id" db:"tax_id"`
	Phone     string    `json:"phone" db:"phone"`
	Logo      string    `json:"logo" db:"logo"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// AddressLines splits a multi-line address, dropping blank lines.
func (c Company) AddressLines() []string {
	lines := make([]string, 0, 3)
	for _, l := range strings.Split(c.Address, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// CompanyData contains the editable information of a Company.
type CompanyData struct {
	Name    string `json:"name" form:"name" validate:"notblank,max=200"`
	Address string `json:"address" form:"address" validate:"max=500"`
	TaxID   string `json:"tax_id" form:"tax_id" validate:"max=50"`
	Phone   string `json:"phone" form:"phone" validate:"max=50"`
}

func (cd *CompanyData) Validate(validate *validator.Validate) error {
	cd.Name = core.CleanString(cd.Name)
	cd.Address = strings.TrimSpace(cd.Address)
	cd.TaxID = core.CleanString(cd.TaxID)
	cd.Phone = core.CleanString(cd.Phone)
	return validate.Struct(cd)
}
