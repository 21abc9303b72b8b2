package emailsvc

import (
	"github.com/pkg/errors"

	"github.com/trezcool/quickreceipt/core"
)

// New returns the EmailService of the configured backend.
func New(conf *core.Config, logger core.Logger) (core.EmailService, error) {
	switch conf.Email.Backend {
	case "", "console":
		return NewConsoleService(conf, logger), nil
	case "sendgrid":
		if conf.Email.SendgridApiKey == "" {
			return nil, errors.New("email.sendgridApiKey is required by the sendgrid backend")
		}
		return NewSendgridService(conf, logger), nil
	case "smtp":
		return NewSMTPService(conf, logger), nil
	default:
		return nil, errors.Errorf("unknown email backend %q", conf.Email.Backend)
	}
}
