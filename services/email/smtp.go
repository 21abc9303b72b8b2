package emailsvc

import (
	"net/mail"

	gomail "github.com/go-mail/mail"

	"github.com/trezcool/quickreceipt/core"
)

type smtpService struct {
	dialer     *gomail.Dialer
	from       mail.Address
	subjPrefix string
	logger     core.Logger
}

var _ core.EmailService = (*smtpService)(nil)

func NewSMTPService(conf *core.Config, logger core.Logger) core.EmailService {
	smtp := conf.Email.SMTP
	return &smtpService{
		dialer:     gomail.NewDialer(smtp.Host, smtp.Port, smtp.User, smtp.Password),
		from:       core.ParseAddress(conf.Email.DefaultFrom),
		subjPrefix: "[" + conf.AppName + "] ",
		logger:     logger,
	}
}

// SendMessages delivers all messages over a single SMTP connection, in the background.
func (svc smtpService) SendMessages(messages ...*core.EmailMessage) {
	toSend := make([]*gomail.Message, 0, len(messages))
	for _, msg := range messages {
		if msg.HasRecipients() && (msg.HasContent() || msg.HasAttachments()) {
			toSend = append(toSend, buildMessage(svc.from, svc.subjPrefix, *msg))
		}
	}
	if len(toSend) == 0 {
		return
	}

	go func() {
		if err := svc.dialer.DialAndSend(toSend...); err != nil {
			svc.logger.Error("sending email", err)
		}
	}()
}
