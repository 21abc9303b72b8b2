package emailsvc

import (
	"io"
	"net/mail"

	gomail "github.com/go-mail/mail"

	"github.com/trezcool/quickreceipt/core"
)

// buildMessage converts msg to a MIME message, shared by the console and SMTP backends.
func buildMessage(from mail.Address, subjPrefix string, msg core.EmailMessage) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", from.Address, from.Name)
	m.SetHeader("Subject", subjPrefix+msg.Subject)
	setAddresses(m, "To", msg.To)
	setAddresses(m, "Cc", msg.Cc)
	setAddresses(m, "Bcc", msg.Bcc)

	m.SetBody("text/plain", msg.BodyStr)
	if msg.HTMLContent != "" {
		m.AddAlternative("text/html", msg.HTMLContent)
	}

	for _, at := range msg.Attachments {
		content := at.Content.Bytes()
		m.Attach(
			at.Filename,
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(content)
				return err
			}),
			gomail.SetHeader(map[string][]string{"Content-Type": {at.ContentType}}),
		)
	}
	return m
}

func setAddresses(m *gomail.Message, field string, addrs []mail.Address) {
	if len(addrs) == 0 {
		return
	}
	formatted := make([]string, 0, len(addrs))
	for _, a := range addrs {
		formatted = append(formatted, m.FormatAddress(a.Address, a.Name))
	}
	m.SetHeader(field, formatted...)
}
