package core

import (
	"bytes"
	"io"
	"net/http"
	"net/mail"

	"github.com/pkg/errors"
)

type (
	// Attachment content is kept raw; each EmailService encodes it the way its transport expects.
	Attachment struct {
		Content     *bytes.Buffer
		ContentType string
		Filename    string
	}

	EmailMessage struct {
		To          []mail.Address
		Cc          []mail.Address
		Bcc         []mail.Address
		Subject     string
		BodyStr     string // simple text/plain content
		HTMLContent string
		Attachments []Attachment
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

func (m *EmailMessage) Attach(r io.Reader, filename string, ct ...string) error {
	at := Attachment{Filename: filename, Content: new(bytes.Buffer)}
	if _, err := io.Copy(at.Content, r); err != nil {
		return errors.Wrap(err, "reading attachment")
	}

	if len(ct) > 0 {
		at.ContentType = ct[0]
	} else {
		at.ContentType = http.DetectContentType(at.Content.Bytes())
	}
	m.Attachments = append(m.Attachments, at)
	return nil
}

func (m *EmailMessage) HasRecipients() bool  { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool     { return m.BodyStr != "" || m.HTMLContent != "" }
func (m *EmailMessage) HasAttachments() bool { return len(m.Attachments) > 0 }

// ParseAddress parses `Name <addr>` or a bare address; an invalid input yields an Address with only the raw string.
func ParseAddress(s string) mail.Address {
	if addr, err := mail.ParseAddress(s); err == nil {
		return *addr
	}
	return mail.Address{Address: s}
}
