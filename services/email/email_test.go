package emailsvc

import (
	"bytes"
	"encoding/base64"
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/quickreceipt/core"
	"github.com/trezcool/quickreceipt/services/logger"
)

func newTestMessage(t *testing.T) *core.EmailMessage {
	msg := &core.EmailMessage{
		To:      []mail.Address{{Name: "Acme", Address: "billing@acme.io"}},
		Subject: "Receipt REC-20240101-0001",
		BodyStr: "Hello Acme",
	}
	require.NoError(t, msg.Attach(strings.NewReader("%PDF-1.3 fake"), "REC-20240101-0001.pdf", "application/pdf"))
	return msg
}

func TestBuildMessage(t *testing.T) {
	from := mail.Address{Name: "QuickReceipt", Address: "noreply@example.com"}
	msg := newTestMessage(t)
	msg.HTMLContent = "<p>Hello Acme</p>"

	var buf bytes.Buffer
	_, err := buildMessage(from, "[QR] ", *msg).WriteTo(&buf)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Subject: [QR] Receipt REC-20240101-0001")
	assert.Contains(t, out, `To: "Acme" <billing@acme.io>`)
	assert.Contains(t, out, "text/html")
	assert.Contains(t, out, "attachment; filename=")
	assert.Contains(t, out, base64.StdEncoding.EncodeToString([]byte("%PDF-1.3 fake")))
}

func TestConsoleServiceMock(t *testing.T) {
	ResetSentMessages()
	svc := NewConsoleServiceMock()

	svc.SendMessages(newTestMessage(t), &core.EmailMessage{Subject: "no recipient", BodyStr: "x"})
	if assert.Len(t, SentMessages, 1) {
		assert.Equal(t, "Receipt REC-20240101-0001", SentMessages[0].Subject)
	}
}

func TestSendgridService_prepare(t *testing.T) {
	conf := &core.Config{AppName: "QR", Email: core.EmailConfig{DefaultFrom: "QR <noreply@example.com>", SendgridApiKey: "key"}}
	svc := NewSendgridService(conf, logsvc.NewNopLogger()).(*sendgridService)

	m := svc.prepare(*newTestMessage(t))
	assert.Equal(t, "noreply@example.com", m.From.Address)
	if assert.Len(t, m.Personalizations, 1) {
		assert.Equal(t, "[QR] Receipt REC-20240101-0001", m.Personalizations[0].Subject)
	}
	if assert.Len(t, m.Attachments, 1) {
		assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("%PDF-1.3 fake")), m.Attachments[0].Content)
	}
}

func TestNew(t *testing.T) {
	logger := logsvc.NewNopLogger()
	tests := []struct {
		backend string
		apiKey  string
		wantErr bool
	}{
		{backend: "console"},
		{backend: "smtp"},
		{backend: "sendgrid", apiKey: "key"},
		{backend: "sendgrid", wantErr: true},
		{backend: "pigeon", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			conf := &core.Config{Email: core.EmailConfig{Backend: tt.backend, SendgridApiKey: tt.apiKey}}
			svc, err := New(conf, logger)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, svc)
		})
	}
}
