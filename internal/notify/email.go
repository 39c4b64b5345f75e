package notify

import (
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type EmailSender interface {
	SendEmail(to, toName, subject, body string) error
}

type SendgridSender struct {
	apiKey   string
	from     string
	fromName string
}

func NewSendgridSender(apiKey, from, fromName string) *SendgridSender {
	return &SendgridSender{apiKey: apiKey, from: from, fromName: fromName}
}

func (s *SendgridSender) SendEmail(to, toName, subject, body string) error {
	message := mail.NewSingleEmail(
		mail.NewEmail(s.fromName, s.from),
		subject,
		mail.NewEmail(toName, to),
		body,
		body,
	)
	client := sendgrid.NewSendClient(s.apiKey)
	resp, err := client.Send(message)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: status %d", resp.StatusCode)
	}
	return nil
}

// NoopEmailSender is used when no sendgrid key is configured.
type NoopEmailSender struct{}

func (NoopEmailSender) SendEmail(string, string, string, string) error {
	return nil
}
