package mailer

import (
	"fmt"
	"net/smtp"
	"strings"
)

// Mailer delivers plain-text mail over SMTP. Templating is deliberately
// out of scope; callers pass the finished body.
type Mailer struct {
	Addr string
	From string
}

func (m *Mailer) Send(to, subject, body string) error {
	if m.Addr == "" {
		return fmt.Errorf("smtp address is not configured")
	}

	msg := strings.Join([]string{
		"From: " + m.From,
		"To: " + to,
		"Subject: " + subject,
		"",
		body,
	}, "\r\n")

	if err := smtp.SendMail(m.Addr, nil, m.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}
	return nil
}
