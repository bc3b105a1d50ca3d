package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/Skotchmaster/accounts_service/pkg/logging"
)

// Sender lets tests swap SMTP out for a recorder.
type Sender interface {
	Send(to, subject, body string) error
}

type accountEvent struct {
	Type              string `json:"type"`
	Email             string `json:"email"`
	VerificationToken string `json:"verification_token"`
}

// Worker consumes account events from kafka and turns them into mail. The
// accounts service itself never talks SMTP; email delivery rides the bus.
type Worker struct {
	Reader *kafka.Reader
	Mailer Sender

	// Origin is the public base URL placed into verification links.
	Origin string
}

func (w *Worker) Run(ctx context.Context) error {
	l := logging.FromContext(ctx).With("svc", "mailworker")

	for {
		msg, err := w.Reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("kafka read failed: %w", err)
		}

		var event accountEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			l.Error("skipping malformed event", "offset", msg.Offset, "error", err)
			continue
		}

		if err := w.handle(event); err != nil {
			l.Error("mail delivery failed", "type", event.Type, "error", err)
			continue
		}
		l.Info("mail delivered", "type", event.Type)
	}
}

func (w *Worker) handle(event accountEvent) error {
	switch event.Type {
	case "account_registered":
		body := fmt.Sprintf(
			"Thanks for registering!\n\nPlease verify your email address with the token below:\n\n%s\n\nor follow %s/accounts/verify-email?token=%s",
			event.VerificationToken, w.Origin, event.VerificationToken,
		)
		return w.Mailer.Send(event.Email, "Verify your email", body)

	case "email_already_registered":
		body := "Your email is already registered. If you forgot your password, contact support."
		return w.Mailer.Send(event.Email, "Email already registered", body)

	case "account_verified":
		// No mail for this one.
		return nil
	}
	return nil
}
