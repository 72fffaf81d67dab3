package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/YelzhanWeb/bistro/internal/adapter/logger"
	"github.com/YelzhanWeb/bistro/internal/interfaces"
)

var ErrNoRecipient = errors.New("notification has no e-mail or phone")

// LogNotifier renders notifications and writes them to the log instead of
// sending them. It stands in for the e-mail/SMS gateway.
type LogNotifier struct {
	logger logger.Logger
}

func NewLogNotifier(logger logger.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, event interfaces.NotificationEvent) error {
	if event.Recipient.Email == "" && event.Recipient.Phone == "" {
		return ErrNoRecipient
	}

	subject, body := Render(event)
	n.logger.Info("notification_sent", subject, "", map[string]interface{}{
		"event_id": event.ID,
		"kind":     event.Kind,
		"to":       recipientAddress(event.Recipient),
		"body":     body,
	})
	return nil
}

// Render builds the subject and body for an event.
func Render(event interfaces.NotificationEvent) (subject, body string) {
	name := event.Recipient.Name
	if name == "" {
		name = "guest"
	}

	switch event.Kind {
	case interfaces.NotificationOrderCreated:
		subject = fmt.Sprintf("Order %s received", event.OrderNumber)
		body = fmt.Sprintf("Hello %s, we received your order %s.", name, event.OrderNumber)
	case interfaces.NotificationOrderStatusChanged:
		subject = fmt.Sprintf("Order %s is %s", event.OrderNumber, event.NewStatus)
		body = fmt.Sprintf("Hello %s, your order %s changed from %s to %s.", name, event.OrderNumber, event.OldStatus, event.NewStatus)
	case interfaces.NotificationReservationRequested:
		subject = "Reservation request received"
		body = fmt.Sprintf("Hello %s, we received your reservation request #%d. We will confirm it shortly.", name, event.ReservationID)
	case interfaces.NotificationReservationConfirmed:
		subject = "Reservation confirmed"
		body = fmt.Sprintf("Hello %s, your reservation #%d is confirmed.", name, event.ReservationID)
		if event.Message != "" {
			body += " " + event.Message
		}
	case interfaces.NotificationReservationCancelled:
		subject = "Reservation cancelled"
		body = fmt.Sprintf("Hello %s, your reservation #%d has been cancelled.", name, event.ReservationID)
	default:
		subject = string(event.Kind)
		body = fmt.Sprintf("Hello %s, there is an update for you.", name)
	}
	return subject, body
}

func recipientAddress(r interfaces.Recipient) string {
	if r.Email != "" {
		return r.Email
	}
	return r.Phone
}
