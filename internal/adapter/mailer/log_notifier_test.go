package mailer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/YelzhanWeb/bistro/internal/adapter/logger"
	"github.com/YelzhanWeb/bistro/internal/interfaces"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name    string
		event   interfaces.NotificationEvent
		subject string
		body    string
	}{
		{
			name: "order status",
			event: interfaces.NotificationEvent{
				Kind:        interfaces.NotificationOrderStatusChanged,
				OrderNumber: "ORD-A-20260314-0042",
				OldStatus:   "pending",
				NewStatus:   "confirmed",
				Recipient:   interfaces.Recipient{Name: "Ada Lovelace"},
			},
			subject: "Order ORD-A-20260314-0042 is confirmed",
			body:    "from pending to confirmed",
		},
		{
			name: "reservation confirmed with message",
			event: interfaces.NotificationEvent{
				Kind:          interfaces.NotificationReservationConfirmed,
				ReservationID: 7,
				Message:       "Table by the window.",
			},
			subject: "Reservation confirmed",
			body:    "Hello guest, your reservation #7 is confirmed. Table by the window.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject, body := Render(tt.event)
			if subject != tt.subject {
				t.Errorf("subject = %q, want %q", subject, tt.subject)
			}
			if !strings.Contains(body, tt.body) {
				t.Errorf("body = %q, want it to contain %q", body, tt.body)
			}
		})
	}
}

func TestNotifyRequiresRecipient(t *testing.T) {
	n := NewLogNotifier(logger.Nop())

	err := n.Notify(context.Background(), interfaces.NotificationEvent{Kind: interfaces.NotificationOrderCreated})
	if !errors.Is(err, ErrNoRecipient) {
		t.Fatalf("error = %v, want ErrNoRecipient", err)
	}

	err = n.Notify(context.Background(), interfaces.NotificationEvent{
		Kind:      interfaces.NotificationOrderCreated,
		Recipient: interfaces.Recipient{Phone: "+33 1 23 45 67 89"},
	})
	if err != nil {
		t.Fatalf("Notify error: %v", err)
	}
}
