package amqp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/YelzhanWeb/bistro/internal/adapter/logger"
	"github.com/YelzhanWeb/bistro/internal/interfaces"
)

type NotificationHandler struct {
	notifier interfaces.Notifier
	logger   logger.Logger
}

func NewNotificationHandler(notifier interfaces.Notifier, logger logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		notifier: notifier,
		logger:   logger,
	}
}

// HandleNotification decodes one broker delivery. A returned error sends the
// message to the dead-letter queue.
func (h *NotificationHandler) HandleNotification(ctx context.Context, body []byte) error {
	var event interfaces.NotificationEvent
	if err := json.Unmarshal(body, &event); err != nil {
		h.logger.Error("message_parse_failed", "Failed to parse notification", "", nil, err)
		return err
	}
	if event.Kind == "" {
		return fmt.Errorf("notification %s has no kind", event.ID)
	}

	h.logger.Debug("notification_received", fmt.Sprintf("Received %s notification", event.Kind), "", map[string]interface{}{
		"event_id":       event.ID,
		"order_number":   event.OrderNumber,
		"reservation_id": event.ReservationID,
	})

	return h.notifier.Notify(ctx, event)
}
