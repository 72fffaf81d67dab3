package interfaces

import (
	"context"
	"time"
)

type NotificationKind string

const (
	NotificationOrderCreated         NotificationKind = "order.created"
	NotificationOrderStatusChanged   NotificationKind = "order.status_changed"
	NotificationReservationRequested NotificationKind = "reservation.requested"
	NotificationReservationConfirmed NotificationKind = "reservation.confirmed"
	NotificationReservationCancelled NotificationKind = "reservation.cancelled"
)

// Recipient is who a notification is addressed to.
type Recipient struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Сообщения RabbitMQ
type NotificationEvent struct {
	ID            string           `json:"id"`
	Kind          NotificationKind `json:"kind"`
	OrderNumber   string           `json:"order_number,omitempty"`
	ReservationID int64            `json:"reservation_id,omitempty"`
	OldStatus     string           `json:"old_status,omitempty"`
	NewStatus     string           `json:"new_status,omitempty"`
	ChangedBy     string           `json:"changed_by,omitempty"`
	Recipient     Recipient        `json:"recipient"`
	Message       string           `json:"message,omitempty"`
	OccurredAt    time.Time        `json:"occurred_at"`
}

// NotificationPublisher is called after a transaction commits. Callers log
// and swallow its errors.
type NotificationPublisher interface {
	PublishNotification(ctx context.Context, event NotificationEvent) error
}

type MessageConsumer interface {
	ConsumeNotifications(ctx context.Context, handler NotificationHandler) error
}

type NotificationHandler func(ctx context.Context, body []byte) error

// Notifier delivers a notification to a client or the restaurant (e-mail, SMS).
type Notifier interface {
	Notify(ctx context.Context, event NotificationEvent) error
}
