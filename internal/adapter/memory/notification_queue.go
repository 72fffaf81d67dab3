package memory

import (
	"context"
	"errors"

	"github.com/YelzhanWeb/bistro/internal/interfaces"
)

var ErrQueueFull = errors.New("notification queue is full")

// NotificationQueue is an in-process publisher; a notification worker drains
// Events().
type NotificationQueue struct {
	events chan interfaces.NotificationEvent
}

func NewNotificationQueue(size int) *NotificationQueue {
	return &NotificationQueue{events: make(chan interfaces.NotificationEvent, size)}
}

// PublishNotification never blocks the caller.
func (q *NotificationQueue) PublishNotification(ctx context.Context, event interfaces.NotificationEvent) error {
	select {
	case q.events <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *NotificationQueue) Events() <-chan interfaces.NotificationEvent {
	return q.events
}

// Close stops the worker once buffered events are drained.
func (q *NotificationQueue) Close() {
	close(q.events)
}
