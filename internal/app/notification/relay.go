package notification

import (
	"context"
	"errors"
	"time"

	"github.com/YelzhanWeb/bistro/internal/adapter/logger"
	"github.com/YelzhanWeb/bistro/internal/interfaces"
)

var ErrRelayFull = errors.New("notification relay is full")

// Relay buffers events and forwards them to a downstream publisher from the
// Run goroutine. PublishNotification only enqueues and never blocks.
type Relay struct {
	next    interfaces.NotificationPublisher
	events  chan interfaces.NotificationEvent
	timeout time.Duration
	logger  logger.Logger
}

func NewRelay(next interfaces.NotificationPublisher, size int, timeout time.Duration, logger logger.Logger) *Relay {
	if size < 1 {
		size = 1
	}
	return &Relay{
		next:    next,
		events:  make(chan interfaces.NotificationEvent, size),
		timeout: timeout,
		logger:  logger,
	}
}

func (r *Relay) PublishNotification(ctx context.Context, event interfaces.NotificationEvent) error {
	select {
	case r.events <- event:
		return nil
	default:
		return ErrRelayFull
	}
}

// Run forwards events one at a time until ctx is cancelled. Events still
// buffered at that point are dropped.
func (r *Relay) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			if n := len(r.events); n > 0 {
				r.logger.Warn("notification_relay_dropped", "Dropping buffered notifications on shutdown", "shutdown", map[string]interface{}{
					"pending": n,
				}, nil)
			}
			return nil
		case event := <-r.events:
			r.forward(ctx, event)
		}
	}
}

func (r *Relay) forward(ctx context.Context, event interfaces.NotificationEvent) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	if err := r.next.PublishNotification(ctx, event); err != nil {
		r.logger.Warn("notification_publish_failed", "Failed to forward notification", "", map[string]interface{}{
			"event_id": event.ID,
			"kind":     event.Kind,
		}, err)
	}
}
