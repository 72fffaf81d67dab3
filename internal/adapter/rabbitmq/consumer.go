package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/YelzhanWeb/bistro/internal/adapter/logger"
	"github.com/YelzhanWeb/bistro/internal/interfaces"
	"golang.org/x/sync/errgroup"
)

const reconnectDelay = 5 * time.Second

type consumer struct {
	conn     Connection
	prefetch int
	logger   logger.Logger
}

// NewConsumer handles at most prefetch deliveries at a time.
func NewConsumer(conn Connection, prefetch int, logger logger.Logger) interfaces.MessageConsumer {
	if prefetch < 1 {
		prefetch = 1
	}
	return &consumer{conn: conn, prefetch: prefetch, logger: logger}
}

// ConsumeNotifications blocks until ctx is cancelled, reconnecting whenever
// the channel drops.
func (c *consumer) ConsumeNotifications(ctx context.Context, handler interfaces.NotificationHandler) error {
	for {
		err := c.consume(ctx, handler)

		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			return nil
		}

		c.logger.Warn("consumer_disconnected", fmt.Sprintf("Notifications consumer disconnected, reconnecting in %s", reconnectDelay), "", nil, err)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(reconnectDelay):
		}
	}
}

func (c *consumer) consume(ctx context.Context, handler interfaces.NotificationHandler) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	closeChan := ch.NotifyClose()

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}
	if err := declareNotifications(ch); err != nil {
		return err
	}

	msgs, err := ch.Consume(NotificationsQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info("consumer_started", "Consuming notifications", "", map[string]interface{}{
		"queue":    NotificationsQueue,
		"prefetch": c.prefetch,
	})

	g := new(errgroup.Group)
	g.SetLimit(c.prefetch)
	defer g.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-closeChan:
			if err != nil {
				return fmt.Errorf("channel closed: %w", err)
			}
			return errors.New("channel closed gracefully")

		case msg, ok := <-msgs:
			if !ok {
				return errors.New("messages channel closed")
			}

			g.Go(func() error {
				if err := handler(ctx, msg.Body); err != nil {
					// dead-lettered, never requeued
					c.logger.Error("notification_failed", "Notification handling failed", "", map[string]interface{}{
						"message_id": msg.MessageId,
					}, err)
					_ = msg.Nack(false, false)
					return nil
				}
				_ = msg.Ack(false)
				return nil
			})
		}
	}
}
