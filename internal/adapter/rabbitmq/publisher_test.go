package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/YelzhanWeb/bistro/internal/config"
	"github.com/YelzhanWeb/bistro/internal/interfaces"
	amqp "github.com/rabbitmq/amqp091-go"
)

type published struct {
	exchange string
	msg      amqp.Publishing
}

type fakeChannel struct {
	exchanges   []string
	queues      map[string]amqp.Table
	bindings    map[string]string
	published   []published
	failDeclare bool
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{queues: map[string]amqp.Table{}, bindings: map[string]string{}}
}

func (c *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	if c.failDeclare {
		return errors.New("access refused")
	}
	c.exchanges = append(c.exchanges, name+":"+kind)
	return nil
}

func (c *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (Queue, error) {
	c.queues[name] = args
	return Queue{Name: name}, nil
}

func (c *fakeChannel) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	c.bindings[name] = exchange
	return nil
}

func (c *fakeChannel) Publish(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	c.published = append(c.published, published{exchange: exchange, msg: msg})
	return nil
}

func (c *fakeChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	return make(chan amqp.Delivery), nil
}

func (c *fakeChannel) Qos(prefetchCount, prefetchSize int, global bool) error { return nil }
func (c *fakeChannel) Close() error                                          { return nil }
func (c *fakeChannel) NotifyClose() <-chan *amqp.Error                       { return make(chan *amqp.Error) }

type fakeConnection struct {
	ch *fakeChannel
}

func (c *fakeConnection) Channel() (Channel, error) { return c.ch, nil }
func (c *fakeConnection) Close() error              { return nil }
func (c *fakeConnection) IsClosed() bool            { return false }

func TestPublishNotification(t *testing.T) {
	ch := newFakeChannel()
	p := NewPublisher(&fakeConnection{ch: ch})

	event := interfaces.NotificationEvent{
		ID:          "evt-1",
		Kind:        interfaces.NotificationOrderCreated,
		OrderNumber: "ORD-A-20260314-0001",
		OccurredAt:  time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC),
	}
	if err := p.PublishNotification(context.Background(), event); err != nil {
		t.Fatalf("PublishNotification error: %v", err)
	}
	if err := p.PublishNotification(context.Background(), event); err != nil {
		t.Fatalf("PublishNotification error: %v", err)
	}

	if len(ch.exchanges) != 2 {
		t.Fatalf("topology declared %d exchanges, want it declared once (2 exchanges)", len(ch.exchanges))
	}
	if ch.queues[NotificationsQueue]["x-dead-letter-exchange"] != NotificationsDLX {
		t.Fatalf("queue has no dead-letter exchange: %v", ch.queues[NotificationsQueue])
	}
	if ch.bindings[NotificationsQueue] != NotificationsExchange || ch.bindings[NotificationsDLQ] != NotificationsDLX {
		t.Fatalf("unexpected bindings %v", ch.bindings)
	}

	if len(ch.published) != 2 {
		t.Fatalf("published %d messages, want 2", len(ch.published))
	}
	msg := ch.published[0]
	if msg.exchange != NotificationsExchange || msg.msg.DeliveryMode != amqp.Persistent || msg.msg.MessageId != "evt-1" {
		t.Fatalf("unexpected publishing %+v", msg)
	}

	var decoded interfaces.NotificationEvent
	if err := json.Unmarshal(msg.msg.Body, &decoded); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if decoded.OrderNumber != event.OrderNumber || decoded.Kind != event.Kind {
		t.Fatalf("decoded %+v, want %+v", decoded, event)
	}
}

func TestPublishRetriesTopology(t *testing.T) {
	ch := newFakeChannel()
	ch.failDeclare = true
	p := NewPublisher(&fakeConnection{ch: ch})

	if err := p.PublishNotification(context.Background(), interfaces.NotificationEvent{ID: "a"}); err == nil {
		t.Fatalf("publish succeeded without topology")
	}

	ch.failDeclare = false
	if err := p.PublishNotification(context.Background(), interfaces.NotificationEvent{ID: "b"}); err != nil {
		t.Fatalf("publish after recovery error: %v", err)
	}
}

func TestDialURL(t *testing.T) {
	tests := []config.RabbitMQConfig{
		{Host: "localhost", Port: 5672, User: "guest", Password: "guest"},
		{Host: "mq", Port: 5673, User: "bistro", Password: "s3cret", VHost: "bistro"},
	}
	for _, cfg := range tests {
		uri, err := amqp.ParseURI(dialURL(cfg))
		if err != nil {
			t.Fatalf("ParseURI(%q) error: %v", dialURL(cfg), err)
		}
		wantVhost := cfg.VHost
		if wantVhost == "" {
			wantVhost = "/"
		}
		if uri.Host != cfg.Host || uri.Port != cfg.Port || uri.Username != cfg.User || uri.Password != cfg.Password || uri.Vhost != wantVhost {
			t.Errorf("dialURL round trip = %+v, want %+v", uri, cfg)
		}
	}
}
