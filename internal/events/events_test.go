package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"example.com/finance-tracker/backend/internal/notifications"
)

type fakeChannel struct {
	declareErr error
	publishErr error
	kind       string
	durable    bool
	published  []amqp091.Publishing
	keys       []string
	closed     bool
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error {
	f.kind = kind
	f.durable = durable
	return f.declareErr
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

// TestAMQPPublisherPublish проверяет маршрутизацию по типу события и формат тела.
func TestAMQPPublisherPublish(t *testing.T) {
	channel := &fakeChannel{}
	publisher, err := newAMQPPublisher(channel, "finance.events", nil)
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}

	if channel.kind != "topic" || !channel.durable {
		t.Fatalf("expected durable topic exchange, got %s durable=%v", channel.kind, channel.durable)
	}

	msg := NewMessage(TypeRecurringGenerated, "user-1", RecurringGenerated{Month: "2024-03", GeneratedCount: 2})
	if err := publisher.Publish(context.Background(), msg); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(channel.published) != 1 || channel.keys[0] != TypeRecurringGenerated {
		t.Fatalf("unexpected publications %v", channel.keys)
	}

	delivery := channel.published[0]
	if delivery.DeliveryMode != amqp091.Persistent || delivery.ContentType != "application/json" {
		t.Fatalf("unexpected publishing %+v", delivery)
	}

	var decoded struct {
		Type   string `json:"type"`
		UserID string `json:"user_id"`
		Data   struct {
			GeneratedCount int `json:"generated_count"`
		} `json:"data"`
	}
	if err := json.Unmarshal(delivery.Body, &decoded); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if decoded.UserID != "user-1" || decoded.Data.GeneratedCount != 2 {
		t.Fatalf("unexpected body %s", delivery.Body)
	}

	if err := publisher.Close(); err != nil || !channel.closed {
		t.Fatalf("expected channel closed, err=%v", err)
	}
}

// TestAMQPPublisherErrors проверяет ошибки объявления exchange и публикации.
func TestAMQPPublisherErrors(t *testing.T) {
	channel := &fakeChannel{declareErr: errors.New("access refused")}
	if _, err := newAMQPPublisher(channel, "finance.events", nil); err == nil || !channel.closed {
		t.Fatalf("expected declare error and closed channel, got %v", err)
	}

	channel = &fakeChannel{publishErr: errors.New("channel closed")}
	publisher, err := newAMQPPublisher(channel, "finance.events", nil)
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}
	if err := publisher.Publish(context.Background(), NewMessage(TypeExpenseCreated, "user-1", nil)); err == nil {
		t.Fatalf("expected publish error")
	}
}

// TestHubPublisher проверяет доставку событий в SSE-хаб.
func TestHubPublisher(t *testing.T) {
	hub := notifications.NewHub()
	ch, unsubscribe := hub.Subscribe("user-1")
	defer unsubscribe()

	msg := NewMessage(TypeExpenseCreated, "user-1", ExpenseCreated{Amount: "10.00"})
	if err := NewHubPublisher(hub).Publish(context.Background(), msg); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case event := <-ch:
		if event.Type != TypeExpenseCreated || !event.Timestamp.Equal(msg.OccurredAt) {
			t.Fatalf("unexpected event %+v", event)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected event to be delivered")
	}
}

type failingPublisher struct{ calls int }

func (f *failingPublisher) Publish(context.Context, Message) error {
	f.calls++
	return errors.New("broker down")
}

func (f *failingPublisher) Close() error { return nil }

// TestFanoutContinuesOnError проверяет, что ошибка одного получателя не блокирует остальных.
func TestFanoutContinuesOnError(t *testing.T) {
	first := &failingPublisher{}
	second := &failingPublisher{}

	err := Fanout{first, NopPublisher{}, second}.Publish(context.Background(), NewMessage(TypeExpenseCreated, "user-1", nil))
	if err == nil {
		t.Fatalf("expected joined error")
	}
	if first.calls != 1 || second.calls != 1 {
		t.Fatalf("expected both publishers called, got %d and %d", first.calls, second.calls)
	}
}

// TestConnectWithoutURL проверяет, что без AMQP_URL события не отправляются в брокер.
func TestConnectWithoutURL(t *testing.T) {
	publisher, err := Connect("", "finance.events", nil)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if _, ok := publisher.(NopPublisher); !ok {
		t.Fatalf("expected NopPublisher, got %T", publisher)
	}
}

// TestNewRecurringGenerated проверяет формат месяца в событии.
func TestNewRecurringGenerated(t *testing.T) {
	msg := NewRecurringGenerated("user-1", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), 3, 1, 0)

	data, ok := msg.Data.(RecurringGenerated)
	if !ok || data.Month != "2024-02" || data.GeneratedCount != 3 || data.SkippedCount != 1 {
		t.Fatalf("unexpected message %+v", msg)
	}
	if msg.Type != TypeRecurringGenerated || msg.UserID != "user-1" {
		t.Fatalf("unexpected header %+v", msg)
	}
}
