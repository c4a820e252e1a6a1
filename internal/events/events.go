package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"example.com/finance-tracker/backend/internal/notifications"
)

const (
	TypeRecurringGenerated = "recurring.generated"
	TypeExpenseCreated     = "expense.created"
)

// Message описывает доменное событие пользователя.
type Message struct {
	Type       string      `json:"type"`
	UserID     string      `json:"user_id"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data,omitempty"`
}

// NewMessage создает событие с текущим временем.
func NewMessage(eventType, userID string, data interface{}) Message {
	return Message{
		Type:       eventType,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

// ToJSON сериализует событие для брокера.
func (m Message) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// NopPublisher используется, когда брокер не настроен.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Message) error { return nil }

func (NopPublisher) Close() error { return nil }

// HubPublisher пересылает события в SSE-хаб пользователя.
type HubPublisher struct {
	hub *notifications.Hub
}

func NewHubPublisher(hub *notifications.Hub) *HubPublisher {
	return &HubPublisher{hub: hub}
}

func (p *HubPublisher) Publish(_ context.Context, msg Message) error {
	if p.hub == nil {
		return nil
	}

	p.hub.Publish(msg.UserID, notifications.Event{
		Type:      msg.Type,
		Timestamp: msg.OccurredAt,
		Data:      msg.Data,
	})
	return nil
}

func (p *HubPublisher) Close() error { return nil }

// Fanout публикует событие во все получатели и объединяет ошибки.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, msg Message) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) Close() error {
	var errs []error
	for _, p := range f {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecurringGenerated содержит итог генерации регулярных расходов за месяц.
type RecurringGenerated struct {
	Month          string `json:"month"`
	GeneratedCount int    `json:"generated_count"`
	SkippedCount   int    `json:"skipped_count"`
	FailedCount    int    `json:"failed_count"`
}

type ExpenseCreated struct {
	ExpenseID  string `json:"expense_id"`
	CategoryID string `json:"category_id"`
	Amount     string `json:"amount"`
	Date       string `json:"date"`
}

// NewRecurringGenerated собирает событие об итогах генерации за месяц.
func NewRecurringGenerated(userID string, month time.Time, generated, skipped, failed int) Message {
	return NewMessage(TypeRecurringGenerated, userID, RecurringGenerated{
		Month:          month.Format("2006-01"),
		GeneratedCount: generated,
		SkippedCount:   skipped,
		FailedCount:    failed,
	})
}

// Connect возвращает AMQP-публикатор или NopPublisher, если URL не задан.
func Connect(url, exchange string, logger *slog.Logger) (Publisher, error) {
	if url == "" {
		return NopPublisher{}, nil
	}
	publisher, err := NewAMQPPublisher(url, exchange, logger)
	if err != nil {
		return nil, err
	}
	return publisher, nil
}
