package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"example.com/finance-tracker/backend/internal/events"
	"example.com/finance-tracker/backend/internal/finance"
	"example.com/finance-tracker/backend/internal/models"
	"example.com/finance-tracker/backend/internal/repository"
	"example.com/finance-tracker/backend/internal/repository/memory"
)

type staticUsers struct {
	ids []string
	err error
}

func (s staticUsers) ListUsersWithActive(context.Context) ([]string, error) {
	return s.ids, s.err
}

type fakeGenerator struct {
	results map[string]finance.GenerateResult
	errs    map[string]error
}

func (f fakeGenerator) Generate(_ context.Context, userID string, _, _ *int) (finance.GenerateResult, error) {
	if err := f.errs[userID]; err != nil {
		return finance.GenerateResult{}, err
	}
	return f.results[userID], nil
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages []events.Message
}

func (p *recordingPublisher) Publish(_ context.Context, msg events.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

// TestRunOnceContinuesAfterUserError проверяет, что ошибка одного пользователя не останавливает проход.
func TestRunOnceContinuesAfterUserError(t *testing.T) {
	month := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	generator := fakeGenerator{
		results: map[string]finance.GenerateResult{
			"user-a": {Month: month, GeneratedCount: 2, SkippedCount: 1},
			"user-c": {Month: month, SkippedCount: 3},
		},
		errs: map[string]error{"user-b": errors.New("connection reset")},
	}
	publisher := &recordingPublisher{}

	runner := NewRunner(staticUsers{ids: []string{"user-a", "user-b", "user-c"}}, generator, publisher, nil, time.Second)

	summary, err := runner.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}

	want := Summary{Users: 3, GeneratedCount: 2, SkippedCount: 4, UserErrors: 1}
	if summary != want {
		t.Fatalf("expected %+v, got %+v", want, summary)
	}

	if len(publisher.messages) != 1 || publisher.messages[0].UserID != "user-a" {
		t.Fatalf("expected one event for user-a, got %+v", publisher.messages)
	}
}

// TestRunOnceListError проверяет, что ошибка выборки пользователей возвращается.
func TestRunOnceListError(t *testing.T) {
	runner := NewRunner(staticUsers{err: errors.New("db down")}, fakeGenerator{}, nil, nil, 0)

	if _, err := runner.RunOnce(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}

// TestRunOnceOverMemoryStore проверяет полный проход и повторный запуск без дублей.
func TestRunOnceOverMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	category, err := store.Categories().Create(ctx, "user-1", "Rent", models.CategoryKindExpense, nil)
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	_, err = store.Recurring().Create(ctx, "user-1", repository.RecurringInput{
		CategoryID: category.ID,
		Amount:     decimal.NewFromInt(900),
		DayOfMonth: 31,
		StartDate:  time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		IsActive:   true,
	})
	if err != nil {
		t.Fatalf("create recurring: %v", err)
	}

	publisher := &recordingPublisher{}
	runner := NewRunner(store.Recurring(), finance.NewGenerator(store.Recurring(), nil), publisher, nil, time.Second)

	first, err := runner.RunOnce(ctx)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.Users != 1 || first.GeneratedCount != 1 {
		t.Fatalf("unexpected first summary %+v", first)
	}

	second, err := runner.RunOnce(ctx)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.GeneratedCount != 0 || second.SkippedCount != 1 {
		t.Fatalf("unexpected second summary %+v", second)
	}

	if len(publisher.messages) != 1 {
		t.Fatalf("expected a single event, got %d", len(publisher.messages))
	}
}

// TestRunStopsOnCancel проверяет, что цикл завершается после отмены контекста.
func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := NewRunner(staticUsers{}, fakeGenerator{}, nil, nil, 0)

	done := make(chan struct{})
	go func() {
		runner.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("runner did not stop")
	}
}
