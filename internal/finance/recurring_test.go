package finance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"example.com/finance-tracker/backend/internal/models"
	"example.com/finance-tracker/backend/internal/repository"
)

type fakeRecurringStore struct {
	mu             sync.Mutex
	items          map[uuid.UUID]*models.RecurringItem
	categories     map[uuid.UUID]string
	expenses       []models.Expense
	materializeErr error
}

func newFakeRecurringStore() *fakeRecurringStore {
	return &fakeRecurringStore{
		items:      make(map[uuid.UUID]*models.RecurringItem),
		categories: make(map[uuid.UUID]string),
	}
}

func (s *fakeRecurringStore) addItem(item models.RecurringItem) models.RecurringItem {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	s.items[item.ID] = &item
	return item
}

func (s *fakeRecurringStore) ListRecurringForGeneration(_ context.Context, userID string, _ time.Time) ([]models.RecurringItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.RecurringItem, 0, len(s.items))
	for _, item := range s.items {
		if item.UserID == userID {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (s *fakeRecurringStore) MaterializeRecurring(_ context.Context, m models.RecurringOccurrence) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.materializeErr != nil {
		return false, s.materializeErr
	}

	item, ok := s.items[m.RecurringID]
	if !ok || item.UserID != m.UserID {
		return false, repository.ErrNotFound
	}
	if item.LastGeneratedMonth != nil && item.LastGeneratedMonth.Equal(m.Month) {
		return false, nil
	}
	if owner, ok := s.categories[m.CategoryID]; !ok || owner != m.UserID {
		return false, repository.ErrNotFound
	}

	month := m.Month
	item.LastGeneratedMonth = &month
	recurringID := m.RecurringID
	s.expenses = append(s.expenses, models.Expense{
		ID:          uuid.New(),
		UserID:      m.UserID,
		CategoryID:  m.CategoryID,
		Amount:      m.Amount,
		Description: m.Description,
		Date:        m.Date,
		RecurringID: &recurringID,
	})
	return true, nil
}

func newTestGenerator(store RecurringStore, now time.Time) *Generator {
	g := NewGenerator(store, nil)
	g.now = func() time.Time { return now }
	return g
}

func intPtr(v int) *int {
	return &v
}

const testUser = "user-1"

// TestGenerateTwoItemsCurrentMonth проверяет генерацию двух шаблонов за текущий месяц.
func TestGenerateTwoItemsCurrentMonth(t *testing.T) {
	store := newFakeRecurringStore()
	categoryID := uuid.New()
	store.categories[categoryID] = testUser

	first := store.addItem(models.RecurringItem{UserID: testUser, CategoryID: categoryID, Amount: dec("50"), DayOfMonth: 1, StartDate: date(2023, 1, 1), IsActive: true, Description: "Gym"})
	second := store.addItem(models.RecurringItem{UserID: testUser, CategoryID: categoryID, Amount: dec("900"), DayOfMonth: 15, StartDate: date(2023, 6, 1), IsActive: true})

	g := newTestGenerator(store, time.Date(2024, 3, 20, 14, 0, 0, 0, time.UTC))
	result, err := g.Generate(context.Background(), testUser, nil, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if result.GeneratedCount != 2 || result.SkippedCount != 0 {
		t.Fatalf("expected 2 generated and 0 skipped, got %+v", result)
	}
	if len(store.expenses) != 2 {
		t.Fatalf("expected 2 expenses, got %d", len(store.expenses))
	}

	for _, id := range []uuid.UUID{first.ID, second.ID} {
		marker := store.items[id].LastGeneratedMonth
		if marker == nil || !marker.Equal(date(2024, 3, 1)) {
			t.Fatalf("expected marker 2024-03-01 for %s, got %v", id, marker)
		}
	}

	dates := map[string]string{}
	for _, expense := range store.expenses {
		dates[expense.Description] = expense.Date.Format(time.DateOnly)
	}
	if dates["Gym"] != "2024-03-01" {
		t.Fatalf("unexpected date for Gym: %s", dates["Gym"])
	}
	if dates[models.DefaultRecurringDescription] != "2024-03-15" {
		t.Fatalf("expected default description with date 2024-03-15, got %v", dates)
	}
}

// TestGenerateIdempotent проверяет, что повторный вызов не создает дубликатов.
func TestGenerateIdempotent(t *testing.T) {
	store := newFakeRecurringStore()
	categoryID := uuid.New()
	store.categories[categoryID] = testUser
	store.addItem(models.RecurringItem{UserID: testUser, CategoryID: categoryID, Amount: dec("10"), DayOfMonth: 5, StartDate: date(2024, 1, 1), IsActive: true})

	g := newTestGenerator(store, date(2024, 5, 2))

	if _, err := g.Generate(context.Background(), testUser, intPtr(2024), intPtr(5)); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	result, err := g.Generate(context.Background(), testUser, intPtr(2024), intPtr(5))
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	if result.GeneratedCount != 0 || result.SkippedCount != 1 {
		t.Fatalf("expected 0 generated and 1 skipped, got %+v", result)
	}
	if len(store.expenses) != 1 {
		t.Fatalf("expected 1 expense, got %d", len(store.expenses))
	}
}

// TestGenerateConcurrentCalls проверяет идемпотентность при параллельных вызовах.
func TestGenerateConcurrentCalls(t *testing.T) {
	store := newFakeRecurringStore()
	categoryID := uuid.New()
	store.categories[categoryID] = testUser
	for day := 1; day <= 3; day++ {
		store.addItem(models.RecurringItem{UserID: testUser, CategoryID: categoryID, Amount: dec("10"), DayOfMonth: day, StartDate: date(2024, 1, 1), IsActive: true})
	}

	g := newTestGenerator(store, date(2024, 7, 1))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := g.Generate(context.Background(), testUser, nil, nil); err != nil {
				t.Errorf("generate failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if len(store.expenses) != 3 {
		t.Fatalf("expected exactly 3 expenses, got %d", len(store.expenses))
	}
}

// TestGenerateClampsDayToMonthEnd проверяет перенос дня на конец короткого месяца.
func TestGenerateClampsDayToMonthEnd(t *testing.T) {
	cases := []struct {
		year  int
		month int
		want  string
	}{
		{2024, 2, "2024-02-29"},
		{2023, 2, "2023-02-28"},
		{2024, 4, "2024-04-30"},
		{2024, 1, "2024-01-31"},
	}

	for _, tc := range cases {
		store := newFakeRecurringStore()
		categoryID := uuid.New()
		store.categories[categoryID] = testUser
		store.addItem(models.RecurringItem{UserID: testUser, CategoryID: categoryID, Amount: dec("10"), DayOfMonth: 31, StartDate: date(2022, 1, 1), IsActive: true})

		g := newTestGenerator(store, date(2024, 6, 1))
		if _, err := g.Generate(context.Background(), testUser, intPtr(tc.year), intPtr(tc.month)); err != nil {
			t.Fatalf("%d-%02d: generate failed: %v", tc.year, tc.month, err)
		}

		if len(store.expenses) != 1 {
			t.Fatalf("%d-%02d: expected 1 expense, got %d", tc.year, tc.month, len(store.expenses))
		}
		if got := store.expenses[0].Date.Format(time.DateOnly); got != tc.want {
			t.Fatalf("%d-%02d: expected %s, got %s", tc.year, tc.month, tc.want, got)
		}
	}
}

// TestGenerateIgnoresFutureAndInactiveItems проверяет, что такие шаблоны не попадают в счетчики.
func TestGenerateIgnoresFutureAndInactiveItems(t *testing.T) {
	store := newFakeRecurringStore()
	categoryID := uuid.New()
	store.categories[categoryID] = testUser
	store.addItem(models.RecurringItem{UserID: testUser, CategoryID: categoryID, Amount: dec("10"), DayOfMonth: 1, StartDate: date(2024, 4, 1), IsActive: true})
	store.addItem(models.RecurringItem{UserID: testUser, CategoryID: categoryID, Amount: dec("10"), DayOfMonth: 1, StartDate: date(2023, 1, 1), IsActive: false})
	store.addItem(models.RecurringItem{UserID: testUser, CategoryID: categoryID, Amount: dec("10"), DayOfMonth: 1, StartDate: date(2024, 3, 31), IsActive: true})

	g := newTestGenerator(store, date(2024, 3, 1))
	result, err := g.Generate(context.Background(), testUser, nil, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if result.GeneratedCount != 1 || result.SkippedCount != 0 {
		t.Fatalf("expected 1 generated and 0 skipped, got %+v", result)
	}
}

// TestGeneratePartialFailure проверяет, что ошибка одного шаблона не прерывает остальные.
func TestGeneratePartialFailure(t *testing.T) {
	store := newFakeRecurringStore()
	ownCategory := uuid.New()
	foreignCategory := uuid.New()
	store.categories[ownCategory] = testUser
	store.categories[foreignCategory] = "someone-else"

	broken := store.addItem(models.RecurringItem{UserID: testUser, CategoryID: foreignCategory, Amount: dec("10"), DayOfMonth: 1, StartDate: date(2023, 1, 1), IsActive: true})
	store.addItem(models.RecurringItem{UserID: testUser, CategoryID: uuid.New(), Amount: dec("10"), DayOfMonth: 2, StartDate: date(2023, 1, 1), IsActive: true})
	store.addItem(models.RecurringItem{UserID: testUser, CategoryID: ownCategory, Amount: dec("10"), DayOfMonth: 3, StartDate: date(2023, 1, 1), IsActive: true})

	g := newTestGenerator(store, date(2024, 3, 1))
	result, err := g.Generate(context.Background(), testUser, nil, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if result.GeneratedCount != 1 {
		t.Fatalf("expected 1 generated, got %d", result.GeneratedCount)
	}
	if len(result.Failed) != 2 {
		t.Fatalf("expected 2 failures, got %+v", result.Failed)
	}
	if store.items[broken.ID].LastGeneratedMonth != nil {
		t.Fatal("expected marker to stay unset for failed item")
	}
}

// TestGenerateStoreOutageAborts проверяет, что сбой хранилища прерывает пакет.
func TestGenerateStoreOutageAborts(t *testing.T) {
	store := newFakeRecurringStore()
	categoryID := uuid.New()
	store.categories[categoryID] = testUser
	store.addItem(models.RecurringItem{UserID: testUser, CategoryID: categoryID, Amount: dec("10"), DayOfMonth: 1, StartDate: date(2023, 1, 1), IsActive: true})
	outage := errors.New("connection refused")
	store.materializeErr = outage

	g := newTestGenerator(store, date(2024, 3, 1))
	if _, err := g.Generate(context.Background(), testUser, nil, nil); !errors.Is(err, outage) {
		t.Fatalf("expected outage error, got %v", err)
	}
}

// TestGenerateRejectsInvalidInput проверяет валидацию месяца, года и пользователя.
func TestGenerateRejectsInvalidInput(t *testing.T) {
	g := newTestGenerator(newFakeRecurringStore(), date(2024, 3, 1))

	cases := []struct {
		name   string
		userID string
		year   *int
		month  *int
	}{
		{"empty user", " ", nil, nil},
		{"month 13", testUser, nil, intPtr(13)},
		{"month 0", testUser, intPtr(2024), intPtr(0)},
		{"year too small", testUser, intPtr(1900), intPtr(1)},
	}

	for _, tc := range cases {
		if _, err := g.Generate(context.Background(), tc.userID, tc.year, tc.month); !errors.Is(err, repository.ErrInvalid) {
			t.Fatalf("%s: expected ErrInvalid, got %v", tc.name, err)
		}
	}
}

// TestGenerateKeepsAmount проверяет перенос суммы шаблона в расход.
func TestGenerateKeepsAmount(t *testing.T) {
	store := newFakeRecurringStore()
	categoryID := uuid.New()
	store.categories[categoryID] = testUser
	store.addItem(models.RecurringItem{UserID: testUser, CategoryID: categoryID, Amount: dec("19.99"), DayOfMonth: 10, StartDate: date(2024, 1, 1), IsActive: true})

	g := newTestGenerator(store, date(2024, 2, 1))
	if _, err := g.Generate(context.Background(), testUser, nil, nil); err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if !store.expenses[0].Amount.Equal(decimal.RequireFromString("19.99")) {
		t.Fatalf("unexpected amount %s", store.expenses[0].Amount)
	}
}
