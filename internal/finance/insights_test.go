package finance

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"example.com/finance-tracker/backend/internal/models"
)

// TestOverspendingWarningAtNinetyFivePercent проверяет единственный совет при доле трат 0.95.
func TestOverspendingWarningAtNinetyFivePercent(t *testing.T) {
	insights := Evaluate(DefaultRules(), Snapshot{
		Month:    date(2024, 3, 1),
		Income:   dec("1000"),
		Expenses: dec("950"),
	})

	if len(insights) != 1 {
		t.Fatalf("expected 1 insight, got %d: %+v", len(insights), insights)
	}
	if insights[0].Type != InsightOverspending || insights[0].Severity != models.SeverityWarning {
		t.Fatalf("expected overspending warning, got %+v", insights[0])
	}
}

// TestOverspendingSeverity проверяет пороги правила перерасхода.
func TestOverspendingSeverity(t *testing.T) {
	cases := []struct {
		income   string
		expenses string
		want     models.Severity
		fired    bool
	}{
		{"1000", "1000.01", models.SeverityError, true},
		{"0", "10", models.SeverityError, true},
		{"1000", "1000", models.SeverityWarning, true},
		{"1000", "901", models.SeverityWarning, true},
		{"1000", "900", models.SeverityInfo, true},
		{"1000", "701", models.SeverityInfo, true},
		{"1000", "700", "", false},
		{"0", "0", "", false},
	}

	for _, tc := range cases {
		insight, ok := OverspendingRule{}.Evaluate(Snapshot{Month: date(2024, 3, 1), Income: dec(tc.income), Expenses: dec(tc.expenses)})
		if ok != tc.fired {
			t.Fatalf("income %s expenses %s: expected fired=%v, got %v", tc.income, tc.expenses, tc.fired, ok)
		}
		if ok && insight.Severity != tc.want {
			t.Fatalf("income %s expenses %s: expected %s, got %s", tc.income, tc.expenses, tc.want, insight.Severity)
		}
	}
}

// TestOverspendingCountsLoanPayments проверяет учет платежей по кредитам в тратах.
func TestOverspendingCountsLoanPayments(t *testing.T) {
	snapshot := Snapshot{
		Month:    date(2024, 3, 1),
		Income:   dec("1000"),
		Expenses: dec("500"),
		Loans: []models.Loan{
			{Principal: dec("6000"), AnnualRate: decimal.Zero, TermMonths: 10, StartDate: date(2024, 1, 1)},
		},
	}

	insight, ok := OverspendingRule{}.Evaluate(snapshot)
	if !ok || insight.Severity != models.SeverityError {
		t.Fatalf("expected error severity, got %+v (fired=%v)", insight, ok)
	}
}

// TestMonthOverMonthSkippedWithoutHistory проверяет отсутствие сравнения без данных прошлого месяца.
func TestMonthOverMonthSkippedWithoutHistory(t *testing.T) {
	snapshots := []Snapshot{
		{Month: date(2024, 3, 1), Income: dec("100000"), Expenses: dec("1"), Previous: &models.MonthTotals{Income: decimal.Zero, Expenses: decimal.Zero}},
		{Month: date(2024, 3, 1), Income: dec("5"), Expenses: dec("99999"), Previous: nil},
	}

	for _, snapshot := range snapshots {
		for _, insight := range Evaluate(DefaultRules(), snapshot) {
			if insight.Type == InsightMonthOverMonth {
				t.Fatalf("unexpected month_over_month insight: %+v", insight)
			}
		}
	}
}

// TestMonthOverMonthSeverity проверяет пороги сравнения с прошлым месяцем.
func TestMonthOverMonthSeverity(t *testing.T) {
	cases := []struct {
		name         string
		prevIncome   string
		prevExpenses string
		income       string
		expenses     string
		want         models.Severity
		fired        bool
	}{
		{"stable", "1000", "500", "1050", "540", "", false},
		{"exactly ten percent", "1000", "500", "1100", "550", "", false},
		{"income dropped", "1000", "500", "850", "500", models.SeverityWarning, true},
		{"expenses rose", "1000", "500", "1000", "600", models.SeverityWarning, true},
		{"income grew", "1000", "500", "1500", "500", models.SeverityInfo, true},
		{"expenses fell", "1000", "500", "1000", "300", models.SeverityInfo, true},
		{"no previous income", "0", "500", "2000", "520", "", false},
	}

	for _, tc := range cases {
		insight, ok := MonthOverMonthRule{}.Evaluate(Snapshot{
			Month:    date(2024, 3, 1),
			Income:   dec(tc.income),
			Expenses: dec(tc.expenses),
			Previous: &models.MonthTotals{Income: dec(tc.prevIncome), Expenses: dec(tc.prevExpenses)},
		})
		if ok != tc.fired {
			t.Fatalf("%s: expected fired=%v, got %v", tc.name, tc.fired, ok)
		}
		if ok && insight.Severity != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, insight.Severity)
		}
	}
}

// TestLoanAccelerationPicksHighestRate проверяет выбор кредита и размер доплаты.
func TestLoanAccelerationPicksHighestRate(t *testing.T) {
	snapshot := Snapshot{
		Month:    date(2024, 3, 1),
		Income:   dec("5000"),
		Expenses: dec("1000"),
		Loans: []models.Loan{
			{Principal: dec("1200"), AnnualRate: decimal.Zero, TermMonths: 12, StartDate: date(2024, 1, 15), Description: "Laptop"},
			{Principal: dec("12000"), AnnualRate: dec("0.06"), TermMonths: 12, StartDate: date(2024, 1, 15), Description: "Car"},
			{Principal: dec("9000"), AnnualRate: dec("0.2"), TermMonths: 6, StartDate: date(2022, 1, 15), Description: "Old card"},
		},
	}

	insight, ok := LoanAccelerationRule{}.Evaluate(snapshot)
	if !ok {
		t.Fatal("expected loan acceleration insight")
	}
	if !strings.Contains(insight.Message, "Car") {
		t.Fatalf("expected the highest-rate active loan, got %q", insight.Message)
	}
	if !strings.Contains(insight.Message, "1032.80") {
		t.Fatalf("expected extra payment 1032.80, got %q", insight.Message)
	}
}

// TestLoanAccelerationThreshold проверяет порог 1.5 платежа и наличие кредитов.
func TestLoanAccelerationThreshold(t *testing.T) {
	loan := models.Loan{Principal: dec("1200"), AnnualRate: dec("0.1"), TermMonths: 12, StartDate: date(2024, 1, 1)}
	payment := MonthlyPayment(loan.Principal, loan.AnnualRate, loan.TermMonths)

	below := Snapshot{Month: date(2024, 3, 1), Income: payment.Mul(dec("2.49")), Expenses: decimal.Zero, Loans: []models.Loan{loan}}
	if _, ok := (LoanAccelerationRule{}).Evaluate(below); ok {
		t.Fatal("expected no insight below 1.5x payment")
	}

	enough := Snapshot{Month: date(2024, 3, 1), Income: payment.Mul(dec("2.5")), Expenses: decimal.Zero, Loans: []models.Loan{loan}}
	if _, ok := (LoanAccelerationRule{}).Evaluate(enough); !ok {
		t.Fatal("expected insight at 1.5x payment")
	}

	noLoans := Snapshot{Month: date(2024, 3, 1), Income: dec("10000"), Expenses: decimal.Zero}
	if _, ok := (LoanAccelerationRule{}).Evaluate(noLoans); ok {
		t.Fatal("expected no insight without loans")
	}
}

// TestEvaluateKeepsRuleOrder проверяет фиксированный порядок советов.
func TestEvaluateKeepsRuleOrder(t *testing.T) {
	snapshot := Snapshot{
		Month:    date(2024, 3, 1),
		Income:   dec("5000"),
		Expenses: dec("3500"),
		Loans: []models.Loan{
			{Principal: dec("2400"), AnnualRate: dec("0.12"), TermMonths: 24, StartDate: date(2024, 1, 1)},
		},
		Previous: &models.MonthTotals{Income: dec("5000"), Expenses: dec("2500")},
	}

	insights := Evaluate(DefaultRules(), snapshot)
	want := []string{InsightOverspending, InsightLoanAcceleration, InsightMonthOverMonth}
	if len(insights) != len(want) {
		t.Fatalf("expected %d insights, got %+v", len(want), insights)
	}
	for i, insight := range insights {
		if insight.Type != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], insight.Type)
		}
	}
}

type fakeInsightsStore struct {
	totals    map[time.Time]models.MonthTotals
	failMonth map[time.Time]error
	loans     []models.Loan
	loansErr  error
}

func (s *fakeInsightsStore) MonthTotals(_ context.Context, _ string, month time.Time) (models.MonthTotals, error) {
	if err, ok := s.failMonth[month]; ok {
		return models.MonthTotals{}, err
	}
	if totals, ok := s.totals[month]; ok {
		return totals, nil
	}
	return models.MonthTotals{Income: decimal.Zero, Expenses: decimal.Zero}, nil
}

func (s *fakeInsightsStore) ListByUser(context.Context, string) ([]models.Loan, error) {
	return s.loans, s.loansErr
}

// TestInsightsServiceDegradesWithoutPreviousMonth проверяет работу без агрегатов прошлого месяца.
func TestInsightsServiceDegradesWithoutPreviousMonth(t *testing.T) {
	store := &fakeInsightsStore{
		totals: map[time.Time]models.MonthTotals{
			date(2024, 3, 1): {Income: dec("1000"), Expenses: dec("950")},
			date(2024, 2, 1): {Income: dec("2000"), Expenses: dec("100")},
		},
		failMonth: map[time.Time]error{date(2024, 2, 1): errors.New("timeout")},
	}

	service := NewInsightsService(store, store, nil)
	insights, err := service.Insights(context.Background(), testUser, intPtr(2024), intPtr(3))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(insights) != 1 || insights[0].Type != InsightOverspending {
		t.Fatalf("expected only overspending insight, got %+v", insights)
	}
}

// TestInsightsServiceComparesPreviousMonth проверяет загрузку прошлого месяца.
func TestInsightsServiceComparesPreviousMonth(t *testing.T) {
	store := &fakeInsightsStore{
		totals: map[time.Time]models.MonthTotals{
			date(2024, 1, 1):  {Income: dec("1000"), Expenses: dec("200")},
			date(2023, 12, 1): {Income: dec("1000"), Expenses: dec("100")},
		},
	}

	service := NewInsightsService(store, store, nil)
	insights, err := service.Insights(context.Background(), testUser, intPtr(2024), intPtr(1))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(insights) != 1 || insights[0].Type != InsightMonthOverMonth || insights[0].Severity != models.SeverityWarning {
		t.Fatalf("expected month_over_month warning, got %+v", insights)
	}
}

// TestInsightsServicePropagatesStoreErrors проверяет проброс ошибок текущего месяца и кредитов.
func TestInsightsServicePropagatesStoreErrors(t *testing.T) {
	outage := errors.New("db down")

	store := &fakeInsightsStore{failMonth: map[time.Time]error{date(2024, 3, 1): outage}}
	if _, err := NewInsightsService(store, store, nil).Insights(context.Background(), testUser, intPtr(2024), intPtr(3)); !errors.Is(err, outage) {
		t.Fatalf("expected outage error, got %v", err)
	}

	store = &fakeInsightsStore{loansErr: outage}
	if _, err := NewInsightsService(store, store, nil).Insights(context.Background(), testUser, intPtr(2024), intPtr(3)); !errors.Is(err, outage) {
		t.Fatalf("expected outage error, got %v", err)
	}
}
