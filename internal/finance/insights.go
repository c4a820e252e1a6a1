package finance

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"example.com/finance-tracker/backend/internal/models"
)

const (
	InsightOverspending     = "overspending"
	InsightLoanAcceleration = "loan_acceleration"
	InsightMonthOverMonth   = "month_over_month"
)

var (
	warningRatio       = decimal.RequireFromString("0.9")
	healthyRatio       = decimal.RequireFromString("0.7")
	accelerationFactor = decimal.RequireFromString("1.5")
	extraPaymentShare  = decimal.RequireFromString("0.5")
	changeThreshold    = decimal.NewFromInt(10)
	hundred            = decimal.NewFromInt(100)
)

// Snapshot содержит агрегаты месяца, на которых работают правила.
type Snapshot struct {
	Month    time.Time
	Income   decimal.Decimal
	Expenses decimal.Decimal
	Loans    []models.Loan
	// Previous равен nil, если агрегаты прошлого месяца недоступны.
	Previous *models.MonthTotals
}

// Obligations возвращает сумму платежей по кредитам, активным в месяце снимка.
func (s Snapshot) Obligations() decimal.Decimal {
	return TotalObligations(s.Loans, s.Month)
}

// Rule вычисляет не более одного совета по снимку.
type Rule interface {
	Name() string
	Evaluate(s Snapshot) (models.Insight, bool)
}

// DefaultRules возвращает правила в порядке вывода.
func DefaultRules() []Rule {
	return []Rule{OverspendingRule{}, LoanAccelerationRule{}, MonthOverMonthRule{}}
}

// Evaluate применяет правила по порядку и собирает сработавшие советы.
func Evaluate(rules []Rule, s Snapshot) []models.Insight {
	insights := make([]models.Insight, 0, len(rules))
	for _, rule := range rules {
		if insight, ok := rule.Evaluate(s); ok {
			insights = append(insights, insight)
		}
	}
	return insights
}

type OverspendingRule struct{}

func (OverspendingRule) Name() string { return InsightOverspending }

func (OverspendingRule) Evaluate(s Snapshot) (models.Insight, bool) {
	spending := s.Expenses.Add(s.Obligations())

	if spending.GreaterThan(s.Income) {
		return models.Insight{
			Type:     InsightOverspending,
			Title:    "Spending exceeds income",
			Message:  fmt.Sprintf("Expenses and loan payments (%s) exceed income (%s) by %s.", money(spending), money(s.Income), money(spending.Sub(s.Income))),
			Severity: models.SeverityError,
			Action:   &models.InsightAction{Label: "Review expenses", Href: "/expenses"},
		}, true
	}

	if !s.Income.IsPositive() {
		return models.Insight{}, false
	}

	ratio := spending.Div(s.Income)
	percent := ratio.Mul(hundred).Round(0)

	switch {
	case ratio.GreaterThan(warningRatio):
		return models.Insight{
			Type:     InsightOverspending,
			Title:    "Close to your income limit",
			Message:  fmt.Sprintf("You have spent %s%% of your income this month.", percent.String()),
			Severity: models.SeverityWarning,
			Action:   &models.InsightAction{Label: "Review expenses", Href: "/expenses"},
		}, true
	case ratio.GreaterThan(healthyRatio):
		return models.Insight{
			Type:     InsightOverspending,
			Title:    "Good job",
			Message:  fmt.Sprintf("You have spent %s%% of your income and stayed within budget.", percent.String()),
			Severity: models.SeverityInfo,
		}, true
	}

	return models.Insight{}, false
}

type LoanAccelerationRule struct{}

func (LoanAccelerationRule) Name() string { return InsightLoanAcceleration }

func (LoanAccelerationRule) Evaluate(s Snapshot) (models.Insight, bool) {
	remaining := s.Income.Sub(s.Expenses).Sub(s.Obligations())
	if !remaining.IsPositive() {
		return models.Insight{}, false
	}

	var target *models.Loan
	for i := range s.Loans {
		loan := s.Loans[i]
		if !IsActive(loan, s.Month) {
			continue
		}
		if target == nil || loan.AnnualRate.GreaterThan(target.AnnualRate) {
			target = &s.Loans[i]
		}
	}
	if target == nil {
		return models.Insight{}, false
	}

	payment := MonthlyPayment(target.Principal, target.AnnualRate, target.TermMonths)
	if !payment.IsPositive() || remaining.LessThan(payment.Mul(accelerationFactor)) {
		return models.Insight{}, false
	}

	extra := remaining.Div(payment).Floor().Mul(payment).Mul(extraPaymentShare).Round(2)
	name := strings.TrimSpace(target.Description)
	if name == "" {
		name = "your loan"
	}

	return models.Insight{
		Type:  InsightLoanAcceleration,
		Title: "Pay off debt faster",
		Message: fmt.Sprintf("You have %s left this month. An extra payment of %s on %s (%s%% APR) would reduce interest.",
			money(remaining), money(extra), name, target.AnnualRate.Mul(hundred).Round(2).String()),
		Severity: models.SeverityInfo,
		Action:   &models.InsightAction{Label: "View loans", Href: "/loans"},
	}, true
}

type MonthOverMonthRule struct{}

func (MonthOverMonthRule) Name() string { return InsightMonthOverMonth }

func (MonthOverMonthRule) Evaluate(s Snapshot) (models.Insight, bool) {
	if s.Previous == nil || (s.Previous.Income.IsZero() && s.Previous.Expenses.IsZero()) {
		return models.Insight{}, false
	}

	incomeChange := percentChange(s.Previous.Income, s.Income)
	expenseChange := percentChange(s.Previous.Expenses, s.Expenses)

	if incomeChange.Abs().LessThanOrEqual(changeThreshold) && expenseChange.Abs().LessThanOrEqual(changeThreshold) {
		return models.Insight{}, false
	}

	severity := models.SeverityInfo
	if incomeChange.LessThan(changeThreshold.Neg()) || expenseChange.GreaterThan(changeThreshold) {
		severity = models.SeverityWarning
	}

	return models.Insight{
		Type:  InsightMonthOverMonth,
		Title: "Change since last month",
		Message: fmt.Sprintf("Income changed by %s%% and expenses by %s%% compared to last month.",
			incomeChange.Round(1).String(), expenseChange.Round(1).String()),
		Severity: severity,
	}, true
}

// percentChange возвращает изменение в процентах; при нулевой базе изменение считается нулевым.
func percentChange(previous, current decimal.Decimal) decimal.Decimal {
	if previous.IsZero() {
		return decimal.Zero
	}
	return current.Sub(previous).Div(previous).Mul(hundred)
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

type TotalsStore interface {
	MonthTotals(ctx context.Context, userID string, month time.Time) (models.MonthTotals, error)
}

type LoanLister interface {
	ListByUser(ctx context.Context, userID string) ([]models.Loan, error)
}

type InsightsService struct {
	totals TotalsStore
	loans  LoanLister
	rules  []Rule
	logger *slog.Logger
}

// NewInsightsService создает сервис советов с правилами по умолчанию.
func NewInsightsService(totals TotalsStore, loans LoanLister, logger *slog.Logger) *InsightsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &InsightsService{totals: totals, loans: loans, rules: DefaultRules(), logger: logger}
}

// Snapshot параллельно загружает агрегаты месяца, прошлого месяца и кредиты.
// Ошибка загрузки прошлого месяца не прерывает расчет.
func (s *InsightsService) Snapshot(ctx context.Context, userID string, year, month *int) (Snapshot, error) {
	if strings.TrimSpace(userID) == "" {
		return Snapshot{}, invalid("user_id", "is required")
	}

	monthStart, err := ResolveMonth(year, month, time.Now())
	if err != nil {
		return Snapshot{}, err
	}

	snapshot := Snapshot{Month: monthStart}
	var previous models.MonthTotals
	previousOK := false

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		totals, err := s.totals.MonthTotals(gctx, userID, monthStart)
		if err != nil {
			return fmt.Errorf("load month totals: %w", err)
		}
		snapshot.Income, snapshot.Expenses = totals.Income, totals.Expenses
		return nil
	})
	g.Go(func() error {
		loans, err := s.loans.ListByUser(gctx, userID)
		if err != nil {
			return fmt.Errorf("load loans: %w", err)
		}
		snapshot.Loans = loans
		return nil
	})
	g.Go(func() error {
		totals, err := s.totals.MonthTotals(gctx, userID, PreviousMonth(monthStart))
		if err != nil {
			s.logger.WarnContext(ctx, "previous month totals unavailable",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
			return nil
		}
		previous, previousOK = totals, true
		return nil
	})

	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}

	if previousOK {
		snapshot.Previous = &previous
	}

	return snapshot, nil
}

// Insights возвращает советы за месяц.
func (s *InsightsService) Insights(ctx context.Context, userID string, year, month *int) ([]models.Insight, error) {
	snapshot, err := s.Snapshot(ctx, userID, year, month)
	if err != nil {
		return nil, err
	}
	return s.Evaluate(snapshot), nil
}

// Evaluate применяет правила сервиса к уже загруженному снимку.
func (s *InsightsService) Evaluate(snapshot Snapshot) []models.Insight {
	return Evaluate(s.rules, snapshot)
}
