package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"example.com/finance-tracker/backend/internal/auth"
	"example.com/finance-tracker/backend/internal/finance"
	"example.com/finance-tracker/backend/internal/models"
)

const trendMonths = 6

type DashboardHandler struct {
	Stats    StatsStore
	Insights *finance.InsightsService
	now      func() time.Time
}

// NewDashboardHandler создает обработчик месячной сводки и советов.
func NewDashboardHandler(stats StatsStore, insights *finance.InsightsService) *DashboardHandler {
	return &DashboardHandler{Stats: stats, Insights: insights, now: time.Now}
}

type DashboardResponse struct {
	Month              string                 `json:"month"`
	Income             decimal.Decimal        `json:"income"`
	Expenses           decimal.Decimal        `json:"expenses"`
	Obligations        decimal.Decimal        `json:"obligations"`
	Balance            decimal.Decimal        `json:"balance"`
	SpendingByCategory []models.CategoryTotal `json:"spending_by_category"`
	Loans              []LoanResponse         `json:"loans"`
	Trend              []MonthTrendResponse   `json:"trend"`
	Insights           []models.Insight       `json:"insights"`
}

type MonthTrendResponse struct {
	Month    string          `json:"month"`
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
}

// Dashboard собирает сводку месяца: агрегаты, категории, кредиты, динамику и советы.
func (h *DashboardHandler) Dashboard(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	year, month, err := parseMonthQuery(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	monthStart, err := finance.ResolveMonth(year, month, h.now())
	if err != nil {
		return storeError(c, err, "")
	}
	y, m := monthStart.Year(), int(monthStart.Month())

	var (
		snapshot   finance.Snapshot
		byCategory []models.CategoryTotal
		trend      []models.MonthlyTotals
	)

	g, gctx := errgroup.WithContext(c.Request().Context())
	g.Go(func() error {
		var err error
		snapshot, err = h.Insights.Snapshot(gctx, userID, &y, &m)
		return err
	})
	g.Go(func() error {
		var err error
		byCategory, err = h.Stats.SpendingByCategory(gctx, userID, monthStart)
		return err
	})
	g.Go(func() error {
		var err error
		trend, err = h.Stats.MonthlyComparison(gctx, userID, monthStart, trendMonths)
		return err
	})

	if err := g.Wait(); err != nil {
		return storeError(c, err, "")
	}

	if byCategory == nil {
		byCategory = []models.CategoryTotal{}
	}

	trendResponse := make([]MonthTrendResponse, 0, len(trend))
	for _, item := range trend {
		trendResponse = append(trendResponse, MonthTrendResponse{
			Month:    item.Month.Format("2006-01"),
			Income:   item.Income,
			Expenses: item.Expenses,
		})
	}

	obligations := snapshot.Obligations()

	return c.JSON(http.StatusOK, DashboardResponse{
		Month:              monthStart.Format("2006-01"),
		Income:             snapshot.Income,
		Expenses:           snapshot.Expenses,
		Obligations:        obligations,
		Balance:            snapshot.Income.Sub(snapshot.Expenses).Sub(obligations),
		SpendingByCategory: byCategory,
		Loans:              toLoanResponses(snapshot.Loans, snapshot.Month),
		Trend:              trendResponse,
		Insights:           h.Insights.Evaluate(snapshot),
	})
}

// ListInsights возвращает советы за месяц.
func (h *DashboardHandler) ListInsights(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	year, month, err := parseMonthQuery(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	insights, err := h.Insights.Insights(c.Request().Context(), userID, year, month)
	if err != nil {
		return storeError(c, err, "")
	}

	return c.JSON(http.StatusOK, insights)
}
