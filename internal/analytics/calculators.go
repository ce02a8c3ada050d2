package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/gemline-backend/pkg/enums"
)

var hundred = decimal.NewFromInt(100)

// calculator computes one metric payload.
type calculator func(ctx context.Context) (any, error)

// calculatorTable maps every metric type to its computation. NewService
// refuses to start when a metric type has no entry.
func (s *service) calculatorTable() map[enums.MetricType]calculator {
	return map[enums.MetricType]calculator{
		enums.MetricTypeNetRevenue: func(ctx context.Context) (any, error) {
			return s.CalculateNetRevenue(ctx)
		},
		enums.MetricTypeMonthlyTrends: func(ctx context.Context) (any, error) {
			return s.CalculateMonthlyTrends(ctx)
		},
		enums.MetricTypeExpenseBreakdown: func(ctx context.Context) (any, error) {
			return s.CalculateExpenseBreakdown(ctx)
		},
		enums.MetricTypeTopProducts: func(ctx context.Context) (any, error) {
			return s.CalculateTopProducts(ctx)
		},
	}
}

func checkCalculators(table map[enums.MetricType]calculator) error {
	for _, metricType := range enums.AllMetricTypes() {
		if table[metricType] == nil {
			return fmt.Errorf("no calculator registered for %s", metricType)
		}
	}
	return nil
}

func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// percentage returns part/total*100 rounded to two places, or zero when total is zero.
func percentage(part, total decimal.Decimal) float64 {
	if total.IsZero() {
		return 0
	}
	return part.Div(total).Mul(hundred).Round(2).InexactFloat64()
}

func (s *service) CalculateNetRevenue(ctx context.Context) (*NetRevenue, error) {
	start := s.clock.Now()

	orders, err := s.store.RevenueOrders(ctx, time.Time{}, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("load revenue orders: %w", err)
	}
	expenses, err := s.store.Expenses(ctx, time.Time{}, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("load expenses: %w", err)
	}

	revenue := decimal.Zero
	for _, o := range orders {
		revenue = revenue.Add(o.TotalAmount)
	}
	spent := decimal.Zero
	for _, e := range expenses {
		spent = spent.Add(e.Amount)
	}
	net := revenue.Sub(spent)

	return &NetRevenue{
		TotalRevenue:           money(revenue),
		TotalExpenses:          money(spent),
		NetRevenue:             money(net),
		ProfitMarginPercentage: percentage(net, revenue),
		CalculatedAt:           s.clock.Now().UTC(),
		ComputationTimeMs:      s.clock.Since(start).Milliseconds(),
	}, nil
}

type monthBucket struct {
	revenue  decimal.Decimal
	expenses decimal.Decimal
	orders   int
}

// CalculateMonthlyTrends buckets the trailing twelve months. Months without
// any order or expense are left out rather than zero-filled.
func (s *service) CalculateMonthlyTrends(ctx context.Context) ([]MonthlyTrend, error) {
	since := s.clock.Now().UTC().AddDate(0, -monthlyTrendsMonths, 0)

	orders, err := s.store.RevenueOrders(ctx, since, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("load revenue orders: %w", err)
	}
	expenses, err := s.store.Expenses(ctx, since, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("load expenses: %w", err)
	}

	buckets := map[string]*monthBucket{}
	bucket := func(t time.Time) *monthBucket {
		key := t.UTC().Format(monthBucketLayout)
		b, ok := buckets[key]
		if !ok {
			b = &monthBucket{}
			buckets[key] = b
		}
		return b
	}
	for _, o := range orders {
		b := bucket(o.CreatedAt)
		b.revenue = b.revenue.Add(o.TotalAmount)
		b.orders++
	}
	for _, e := range expenses {
		b := bucket(e.ExpenseDate)
		b.expenses = b.expenses.Add(e.Amount)
	}

	months := make([]string, 0, len(buckets))
	for month := range buckets {
		months = append(months, month)
	}
	sort.Strings(months)
	if len(months) > monthlyTrendsMonths {
		months = months[len(months)-monthlyTrendsMonths:]
	}

	trends := make([]MonthlyTrend, 0, len(months))
	for _, month := range months {
		b := buckets[month]
		trends = append(trends, MonthlyTrend{
			Month:      month,
			Revenue:    money(b.revenue),
			Expenses:   money(b.expenses),
			NetProfit:  money(b.revenue.Sub(b.expenses)),
			OrderCount: b.orders,
		})
	}
	return trends, nil
}

func (s *service) CalculateExpenseBreakdown(ctx context.Context) ([]ExpenseCategoryBreakdown, error) {
	rows, err := s.store.CategorizedExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("load categorized expenses: %w", err)
	}

	type group struct {
		name   string
		amount decimal.Decimal
		count  int
	}
	var order []*group
	byName := map[string]*group{}
	total := decimal.Zero
	for _, row := range rows {
		name := uncategorizedLabel
		if row.CategoryName != nil && *row.CategoryName != "" {
			name = *row.CategoryName
		}
		g, ok := byName[name]
		if !ok {
			g = &group{name: name}
			byName[name] = g
			order = append(order, g)
		}
		g.amount = g.amount.Add(row.Amount)
		g.count++
		total = total.Add(row.Amount)
	}

	sort.SliceStable(order, func(i, j int) bool {
		return order[i].amount.GreaterThan(order[j].amount)
	})

	breakdown := make([]ExpenseCategoryBreakdown, 0, len(order))
	for _, g := range order {
		breakdown = append(breakdown, ExpenseCategoryBreakdown{
			Category:   g.name,
			Amount:     money(g.amount),
			Count:      g.count,
			Percentage: percentage(g.amount, total),
		})
	}
	return breakdown, nil
}

type productSnapshot struct {
	Name string `json:"name"`
}

func (s *service) CalculateTopProducts(ctx context.Context) ([]TopProduct, error) {
	rows, err := s.store.SoldItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sold items: %w", err)
	}

	type tally struct {
		name    string
		sold    int
		revenue decimal.Decimal
	}
	var order []*tally
	byName := map[string]*tally{}
	for _, row := range rows {
		name := unknownProductLabel
		if len(row.ProductSnapshot) > 0 {
			var snap productSnapshot
			if err := json.Unmarshal(row.ProductSnapshot, &snap); err == nil && snap.Name != "" {
				name = snap.Name
			}
		}
		t, ok := byName[name]
		if !ok {
			t = &tally{name: name}
			byName[name] = t
			order = append(order, t)
		}
		t.sold += row.Quantity
		t.revenue = t.revenue.Add(row.Subtotal)
	}

	sort.SliceStable(order, func(i, j int) bool {
		return order[i].revenue.GreaterThan(order[j].revenue)
	})
	if len(order) > topProductsLimit {
		order = order[:topProductsLimit]
	}

	products := make([]TopProduct, 0, len(order))
	for _, t := range order {
		avg := 0.0
		if t.sold > 0 {
			avg = money(t.revenue.Div(decimal.NewFromInt(int64(t.sold))))
		}
		products = append(products, TopProduct{
			ProductName:  t.name,
			TotalSold:    t.sold,
			Revenue:      money(t.revenue),
			AveragePrice: avg,
		})
	}
	return products, nil
}

// PeriodReport aggregates revenue and expenses inline for a preset window.
func (s *service) PeriodReport(ctx context.Context, period Period) (*PeriodReport, error) {
	now := s.clock.Now().UTC()
	from, to := period.Window(now)
	// to is "now"; include rows stamped at exactly now.
	until := to.Add(time.Nanosecond)

	orders, err := s.store.RevenueOrders(ctx, from, until)
	if err != nil {
		return nil, fmt.Errorf("load revenue orders: %w", err)
	}
	expenses, err := s.store.Expenses(ctx, from, until)
	if err != nil {
		return nil, fmt.Errorf("load expenses: %w", err)
	}

	revenue := decimal.Zero
	for _, o := range orders {
		revenue = revenue.Add(o.TotalAmount)
	}
	spent := decimal.Zero
	for _, e := range expenses {
		spent = spent.Add(e.Amount)
	}
	net := revenue.Sub(spent)

	avg := 0.0
	if len(orders) > 0 {
		avg = money(revenue.Div(decimal.NewFromInt(int64(len(orders)))))
	}

	return &PeriodReport{
		Period:            period,
		From:              from,
		To:                to,
		TotalRevenue:      money(revenue),
		TotalExpenses:     money(spent),
		NetProfit:         money(net),
		OrderCount:        len(orders),
		AverageOrderValue: avg,
		ProfitMargin:      percentage(net, revenue),
		GeneratedAt:       now,
	}, nil
}
