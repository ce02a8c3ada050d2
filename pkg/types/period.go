package types

import (
	"fmt"
	"time"
)

// Period is a preset reporting window for the ad hoc analytics endpoint.
type Period string

const (
	PeriodThisWeek    Period = "This Week"
	PeriodThisMonth   Period = "This Month"
	PeriodLast3Months Period = "Last 3 Months"
	PeriodThisYear    Period = "This Year"
)

const DefaultPeriod = PeriodThisMonth

var validPeriods = []Period{PeriodThisWeek, PeriodThisMonth, PeriodLast3Months, PeriodThisYear}

// ParsePeriod converts raw input into a Period; empty input yields DefaultPeriod.
func ParsePeriod(value string) (Period, error) {
	if value == "" {
		return DefaultPeriod, nil
	}
	for _, candidate := range validPeriods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid period %q", value)
}

// Window returns the [from, to) range the period covers at now. Weeks start on Monday.
func (p Period) Window(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	switch p {
	case PeriodThisWeek:
		offset := (int(midnight.Weekday()) + 6) % 7
		return midnight.AddDate(0, 0, -offset), now
	case PeriodLast3Months:
		return now.AddDate(0, -3, 0), now
	case PeriodThisYear:
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC), now
	default:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC), now
	}
}

// PeriodReport is computed inline on every request; it never touches the metric cache.
type PeriodReport struct {
	Period            Period    `json:"period"`
	From              time.Time `json:"from"`
	To                time.Time `json:"to"`
	TotalRevenue      float64   `json:"totalRevenue"`
	TotalExpenses     float64   `json:"totalExpenses"`
	NetProfit         float64   `json:"netProfit"`
	OrderCount        int       `json:"orderCount"`
	AverageOrderValue float64   `json:"averageOrderValue"`
	ProfitMargin      float64   `json:"profitMargin"`
	GeneratedAt       time.Time `json:"generatedAt"`
}
