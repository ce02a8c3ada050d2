package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("")
	require.NoError(t, err)
	assert.Equal(t, PeriodThisMonth, p)

	p, err = ParsePeriod("Last 3 Months")
	require.NoError(t, err)
	assert.Equal(t, PeriodLast3Months, p)

	_, err = ParsePeriod("last week")
	require.Error(t, err)
}

func TestPeriodWindow(t *testing.T) {
	// Sunday
	now := time.Date(2026, time.March, 15, 12, 30, 0, 0, time.UTC)

	cases := []struct {
		period Period
		from   time.Time
	}{
		{PeriodThisWeek, time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC)},
		{PeriodThisMonth, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)},
		{PeriodLast3Months, time.Date(2025, time.December, 15, 12, 30, 0, 0, time.UTC)},
		{PeriodThisYear, time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		t.Run(string(tc.period), func(t *testing.T) {
			from, to := tc.period.Window(now)
			assert.Equal(t, tc.from, from)
			assert.Equal(t, now, to)
		})
	}
}

func TestPeriodWindowWeekStartsMonday(t *testing.T) {
	monday := time.Date(2026, time.March, 9, 8, 0, 0, 0, time.UTC)
	from, _ := PeriodThisWeek.Window(monday)
	assert.Equal(t, time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC), from)
}
