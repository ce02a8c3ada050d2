package models

import (
	"github.com/google/uuid"
)

// All lists every model the sqlite development schema is built from.
func All() []any {
	return []any{
		&Product{},
		&Order{},
		&OrderItem{},
		&ExpenseCategory{},
		&Expense{},
		&AnalyticsMetric{},
		&AnalyticsRefreshRun{},
		&AnalyticsSnapshot{},
	}
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
