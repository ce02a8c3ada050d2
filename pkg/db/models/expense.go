package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ExpenseCategory struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name      string    `gorm:"column:name;not null;uniqueIndex"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (ExpenseCategory) TableName() string { return "expense_categories" }

func (c *ExpenseCategory) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// Expense is an outgoing payment. CategoryID may be null for uncategorized spend.
type Expense struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	CategoryID  *uuid.UUID       `gorm:"column:category_id;type:uuid;index"`
	Category    *ExpenseCategory `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL"`
	Amount      decimal.Decimal  `gorm:"column:amount;type:numeric(12,2);not null"`
	Description string           `gorm:"column:description;not null;default:''"`
	ExpenseDate time.Time        `gorm:"column:expense_date;type:date;not null"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (Expense) TableName() string { return "expenses" }

func (e *Expense) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}
