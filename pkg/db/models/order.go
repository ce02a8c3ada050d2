package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/angelmondragon/gemline-backend/pkg/enums"
)

// Order is a storefront purchase. Cancelled orders never count toward revenue.
type Order struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber   string            `gorm:"column:order_number;not null;uniqueIndex"`
	CustomerName  string            `gorm:"column:customer_name;not null"`
	CustomerPhone *string           `gorm:"column:customer_phone"`
	TotalAmount   decimal.Decimal   `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Status        enums.OrderStatus `gorm:"column:status;type:text;not null;default:pending"`
	Items         []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (Order) TableName() string { return "orders" }

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// OrderItem is a single line of an order. ProductSnapshot freezes the product
// as it was at purchase time ({"name": ..., "sku": ...}).
type OrderItem struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID         uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID       *uuid.UUID      `gorm:"column:product_id;type:uuid"`
	Quantity        int             `gorm:"column:quantity;not null"`
	UnitPrice       decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Subtotal        decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
	ProductSnapshot datatypes.JSON  `gorm:"column:product_snapshot"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (OrderItem) TableName() string { return "order_items" }

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
