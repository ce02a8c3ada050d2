package types

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/gemline-backend/pkg/enums"
)

// Widgets is the bundle rendered on the admin landing page.
type Widgets struct {
	Live         LiveMetrics   `json:"live"`
	NetRevenue   *NetRevenue   `json:"netRevenue"`
	TopProducts  []TopProduct  `json:"topProducts"`
	RecentOrders []RecentOrder `json:"recentOrders"`
	SnapshotDate *time.Time    `json:"snapshotDate"`
	GeneratedAt  time.Time     `json:"generatedAt"`
}

type RecentOrder struct {
	ID           uuid.UUID         `json:"id"`
	OrderNumber  string            `json:"orderNumber"`
	CustomerName string            `json:"customerName"`
	TotalAmount  float64           `json:"totalAmount"`
	Status       enums.OrderStatus `json:"status"`
	CreatedAt    time.Time         `json:"createdAt"`
}
