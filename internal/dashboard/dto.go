package dashboard

import (
	"github.com/angelmondragon/gemline-backend/pkg/db/models"
	"github.com/angelmondragon/gemline-backend/pkg/types"
)

type (
	Widgets     = types.Widgets
	RecentOrder = types.RecentOrder
)

func recentOrderFromModel(o models.Order) RecentOrder {
	return RecentOrder{
		ID:           o.ID,
		OrderNumber:  o.OrderNumber,
		CustomerName: o.CustomerName,
		TotalAmount:  o.TotalAmount.Round(2).InexactFloat64(),
		Status:       o.Status,
		CreatedAt:    o.CreatedAt,
	}
}
