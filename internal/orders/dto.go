package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/feastlyapp/feastly-backend/pkg/db/models"
	"github.com/feastlyapp/feastly-backend/pkg/enums"
)

// CustomerInfo is the contact block a customer submits at checkout.
type CustomerInfo struct {
	Name    string `json:"name" validate:"required,min=1,max=200"`
	Phone   string `json:"phone" validate:"required,min=5,max=30"`
	Address string `json:"address" validate:"required,min=1,max=500"`
}

// LineDTO mirrors one priced line of a confirmed order.
type LineDTO struct {
	ItemID    *uuid.UUID      `json:"item_id,omitempty"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Qty       int             `json:"qty"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// OrderDTO is the read view of a confirmed order.
type OrderDTO struct {
	ID           uuid.UUID         `json:"id"`
	CustomerName string            `json:"customer_name"`
	TotalAmount  decimal.Decimal   `json:"total_amount"`
	TotalItems   int               `json:"total_items"`
	Status       enums.OrderStatus `json:"status"`
	OrderDate    time.Time         `json:"order_date"`
	Lines        []LineDTO         `json:"lines"`
}

// ToDTO converts a persisted order with its items.
func ToDTO(order *models.Order) OrderDTO {
	lines := make([]LineDTO, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, LineDTO{
			ItemID:    item.ItemID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Qty:       item.Qty,
			LineTotal: item.LineTotal,
		})
	}
	return OrderDTO{
		ID:           order.ID,
		CustomerName: order.CustomerName,
		TotalAmount:  order.TotalAmount,
		TotalItems:   order.TotalItems,
		Status:       order.Status,
		OrderDate:    order.OrderDate,
		Lines:        lines,
	}
}
