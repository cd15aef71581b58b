package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderPlacedEvent signals that a checkout committed a new order.
type OrderPlacedEvent struct {
	OrderID       uuid.UUID         `json:"order_id"`
	CustomerName  string            `json:"customer_name"`
	CustomerPhone string            `json:"customer_phone"`
	TotalAmount   decimal.Decimal   `json:"total_amount"`
	TotalItems    int               `json:"total_items"`
	PlacedAt      time.Time         `json:"placed_at"`
	Lines         []OrderPlacedLine `json:"lines"`
}

// OrderPlacedLine is one priced line inside an OrderPlacedEvent.
type OrderPlacedLine struct {
	ItemID    *uuid.UUID      `json:"item_id,omitempty"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Qty       int             `json:"qty"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// CatalogItemChangedEvent is emitted when an admin creates, updates, or
// deletes a catalog item.
type CatalogItemChangedEvent struct {
	ItemID    uuid.UUID `json:"item_id"`
	Name      string    `json:"name"`
	ChangedAt time.Time `json:"changed_at"`
}
