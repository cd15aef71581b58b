package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	cartsvc "github.com/feastlyapp/feastly-backend/internal/cart"
)

// LineView is one cart line as served to the storefront.
type LineView struct {
	ItemID      uuid.UUID       `json:"item_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	ImageURL    string          `json:"image_url"`
	Quantity    int             `json:"quantity"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// CartView is the full cart payload with derived totals.
type CartView struct {
	SessionID   string          `json:"session_id"`
	Lines       []LineView      `json:"lines"`
	TotalItems  int             `json:"total_items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func newCartView(snap cartsvc.Snapshot) CartView {
	lines := make([]LineView, 0, len(snap.Lines))
	for _, line := range snap.Lines {
		lines = append(lines, LineView{
			ItemID:      line.ItemID,
			Name:        line.Name,
			Description: line.Description,
			UnitPrice:   line.UnitPrice,
			ImageURL:    line.ImageURL,
			Quantity:    line.Quantity,
			LineTotal:   line.LineTotal(),
		})
	}
	return CartView{
		SessionID:   snap.SessionID,
		Lines:       lines,
		TotalItems:  snap.TotalItems,
		TotalAmount: snap.TotalAmount,
		UpdatedAt:   snap.UpdatedAt,
	}
}
