package cart

import "github.com/google/uuid"

// AddItemRequest identifies the catalog item to add; pricing comes from the
// catalog mirror at add-time, never from the client.
type AddItemRequest struct {
	ItemID uuid.UUID `json:"item_id" validate:"required"`
}

// SetQuantityRequest carries the new quantity for a line. Zero removes it.
type SetQuantityRequest struct {
	Quantity int `json:"quantity"`
}
