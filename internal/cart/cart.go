package cart

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/feastlyapp/feastly-backend/internal/catalog"
	pkgerrors "github.com/feastlyapp/feastly-backend/pkg/errors"
)

// Line is one distinct item in a cart. Name, description, image, and unit
// price are copied from the catalog at add-time and never change afterwards,
// so an in-progress cart is price-stable against concurrent catalog edits.
type Line struct {
	ItemID      uuid.UUID       `json:"item_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	ImageURL    string          `json:"image_url"`
	Quantity    int             `json:"quantity"`
}

// LineTotal returns unit price times quantity.
func (l Line) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Snapshot is a read-only serialization of a cart: its lines in insertion
// order plus computed totals. It is what checkout submits and what the
// session store persists.
type Snapshot struct {
	SessionID   string          `json:"session_id"`
	Lines       []Line          `json:"lines"`
	TotalItems  int             `json:"total_items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Cart is the aggregate owning a session's pending order. It is the sole
// mutator of its lines; every operation is atomic with respect to the
// derived totals, so readers never observe a partially-applied mutation.
//
// Lines keep insertion order. There is exactly one line per item ID, and a
// line's quantity is always at least one: reaching zero removes the line.
type Cart struct {
	mu        sync.Mutex
	sessionID string
	lines     []Line
	updatedAt time.Time

	submitting bool
}

// New creates an empty cart owned by the given session.
func New(sessionID string) *Cart {
	return &Cart{sessionID: sessionID, updatedAt: time.Now()}
}

// Restore rebuilds a cart from a persisted snapshot.
func Restore(snap Snapshot) *Cart {
	lines := make([]Line, 0, len(snap.Lines))
	for _, line := range snap.Lines {
		if line.Quantity < 1 {
			continue
		}
		lines = append(lines, line)
	}
	return &Cart{
		sessionID: snap.SessionID,
		lines:     lines,
		updatedAt: snap.UpdatedAt,
	}
}

// SessionID returns the owning session.
func (c *Cart) SessionID() string {
	return c.sessionID
}

// AddItem puts one unit of the catalog item into the cart. If a line for the
// item already exists its quantity grows by one and the original add-time
// snapshot is kept; otherwise a new line is appended. Unavailable items are
// rejected without touching the cart.
func (c *Cart) AddItem(item catalog.Item) error {
	if !item.Available {
		return pkgerrors.New(pkgerrors.CodeItemUnavailable, "item is not available").
			WithDetails(map[string]string{"item_id": item.ID.String()})
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if idx := c.indexOf(item.ID); idx >= 0 {
		c.lines[idx].Quantity++
		c.touch()
		return nil
	}
	c.lines = append(c.lines, Line{
		ItemID:      item.ID,
		Name:        item.Name,
		Description: item.Description,
		UnitPrice:   item.UnitPrice,
		ImageURL:    item.ImageURL,
		Quantity:    1,
	})
	c.touch()
	return nil
}

// SetQuantity updates a line's quantity. Zero removes the line, negative
// values are rejected, and an absent item ID is a no-op.
func (c *Cart) SetQuantity(itemID uuid.UUID, qty int) error {
	if qty < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexOf(itemID)
	if idx < 0 {
		return nil
	}
	if qty == 0 {
		c.removeAt(idx)
	} else {
		c.lines[idx].Quantity = qty
	}
	c.touch()
	return nil
}

// IncrementQuantity raises a line's quantity by one. Absent IDs are a no-op.
func (c *Cart) IncrementQuantity(itemID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if idx := c.indexOf(itemID); idx >= 0 {
		c.lines[idx].Quantity++
		c.touch()
	}
}

// DecrementQuantity lowers a line's quantity by one, removing the line when
// it reaches zero. Absent IDs are a no-op.
func (c *Cart) DecrementQuantity(itemID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexOf(itemID)
	if idx < 0 {
		return
	}
	c.lines[idx].Quantity--
	if c.lines[idx].Quantity < 1 {
		c.removeAt(idx)
	}
	c.touch()
}

// RemoveItem drops the line for the item ID if present.
func (c *Cart) RemoveItem(itemID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if idx := c.indexOf(itemID); idx >= 0 {
		c.removeAt(idx)
		c.touch()
	}
}

// Clear empties the cart. Idempotent.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lines = nil
	c.touch()
}

// Lines returns a copy of the current lines in insertion order.
func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// TotalItemCount returns the summed quantity over all lines.
func (c *Cart) TotalItemCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalItemsLocked()
}

// TotalAmount returns the summed line totals.
func (c *Cart) TotalAmount() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalAmountLocked()
}

// IsEmpty reports whether the cart holds no lines.
func (c *Cart) IsEmpty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines) == 0
}

// Snapshot returns the serialized cart with both totals computed under the
// same lock as the line copy.
func (c *Cart) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	lines := make([]Line, len(c.lines))
	copy(lines, c.lines)
	return Snapshot{
		SessionID:   c.sessionID,
		Lines:       lines,
		TotalItems:  c.totalItemsLocked(),
		TotalAmount: c.totalAmountLocked(),
		UpdatedAt:   c.updatedAt,
	}
}

// BeginSubmission marks the cart as having a checkout in flight. A second
// attempt while one is outstanding is rejected, since the order sink is not
// guaranteed idempotent on retries.
func (c *Cart) BeginSubmission() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.submitting {
		return pkgerrors.New(pkgerrors.CodeSubmissionInFlight, "a checkout is already in flight for this cart")
	}
	c.submitting = true
	return nil
}

// EndSubmission releases the in-flight guard.
func (c *Cart) EndSubmission() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitting = false
}

func (c *Cart) indexOf(itemID uuid.UUID) int {
	for i := range c.lines {
		if c.lines[i].ItemID == itemID {
			return i
		}
	}
	return -1
}

func (c *Cart) removeAt(idx int) {
	c.lines = append(c.lines[:idx], c.lines[idx+1:]...)
}

func (c *Cart) touch() {
	c.updatedAt = time.Now()
}

func (c *Cart) totalItemsLocked() int {
	total := 0
	for i := range c.lines {
		total += c.lines[i].Quantity
	}
	return total
}

func (c *Cart) totalAmountLocked() decimal.Decimal {
	total := decimal.Zero
	for i := range c.lines {
		total = total.Add(c.lines[i].LineTotal())
	}
	return total
}
