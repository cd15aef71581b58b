package cart

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/feastlyapp/feastly-backend/internal/catalog"
	pkgerrors "github.com/feastlyapp/feastly-backend/pkg/errors"
)

func availableItem(name, price string) catalog.Item {
	return catalog.Item{
		ID:        uuid.New(),
		Name:      name,
		UnitPrice: decimal.RequireFromString(price),
		Category:  "Other",
		Available: true,
	}
}

func mustAmount(t *testing.T, c *Cart, want string) {
	t.Helper()
	if got := c.TotalAmount(); !got.Equal(decimal.RequireFromString(want)) {
		t.Fatalf("total amount = %s, want %s", got, want)
	}
}

func TestAddItemMergesExistingLine(t *testing.T) {
	c := New("s1")
	item := availableItem("Pad Thai", "10.00")

	if err := c.AddItem(item); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := c.AddItem(item); err != nil {
		t.Fatalf("add again: %v", err)
	}

	lines := c.Lines()
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d", len(lines))
	}
	if lines[0].Quantity != 2 {
		t.Fatalf("quantity = %d, want 2", lines[0].Quantity)
	}
	mustAmount(t, c, "20.00")
}

func TestAddItemRejectsUnavailable(t *testing.T) {
	c := New("s1")
	item := availableItem("Sold Out Special", "9.00")
	item.Available = false

	err := c.AddItem(item)
	if err == nil {
		t.Fatal("expected error adding unavailable item")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeItemUnavailable {
		t.Fatalf("code = %s, want %s", pkgerrors.As(err).Code(), pkgerrors.CodeItemUnavailable)
	}
	if !c.IsEmpty() {
		t.Fatal("cart must stay empty after rejected add")
	}
}

func TestAddItemFreezesPriceAtAddTime(t *testing.T) {
	c := New("s1")
	item := availableItem("Curry", "8.00")
	if err := c.AddItem(item); err != nil {
		t.Fatalf("add: %v", err)
	}

	// later catalog updates never retroactively alter an existing line
	item.UnitPrice = decimal.RequireFromString("99.00")
	item.Name = "Renamed Curry"

	lines := c.Lines()
	if !lines[0].UnitPrice.Equal(decimal.RequireFromString("8.00")) {
		t.Fatalf("unit price changed to %s", lines[0].UnitPrice)
	}
	if lines[0].Name != "Curry" {
		t.Fatalf("name changed to %q", lines[0].Name)
	}
	mustAmount(t, c, "8.00")
}

func TestSetQuantity(t *testing.T) {
	c := New("s1")
	item := availableItem("Dumplings", "5.00")
	if err := c.AddItem(item); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := c.SetQuantity(item.ID, 4); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := c.TotalItemCount(); got != 4 {
		t.Fatalf("count = %d, want 4", got)
	}

	if err := c.SetQuantity(item.ID, 0); err != nil {
		t.Fatalf("set zero: %v", err)
	}
	if !c.IsEmpty() {
		t.Fatal("quantity zero must remove the line")
	}

	if err := c.SetQuantity(item.ID, -1); err == nil {
		t.Fatal("expected error for negative quantity")
	} else if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("code = %s, want %s", pkgerrors.As(err).Code(), pkgerrors.CodeValidation)
	}

	// absent id is a no-op, not an error
	if err := c.SetQuantity(uuid.New(), 3); err != nil {
		t.Fatalf("set on absent id: %v", err)
	}
	if !c.IsEmpty() {
		t.Fatal("set on absent id must not create a line")
	}
}

func TestDecrementRemovesAtOne(t *testing.T) {
	c := New("s1")
	item := availableItem("Spring Rolls", "10.00")
	if err := c.AddItem(item); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := c.AddItem(item); err != nil {
		t.Fatalf("add again: %v", err)
	}
	mustAmount(t, c, "20.00")

	c.DecrementQuantity(item.ID)
	if got := c.TotalItemCount(); got != 1 {
		t.Fatalf("count = %d, want 1", got)
	}

	c.DecrementQuantity(item.ID)
	if !c.IsEmpty() {
		t.Fatal("decrement at quantity one must remove the line")
	}
	mustAmount(t, c, "0")

	// decrementing an already-removed id leaves the cart unchanged
	c.DecrementQuantity(item.ID)
	if !c.IsEmpty() {
		t.Fatal("decrement on absent id must be a no-op")
	}
}

func TestIncrementOnAbsentIDIsNoOp(t *testing.T) {
	c := New("s1")
	c.IncrementQuantity(uuid.New())
	if !c.IsEmpty() {
		t.Fatal("increment on absent id must not create a line")
	}
}

func TestQuantityNeverBelowOne(t *testing.T) {
	c := New("s1")
	items := []catalog.Item{
		availableItem("A", "1.00"),
		availableItem("B", "2.00"),
	}
	for _, item := range items {
		if err := c.AddItem(item); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	for i := 0; i < 10; i++ {
		c.DecrementQuantity(items[0].ID)
		c.IncrementQuantity(items[1].ID)
		c.DecrementQuantity(items[1].ID)
		for _, line := range c.Lines() {
			if line.Quantity < 1 {
				t.Fatalf("line %s has quantity %d", line.Name, line.Quantity)
			}
		}
	}
}

func TestTotalsAcrossLines(t *testing.T) {
	c := New("s1")
	a := availableItem("A", "5.00")
	b := availableItem("B", "7.50")

	if err := c.AddItem(a); err != nil {
		t.Fatalf("add a: %v", err)
	}
	if err := c.AddItem(a); err != nil {
		t.Fatalf("add a again: %v", err)
	}
	if err := c.AddItem(b); err != nil {
		t.Fatalf("add b: %v", err)
	}

	if got := c.TotalItemCount(); got != 3 {
		t.Fatalf("count = %d, want 3", got)
	}
	mustAmount(t, c, "17.50")
}

func TestLinesKeepInsertionOrder(t *testing.T) {
	c := New("s1")
	names := []string{"First", "Second", "Third"}
	for _, name := range names {
		if err := c.AddItem(availableItem(name, "1.00")); err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
	}
	lines := c.Lines()
	for i, name := range names {
		if lines[i].Name != name {
			t.Fatalf("line %d = %q, want %q", i, lines[i].Name, name)
		}
	}
}

func TestClearIsIdempotent(t *testing.T) {
	c := New("s1")
	if err := c.AddItem(availableItem("X", "2.00")); err != nil {
		t.Fatalf("add: %v", err)
	}
	c.Clear()
	c.Clear()
	if !c.IsEmpty() {
		t.Fatal("cart must be empty after clear")
	}
	mustAmount(t, c, "0")
}

func TestSnapshotComputesTotals(t *testing.T) {
	c := New("s42")
	a := availableItem("A", "5.00")
	if err := c.AddItem(a); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := c.SetQuantity(a.ID, 3); err != nil {
		t.Fatalf("set: %v", err)
	}

	snap := c.Snapshot()
	if snap.SessionID != "s42" {
		t.Fatalf("session = %q", snap.SessionID)
	}
	if snap.TotalItems != 3 {
		t.Fatalf("total items = %d, want 3", snap.TotalItems)
	}
	if !snap.TotalAmount.Equal(decimal.RequireFromString("15.00")) {
		t.Fatalf("total amount = %s, want 15.00", snap.TotalAmount)
	}

	// the snapshot is detached from later mutations
	c.Clear()
	if len(snap.Lines) != 1 {
		t.Fatal("snapshot lines must not change after clear")
	}
}

func TestSubmissionGuard(t *testing.T) {
	c := New("s1")
	if err := c.BeginSubmission(); err != nil {
		t.Fatalf("begin: %v", err)
	}

	err := c.BeginSubmission()
	if err == nil {
		t.Fatal("expected second submission to be rejected")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeSubmissionInFlight {
		t.Fatalf("code = %s, want %s", pkgerrors.As(err).Code(), pkgerrors.CodeSubmissionInFlight)
	}

	c.EndSubmission()
	if err := c.BeginSubmission(); err != nil {
		t.Fatalf("begin after end: %v", err)
	}
}

func TestRestoreDropsInvalidLines(t *testing.T) {
	good := Line{ItemID: uuid.New(), Name: "Good", UnitPrice: decimal.RequireFromString("2.00"), Quantity: 2}
	bad := Line{ItemID: uuid.New(), Name: "Bad", UnitPrice: decimal.RequireFromString("3.00"), Quantity: 0}

	c := Restore(Snapshot{SessionID: "s9", Lines: []Line{good, bad}})
	lines := c.Lines()
	if len(lines) != 1 || lines[0].Name != "Good" {
		t.Fatalf("unexpected restored lines: %+v", lines)
	}
	mustAmount(t, c, "4.00")
}
