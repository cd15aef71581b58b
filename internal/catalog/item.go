package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/feastlyapp/feastly-backend/pkg/db/models"
)

// Item is the read-model view of a catalog row served to clients.
type Item struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Category    string          `json:"category"`
	ImageURL    string          `json:"image_url"`
	Available   bool            `json:"available"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Snapshot is an immutable view of the whole catalog at one point in time.
// Consumers must treat Items and byID as read-only.
type Snapshot struct {
	Items    []Item
	Version  uint64
	LoadedAt time.Time

	byID map[uuid.UUID]Item
}

// Lookup returns the item with the given ID, if present.
func (s Snapshot) Lookup(id uuid.UUID) (Item, bool) {
	item, ok := s.byID[id]
	return item, ok
}

// Len reports how many items the snapshot holds.
func (s Snapshot) Len() int {
	return len(s.Items)
}

// SnapshotOf builds a standalone snapshot from the given items. The mirror
// versions its own snapshots; this is for composing a fixed view directly.
func SnapshotOf(items []Item) Snapshot {
	return newSnapshot(items, 1)
}

func newSnapshot(items []Item, version uint64) Snapshot {
	byID := make(map[uuid.UUID]Item, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}
	return Snapshot{
		Items:    items,
		Version:  version,
		LoadedAt: time.Now(),
		byID:     byID,
	}
}

func itemFromModel(row models.CatalogItem) Item {
	category := "Other"
	if row.Category != nil && *row.Category != "" {
		category = *row.Category
	}
	return Item{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description,
		UnitPrice:   row.UnitPrice,
		Category:    category,
		ImageURL:    row.ImageURL,
		Available:   row.Available,
		UpdatedAt:   row.UpdatedAt,
	}
}
