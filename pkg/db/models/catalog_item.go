package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CatalogItem is the canonical menu listing owned by the catalog source.
// Consumers never mutate rows directly; the mirror replaces its local copy
// wholesale on every change signal.
type CatalogItem struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string          `gorm:"column:name;not null"`
	Description string          `gorm:"column:description;not null"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(10,2);not null"`
	Category    *string         `gorm:"column:category"`
	ImageURL    string          `gorm:"column:image_url;not null"`
	Available   bool            `gorm:"column:available;not null;default:true"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName pins the table name so gorm does not pluralize differently.
func (CatalogItem) TableName() string {
	return "catalog_items"
}
