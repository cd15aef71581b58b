package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbpkg "github.com/feastlyapp/feastly-backend/pkg/db"
	"github.com/feastlyapp/feastly-backend/pkg/db/models"
	"github.com/feastlyapp/feastly-backend/pkg/enums"
	pkgerrors "github.com/feastlyapp/feastly-backend/pkg/errors"
	"github.com/feastlyapp/feastly-backend/pkg/logger"
	"github.com/feastlyapp/feastly-backend/pkg/outbox"
	"github.com/feastlyapp/feastly-backend/pkg/outbox/payloads"
)

const defaultCategory = "Other"

// ChangePublisher signals catalog mutations to listening mirrors.
type ChangePublisher interface {
	NotifyChanged(ctx context.Context) error
}

// CreateItemInput carries the fields an admin submits for a new listing.
type CreateItemInput struct {
	Name        string          `json:"name" validate:"required,min=1,max=200"`
	Description string          `json:"description" validate:"max=2000"`
	UnitPrice   decimal.Decimal `json:"unit_price" validate:"required"`
	Category    string          `json:"category" validate:"max=100"`
	ImageURL    string          `json:"image_url" validate:"omitempty,url"`
}

// UpdateItemInput carries partial updates for an existing listing.
type UpdateItemInput struct {
	Name        *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string          `json:"description" validate:"omitempty,max=2000"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
	Category    *string          `json:"category" validate:"omitempty,max=100"`
	ImageURL    *string          `json:"image_url" validate:"omitempty,url"`
	Available   *bool            `json:"available"`
}

// Service owns admin authoring of catalog items. Every mutation commits the
// row and its outbox event together, then signals mirrors to reload.
type Service struct {
	client    *dbpkg.Client
	repo      *Repository
	outbox    *outbox.Service
	publisher ChangePublisher
	logg      *logger.Logger
}

func NewService(client *dbpkg.Client, repo *Repository, outboxSvc *outbox.Service, publisher ChangePublisher, logg *logger.Logger) *Service {
	return &Service{
		client:    client,
		repo:      repo,
		outbox:    outboxSvc,
		publisher: publisher,
		logg:      logg,
	}
}

// ListItems returns the catalog straight from the source of truth. Admin
// reads bypass the mirror so authors always see their own writes.
func (s *Service) ListItems(ctx context.Context) ([]Item, error) {
	items, err := s.repo.ListItems(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing catalog items")
	}
	return items, nil
}

// GetItem returns a single listing.
func (s *Service) GetItem(ctx context.Context, id uuid.UUID) (*Item, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "catalog item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading catalog item")
	}
	item := itemFromModel(*row)
	return &item, nil
}

// CreateItem inserts a new listing. Missing category defaults to "Other" and
// new items start available.
func (s *Service) CreateItem(ctx context.Context, input CreateItemInput) (*Item, error) {
	if input.UnitPrice.IsNegative() || input.UnitPrice.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price must be positive")
	}

	category := strings.TrimSpace(input.Category)
	if category == "" {
		category = defaultCategory
	}

	row := &models.CatalogItem{
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		UnitPrice:   input.UnitPrice,
		Category:    &category,
		ImageURL:    strings.TrimSpace(input.ImageURL),
		Available:   true,
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}

	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.WithTx(tx).CreateItem(ctx, row); err != nil {
			return err
		}
		return s.emitChange(ctx, tx, enums.EventCatalogItemCreated, row)
	})
	if err != nil {
		if dbpkg.IsUniqueViolation(err, "uq_catalog_items_name") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "a listing with this name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating catalog item")
	}

	s.notify(ctx)
	item := itemFromModel(*row)
	return &item, nil
}

// UpdateItem applies the provided fields to an existing listing.
func (s *Service) UpdateItem(ctx context.Context, id uuid.UUID, input UpdateItemInput) (*Item, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "catalog item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading catalog item")
	}

	if input.Name != nil {
		row.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		row.Description = strings.TrimSpace(*input.Description)
	}
	if input.UnitPrice != nil {
		if input.UnitPrice.IsNegative() || input.UnitPrice.IsZero() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price must be positive")
		}
		row.UnitPrice = *input.UnitPrice
	}
	if input.Category != nil {
		category := strings.TrimSpace(*input.Category)
		if category == "" {
			category = defaultCategory
		}
		row.Category = &category
	}
	if input.ImageURL != nil {
		row.ImageURL = strings.TrimSpace(*input.ImageURL)
	}
	if input.Available != nil {
		row.Available = *input.Available
	}

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.WithTx(tx).UpdateItem(ctx, row); err != nil {
			return err
		}
		return s.emitChange(ctx, tx, enums.EventCatalogItemUpdated, row)
	})
	if err != nil {
		if dbpkg.IsUniqueViolation(err, "uq_catalog_items_name") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "a listing with this name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating catalog item")
	}

	s.notify(ctx)
	item := itemFromModel(*row)
	return &item, nil
}

// DeleteItem removes a listing.
func (s *Service) DeleteItem(ctx context.Context, id uuid.UUID) error {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "catalog item not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading catalog item")
	}

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).DeleteItem(ctx, id); err != nil {
			return err
		}
		return s.emitChange(ctx, tx, enums.EventCatalogItemDeleted, row)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting catalog item")
	}

	s.notify(ctx)
	return nil
}

func (s *Service) emitChange(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, row *models.CatalogItem) error {
	if s.outbox == nil {
		return nil
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateCatalogItem,
		AggregateID:   row.ID,
		Version:       1,
		Data: payloads.CatalogItemChangedEvent{
			ItemID:    row.ID,
			Name:      row.Name,
			ChangedAt: time.Now(),
		},
	})
}

// notify is best-effort: the mutation already committed, so a failed signal
// only delays mirrors until the next reload.
func (s *Service) notify(ctx context.Context) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.NotifyChanged(ctx); err != nil && s.logg != nil {
		s.logg.Error(ctx, "publishing catalog change signal", err)
	}
}
