package checkout

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/feastlyapp/feastly-backend/internal/cart"
	"github.com/feastlyapp/feastly-backend/internal/orders"
	"github.com/feastlyapp/feastly-backend/pkg/db/models"
	"github.com/feastlyapp/feastly-backend/pkg/enums"
	pkgerrors "github.com/feastlyapp/feastly-backend/pkg/errors"
	"github.com/feastlyapp/feastly-backend/pkg/logger"
	"github.com/feastlyapp/feastly-backend/pkg/outbox"
	"github.com/feastlyapp/feastly-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service submits finalized carts to the order sink.
type Service interface {
	Execute(ctx context.Context, customerCart *cart.Cart, info orders.CustomerInfo) (*orders.OrderDTO, error)
}

type service struct {
	tx     txRunner
	repo   orders.Repository
	outbox outboxPublisher
	logg   *logger.Logger
}

// NewService builds the checkout service.
func NewService(tx txRunner, repo orders.Repository, publisher outboxPublisher, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{tx: tx, repo: repo, outbox: publisher, logg: logg}, nil
}

// Execute writes the cart's current snapshot to the order sink as a pending
// order. At most one submission runs per cart at a time; a failed submission
// leaves the cart untouched so the customer can retry, and only a confirmed
// write clears it.
func (s *service) Execute(ctx context.Context, customerCart *cart.Cart, info orders.CustomerInfo) (*orders.OrderDTO, error) {
	if customerCart == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart required")
	}

	if err := customerCart.BeginSubmission(); err != nil {
		return nil, err
	}
	defer customerCart.EndSubmission()

	// snapshot once: the order is built from a single consistent view even
	// if the customer keeps tapping while the submission runs
	snap := customerCart.Snapshot()
	if len(snap.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart contains no items")
	}

	order := &models.Order{
		ID:              uuid.New(),
		CustomerName:    info.Name,
		CustomerPhone:   info.Phone,
		CustomerAddress: info.Address,
		TotalAmount:     snap.TotalAmount,
		TotalItems:      snap.TotalItems,
		Status:          enums.OrderStatusPending,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.CreateOrder(ctx, order); err != nil {
			return err
		}

		items := make([]models.OrderLineItem, 0, len(snap.Lines))
		eventLines := make([]payloads.OrderPlacedLine, 0, len(snap.Lines))
		for _, line := range snap.Lines {
			itemID := line.ItemID
			items = append(items, models.OrderLineItem{
				ID:          uuid.New(),
				OrderID:     order.ID,
				ItemID:      &itemID,
				Name:        line.Name,
				Description: line.Description,
				ImageURL:    line.ImageURL,
				UnitPrice:   line.UnitPrice,
				Qty:         line.Quantity,
				LineTotal:   line.LineTotal(),
			})
			eventLines = append(eventLines, payloads.OrderPlacedLine{
				ItemID:    &itemID,
				Name:      line.Name,
				UnitPrice: line.UnitPrice,
				Qty:       line.Quantity,
				LineTotal: line.LineTotal(),
			})
		}
		if err := repo.CreateOrderLineItems(ctx, items); err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			SessionID:     snap.SessionID,
			Version:       1,
			Data: payloads.OrderPlacedEvent{
				OrderID:       order.ID,
				CustomerName:  info.Name,
				CustomerPhone: info.Phone,
				TotalAmount:   snap.TotalAmount,
				TotalItems:    snap.TotalItems,
				PlacedAt:      order.OrderDate,
				Lines:         eventLines,
			},
		})
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "writing order")
	}

	// the sink confirmed, only now does the cart empty
	customerCart.Clear()

	if s.logg != nil {
		logCtx := s.logg.WithOrderID(s.logg.WithSessionID(ctx, snap.SessionID), order.ID.String())
		s.logg.Info(logCtx, "order placed")
	}

	dto := orders.ToDTO(order)
	return &dto, nil
}
