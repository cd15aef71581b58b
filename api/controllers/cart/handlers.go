package cart

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/feastlyapp/feastly-backend/api/middleware"
	"github.com/feastlyapp/feastly-backend/api/responses"
	"github.com/feastlyapp/feastly-backend/api/validators"
	cartsvc "github.com/feastlyapp/feastly-backend/internal/cart"
	"github.com/feastlyapp/feastly-backend/internal/catalog"
	pkgerrors "github.com/feastlyapp/feastly-backend/pkg/errors"
	"github.com/feastlyapp/feastly-backend/pkg/logger"
)

// SnapshotReader exposes the catalog mirror's current view.
type SnapshotReader interface {
	Snapshot() catalog.Snapshot
}

// Handlers bundles the cart endpoints for one manager/mirror pair.
type Handlers struct {
	manager *cartsvc.Manager
	mirror  SnapshotReader
	logg    *logger.Logger
}

func NewHandlers(manager *cartsvc.Manager, mirror SnapshotReader, logg *logger.Logger) *Handlers {
	return &Handlers{manager: manager, mirror: mirror, logg: logg}
}

func (h *Handlers) sessionCart(r *http.Request) (*cartsvc.Cart, error) {
	sessionID := middleware.SessionIDFromContext(r.Context())
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	return h.manager.Get(r.Context(), sessionID), nil
}

func itemIDFromPath(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "itemID")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item id")
	}
	return id, nil
}

// Fetch returns the session's current cart.
func (h *Handlers) Fetch(w http.ResponseWriter, r *http.Request) {
	cart, err := h.sessionCart(r)
	if err != nil {
		responses.WriteError(r.Context(), h.logg, w, err)
		return
	}
	responses.WriteSuccess(w, newCartView(cart.Snapshot()))
}

// AddItem resolves the item in the mirror's current snapshot and adds one
// unit to the cart, freezing the price at this moment.
func (h *Handlers) AddItem(w http.ResponseWriter, r *http.Request) {
	cart, err := h.sessionCart(r)
	if err != nil {
		responses.WriteError(r.Context(), h.logg, w, err)
		return
	}

	var payload AddItemRequest
	if err := validators.DecodeJSONBody(r, &payload); err != nil {
		responses.WriteError(r.Context(), h.logg, w, err)
		return
	}

	item, ok := h.mirror.Snapshot().Lookup(payload.ItemID)
	if !ok {
		responses.WriteError(r.Context(), h.logg, w,
			pkgerrors.New(pkgerrors.CodeNotFound, "catalog item not found"))
		return
	}

	if err := cart.AddItem(item); err != nil {
		responses.WriteError(r.Context(), h.logg, w, err)
		return
	}

	h.manager.Persist(r.Context(), cart)
	responses.WriteSuccess(w, newCartView(cart.Snapshot()))
}

// SetQuantity sets a line's quantity; zero removes the line.
func (h *Handlers) SetQuantity(w http.ResponseWriter, r *http.Request) {
	cart, err := h.sessionCart(r)
	if err != nil {
		responses.WriteError(r.Context(), h.logg, w, err)
		return
	}

	itemID, err := itemIDFromPath(r)
	if err != nil {
		responses.WriteError(r.Context(), h.logg, w, err)
		return
	}

	var payload SetQuantityRequest
	if err := validators.DecodeJSONBody(r, &payload); err != nil {
		responses.WriteError(r.Context(), h.logg, w, err)
		return
	}

	if err := cart.SetQuantity(itemID, payload.Quantity); err != nil {
		responses.WriteError(r.Context(), h.logg, w, err)
		return
	}

	h.manager.Persist(r.Context(), cart)
	responses.WriteSuccess(w, newCartView(cart.Snapshot()))
}

// Increment raises a line's quantity by one.
func (h *Handlers) Increment(w http.ResponseWriter, r *http.Request) {
	h.adjust(w, r, func(cart *cartsvc.Cart, itemID uuid.UUID) {
		cart.IncrementQuantity(itemID)
	})
}

// Decrement lowers a line's quantity by one, removing the line at zero.
func (h *Handlers) Decrement(w http.ResponseWriter, r *http.Request) {
	h.adjust(w, r, func(cart *cartsvc.Cart, itemID uuid.UUID) {
		cart.DecrementQuantity(itemID)
	})
}

// RemoveItem drops a line from the cart.
func (h *Handlers) RemoveItem(w http.ResponseWriter, r *http.Request) {
	h.adjust(w, r, func(cart *cartsvc.Cart, itemID uuid.UUID) {
		cart.RemoveItem(itemID)
	})
}

func (h *Handlers) adjust(w http.ResponseWriter, r *http.Request, mutate func(*cartsvc.Cart, uuid.UUID)) {
	cart, err := h.sessionCart(r)
	if err != nil {
		responses.WriteError(r.Context(), h.logg, w, err)
		return
	}

	itemID, err := itemIDFromPath(r)
	if err != nil {
		responses.WriteError(r.Context(), h.logg, w, err)
		return
	}

	mutate(cart, itemID)
	h.manager.Persist(r.Context(), cart)
	responses.WriteSuccess(w, newCartView(cart.Snapshot()))
}

// Clear empties the session's cart.
func (h *Handlers) Clear(w http.ResponseWriter, r *http.Request) {
	cart, err := h.sessionCart(r)
	if err != nil {
		responses.WriteError(r.Context(), h.logg, w, err)
		return
	}

	cart.Clear()
	h.manager.Persist(r.Context(), cart)
	responses.WriteSuccess(w, newCartView(cart.Snapshot()))
}
