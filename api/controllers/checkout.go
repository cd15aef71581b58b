package controllers

import (
	"net/http"

	"github.com/feastlyapp/feastly-backend/api/middleware"
	"github.com/feastlyapp/feastly-backend/api/responses"
	"github.com/feastlyapp/feastly-backend/api/validators"
	cartsvc "github.com/feastlyapp/feastly-backend/internal/cart"
	"github.com/feastlyapp/feastly-backend/internal/checkout"
	"github.com/feastlyapp/feastly-backend/internal/orders"
	pkgerrors "github.com/feastlyapp/feastly-backend/pkg/errors"
	"github.com/feastlyapp/feastly-backend/pkg/logger"
)

// CheckoutRequest is the submission payload: contact details only, the cart
// itself lives server-side under the session.
type CheckoutRequest struct {
	Customer orders.CustomerInfo `json:"customer" validate:"required"`
}

// Checkout submits the session's cart to the order sink.
func Checkout(svc checkout.Service, manager *cartsvc.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		sessionID := middleware.SessionIDFromContext(r.Context())
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "session id required"))
			return
		}

		var payload CheckoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cart := manager.Get(r.Context(), sessionID)
		dto, err := svc.Execute(r.Context(), cart, payload.Customer)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		// the cart emptied on confirmation, drop the stale redis snapshot
		manager.Drop(r.Context(), sessionID)

		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}
