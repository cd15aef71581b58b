package cart

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/feastlyapp/feastly-backend/api/middleware"
	cartsvc "github.com/feastlyapp/feastly-backend/internal/cart"
	"github.com/feastlyapp/feastly-backend/internal/catalog"
	"github.com/feastlyapp/feastly-backend/pkg/logger"
)

type fixedMirror struct {
	snap catalog.Snapshot
}

func (m fixedMirror) Snapshot() catalog.Snapshot { return m.snap }

func testHandlers(items ...catalog.Item) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	manager := cartsvc.NewManager(nil, logg, cartsvc.ManagerOptions{})
	h := NewHandlers(manager, fixedMirror{snap: catalog.SnapshotOf(items)}, logg)

	r := chi.NewRouter()
	r.Use(middleware.Session(logg))
	r.Get("/cart", h.Fetch)
	r.Delete("/cart", h.Clear)
	r.Post("/cart/items", h.AddItem)
	r.Put("/cart/items/{itemID}", h.SetQuantity)
	r.Delete("/cart/items/{itemID}", h.RemoveItem)
	r.Post("/cart/items/{itemID}/increment", h.Increment)
	r.Post("/cart/items/{itemID}/decrement", h.Decrement)
	return r
}

func cartItem(name string, price string) catalog.Item {
	return catalog.Item{
		ID:        uuid.New(),
		Name:      name,
		UnitPrice: decimal.RequireFromString(price),
		Available: true,
	}
}

func request(t *testing.T, router http.Handler, method, path, session string, body any) (*httptest.ResponseRecorder, CartView) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("X-Session-Id", session)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var envelope struct {
		Data CartView `json:"data"`
	}
	if w.Code < 300 {
		if err := json.NewDecoder(w.Body).Decode(&envelope); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return w, envelope.Data
}

func TestAddItemMergesLine(t *testing.T) {
	item := cartItem("Pho", "12.00")
	router := testHandlers(item)

	body := map[string]string{"item_id": item.ID.String()}
	w, _ := request(t, router, http.MethodPost, "/cart/items", "s1", body)
	if w.Code != http.StatusOK {
		t.Fatalf("first add: status %d: %s", w.Code, w.Body.String())
	}
	w, view := request(t, router, http.MethodPost, "/cart/items", "s1", body)
	if w.Code != http.StatusOK {
		t.Fatalf("second add: status %d", w.Code)
	}

	if len(view.Lines) != 1 {
		t.Fatalf("expected one line, got %d", len(view.Lines))
	}
	if view.Lines[0].Quantity != 2 {
		t.Fatalf("expected quantity 2, got %d", view.Lines[0].Quantity)
	}
	if !view.TotalAmount.Equal(decimal.RequireFromString("24.00")) {
		t.Fatalf("expected total 24.00, got %s", view.TotalAmount)
	}
}

func TestAddItemUnknownAndUnavailable(t *testing.T) {
	unavailable := cartItem("Gone", "5.00")
	unavailable.Available = false
	router := testHandlers(unavailable)

	w, _ := request(t, router, http.MethodPost, "/cart/items", "s1",
		map[string]string{"item_id": uuid.NewString()})
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown item: status %d, want 404", w.Code)
	}

	w, _ = request(t, router, http.MethodPost, "/cart/items", "s1",
		map[string]string{"item_id": unavailable.ID.String()})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unavailable item: status %d, want 422", w.Code)
	}

	w, view := request(t, router, http.MethodGet, "/cart", "s1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("fetch: status %d", w.Code)
	}
	if len(view.Lines) != 0 {
		t.Fatalf("rejected adds must not touch the cart, got %d lines", len(view.Lines))
	}
}

func TestSetQuantity(t *testing.T) {
	item := cartItem("Pho", "12.00")
	router := testHandlers(item)
	addBody := map[string]string{"item_id": item.ID.String()}
	request(t, router, http.MethodPost, "/cart/items", "s1", addBody)

	path := "/cart/items/" + item.ID.String()

	w, view := request(t, router, http.MethodPut, path, "s1", map[string]int{"quantity": 5})
	if w.Code != http.StatusOK {
		t.Fatalf("set quantity: status %d", w.Code)
	}
	if view.Lines[0].Quantity != 5 {
		t.Fatalf("expected quantity 5, got %d", view.Lines[0].Quantity)
	}

	w, _ = request(t, router, http.MethodPut, path, "s1", map[string]int{"quantity": -1})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("negative quantity: status %d, want 400", w.Code)
	}

	w, view = request(t, router, http.MethodPut, path, "s1", map[string]int{"quantity": 0})
	if w.Code != http.StatusOK {
		t.Fatalf("zero quantity: status %d", w.Code)
	}
	if len(view.Lines) != 0 {
		t.Fatalf("quantity zero must remove the line")
	}
}

func TestIncrementDecrementRemove(t *testing.T) {
	item := cartItem("Pho", "12.00")
	router := testHandlers(item)
	request(t, router, http.MethodPost, "/cart/items", "s1", map[string]string{"item_id": item.ID.String()})

	path := "/cart/items/" + item.ID.String()

	_, view := request(t, router, http.MethodPost, path+"/increment", "s1", nil)
	if view.Lines[0].Quantity != 2 {
		t.Fatalf("after increment: quantity %d, want 2", view.Lines[0].Quantity)
	}

	_, view = request(t, router, http.MethodPost, path+"/decrement", "s1", nil)
	if view.Lines[0].Quantity != 1 {
		t.Fatalf("after decrement: quantity %d, want 1", view.Lines[0].Quantity)
	}

	// decrement at one removes the line
	_, view = request(t, router, http.MethodPost, path+"/decrement", "s1", nil)
	if len(view.Lines) != 0 {
		t.Fatalf("decrement at one must remove the line, got %d lines", len(view.Lines))
	}

	// all adjustments on an absent line are no-ops
	w, view := request(t, router, http.MethodDelete, path, "s1", nil)
	if w.Code != http.StatusOK || len(view.Lines) != 0 {
		t.Fatalf("remove on absent line: status %d, lines %d", w.Code, len(view.Lines))
	}
}

func TestClearIsIdempotent(t *testing.T) {
	item := cartItem("Pho", "12.00")
	router := testHandlers(item)
	request(t, router, http.MethodPost, "/cart/items", "s1", map[string]string{"item_id": item.ID.String()})

	for i := 0; i < 2; i++ {
		w, view := request(t, router, http.MethodDelete, "/cart", "s1", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("clear #%d: status %d", i+1, w.Code)
		}
		if len(view.Lines) != 0 || !view.TotalAmount.IsZero() {
			t.Fatalf("clear #%d: cart not empty", i+1)
		}
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	item := cartItem("Pho", "12.00")
	router := testHandlers(item)
	request(t, router, http.MethodPost, "/cart/items", "alpha", map[string]string{"item_id": item.ID.String()})

	_, view := request(t, router, http.MethodGet, "/cart", "beta", nil)
	if len(view.Lines) != 0 {
		t.Fatalf("session beta must not see alpha's cart")
	}
}
