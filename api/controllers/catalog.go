package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/feastlyapp/feastly-backend/api/responses"
	"github.com/feastlyapp/feastly-backend/internal/catalog"
	"github.com/feastlyapp/feastly-backend/pkg/logger"
)

// CatalogView is the snapshot payload served to storefront clients.
type CatalogView struct {
	Items     []catalog.Item `json:"items"`
	Version   uint64         `json:"version"`
	LoadedAt  time.Time      `json:"loaded_at"`
	ItemCount int            `json:"item_count"`
}

// MirrorReader is the mirror surface the catalog endpoints consume.
type MirrorReader interface {
	Snapshot() catalog.Snapshot
	Refresh(ctx context.Context) (catalog.Snapshot, error)
}

func newCatalogView(snap catalog.Snapshot) CatalogView {
	items := snap.Items
	if items == nil {
		items = []catalog.Item{}
	}
	return CatalogView{
		Items:     items,
		Version:   snap.Version,
		LoadedAt:  snap.LoadedAt,
		ItemCount: snap.Len(),
	}
}

// CatalogList serves the mirror's current snapshot. It never touches the
// database, so it stays fast and available even when the source is down.
func CatalogList(mirror MirrorReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, newCatalogView(mirror.Snapshot()))
	}
}

// CatalogRefresh forces a one-shot reload. When the source is unreachable the
// last-known snapshot is still served, flagged as stale via the error.
func CatalogRefresh(mirror MirrorReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := mirror.Refresh(r.Context())
		if err != nil {
			if logg != nil {
				logg.Error(r.Context(), "manual catalog refresh failed, serving last-known snapshot", err)
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCatalogView(snap))
	}
}
