package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/feastlyapp/feastly-backend/api/controllers"
	cartcontrollers "github.com/feastlyapp/feastly-backend/api/controllers/cart"
	"github.com/feastlyapp/feastly-backend/api/middleware"
	cartsvc "github.com/feastlyapp/feastly-backend/internal/cart"
	"github.com/feastlyapp/feastly-backend/internal/catalog"
	checkoutsvc "github.com/feastlyapp/feastly-backend/internal/checkout"
	"github.com/feastlyapp/feastly-backend/pkg/config"
	"github.com/feastlyapp/feastly-backend/pkg/logger"
	"github.com/feastlyapp/feastly-backend/pkg/metrics"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          controllers.Pinger
	Redis       controllers.Pinger
	Mirror      *catalog.Mirror
	CatalogSvc  *catalog.Service
	CartManager *cartsvc.Manager
	Checkout    checkoutsvc.Service
	HTTPMetrics *metrics.HTTPMetrics
	MetricsHTTP http.Handler
}

func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(deps.Logger),
		middleware.RequestID(deps.Logger),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.Logging(deps.Logger),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(deps.Config))
		r.Get("/ready", controllers.HealthReady(deps.Config, deps.Logger, map[string]controllers.Pinger{
			"database": deps.DB,
			"redis":    deps.Redis,
		}))
	})

	if deps.MetricsHTTP != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHTTP)
	} else {
		r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Session(deps.Logger))

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/", controllers.CatalogList(deps.Mirror, deps.Logger))
			r.Post("/refresh", controllers.CatalogRefresh(deps.Mirror, deps.Logger))
		})

		cartHandlers := cartcontrollers.NewHandlers(deps.CartManager, deps.Mirror, deps.Logger)
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandlers.Fetch)
			r.Delete("/", cartHandlers.Clear)
			r.Post("/items", cartHandlers.AddItem)
			r.Route("/items/{itemID}", func(r chi.Router) {
				r.Put("/", cartHandlers.SetQuantity)
				r.Delete("/", cartHandlers.RemoveItem)
				r.Post("/increment", cartHandlers.Increment)
				r.Post("/decrement", cartHandlers.Decrement)
			})
		})

		r.Post("/checkout", controllers.Checkout(deps.Checkout, deps.CartManager, deps.Logger))
	})

	r.Route("/api/admin/v1/catalog/items", func(r chi.Router) {
		r.Get("/", controllers.AdminItemsList(deps.CatalogSvc, deps.Logger))
		r.Post("/", controllers.AdminItemsCreate(deps.CatalogSvc, deps.Logger))
		r.Route("/{itemID}", func(r chi.Router) {
			r.Get("/", controllers.AdminItemsGet(deps.CatalogSvc, deps.Logger))
			r.Put("/", controllers.AdminItemsUpdate(deps.CatalogSvc, deps.Logger))
			r.Patch("/", controllers.AdminItemsUpdate(deps.CatalogSvc, deps.Logger))
			r.Delete("/", controllers.AdminItemsDelete(deps.CatalogSvc, deps.Logger))
		})
	})

	return r
}
