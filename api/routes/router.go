package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/freshharvest/market-backend/api/controllers"
	"github.com/freshharvest/market-backend/api/middleware"
	"github.com/freshharvest/market-backend/internal/catalog"
	sessionsvc "github.com/freshharvest/market-backend/internal/session"
	"github.com/freshharvest/market-backend/pkg/config"
	"github.com/freshharvest/market-backend/pkg/kv"
	"github.com/freshharvest/market-backend/pkg/logger"
)

// NewRouter assembles the storefront API. Every /api/v1 route runs behind
// the session middleware so per-session state is always addressable.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	store kv.Store,
	products *catalog.Catalog,
	sessions *sessionsvc.Manager,
	gatherer prometheus.Gatherer,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, store))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Session(logg))

		r.Get("/products", controllers.ListProducts(products, logg))
		r.Get("/products/featured", controllers.FeaturedProducts(products, logg))
		r.Get("/products/{id}", controllers.GetProduct(products, logg))
		r.Get("/categories", controllers.ListCategories(products))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.GetCart(sessions, logg))
			r.Delete("/", controllers.ClearCart(sessions, logg))
			r.Post("/items", controllers.AddCartItem(sessions, logg))
			r.Patch("/items/{productId}", controllers.UpdateCartItem(sessions, logg))
			r.Delete("/items/{productId}", controllers.RemoveCartItem(sessions, logg))
			r.Post("/discounts", controllers.ApplyCartDiscount(sessions, logg))
			r.Delete("/discounts/{code}", controllers.RemoveCartDiscount(sessions, logg))
		})

		r.Route("/track", func(r chi.Router) {
			r.Post("/view", controllers.TrackView(products, sessions, logg))
			r.Post("/search", controllers.TrackSearch(sessions, logg))
		})

		r.Get("/recommendations", controllers.Recommendations(cfg.Recommend, sessions, logg))
		r.Get("/recently-viewed", controllers.RecentlyViewed(cfg.Recommend, sessions, logg))

		r.Post("/contact", controllers.Contact(logg))
	})

	return r
}
