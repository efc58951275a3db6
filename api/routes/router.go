package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/asala-storefront/api/controllers"
	"github.com/angelmondragon/asala-storefront/api/middleware"
	"github.com/angelmondragon/asala-storefront/internal/catalog"
	"github.com/angelmondragon/asala-storefront/internal/storefront"
	"github.com/angelmondragon/asala-storefront/pkg/config"
	"github.com/angelmondragon/asala-storefront/pkg/logger"
	"github.com/angelmondragon/asala-storefront/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	products *catalog.Catalog,
	sessions *storefront.Registry,
	redisClient *redis.Client,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.AllowedOrigins),
	)

	// Interfaces stay nil without Redis so the guards can pass through.
	var (
		pinger      controllers.Pinger
		limiter     middleware.RateLimiterStore
		idempotency middleware.IdempotencyStore
	)
	if redisClient != nil {
		pinger = redisClient
		limiter = redisClient
		idempotency = redisClient
	}

	checkoutPolicy := middleware.NewRateLimitPolicy(
		"checkout",
		cfg.Checkout.RateLimitWindow,
		cfg.Checkout.IPLimit,
		cfg.Checkout.SessionLimit,
	)
	idempotencyPolicy := middleware.NewIdempotencyPolicy(
		cfg.Checkout.IdempotencyTTL,
		cfg.Checkout.RequireIdempotencyKey,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, pinger))
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/catalog", controllers.CatalogList(products))
		r.Get("/catalog/{productId}", controllers.CatalogGet(products, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Session(sessions, cfg.Session, logg))

			r.Get("/session", controllers.SessionView(logg))
			r.Get("/session/events", controllers.SessionEvents(logg, 0))

			r.Post("/cart/open", controllers.CartOpen(logg))
			r.Post("/cart/close", controllers.CartClose(logg))
			r.Post("/cart/items", controllers.CartAddItem(products, logg))
			r.Patch("/cart/items/{productId}", controllers.CartUpdateItem(logg))
			r.Delete("/cart/items/{productId}", controllers.CartRemoveItem(logg))

			r.Patch("/customer", controllers.CustomerUpdate(logg))

			r.With(
				middleware.RateLimit(checkoutPolicy, limiter, logg),
				middleware.Idempotency(idempotency, idempotencyPolicy, logg),
			).Post("/checkout", controllers.Checkout(logg))
			r.Post("/checkout/acknowledge", controllers.CheckoutAcknowledge(logg))
			r.Post("/checkout/dismiss-error", controllers.CheckoutDismissError(logg))
		})
	})

	return r
}
