package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/harvestlink/agrimarket/api/controllers"
	"github.com/harvestlink/agrimarket/api/middleware"
	"github.com/harvestlink/agrimarket/internal/contact"
	"github.com/harvestlink/agrimarket/internal/site"
	"github.com/harvestlink/agrimarket/pkg/config"
	"github.com/harvestlink/agrimarket/pkg/logger"
	"github.com/harvestlink/agrimarket/pkg/metrics"
)

type rateLimitStore interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Dependencies are the collaborators the router wires into handlers.
type Dependencies struct {
	Renderer       *site.Renderer
	Engines        controllers.EngineProvider
	ContactService contact.Service
	RateLimiter    rateLimitStore
	Readiness      map[string]controllers.Pinger
	Gatherer       prometheus.Gatherer
	HTTPMetrics    *metrics.HTTPMetrics
	ChartMetrics   controllers.ChartMetrics
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, deps.HTTPMetrics),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Readiness))
	})
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Handle("/static/*", http.StripPrefix("/static/", site.StaticHandler()))

	session := middleware.Session(middleware.SessionOptions{
		TTL:    cfg.Marketplace.SessionTTL,
		Secure: cfg.Marketplace.SecureCookies,
	}, logg)

	pages := controllers.Pages{
		Renderer: deps.Renderer,
		Engines:  deps.Engines,
		Metrics:  deps.ChartMetrics,
		Logger:   logg,
	}
	r.Group(func(r chi.Router) {
		r.Use(session)
		r.Get("/", pages.Home())
		r.Get("/about", pages.About())
		r.Get("/impact", pages.Impact())
		r.Get("/contact", pages.Contact())
		r.Post("/contact", pages.ContactForm(deps.ContactService))
		r.Get("/marketplace", pages.Marketplace())
	})

	apiPolicy := middleware.NewRateLimitPolicy("api", cfg.App.APIRateLimitWindow, cfg.App.APIRateLimit)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
		r.Use(middleware.RateLimit(apiPolicy, deps.RateLimiter, logg))
		r.Use(session)

		r.Get("/listings", controllers.ListListings(deps.Engines, logg))
		r.Get("/listings/facets", controllers.ListingFacets(deps.Engines, logg))

		r.Route("/marketplace", func(r chi.Router) {
			r.Get("/", controllers.MarketplaceState(deps.Engines, logg))
			r.Patch("/filters", controllers.MarketplaceUpdateFilter(deps.Engines, logg))
			r.Put("/price-range", controllers.MarketplacePriceRange(deps.Engines, logg))
			r.Post("/reset", controllers.MarketplaceReset(deps.Engines, logg))
			r.Post("/search", controllers.MarketplaceSearch(deps.Engines, logg))
			r.Delete("/search", controllers.MarketplaceClearSearch(deps.Engines, logg))
			r.Post("/page", controllers.MarketplaceGoToPage(deps.Engines, logg))
			r.Post("/next", controllers.MarketplaceNextPage(deps.Engines, logg))
			r.Post("/previous", controllers.MarketplacePreviousPage(deps.Engines, logg))
		})

		r.Get("/charts/{name}", controllers.Chart(deps.Engines, deps.ChartMetrics, logg))
		r.Post("/contact", controllers.ContactSubmit(deps.ContactService, logg))
	})

	return r
}
