package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/mycms-backend/api/controllers"
	"github.com/angelmondragon/mycms-backend/api/middleware"
	"github.com/angelmondragon/mycms-backend/pkg/config"
	"github.com/angelmondragon/mycms-backend/pkg/logger"
)

// Deps are the services mounted on the router.
type Deps struct {
	Tenants   controllers.TenantService
	Checkout  controllers.CheckoutService
	Callbacks controllers.CallbackService
	SiteGen   controllers.SiteGenerator
	Ready     map[string]controllers.Pinger
	Gatherer  prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Ready))
	})

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/tenants", func(r chi.Router) {
			r.Post("/login", controllers.TenantLogin(deps.Tenants, logg))
			r.Get("/{email}", controllers.TenantGet(deps.Tenants, logg))
			r.Put("/{email}", controllers.TenantPut(deps.Tenants, logg))
		})

		r.Post("/checkout", controllers.Checkout(deps.Checkout, logg))

		r.Route("/payments", func(r chi.Router) {
			r.Get("/success", controllers.PaymentSuccess(deps.Callbacks, logg))
			r.Get("/cancel", controllers.PaymentCancel(deps.Callbacks, logg))
		})

		r.Post("/site/generate", controllers.GenerateSite(deps.SiteGen, cfg.SiteGen.MaxThemeBytes(), logg))
	})

	return r
}
