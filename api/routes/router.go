package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/easyq-dev/easyq-backend/api/controllers"
	"github.com/easyq-dev/easyq-backend/api/middleware"
	"github.com/easyq-dev/easyq-backend/internal/packages"
	"github.com/easyq-dev/easyq-backend/internal/payments"
	"github.com/easyq-dev/easyq-backend/internal/questionsets"
	"github.com/easyq-dev/easyq-backend/internal/subscriptions"
	"github.com/easyq-dev/easyq-backend/pkg/config"
	"github.com/easyq-dev/easyq-backend/pkg/db"
	"github.com/easyq-dev/easyq-backend/pkg/enums"
	"github.com/easyq-dev/easyq-backend/pkg/logger"
	pkgredis "github.com/easyq-dev/easyq-backend/pkg/redis"
)

type RouterParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	DBPinger      db.Pinger
	RedisPinger   pkgredis.Pinger
	Idempotency   pkgredis.IdempotencyStore
	Registry      *prometheus.Registry
	Packages      *packages.Service
	Subscriptions *subscriptions.Service
	Payments      *payments.Service
	QuestionSets  *questionsets.Service
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DBPinger, p.RedisPinger))
	})

	if p.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
		r.Get("/packages", controllers.PackagesCatalog(p.Packages, logg))
		r.Get("/packages/{slug}", controllers.PackageBySlug(p.Packages, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(p.Idempotency, cfg.Billing.IdempotencyTTL, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Get("/packages", controllers.PackagesCatalog(p.Packages, logg))
		r.Get("/packages/{slug}", controllers.PackageBySlug(p.Packages, logg))

		r.Route("/subscriptions", func(r chi.Router) {
			r.Post("/", controllers.SubscriptionPurchase(p.Subscriptions, logg))
			r.Get("/active", controllers.SubscriptionActive(p.Subscriptions, logg))
			r.Post("/switch", controllers.SubscriptionSwitch(p.Subscriptions, logg))
		})

		r.Route("/question-sets", func(r chi.Router) {
			r.Post("/", controllers.QuestionSetCreate(p.QuestionSets, logg))
			r.Get("/", controllers.QuestionSetList(p.QuestionSets, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(string(enums.UserRoleAdmin), logg))

		r.Get("/ping", controllers.AdminPing())

		r.Route("/packages", func(r chi.Router) {
			r.Post("/", controllers.AdminPackageCreate(p.Packages, logg))
			r.Put("/{packageId}", controllers.AdminPackageUpdate(p.Packages, logg))
			r.Get("/", controllers.AdminPackageList(p.Packages, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Put("/{paymentId}/verify", controllers.AdminPaymentVerify(p.Payments, logg))
			r.Get("/", controllers.AdminPaymentList(p.Payments, logg))
		})

		r.Route("/subscriptions", func(r chi.Router) {
			r.Put("/{subscriptionId}/verify", controllers.AdminSubscriptionVerify(p.Payments, logg))
			r.Get("/", controllers.AdminSubscriptionList(p.Subscriptions, logg))
		})
	})

	return r
}
