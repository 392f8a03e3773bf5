package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bomjesus/armazem-backend/api/controllers"
	"github.com/bomjesus/armazem-backend/api/middleware"
	"github.com/bomjesus/armazem-backend/internal/alerts"
	"github.com/bomjesus/armazem-backend/internal/dashboard"
	"github.com/bomjesus/armazem-backend/internal/events"
	"github.com/bomjesus/armazem-backend/internal/losses"
	"github.com/bomjesus/armazem-backend/internal/lots"
	"github.com/bomjesus/armazem-backend/internal/projection"
	"github.com/bomjesus/armazem-backend/internal/returns"
	"github.com/bomjesus/armazem-backend/internal/reviews"
	"github.com/bomjesus/armazem-backend/internal/rules"
	"github.com/bomjesus/armazem-backend/pkg/config"
	"github.com/bomjesus/armazem-backend/pkg/db"
	"github.com/bomjesus/armazem-backend/pkg/logger"
	"github.com/bomjesus/armazem-backend/pkg/redis"
)

// Services groups everything the router needs.
type Services struct {
	Events     events.Service
	Projection projection.Service
	Lots       lots.Service
	Losses     losses.Service
	Returns    returns.Service
	Reviews    reviews.Service
	Alerts     alerts.Service
	Rules      rules.Service
	Dashboard  dashboard.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/events", func(r chi.Router) {
			r.Post("/", controllers.EventsIngestExternal(svcs.Events, logg))
			r.Post("/ingest", controllers.EventsIngest(svcs.Events, logg))
			r.Get("/raw", controllers.EventsListRaw(svcs.Events, logg))
			r.Get("/raw/export.csv", controllers.EventsExportCSV(svcs.Events, logg))
			r.Get("/metrics", controllers.EventsMetrics(svcs.Events, logg))
			r.Post("/process", controllers.EventsProcess(svcs.Projection, logg))
			r.Post("/reprocess/{id}", controllers.EventsReprocess(svcs.Projection, logg))
			r.Post("/reprocess-failed", controllers.EventsReprocessFailed(svcs.Projection, logg))
		})

		r.Route("/lots", func(r chi.Router) {
			r.Post("/entry", controllers.LotsEntry(svcs.Lots, logg))
			r.Post("/{lotId}/move", controllers.LotsMove(svcs.Lots, logg))
		})

		r.Post("/losses", controllers.LossesCreate(svcs.Losses, logg))
		r.Post("/returns", controllers.ReturnsCreate(svcs.Returns, logg))

		r.Route("/reviews", func(r chi.Router) {
			r.Get("/validation-issues", controllers.ReviewsListIssues(svcs.Reviews, logg))
			r.Patch("/validation-issues/{id}/resolve", controllers.ReviewsResolveIssue(svcs.Reviews, logg))
		})

		r.Route("/alerts", func(r chi.Router) {
			r.Get("/rules", controllers.AlertsListRules(svcs.Alerts, logg))
			r.Patch("/rules/{ruleKey}", controllers.AlertsUpdateRule(svcs.Alerts, logg))
			r.Get("/events", controllers.AlertsListEvents(svcs.Alerts, logg))
			r.Post("/run", controllers.AlertsRun(svcs.Alerts, logg))
			r.Post("/push-subscription", controllers.AlertsSavePushSubscription(svcs.Alerts, logg))
			r.Get("/vapid-public-key", controllers.AlertsVAPIDPublicKey(svcs.Alerts))
		})

		r.Route("/rules", func(r chi.Router) {
			r.Get("/", controllers.RulesList(svcs.Rules, logg))
			r.Put("/{key}", controllers.RulesSet(svcs.Rules, logg))
		})

		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/estoque", controllers.DashboardStock(svcs.Dashboard, logg))
			r.Get("/maturacao", controllers.DashboardMaturation(svcs.Dashboard, logg))
			r.Get("/devolucoes", controllers.DashboardReturns(svcs.Dashboard, logg))
			r.Get("/perdas", controllers.DashboardLosses(svcs.Dashboard, logg))
		})
	})

	return r
}
