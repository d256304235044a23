package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/swaggo/swag"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/edvin/budget/internal/api/docs"
	"github.com/edvin/budget/internal/api/handler"
	mw "github.com/edvin/budget/internal/api/middleware"
	"github.com/edvin/budget/internal/config"
	"github.com/edvin/budget/internal/core"
	"github.com/edvin/budget/internal/mailer"
	"github.com/edvin/budget/internal/notify"
	"github.com/edvin/budget/internal/summary"
)

type Server struct {
	router         chi.Router
	logger         zerolog.Logger
	services       *core.Services
	pool           *pgxpool.Pool
	temporalClient temporalclient.Client
	cfg            *config.Config
	job            *summary.Job
	notifier       *notify.Notifier
}

func NewServer(logger zerolog.Logger, pool *pgxpool.Pool, locker core.Locker, temporalClient temporalclient.Client, cfg *config.Config) (*Server, error) {
	notifyCfg := notify.ConfigFrom(cfg)
	services := core.NewServices(pool, locker, notifyCfg.Whitelist, logger)
	outbox := mailer.NewOutbox(mailer.NewSMTPSender(cfg), services.Email, cfg.SenderEmail, logger)

	s := &Server{
		router:         chi.NewRouter(),
		logger:         logger,
		services:       services,
		notifier:       notify.New(services.Subscription, services.Status, services.Email, outbox, notifyCfg, logger),
		pool:           pool,
		temporalClient: temporalClient,
		cfg:            cfg,
		job: summary.NewJob(summary.NewPGStore(pool), summary.WindowConfig{
			Epoch:    cfg.Epoch(),
			Lookback: cfg.SummaryLookback,
		}),
	}

	s.setupMiddleware()
	if err := s.setupRoutes(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics)
}

func (s *Server) setupRoutes() error {
	statusKey, err := mw.ParseRSAPublicKey(s.cfg.StatusFuncPublicKey)
	if err != nil {
		return err
	}
	usageKey, err := mw.ParseRSAPublicKey(s.cfg.UsageFuncPublicKey)
	if err != nil {
		return err
	}
	controllerKey, err := mw.ParseRSAPublicKey(s.cfg.ControllerFuncPublicKey)
	if err != nil {
		return err
	}
	if statusKey == nil || usageKey == nil || controllerKey == nil {
		s.logger.Warn().Msg("agent public key not configured, accounting uploads will be rejected")
	}

	// Prometheus metrics endpoint
	s.router.Handle("/metrics", promhttp.Handler())

	// Health check endpoints
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)

	// API documentation (no auth required)
	s.router.Get("/docs/openapi.json", s.handleOpenAPI)
	s.router.Get("/docs", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(scalarHTML))
	})

	s.router.Route("/api/v1", func(r chi.Router) {
		// Agent uploads
		accounting := handler.NewAccounting(s.services.Status, s.services.Usage, s.services.Subscription, s.services.DesiredState, s.notifier)
		r.With(mw.AgentAuth(statusKey, mw.StatusAgentSubject)).Post("/accounting/all-status", accounting.AllStatus)
		r.With(mw.AgentAuth(usageKey, mw.UsageAgentSubject)).Post("/accounting/all-usage", accounting.AllUsage)
		r.With(mw.AgentAuth(controllerKey, mw.ControllerAgentSubject)).Get("/accounting/desired-states", accounting.DesiredStates)

		r.Group(func(r chi.Router) {
			r.Use(mw.Auth(s.services.APIKey))

			// Subscriptions
			sub := handler.NewSubscription(s.services.Subscription, s.services.Status, s.services.Export)
			r.With(mw.RequireScope("subscriptions", "read")).Group(func(r chi.Router) {
				r.Get("/subscriptions", sub.List)
				r.Get("/subscriptions/export", sub.Export)
				r.Get("/subscriptions/{id}", sub.Get)
				r.Get("/subscriptions/{id}/history", sub.History)
			})

			// Budget
			approval := handler.NewApproval(s.services.Approval, s.services.DesiredState, s.notifier)
			allocation := handler.NewAllocation(s.services.Allocation, s.services.DesiredState, s.notifier)
			persistence := handler.NewPersistence(s.services.Persistence, s.services.DesiredState, s.notifier)
			finance := handler.NewFinance(s.services.Finance)
			r.With(mw.RequireScope("budget", "read")).Group(func(r chi.Router) {
				r.Get("/subscriptions/{id}/approvals", approval.List)
				r.Get("/subscriptions/{id}/allocations", allocation.List)
				r.Get("/subscriptions/{id}/finances", finance.List)
			})
			r.With(mw.RequireScope("budget", "write")).Group(func(r chi.Router) {
				r.Post("/subscriptions/{id}/approvals", approval.Create)
				r.Post("/subscriptions/{id}/allocations", allocation.Create)
				r.Post("/subscriptions/{id}/finances", finance.Create)
				r.Post("/subscriptions/{id}/persistence", persistence.Set)
			})

			// Summary
			sum := handler.NewSummary(s.job, s.temporalClient, mailer.Meta{
				Organisation:    s.cfg.Organisation,
				WebsiteHostname: s.cfg.WebsiteHostname,
			})
			r.With(mw.RequireScope("summary", "read")).Get("/summary", sum.Preview)
			r.With(mw.RequireScope("summary", "send")).Post("/summary/send", sum.Send)

			// Failed emails
			failed := handler.NewFailedEmail(s.services.Email)
			r.With(mw.RequireScope("emails", "read")).Get("/failed-emails", failed.List)

			// API keys
			apiKey := handler.NewAPIKey(s.services.APIKey)
			r.With(mw.RequireScope("api_keys", "read")).Get("/api-keys", apiKey.List)
			r.With(mw.RequireScope("api_keys", "write")).Post("/api-keys", apiKey.Create)
			r.With(mw.RequireScope("api_keys", "write")).Delete("/api-keys/{id}", apiKey.Revoke)
		})
	})
	return nil
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, _ *http.Request) {
	doc, err := swag.ReadDoc(docs.SwaggerInfo.InstanceName())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(doc))
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if err := s.pool.Ping(ctx); err != nil {
		checks["db"] = err.Error()
		healthy = false
	} else {
		checks["db"] = "ok"
	}

	if s.temporalClient != nil {
		if _, err := s.temporalClient.CheckHealth(ctx, &temporalclient.CheckHealthRequest{}); err != nil {
			checks["temporal"] = err.Error()
			healthy = false
		} else {
			checks["temporal"] = "ok"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(checks)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

const scalarHTML = `<!DOCTYPE html>
<html>
<head>
  <title>Subscription Budget API</title>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
</head>
<body>
  <script id="api-reference" data-url="/docs/openapi.json"></script>
  <script src="https://cdn.jsdelivr.net/npm/@scalar/api-reference"></script>
</body>
</html>`
