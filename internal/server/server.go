package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gigpost/gigpost/internal/auth"
	"github.com/gigpost/gigpost/internal/config"
	"github.com/gigpost/gigpost/internal/db"
	"github.com/gigpost/gigpost/internal/dispatch"
	"github.com/gigpost/gigpost/internal/handlers"
	"github.com/gigpost/gigpost/internal/metrics"
	"github.com/gigpost/gigpost/internal/middleware"
	"github.com/gigpost/gigpost/internal/qr"
)

// Server owns the HTTP listener and the background scheduler.
type Server struct {
	cfg        *config.Config
	logger     *slog.Logger
	router     *chi.Mux
	httpServer *http.Server
	database   *db.DB
	qrGen      *qr.Generator
	scheduler  *dispatch.Scheduler
}

// New wires the full application: storage, auth, dispatch, metrics,
// and the route table.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	database, err := db.New(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(); err != nil {
		database.Close()
		return nil, err
	}

	qrGen, err := qr.New(cfg.QRCache.Path)
	if err != nil {
		database.Close()
		return nil, err
	}

	m := metrics.New()
	metrics.SetGlobal(m)

	authManager := auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)

	factory := dispatch.SMTPTransportFactory(cfg.SMTP, logger)
	engine := dispatch.NewEngine(database.DB, cfg.Dispatch, factory, logger)
	scheduler := dispatch.NewScheduler(engine, cfg.Dispatch.PollInterval, logger)

	h := handlers.New(database.DB, authManager, qrGen, engine, logger)

	s := &Server{
		cfg:       cfg,
		logger:    logger.With("component", "server"),
		router:    chi.NewRouter(),
		database:  database,
		qrGen:     qrGen,
		scheduler: scheduler,
	}
	s.setupRoutes(h, authManager, m)

	return s, nil
}

func (s *Server) setupRoutes(h *handlers.Handlers, authManager *auth.Manager, m *metrics.Metrics) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Recovery(s.logger))
	s.router.Use(metrics.HTTPMiddleware)

	s.router.Get("/health", h.Health)
	s.router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}))

	s.router.Post("/api/auth/login", h.Login)

	// Ticket sale endpoints are public: buyers are not list owners
	s.router.Route("/api/tickets", func(r chi.Router) {
		r.Get("/", h.ListTickets)
		r.Get("/stats", h.BusinessStats)
		r.Get("/{id}", h.GetTicket)
		r.Post("/{id}/buy", h.BuyTicket)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(authManager))
			r.Post("/", h.CreateTicket)
			r.Put("/{id}", h.UpdateTicket)
			r.Delete("/{id}", h.DeleteTicket)
		})
	})

	s.router.Route("/api/payments", func(r chi.Router) {
		r.Post("/create-payment-intent", h.CreatePaymentIntent)
		r.Post("/confirm-payment", h.ConfirmPayment)
		r.Get("/status", h.PaymentStatus)
	})

	s.router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(authManager))

		r.Route("/api/emails", func(r chi.Router) {
			r.Get("/", h.ListRecipients)
			r.Post("/", h.CreateRecipient)
			r.Get("/stats/overview", h.RecipientStats)
			r.Post("/import/csv", h.ImportCSV)
			r.Post("/import/excel", h.ImportExcel)
			r.Post("/import/external", h.ImportExternal)
			r.Get("/{id}", h.GetRecipient)
			r.Patch("/{id}/status", h.UpdateRecipientStatus)
			r.Delete("/{id}", h.DeleteRecipient)
		})

		r.Route("/api/email-groups", func(r chi.Router) {
			r.Get("/", h.ListGroups)
			r.Post("/", h.CreateGroup)
			r.Get("/{id}", h.GetGroup)
			r.Put("/{id}", h.UpdateGroup)
			r.Delete("/{id}", h.DeleteGroup)
			r.Post("/{id}/members", h.AddGroupMember)
			r.Delete("/{id}/members/{recipientID}", h.RemoveGroupMember)
		})

		r.Route("/api/campaigns", func(r chi.Router) {
			r.Get("/", h.ListCampaigns)
			r.Post("/", h.CreateCampaign)
			r.Get("/{id}", h.GetCampaign)
			r.Put("/{id}", h.UpdateCampaign)
			r.Delete("/{id}", h.DeleteCampaign)
			r.Post("/{id}/send", h.SendCampaign)
			r.Get("/{id}/analytics", h.CampaignAnalytics)
		})
	})
}

// Router exposes the route table, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Run starts the listener and the scheduler, and blocks until ctx is
// cancelled. Shutdown drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	s.scheduler.Start()

	s.httpServer = &http.Server{
		Addr:         s.cfg.Server.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.cfg.Server.ListenAddr)
		var err error
		if s.cfg.Server.TLS.Enabled {
			err = s.httpServer.ListenAndServeTLS(s.cfg.Server.TLS.CertFile, s.cfg.Server.TLS.KeyFile)
		} else {
			err = s.httpServer.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.scheduler.Stop()
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)
	s.scheduler.Stop()
	s.qrGen.Close()
	s.database.Close()
	return err
}
