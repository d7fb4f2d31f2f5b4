package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/brikvest/apiserver/config"
	"github.com/brikvest/apiserver/internal/cache"
	"github.com/brikvest/apiserver/internal/db"
	"github.com/brikvest/apiserver/internal/handlers"
	"github.com/brikvest/apiserver/internal/mail"
	"github.com/brikvest/apiserver/internal/mq"
	"github.com/brikvest/apiserver/internal/obs"
	"github.com/brikvest/apiserver/internal/payment"
	"github.com/brikvest/apiserver/internal/services"
	"github.com/brikvest/apiserver/internal/storage"
	"github.com/brikvest/apiserver/internal/store"
)

// Server wraps the HTTP server, router, and shared infrastructure.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	cache      *cache.Client
	queue      *mq.MQ
	mailWorker *mail.Worker
	logger     *zap.Logger
}

// New constructs a fully wired Server from config.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Server, error) {
	if cfg.JWT.Secret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	cacheClient, err := cache.New(ctx, cfg.Redis)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	queue, err := mq.NewFromConfig(ctx, cfg.MQ)
	if err != nil {
		_ = dbConn.Close()
		_ = cacheClient.Close()
		return nil, err
	}
	objectStore, err := storage.NewFromConfig(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		_ = cacheClient.Close()
		return nil, err
	}
	if err := objectStore.EnsureBucket(ctx); err != nil {
		logger.Warn("object storage bucket check failed", zap.Error(err))
	}

	userRepo := store.NewUserRepository(dbConn)
	rbacRepo := store.NewRBACRepository(dbConn)
	propertyRepo := store.NewPropertyRepository(dbConn)
	bankRepo := store.NewBankRepository(dbConn)
	kycRepo := store.NewKYCRepository(dbConn)
	subscriptionRepo := store.NewSubscriptionRepository(dbConn)
	partnerRepo := store.NewPartnerRepository(dbConn)

	mailer := mail.NewMailer(cfg.SMTP)
	notifier := services.NewNotifier(queue, mailer, logger)
	paymentClient, err := payment.NewClient(cfg.Paystack)
	if err != nil {
		_ = dbConn.Close()
		_ = cacheClient.Close()
		return nil, err
	}

	rbacService := services.NewRBACService(rbacRepo, cacheClient, logger)
	sessionRegistry := services.NewSessionRegistry(cacheClient, logger)
	otpService := services.NewOTPService(cacheClient)
	tokenIssuer := services.NewTokenIssuer(cfg.JWT, cacheClient)
	authService := services.NewAuthService(
		userRepo, partnerRepo, rbacService, sessionRegistry, otpService, tokenIssuer, notifier, logger)
	userService := services.NewUserService(userRepo, rbacService, sessionRegistry)
	propertyService := services.NewPropertyService(propertyRepo, objectStore)
	bankService := services.NewBankService(bankRepo, paymentClient)
	kycService := services.NewKYCService(kycRepo, userRepo, objectStore, notifier, logger)
	subscriptionService := services.NewSubscriptionService(
		subscriptionRepo, propertyRepo, partnerRepo, paymentClient, logger)
	partnerService := services.NewPartnerService(partnerRepo)

	guard := handlers.NewGuard(tokenIssuer, sessionRegistry)

	obs.Init()
	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
	)
	router.Use(requestLogger(logger))
	router.Use(obs.Instrument)

	router.Get("/healthz", handlers.Healthz)
	router.Get("/readyz", handlers.Readyz(dbConn, cacheClient))
	router.Handle("/metrics", obs.Handler())

	router.Route("/auth", func(r chi.Router) {
		r.Use(handlers.RateLimit(5, 10))
		handlers.AuthRouter(r, authService, userService, guard)
	})
	router.Route("/users", func(r chi.Router) {
		handlers.UserRouter(r, userService, guard)
	})
	router.Route("/properties", func(r chi.Router) {
		handlers.PropertyRouter(r, propertyService, guard)
	})
	router.Route("/banks", func(r chi.Router) {
		handlers.BankRouter(r, bankService, guard)
	})
	router.Route("/kyc", func(r chi.Router) {
		handlers.KYCRouter(r, kycService, guard)
	})
	router.Route("/subscriptions", func(r chi.Router) {
		handlers.SubscriptionRouter(r, subscriptionService, userService, guard)
	})
	router.Route("/partners", func(r chi.Router) {
		handlers.PartnerRouter(r, partnerService, guard)
	})
	router.Route("/admin", func(r chi.Router) {
		handlers.AdminRouter(r, userService, kycService, guard)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	srv := &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		cache:      cacheClient,
		queue:      queue,
		logger:     logger,
	}
	if queue != nil {
		srv.mailWorker = mail.NewWorker(mailer, queue, logger)
	}
	return srv, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server and, when a broker is configured, the
// email worker.
func (s *Server) Start(ctx context.Context) error {
	if s.mailWorker != nil {
		go func() {
			if err := s.mailWorker.Run(ctx); err != nil {
				s.logger.Error("email worker stopped", zap.Error(err))
			}
		}()
	}
	s.logger.Info("http server listening", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests and closes shared resources.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.queue != nil {
		_ = s.queue.Close()
	}
	if s.cache != nil {
		_ = s.cache.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return err
}

// requestLogger emits one structured line per request.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
