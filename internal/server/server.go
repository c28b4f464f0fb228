package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/contactsbook/apiserver/config"
	"github.com/contactsbook/apiserver/internal/db"
	"github.com/contactsbook/apiserver/internal/handlers"
	"github.com/contactsbook/apiserver/internal/mailer"
	"github.com/contactsbook/apiserver/internal/mq"
	"github.com/contactsbook/apiserver/internal/ratelimit"
	"github.com/contactsbook/apiserver/internal/services"
	"github.com/contactsbook/apiserver/internal/storage"
	"github.com/contactsbook/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Contact creation cap per client.
const (
	createRateLimit  = 5
	createRateWindow = time.Minute
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	closers    []io.Closer
}

// New constructs a Server with the full middleware chain and routes.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	if cfg.JWT.Secret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	srv := &Server{db: dbConn}

	contactRepo := store.NewContactRepository(dbConn)
	userRepo := store.NewUserRepository(dbConn)

	contactService := services.NewContactService(contactRepo)
	userService := services.NewUserService(userRepo)

	sender, err := srv.buildMailSender(ctx, cfg)
	if err != nil {
		_ = srv.Shutdown()
		return nil, err
	}
	authService := services.NewAuthService(userRepo, sender, cfg.JWT)

	avatars, err := srv.buildAvatarStorage(ctx, cfg)
	if err != nil {
		_ = srv.Shutdown()
		return nil, err
	}

	createLimiter, err := srv.buildCreateLimiter(cfg)
	if err != nil {
		_ = srv.Shutdown()
		return nil, err
	}

	authMiddleware := handlers.RequireAuth(authService)
	healthHandler := handlers.NewHealthHandler(dbConn)

	router := chi.NewRouter()
	router.Use(
		middleware.RealIP,
		handlers.BanUserAgents,
		cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
		}),
		middleware.RequestID,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/api/healthchecker", healthHandler.Healthcheck)
	router.Route("/api/auth", func(r chi.Router) {
		handlers.AuthRouter(r, authService)
	})
	router.Route("/api/users", func(r chi.Router) {
		handlers.UserRouter(r, userService, avatars, authMiddleware)
	})
	router.Route("/contacts", func(r chi.Router) {
		handlers.ContactRouter(r, contactService, userService, authMiddleware, createLimiter)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	srv.router = router
	srv.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return srv, nil
}

// buildMailSender selects the verification-mail delivery path: a broker
// publisher when one is configured, otherwise synchronous SMTP.
func (s *Server) buildMailSender(ctx context.Context, cfg config.Config) (services.VerificationSender, error) {
	backend, err := MailBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if backend == nil {
		return mailer.NewSMTPSender(cfg.SMTP, cfg.BaseURL, slog.Default()), nil
	}
	s.closers = append(s.closers, backend)
	return mailer.NewQueuePublisher(backend), nil
}

// MailBackend constructs the configured mail-queue backend, or nil when
// no broker is configured. Shared with the worker command.
func MailBackend(ctx context.Context, cfg config.Config) (mq.Backend, error) {
	switch cfg.Mail.Broker {
	case "":
		return nil, nil
	case "rabbitmq":
		return mq.NewRabbitMQClient(cfg.RabbitMQ, cfg.Mail.Queue)
	case "pubsub":
		return mq.NewPubSubClient(ctx, cfg.PubSub, cfg.Mail.Queue)
	default:
		return nil, fmt.Errorf("unknown mail broker %q", cfg.Mail.Broker)
	}
}

func (s *Server) buildAvatarStorage(ctx context.Context, cfg config.Config) (storage.ObjectStorage, error) {
	var backend storage.ObjectStorage
	var err error

	switch cfg.Avatar.Backend {
	case "":
		return nil, nil
	case "minio":
		backend, err = storage.NewMinioClient(cfg.Minio)
	case "gcs":
		backend, err = storage.NewGCSClient(ctx, cfg.GCS)
	default:
		return nil, fmt.Errorf("unknown avatar storage backend %q", cfg.Avatar.Backend)
	}
	if err != nil {
		return nil, err
	}

	if err := backend.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return backend, nil
}

func (s *Server) buildCreateLimiter(cfg config.Config) (func(http.Handler) http.Handler, error) {
	if cfg.Redis.URL == "" {
		return nil, nil
	}
	counter, err := ratelimit.NewRedisCounter(cfg.Redis)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, counter)
	limiter := ratelimit.New(counter, "contacts_create", createRateLimit, createRateWindow, slog.Default())
	return handlers.RateLimit(limiter), nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	for _, closer := range s.closers {
		_ = closer.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Close()
}
