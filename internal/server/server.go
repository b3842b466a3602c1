package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/unrolled/secure"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/studenthealthcard/registration/internal/config"
	"github.com/studenthealthcard/registration/internal/infrastructure/messenger"
	mongostore "github.com/studenthealthcard/registration/internal/infrastructure/mongo"
	"github.com/studenthealthcard/registration/internal/infrastructure/sqlstore"
	adminhttp "github.com/studenthealthcard/registration/internal/interfaces/http/admin"
	"github.com/studenthealthcard/registration/internal/interfaces/http/common"
	publichttp "github.com/studenthealthcard/registration/internal/interfaces/http/public"
	"github.com/studenthealthcard/registration/internal/registration/application"
)

// Backend bundles the storage the server runs on.
type Backend struct {
	Registrations application.RegistrationRepository
	Failures      messenger.FailureStore
	Ping          func(ctx context.Context) error
	Close         func(ctx context.Context) error
}

// Server owns the HTTP lifecycle and wires handlers to application services.
type Server struct {
	cfg      config.Config
	logger   zerolog.Logger
	backend  Backend
	notifier *messenger.Notifier
	commands application.RegistrationCommandService
	queries  application.RegistrationQueryService
}

// New connects the configured store and assembles a Server.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	backend, err := OpenBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewWithBackend(cfg, backend), nil
}

// OpenBackend opens MongoDB or a SQL database depending on cfg.StoreDriver.
func OpenBackend(ctx context.Context, cfg config.Config) (Backend, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	switch cfg.StoreDriver {
	case config.StoreMongo:
		clientOptions := options.Client().ApplyURI(cfg.MongoURI).SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1))
		client, err := mongo.Connect(ctx, clientOptions)
		if err != nil {
			return Backend{}, fmt.Errorf("connect mongo: %w", err)
		}
		db := client.Database(cfg.MongoDatabase)
		registrations := mongostore.NewRegistrationRepository(db, cfg.RegistrationCollection)
		if err := registrations.EnsureIndexes(ctx); err != nil {
			cfg.Logger.Warn().Err(err).Msg("ensure registration indexes")
		}
		return Backend{
			Registrations: registrations,
			Failures:      mongostore.NewFailedNotificationRepository(db, cfg.FailedNotificationCollection),
			Ping: func(ctx context.Context) error {
				return client.Ping(ctx, readpref.Primary())
			},
			Close: client.Disconnect,
		}, nil
	case config.StoreMySQL, config.StorePostgres:
		db, err := sqlstore.Open(ctx, cfg.StoreDriver, cfg.SQLDSN)
		if err != nil {
			return Backend{}, err
		}
		if err := sqlstore.EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return Backend{}, err
		}
		return Backend{
			Registrations: sqlstore.NewRegistrationRepository(db),
			Failures:      sqlstore.NewFailedNotificationRepository(db),
			Ping:          db.PingContext,
			Close:         closeSQL(db),
		}, nil
	default:
		return Backend{}, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// closeSQL adapts db.Close to the Backend close hook.
func closeSQL(db *sqlx.DB) func(context.Context) error {
	return func(context.Context) error {
		return db.Close()
	}
}

// NewWithBackend assembles a Server on an already opened backend.
func NewWithBackend(cfg config.Config, backend Backend) *Server {
	srv := &Server{
		cfg:     cfg,
		logger:  cfg.Logger,
		backend: backend,
		queries: application.NewRegistrationQueryService(backend.Registrations),
	}

	srv.notifier = messenger.NewNotifier(messenger.Config{
		Endpoint:     cfg.MessengerEndpoint,
		Destination:  cfg.MessengerDestination,
		AdminBaseURL: cfg.AdminBaseURL,
		RetryDelay:   500 * time.Millisecond,
		HTTPClient:   &http.Client{Timeout: cfg.MessengerTimeout},
		Failures:     backend.Failures,
		Logger:       cfg.Logger.With().Str("component", "messenger").Logger(),
	})

	var notifier application.Notifier
	if srv.notifier != nil {
		notifier = srv.notifier
	}
	srv.commands = application.NewRegistrationCommandService(backend.Registrations, notifier, cfg.Logger)
	return srv
}

// Handler builds the router with public pages, the submit endpoint and admin routes.
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger(s.logger))
	router.Use(middleware.Recoverer)
	router.Use(withCORS(s.cfg.AllowedOrigins))
	router.Use(secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "same-origin",
		STSSeconds:         31536000,
		IsDevelopment:      !s.cfg.Production(),
	}).Handler)

	router.Get("/healthz", s.healthHandler())

	publicHandler := publichttp.NewHandler(publichttp.Config{
		Logger:        s.logger,
		Registrations: s.commands,
		ThankYouPath:  s.cfg.ThankYouPath,
	})
	publicHandler.Register(router)

	if s.cfg.AdminJWT != nil {
		adminHandler := adminhttp.NewHandler(adminhttp.Config{
			Logger:        s.logger,
			Registrations: s.queries,
		})
		router.Route("/admin", func(r chi.Router) {
			r.Use(s.authMiddleware)
			adminHandler.Register(r)
		})
	} else {
		s.logger.Warn().Msg("ADMIN_JWT_SECRET not set, admin routes disabled")
	}

	return router
}

// Run starts the HTTP server and blocks until shutdown.
func (s *Server) Run() error {
	httpServer := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.Addr).Msg("http server listening")
		errChan <- httpServer.ListenAndServe()
	}()

	return s.waitForShutdown(httpServer, errChan)
}

// healthHandler reports whether the store answers a ping.
func (s *Server) healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if s.backend.Ping != nil {
			if err := s.backend.Ping(ctx); err != nil {
				common.WriteJSON(s.logger, w, http.StatusServiceUnavailable, map[string]string{
					"status": "degraded",
					"error":  err.Error(),
				})
				return
			}
		}

		common.WriteJSON(s.logger, w, http.StatusOK, map[string]string{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	}
}

// requestLogger writes one access-log line per request through logger.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info().
				Str("requestId", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("http request")
		})
	}
}

// withCORS answers preflight requests and echoes allowed origins.
func withCORS(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{})
	allowAll := false
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		if origin == "*" {
			allowAll = true
			continue
		}
		allowed[origin] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin == "" || (!allowAll && !originAllowed(origin, allowed)) {
				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusNoContent)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization,Content-Type")
			w.Header().Set("Access-Control-Max-Age", "300")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// originAllowed reports whether origin is in the allow-list; an empty list allows all.
func originAllowed(origin string, allowed map[string]struct{}) bool {
	if len(allowed) == 0 {
		return true
	}
	_, ok := allowed[origin]
	return ok
}

// shutdown drains pending notifications and closes the store.
func (s *Server) shutdown(ctx context.Context) {
	if s.notifier != nil {
		s.notifier.Wait()
	}
	if s.backend.Close == nil {
		return
	}
	closeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.backend.Close(closeCtx); err != nil {
		s.logger.Error().Err(err).Msg("close store")
	}
}

// waitForShutdown blocks until the listener fails or a signal arrives, then shuts down.
func (s *Server) waitForShutdown(httpServer *http.Server, errChan <-chan error) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var runErr error
	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("http server: %w", err)
		}
	case sig := <-sigChan:
		s.logger.Info().Str("signal", sig.String()).Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			s.logger.Error().Err(err).Msg("http server shutdown")
		}
	}

	s.shutdown(context.Background())
	return runErr
}
