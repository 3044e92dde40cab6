package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jjudge-oj/runlog/config"
	"github.com/jjudge-oj/runlog/internal/handlers"
	"github.com/jjudge-oj/runlog/internal/logging"
	"github.com/jjudge-oj/runlog/internal/metrics"
	"github.com/jjudge-oj/runlog/internal/services"
	"github.com/jjudge-oj/runlog/internal/store"
	"go.uber.org/zap"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	store      *store.DocumentStore
	logger     *zap.Logger
	closers    []func() error
}

// New constructs a Server with basic middleware and defaults. The store is
// created when it does not exist yet; failing to do so aborts startup.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := metrics.New()

	backend, closeBackend, err := OpenBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	docs := store.NewDocumentStore(backend, store.WithLogger(logger), store.WithRecorder(m))
	if err := docs.Ensure(ctx); err != nil {
		_ = closeBackend()
		return nil, fmt.Errorf("initialize store: %w", err)
	}

	publisher, closePublisher, err := OpenPublisher(ctx, cfg)
	if err != nil {
		_ = closeBackend()
		return nil, err
	}

	userService := services.NewUserService(docs,
		services.WithPublisher(publisher),
		services.WithLogger(logger),
	)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		logging.RequestLogger(logger),
		middleware.Recoverer,
		m.Middleware,
		middleware.Timeout(60*time.Second),
		cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"*"},
			MaxAge:         300,
		}),
		limitBody(cfg.MaxBodyBytes),
	)
	router.Get("/health", handlers.Health)
	router.Method(http.MethodGet, "/metrics", m.Handler())
	router.Route("/api/users", func(r chi.Router) {
		handlers.UserRouter(r, userService, logger)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 4000
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("store ready", zap.String("backend", backend.Name()))

	return &Server{
		httpServer: httpServer,
		router:     router,
		store:      docs,
		logger:     logger,
		closers:    []func() error{closePublisher, closeBackend},
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Store exposes the document store.
func (s *Server) Store() *store.DocumentStore {
	return s.store
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start runs the HTTP server. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones until ctx is
// done, and releases the store and broker connections.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	for _, closeFn := range s.closers {
		if closeErr := closeFn(); closeErr != nil {
			s.logger.Warn("close dependency", zap.Error(closeErr))
		}
	}
	return err
}

func limitBody(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxBytes > 0 && r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
