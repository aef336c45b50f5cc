package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/bloggery/apiserver/config"
	"github.com/bloggery/apiserver/internal/db"
	"github.com/bloggery/apiserver/internal/handlers"
	"github.com/bloggery/apiserver/internal/logutil"
	"github.com/bloggery/apiserver/internal/metrics"
	"github.com/bloggery/apiserver/internal/services"
	"github.com/bloggery/apiserver/internal/session"
	"github.com/bloggery/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const cleanupInterval = time.Hour

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	sessions   *session.Manager
	logger     zerolog.Logger
	stop       context.CancelFunc
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	logger := logutil.New("bloggery")

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	postRepo := store.NewPostRepository(dbConn)
	sessionRepo := store.NewSessionRepository(dbConn)

	sessionManager, err := session.NewManager(sessionRepo, cfg.Session.Secret, cfg.Session.TTL)
	if err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("session manager: %w", err)
	}

	userService := services.NewUserService(userRepo, sessionManager)
	postService := services.NewPostService(postRepo)

	requireSession := handlers.RequireSession(userService)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		handlers.RequestLogger(logger),
		middleware.Timeout(60*time.Second),
	)
	router.NotFound(handlers.NotFound)
	router.Get("/healthz", handlers.Healthz)
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, userService, sessionManager.TTL())
	})
	router.Route("/users", func(r chi.Router) {
		handlers.UserRouter(r, userService)
	})
	router.Route("/posts", func(r chi.Router) {
		handlers.PostRouter(r, postService, requireSession)
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

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		sessions:   sessionManager,
		logger:     logger,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server and the expired-session sweeper.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.stop = cancel
	go s.sweepExpiredSessions(ctx)

	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("listening")
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.stop != nil {
		s.stop()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}

func (s *Server) sweepExpiredSessions(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.sessions.PurgeExpired(ctx)
			if err != nil {
				s.logger.Error().Err(err).Msg("session sweep failed")
				continue
			}
			if deleted > 0 {
				metrics.SessionsPurged.Add(float64(deleted))
				s.logger.Info().Int64("deleted", deleted).Msg("purged expired sessions")
			}
		}
	}
}
