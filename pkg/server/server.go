package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/ha1tch/meditactive/pkg/cache"
	"github.com/ha1tch/meditactive/pkg/config"
	"github.com/ha1tch/meditactive/pkg/models"
	"github.com/ha1tch/meditactive/pkg/validation"
)

// MemberService is the aggregate engine as seen by the HTTP layer
type MemberService interface {
	CreateMember(ctx context.Context, cmd models.CreateMemberCommand) (*models.MutationResult, error)
	UpdateMember(ctx context.Context, id int64, cmd models.UpdateMemberCommand) (*models.MutationResult, error)
	DeleteMember(ctx context.Context, id int64) error
	GetMember(ctx context.Context, id int64) (*models.MemberAggregate, error)
	ListMembers(ctx context.Context, limit, offset int) ([]models.Member, error)
	CountMembers(ctx context.Context) (int, error)
	ListGoals(ctx context.Context) ([]models.Goal, error)
	ListSessionTypes(ctx context.Context) ([]models.SessionType, error)
}

// Pinger reports database reachability for /health
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	config    *config.Config
	members   MemberService
	db        Pinger
	cache     cache.Cache
	validator validation.Validator
	metrics   http.Handler
	logger    zerolog.Logger
	router    *chi.Mux
	fills     fillGuard
}

// Option configures optional server parts
type Option func(*Server)

// WithMetricsHandler mounts h on /metrics
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// New creates a new server instance
func New(
	cfg *config.Config,
	members MemberService,
	db Pinger,
	c cache.Cache,
	validator validation.Validator,
	logger zerolog.Logger,
	opts ...Option,
) *Server {
	s := &Server{
		config:    cfg,
		members:   members,
		db:        db,
		cache:     c,
		validator: validator,
		logger:    logger,
		router:    chi.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Get("/health", s.handleHealth)
	s.router.Get("/version", s.handleVersion)
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics)
	}

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Route("/members", func(r chi.Router) {
			r.Get("/", s.handleListMembers)
			r.Post("/", s.handleCreateMember)
			r.Get("/{id}", s.handleGetMember)
			r.Put("/{id}", s.handleUpdateMember)
			r.Patch("/{id}", s.handleUpdateMember)
			r.Delete("/{id}", s.handleDeleteMember)
		})

		r.Get("/goals", s.handleListGoals)
		r.Get("/session-types", s.handleListSessionTypes)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info().Str("addr", addr).Msg("Starting server")
	return http.ListenAndServe(addr, s.router)
}

// Handler returns the HTTP handler (useful for testing)
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.Ping(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Health check failed")
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":  "unavailable",
			"version": config.Version,
		})
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": config.Version,
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"version": config.Version,
	})
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.members.ListGoals(r.Context())
	if err != nil {
		s.writeInternalError(w, "Failed to list goals", err)
		return
	}
	s.writeJSON(w, http.StatusOK, models.ListResponse{Data: goals})
}

func (s *Server) handleListSessionTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.members.ListSessionTypes(r.Context())
	if err != nil {
		s.writeInternalError(w, "Failed to list session types", err)
		return
	}
	s.writeJSON(w, http.StatusOK, models.ListResponse{Data: types})
}
