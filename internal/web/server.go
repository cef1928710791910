package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kozaktomas/staff-attendance/internal/attendance"
	"github.com/kozaktomas/staff-attendance/internal/config"
	"github.com/kozaktomas/staff-attendance/internal/database"
	"github.com/kozaktomas/staff-attendance/internal/web/middleware"
)

// Options wires the server to the attendance service and its stores
type Options struct {
	Config      *config.Config
	Service     *attendance.Service
	Identities  database.IdentityReader
	Attendance  database.AttendanceReader
	SessionRepo middleware.SessionRepository // optional, nil keeps sessions in memory
	Host        string
	Port        int
}

// Server represents the web server
type Server struct {
	config         *config.Config
	service        *attendance.Service
	identities     database.IdentityReader
	attendance     database.AttendanceReader
	router         *chi.Mux
	httpServer     *http.Server
	sessionManager *middleware.SessionManager
}

// NewServer creates a new web server
func NewServer(opts Options) *Server {
	r := chi.NewRouter()

	sessionManager := middleware.NewSessionManager(opts.Config.Web.SessionSecret, opts.SessionRepo)

	s := &Server{
		config:         opts.Config,
		service:        opts.Service,
		identities:     opts.Identities,
		attendance:     opts.Attendance,
		router:         r,
		sessionManager: sessionManager,
	}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(2 * time.Minute))
	r.Use(middleware.CORS(opts.Config.Web.AllowedOrigins))
	r.Use(middleware.SecurityHeaders())

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", opts.Host, opts.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute, // enrollment uploads run several encoder calls
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Printf("Starting web server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down web server...")

	s.sessionManager.Stop()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}

// SessionManager returns the session manager for testing
func (s *Server) SessionManager() *middleware.SessionManager {
	return s.sessionManager
}
