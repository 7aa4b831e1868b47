package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// SetupRouter creates and configures a Chi router with all API routes
func (s *Server) SetupRouter(corsOrigins []string) http.Handler {
	r := chi.NewRouter()

	// Built-in Chi middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// Custom middleware
	r.Use(LoggingMiddleware)
	r.Use(CORSMiddleware(corsOrigins))
	r.Use(UserTokenMiddleware)

	// Health check endpoint
	r.Get("/api/health", s.HealthHandler)

	// Identity
	r.Get("/api/me", s.MeHandler)

	// Query execution
	r.Post("/api/query", s.QueryHandler)

	// Websocket
	r.Get("/api/ws", s.WSHandler)

	// Cache statistics
	if s.cacheStatsHandler != nil {
		r.Get("/api/cache/stats", s.cacheStatsHandler)
	}

	return r
}
