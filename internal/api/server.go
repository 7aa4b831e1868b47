package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/lakegate/internal/cache"
	"github.com/lakegate/internal/database"
	"github.com/lakegate/internal/service"
)

// Server represents the API server
type Server struct {
	svc               *service.Service
	cache             cache.Cache
	userTTL           time.Duration
	healthChecker     HealthChecker
	cacheStatsHandler http.HandlerFunc
	connections       *ConnectionManager
}

// New creates a new API server
func New(svc *service.Service) *Server {
	return &Server{
		svc:         svc,
		userTTL:     time.Minute,
		connections: NewConnectionManager(),
	}
}

// Connections returns the websocket connection manager.
func (s *Server) Connections() *ConnectionManager {
	return s.connections
}

// SetHealthChecker sets the health checker for the server
func (s *Server) SetHealthChecker(hc HealthChecker) {
	s.healthChecker = hc
}

// SetCache enables response caching for identity lookups
func (s *Server) SetCache(c cache.Cache, userTTL time.Duration) {
	s.cache = c
	if userTTL > 0 {
		s.userTTL = userTTL
	}
}

// SetCacheStatsHandler sets the handler for the /api/cache/stats endpoint
func (s *Server) SetCacheStatsHandler(h http.HandlerFunc) {
	s.cacheStatsHandler = h
}

// HealthHandler handles health check requests
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if s.healthChecker != nil {
		WriteJSONSuccess(w, s.healthChecker.CheckHealth(r.Context()))
		return
	}
	response := map[string]any{
		"status": "ok",
		"time":   time.Now().UTC(),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// WriteJSONSuccess writes a successful JSON response.
func WriteJSONSuccess(w http.ResponseWriter, data interface{}) {
	WriteJSON(w, data, http.StatusOK)
}

// WriteJSONError writes a JSON error response.
func WriteJSONError(w http.ResponseWriter, code, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"code":    code,
		"message": message,
		"status":  statusCode,
		"time":    time.Now().UTC(),
	})
}

// WriteBackendError translates a typed backend error into an HTTP error
// response.
func WriteBackendError(w http.ResponseWriter, err error) {
	var (
		queryErr   *database.QueryError
		timeoutErr *database.TimeoutError
		connErr    *database.ConnectionError
		authErr    *database.AuthError
		escapeErr  *database.EscapeError
	)
	switch {
	case errors.As(err, &queryErr):
		WriteJSONError(w, "QUERY_ERROR", queryErr.Message, http.StatusBadRequest)
	case errors.As(err, &timeoutErr):
		WriteJSONError(w, "QUERY_TIMEOUT", timeoutErr.Error(), http.StatusGatewayTimeout)
	case errors.As(err, &connErr):
		WriteJSONError(w, "CONNECTION_ERROR", connErr.Error(), http.StatusBadGateway)
	case errors.As(err, &authErr):
		WriteJSONError(w, "AUTHENTICATION_ERROR", authErr.Error(), http.StatusUnauthorized)
	case errors.As(err, &escapeErr):
		WriteJSONError(w, "VALIDATION_ERROR", escapeErr.Error(), http.StatusBadRequest)
	default:
		WriteJSONError(w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
	}
}
