package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/lakegate/internal/cache"
	"github.com/lakegate/internal/logging"
	"github.com/lakegate/internal/platform"
	"github.com/lakegate/internal/service"
)

// MeHandler returns the identity behind the request's credentials. With
// per-request auth this is the end user; otherwise the service principal.
// Responses are cached per credential to keep identity lookups off the hot
// path.
func (s *Server) MeHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token := platform.UserTokenFromContext(ctx)

	var key string
	if s.cache != nil && token != "" {
		key = cache.UserKey(token)
		if data, err := s.cache.Get(ctx, key); err == nil {
			w.Header().Set("Content-Type", "application/json")
			w.Write(data)
			return
		}
	}

	user, err := s.svc.CurrentUser(ctx)
	if err != nil {
		WriteJSONError(w, "AUTHENTICATION_ERROR", err.Error(), http.StatusUnauthorized)
		return
	}

	resp := map[string]any{
		"id":           user.ID,
		"user_name":    user.UserName,
		"display_name": user.DisplayName,
		"email":        user.Email(),
		"active":       user.Active,
	}

	if key != "" {
		if data, err := json.Marshal(resp); err == nil {
			if err := s.cache.Set(ctx, key, data, s.userTTL); err != nil {
				logging.Warnf("Failed to cache user lookup: %v", err)
			}
		}
	}

	WriteJSONSuccess(w, resp)
}

// QueryRequest is the body of POST /api/query.
type QueryRequest struct {
	Backend string `json:"backend"`
	SQL     string `json:"sql"`
	Params  []any  `json:"params,omitempty"`
}

// QueryResponse wraps query results with timing metadata.
type QueryResponse struct {
	Backend  string           `json:"backend"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"row_count"`
	TimeMs   int64            `json:"time_ms"`
}

// QueryHandler executes a statement against the requested backend and
// returns the rows as JSON objects.
func (s *Server) QueryHandler(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSONError(w, "VALIDATION_ERROR", "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.SQL == "" {
		WriteJSONError(w, "VALIDATION_ERROR", "sql is required", http.StatusBadRequest)
		return
	}
	if req.Backend == "" {
		req.Backend = service.KindWarehouse
	}

	backend, err := s.svc.Backend(r.Context(), req.Backend)
	if err != nil {
		WriteJSONError(w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}

	start := time.Now()
	rows, err := backend.Fetch(r.Context(), req.SQL, req.Params...)
	if err != nil {
		logging.Warn("Query failed",
			logging.Backend(req.Backend),
			logging.Err(err))
		WriteBackendError(w, err)
		return
	}

	out := make([]map[string]any, len(rows))
	for i, row := range rows {
		out[i] = row.AsMap()
	}

	WriteJSONSuccess(w, QueryResponse{
		Backend:  req.Backend,
		Rows:     out,
		RowCount: len(out),
		TimeMs:   time.Since(start).Milliseconds(),
	})
}
