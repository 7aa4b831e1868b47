package api

import (
	"context"
	"time"
)

// HealthChecker provides health check data to the API server.
type HealthChecker interface {
	CheckHealth(ctx context.Context) *HealthStatus
}

// HealthStatus is the full health check response.
type HealthStatus struct {
	Status    string         `json:"status"` // "ok" or "degraded"
	Time      time.Time      `json:"time"`
	Uptime    string         `json:"uptime"`         // human-readable
	UptimeSec float64        `json:"uptime_seconds"` // machine-readable
	Version   VersionInfo    `json:"version"`
	Platform  PlatformHealth `json:"platform"`
	Lakebase  *BackendHealth `json:"lakebase,omitempty"`
	Cache     *CacheHealth   `json:"cache,omitempty"`
}

// VersionInfo contains build version details.
type VersionInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildTime string `json:"build_time"`
}

// PlatformHealth reports control-plane reachability.
type PlatformHealth struct {
	Connected  bool   `json:"connected"`
	ResponseMs int64  `json:"response_ms"`
	User       string `json:"user,omitempty"`
	Error      string `json:"error,omitempty"`
}

// BackendHealth reports a SQL backend's connectivity.
type BackendHealth struct {
	Connected  bool   `json:"connected"`
	ResponseMs int64  `json:"response_ms"`
	Error      string `json:"error,omitempty"`
}

// CacheHealth reports cache status.
type CacheHealth struct {
	Enabled bool    `json:"enabled"`
	Keys    uint64  `json:"keys"`
	HitRate float64 `json:"hit_rate"`
}
