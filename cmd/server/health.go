package main

import (
	"context"
	"fmt"
	"time"

	"github.com/lakegate/internal/api"
	"github.com/lakegate/internal/cache"
	"github.com/lakegate/internal/database"
	"github.com/lakegate/internal/service"
	"github.com/lakegate/internal/version"
)

// serverHealthChecker reports control-plane and backend status for the
// health endpoint. The Lakebase probe only runs once the backend has been
// constructed; health checks never force a connection open.
type serverHealthChecker struct {
	svc       *service.Service
	cache     cache.Cache
	startTime time.Time
}

func (h *serverHealthChecker) CheckHealth(ctx context.Context) *api.HealthStatus {
	uptime := time.Since(h.startTime)

	status := &api.HealthStatus{
		Status:    "ok",
		Time:      time.Now().UTC(),
		Uptime:    formatUptime(uptime),
		UptimeSec: uptime.Seconds(),
		Version: api.VersionInfo{
			Version:   version.GetVersionInfo(),
			GitCommit: version.GitCommit,
			BuildTime: version.BuildTime,
		},
	}

	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// Control plane reachability
	start := time.Now()
	user, err := h.svc.CurrentUser(probeCtx)
	status.Platform.ResponseMs = time.Since(start).Milliseconds()
	if err != nil {
		status.Status = "degraded"
		status.Platform.Error = err.Error()
	} else {
		status.Platform.Connected = true
		status.Platform.User = user.UserName
	}

	// Lakebase connectivity, only when already open. A real query exercises
	// the credential refresh and retry path, not just the socket.
	if lb := h.svc.OpenLakebase(); lb != nil {
		bh := &api.BackendHealth{}
		start = time.Now()
		if _, err := database.FetchValue(probeCtx, lb, "SELECT 1"); err != nil {
			status.Status = "degraded"
			bh.Error = err.Error()
		} else {
			bh.Connected = true
		}
		bh.ResponseMs = time.Since(start).Milliseconds()
		status.Lakebase = bh
	}

	if h.cache != nil {
		metrics := h.cache.GetMetrics()
		status.Cache = &api.CacheHealth{
			Enabled: true,
			Keys:    metrics.Keys,
			HitRate: metrics.HitRate(),
		}
	}

	return status
}

// formatUptime renders a duration as short human-readable text
func formatUptime(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return d.String()
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	if days > 0 {
		return fmt.Sprintf("%dd%dh%dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh%dm", hours, minutes)
	}
	return fmt.Sprintf("%dm%ds", minutes, int(d.Seconds())%60)
}
