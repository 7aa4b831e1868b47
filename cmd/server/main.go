package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lakegate/internal/api"
	"github.com/lakegate/internal/cache"
	"github.com/lakegate/internal/config"
	"github.com/lakegate/internal/logging"
	"github.com/lakegate/internal/service"
	"github.com/lakegate/internal/version"
	"github.com/lakegate/internal/web"
)

func main() {
	// Command line flags
	var (
		configPath  = flag.String("config", "config.yaml", "Path to configuration file")
		port        = flag.String("port", "8080", "HTTP server port")
		host        = flag.String("host", "0.0.0.0", "HTTP server host")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	// Handle version flag
	if *showVersion {
		fmt.Printf("Lakegate Server %s\n", version.GetFullVersionInfo())
		os.Exit(0)
	}

	// Load configuration first
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logging from configuration
	logCfg := logging.Config(cfg.ServerLogging)
	if err := logging.Initialize(&logCfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}

	logging.Info("Lakegate server starting",
		slog.String("version", version.GetFullVersionInfo()),
		slog.String("config", *configPath),
		slog.String("workspace", cfg.Platform.Host),
		slog.Bool("per_request_auth", cfg.Platform.PerRequestAuth))

	// Create the service facade. Backends connect lazily on first query,
	// so startup does not depend on warehouse or database availability.
	svc, err := service.New(cfg)
	if err != nil {
		logging.Fatalf("Failed to initialize service: %v", err)
	}

	// Initialize cache if enabled
	var cacheImpl cache.Cache
	if cfg.Cache.Enabled {
		badgerConfig := &cache.BadgerConfig{
			Path:             cfg.Cache.Path,
			MaxMemoryMB:      cfg.Cache.MaxMemoryMB,
			ValueLogMaxMB:    cfg.Cache.ValueLogMaxMB,
			CompactL0OnClose: cfg.Cache.CompactOnClose,
			GCInterval:       cfg.Cache.GCInterval,
			GCDiscardRatio:   cfg.Cache.GCDiscardRatio,
		}
		cacheImpl, err = cache.NewBadgerCache(badgerConfig)
		if err != nil {
			logging.Fatalf("Failed to initialize BadgerCache: %v", err)
		}
		defer cacheImpl.Close()

		logging.Info("BadgerCache initialized",
			slog.String("path", cfg.Cache.Path),
			slog.Int("memory_mb", cfg.Cache.MaxMemoryMB),
			slog.Duration("user_ttl", cfg.Cache.UserTTL))
	} else {
		logging.Info("Cache is disabled")
	}

	// Initialize API server
	apiServer := api.New(svc)
	apiServer.SetHealthChecker(&serverHealthChecker{
		svc:       svc,
		cache:     cacheImpl,
		startTime: time.Now(),
	})
	if cacheImpl != nil {
		apiServer.SetCache(cacheImpl, cfg.Cache.UserTTL)
		apiServer.SetCacheStatsHandler(func(w http.ResponseWriter, r *http.Request) {
			metrics := cacheImpl.GetMetrics()
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"hits":%d,"misses":%d,"sets":%d,"deletes":%d,"keys":%d,"hit_rate":%.2f}`,
				metrics.Hits, metrics.Misses, metrics.Sets, metrics.Deletes,
				metrics.Keys, metrics.HitRate())
		})
	}

	// Set up HTTP routes using Chi router
	apiRouter := apiServer.SetupRouter(cfg.CORSOrigins)

	// SPA frontend from the embedded build
	spa, err := web.NewSPAHandler()
	if err != nil {
		logging.Fatalf("Failed to initialize static assets: %v", err)
	}

	// Mount API routes under Chi, everything else goes to the SPA
	mux := http.NewServeMux()
	mux.Handle("/api/", apiRouter)
	mux.Handle("/", spa)

	// Server configuration
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%s", *host, *port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      11 * time.Minute, // must outlast the warehouse statement timeout
		IdleTimeout:       120 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logging.Info("Server starting", slog.String("address", fmt.Sprintf("http://%s:%s", *host, *port)))
		logging.Info("Available endpoints:")
		logging.Infof("    http://%s:%s/api/health       - Health check", *host, *port)
		logging.Infof("    http://%s:%s/api/me           - Current identity", *host, *port)
		logging.Infof("    http://%s:%s/api/query        - Execute SQL (POST)", *host, *port)
		logging.Infof("    http://%s:%s/api/ws           - Websocket", *host, *port)
		if cfg.Cache.Enabled {
			logging.Infof("    http://%s:%s/api/cache/stats  - Cache statistics", *host, *port)
		}

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info("Server shutting down")

	// Graceful HTTP server shutdown with 15s deadline
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error("Graceful shutdown timed out, forcing close", slog.Any("error", err))
		if err := server.Close(); err != nil {
			logging.Error("Server force close error", slog.Any("error", err))
		}
	}

	// Tear down open backend connections
	if err := svc.Close(shutdownCtx); err != nil {
		logging.Error("Backend shutdown error", slog.Any("error", err))
	}

	logging.Info("Server stopped")
}
