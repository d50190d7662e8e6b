package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CharlesToronto/brotherstudio/assets"
	"github.com/CharlesToronto/brotherstudio/cache"
	"github.com/CharlesToronto/brotherstudio/config"
	"github.com/CharlesToronto/brotherstudio/email"
	"github.com/CharlesToronto/brotherstudio/handler"
	"github.com/CharlesToronto/brotherstudio/i18n"
	"github.com/CharlesToronto/brotherstudio/live"
	appLogger "github.com/CharlesToronto/brotherstudio/logger"
	"github.com/CharlesToronto/brotherstudio/middleware"
	redisClient "github.com/CharlesToronto/brotherstudio/redis"
	"github.com/CharlesToronto/brotherstudio/security"
	"github.com/CharlesToronto/brotherstudio/store"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const limiterPruneInterval = 5 * time.Minute

func main() {
	// Load configuration
	cfg := config.MustLoadConfig()

	// Initialize logger
	appLogger.Initialize(cfg.IsProduction())
	log.Info().Str("environment", cfg.WebServer.Environment).Msg("Configuration loaded successfully")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// File-backed stores
	galleryStore := store.NewGalleryStore(cfg.Storage.GalleryPath())
	analyticsStore := store.NewAnalyticsStore(cfg.Storage.AnalyticsPath())
	uploads := assets.NewStore(cfg.Storage.UploadsDir)
	log.Info().
		Str("gallery", galleryStore.Path()).
		Str("analytics", analyticsStore.Path()).
		Str("uploads", uploads.Dir()).
		Msg("Storage initialized")

	// Initialize cache (if enabled)
	var cacheClient *cache.Cache
	if cfg.Cache.Enabled {
		var err error
		cacheClient, err = cache.New(cfg.Cache)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize cache")
		}
	} else {
		log.Info().Msg("Cache disabled in configuration")
	}

	// Redis only backs the bot detection counters; the site runs without it
	rdb, err := redisClient.NewClient(cfg.Redis)
	if err != nil {
		log.Error().Err(err).Msg("Redis unavailable, security stats disabled")
	}

	// Live analytics hub
	hub := live.NewHub()
	go hub.Run(ctx)

	// Contact mail delivery behind a circuit breaker
	mailer := email.NewResilientMailer(email.NewEmailService(cfg.Email), email.DefaultBreakerConfig())

	botDetector := security.NewBotDetector(cfg.Security.BotMaxRequestsPerMinute)
	log.Info().
		Bool("bot_detection_enabled", cfg.Security.BotDetectionEnabled).
		Int("bot_max_requests_per_minute", cfg.Security.BotMaxRequestsPerMinute).
		Msg("Bot detector initialized")

	// Create handler with dependency injection
	siteHandler := handler.NewSiteHandler(galleryStore, analyticsStore, uploads, mailer, cacheClient, hub, rdb, cfg)

	// Set up router
	r := mux.NewRouter()

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	botProtection := middleware.NewBotProtection(botDetector, cfg.Security.BotDetectionEnabled, rdb)
	adminLock := middleware.NewAdminLock(cfg.Admin.LockCodeHash, cfg.Admin.LockEnabled)

	go func() {
		ticker := time.NewTicker(limiterPruneInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rateLimiter.Prune()
			}
		}
	}()

	r.Use(middleware.RequestLogger)

	// Unprefixed pages redirect to the visitor's locale
	for _, page := range i18n.LegacyPages {
		r.HandleFunc(page, i18n.Redirect).Methods("GET", "HEAD")
	}

	// System routes
	r.HandleFunc("/health", siteHandler.HealthCheck).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(rateLimiter.Limit)

	// Public routes
	api.HandleFunc("/gallery", siteHandler.ListGallery).Methods("GET")
	api.HandleFunc("/analytics/hit", siteHandler.RecordHit).Methods("POST")
	api.HandleFunc("/qr", siteHandler.GenerateQR).Methods("GET")
	api.Handle("/contact", botProtection.Protect(http.HandlerFunc(siteHandler.SubmitContact))).Methods("POST")

	// Gallery mutations
	gallery := api.PathPrefix("/gallery").Subrouter()
	gallery.Use(adminLock.Protect)
	gallery.HandleFunc("", siteHandler.CreateGalleryItem).Methods("POST")
	gallery.HandleFunc("", siteHandler.ReorderGallery).Methods("PATCH")
	gallery.HandleFunc("/{id}", siteHandler.UpdateGalleryCaption).Methods("PATCH")
	gallery.HandleFunc("/{id}", siteHandler.DeleteGalleryItem).Methods("DELETE")
	gallery.HandleFunc("/{id}/image", siteHandler.ReplaceGalleryImage).Methods("POST")

	// Admin routes
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(adminLock.Protect)
	admin.HandleFunc("/analytics", siteHandler.GetAnalyticsSummary).Methods("GET")
	admin.HandleFunc("/live", siteHandler.LiveAnalytics).Methods("GET")
	admin.HandleFunc("/security", siteHandler.GetSecurityStats).Methods("GET")
	admin.HandleFunc("/cache", siteHandler.CacheMetrics).Methods("GET")

	// Uploaded gallery images
	r.PathPrefix(assets.PublicPrefix).Handler(uploads.Handler()).Methods("GET", "HEAD")

	// Configure HTTP server
	serverAddress := fmt.Sprintf("%s:%s", cfg.WebServer.IP, cfg.WebServer.Port)
	server := &http.Server{
		Addr:         serverAddress,
		Handler:      i18n.Middleware(cfg.IsProduction())(r),
		ReadTimeout:  time.Duration(cfg.WebServer.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WebServer.WriteTimeout) * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("address", serverAddress).
			Str("site_url", cfg.Site.URL).
			Msg("Starting server")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.WebServer.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Closes live connections and stops background loops
	stop()

	// Flush pending analytics writes
	analyticsStore.Close()

	botDetector.Close()

	// Close cache
	if cacheClient != nil {
		cacheClient.Close()
	}

	// Close Redis connection
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close Redis connection")
		}
	}

	log.Info().Msg("Server stopped gracefully")
}
