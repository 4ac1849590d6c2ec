package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/nazifia/pharmpos-backend/internal/scan/events"
	"github.com/nazifia/pharmpos-backend/internal/scan/gs1"
	"github.com/nazifia/pharmpos-backend/internal/scan/handler"
	"github.com/nazifia/pharmpos-backend/internal/scan/repository"
	"github.com/nazifia/pharmpos-backend/internal/scan/resolver"
	"github.com/nazifia/pharmpos-backend/internal/scan/service"
	"github.com/nazifia/pharmpos-backend/pkg/config"
	"github.com/nazifia/pharmpos-backend/pkg/database"
	"github.com/nazifia/pharmpos-backend/pkg/httputil"
	"github.com/nazifia/pharmpos-backend/pkg/logger"
	"github.com/nazifia/pharmpos-backend/pkg/messaging"
)

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation("scan-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("scan-service", cfg.Server.Environment)
	log.Info().Msg("starting Scan Service")

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Connect to RabbitMQ
	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	// Initialize event publisher
	publisher, err := events.NewScanEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}

	// Initialize catalogs
	retailCatalog := repository.NewItemCatalog(db)
	wholesaleCatalog := repository.NewWholesaleItemCatalog(db)

	// Initialize parser and resolver
	parser := gs1.NewParser(
		gs1.WithExpiryWindow(cfg.Scan.ExpiryLookbackDays, cfg.Scan.ExpiryLookaheadDays),
	)
	res := resolver.New(parser, cfg.Scan.QRPrefix, log)

	// Initialize service and handler
	scanService := service.NewScanService(cfg.Scan, parser, res, retailCatalog, wholesaleCatalog, publisher, log)
	scanHandler := handler.NewScanHandler(scanService, log)

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.TerminalID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(middleware.Timeout(30 * time.Second))

	// CORS for the POS terminal frontends
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", "X-Terminal-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "scan-service",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		scanHandler.RegisterRoutes(r)
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
