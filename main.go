package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	stdlog "log"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/patrickmn/go-cache"

	"github.com/username/cashflowrisk/backend/src/config"
	"github.com/username/cashflowrisk/backend/src/handlers"
	"github.com/username/cashflowrisk/backend/src/locator"
	"github.com/username/cashflowrisk/backend/src/logger"
	"github.com/username/cashflowrisk/backend/src/processors"
	"github.com/username/cashflowrisk/backend/src/services"
)

func proxyHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Forwarded-Proto") == "https" {
			r.URL.Scheme = "https"
			r.TLS = &tls.ConnectionState{}
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)

	logger.L.Info("Cashflow risk backend server starting...")

	referenceDate, err := civil.ParseDate(config.Cfg.ReferenceDate)
	if err != nil {
		logger.L.Warn("Invalid REFERENCE_DATE, using today", "value", config.Cfg.ReferenceDate, "error", err)
		referenceDate = civil.DateOf(time.Now())
	}

	reportCache := cache.New(cache.NoExpiration, config.Cfg.CacheCleanupInterval)

	sourceLocator := locator.New(locator.Options{
		Dir:       config.Cfg.DataDir,
		Recursive: config.Cfg.SourceRecursive,
		Keywords:  config.Cfg.SourceKeywords,
		CSVName:   config.Cfg.CSVFallbackName,
	})

	cashflowProcessor := processors.NewCashflowProcessor(processors.CashflowOptions{
		HeaderRows:  config.Cfg.HeaderRows,
		SentinelRow: config.Cfg.SentinelRow,
	})
	payablesProcessor := processors.NewPayablesProcessor()

	datasetService := services.NewDatasetService(
		config.Cfg,
		sourceLocator,
		cashflowProcessor,
		payablesProcessor,
		reportCache,
	)

	// Warm the cache so a broken source shows up in the startup log.
	if _, err := datasetService.Load(context.Background()); err != nil {
		logger.L.Warn("Initial load of the cashflow source failed", "dataDir", config.Cfg.DataDir, "error", err)
	}

	cashflowHandler := handlers.NewCashflowHandler(datasetService, referenceDate)
	payablesHandler := handlers.NewPayablesHandler(datasetService)

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(handlers.ContextualLoggerMiddleware)
	r.Use(proxyHeadersMiddleware)
	r.Use(handlers.CORSMiddleware(config.Cfg.AllowedOrigins))
	r.Use(handlers.RateLimitMiddleware(config.Cfg.RateLimitRPS, config.Cfg.RateLimitBurst))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "Cashflow risk backend is running"})
	})

	r.Route("/api", func(r chi.Router) {
		handlers.RegisterRoutes(r, cashflowHandler, payablesHandler)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "unknown endpoint"})
	})

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		stdlog.Fatalf("Failed to start server: %v", err)
	}
}
