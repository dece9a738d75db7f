package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"database/sql"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/cardcore/billing-service/internal/config"
	"github.com/cardcore/billing-service/internal/handler"
	"github.com/cardcore/billing-service/internal/integrations/ratefeed"
	"github.com/cardcore/billing-service/internal/metrics"
	"github.com/cardcore/billing-service/internal/middleware"
	"github.com/cardcore/billing-service/internal/notifier"
	"github.com/cardcore/billing-service/internal/repository"
	"github.com/cardcore/billing-service/internal/scheduler"
	"github.com/cardcore/billing-service/internal/service"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database
	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}

	// Initialize layers
	repo := repository.NewRepository(db)
	svc, err := service.NewService(repo, logger, cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize service: %v", err)
	}
	rates := ratefeed.NewClient(cfg, logger)
	svc.Rates = rates
	if cfg.SMTPHost != "" {
		svc.Notifier = notifier.NewSender(cfg, logger)
	}
	registry := prometheus.NewRegistry()
	svc.Metrics = metrics.New(registry)

	h := handler.NewHandler(svc)

	// Setup router
	r := mux.NewRouter()
	// Public routes
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("GET")
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods("GET")
	r.HandleFunc("/base-rate", func(w http.ResponseWriter, r *http.Request) {
		rate, err := rates.BaseRate(r.Context())
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to get base rate: %v", err), http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"base_rate": rate.String()})
	}).Methods("GET")
	// Protected routes
	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(middleware.AuthMiddleware(cfg))
	h.RegisterRoutes(authRouter)

	// Start the billing sweep
	sched, err := scheduler.New(svc, logger, cfg.SweepSchedule)
	if err != nil {
		logger.Fatalf("Failed to initialize scheduler: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	logger.Infof("Starting server on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server failed: %v", err)
	}
}
