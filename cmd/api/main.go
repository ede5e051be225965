package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"database/sql"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/peerfund/lending-service/internal/config"
	"github.com/peerfund/lending-service/internal/handler"
	"github.com/peerfund/lending-service/internal/integrations/gateway"
	"github.com/peerfund/lending-service/internal/integrations/keyrate"
	"github.com/peerfund/lending-service/internal/middleware"
	"github.com/peerfund/lending-service/internal/repository"
	"github.com/peerfund/lending-service/internal/scheduler"
	"github.com/peerfund/lending-service/internal/service"
	"github.com/peerfund/lending-service/internal/utils/email"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
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
	rates := keyrate.NewClient(cfg, logger)
	notifier := email.NewSender(cfg, logger)
	svc := service.NewService(repo, logger, cfg, notifier, rates)
	gw := gateway.NewClient(cfg, logger)
	h := handler.NewHandler(svc, gw, rates, logger)

	// Start maintenance jobs
	sched, err := scheduler.NewScheduler(svc, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize scheduler: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// Setup router
	r := mux.NewRouter()
	// Public routes
	r.HandleFunc("/register", h.Register).Methods("POST")
	r.HandleFunc("/login", h.Login).Methods("POST")
	r.HandleFunc("/suggested-rate", h.SuggestedRate).Methods("GET")
	r.HandleFunc("/payments/webhook", h.GatewayWebhook).Methods("POST")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	// Protected routes
	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(middleware.AuthMiddleware(cfg))
	authRouter.HandleFunc("/users/verify", h.VerifyIdentity).Methods("POST")
	authRouter.HandleFunc("/users/{id}/trust-score", h.TrustScore).Methods("GET")
	authRouter.HandleFunc("/users/{id}/trust-score/history", h.TrustHistory).Methods("GET")
	authRouter.HandleFunc("/users/{id}/ratings", h.UserRatings).Methods("GET")
	authRouter.HandleFunc("/users/{id}/achievements", h.UserAchievements).Methods("GET")
	authRouter.HandleFunc("/loans", h.CreateLoan).Methods("POST")
	authRouter.HandleFunc("/loans", h.ListLoans).Methods("GET")
	authRouter.HandleFunc("/loans/{id}", h.GetLoan).Methods("GET")
	authRouter.HandleFunc("/loans/{id}/claim", h.ClaimLoan).Methods("POST")
	authRouter.HandleFunc("/loans/{id}/sign", h.SignLoan).Methods("POST")
	authRouter.HandleFunc("/loans/{id}/fund", h.FundLoan).Methods("POST")
	authRouter.HandleFunc("/loans/{id}/activate", h.ActivateLoan).Methods("POST")
	authRouter.HandleFunc("/loans/{id}/payments", h.RecordLoanPayment).Methods("POST")
	authRouter.HandleFunc("/loans/{id}/transactions", h.ListLoanTransactions).Methods("GET")
	authRouter.HandleFunc("/loans/{id}/instructions", h.LoanInstructions).Methods("GET")
	authRouter.HandleFunc("/loans/{id}/default", h.DefaultLoan).Methods("POST")
	authRouter.HandleFunc("/loans/{id}/cancel", h.CancelLoan).Methods("POST")
	authRouter.HandleFunc("/loans/{id}/ratings", h.RateLoan).Methods("POST")
	authRouter.HandleFunc("/payments/orders", h.CreateOrder).Methods("POST")

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
