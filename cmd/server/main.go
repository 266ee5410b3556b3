package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	grpcapi "rentaldesk-bff/internal/api/grpc"
	httpapi "rentaldesk-bff/internal/api/http"
	"rentaldesk-bff/internal/backend"
	"rentaldesk-bff/internal/cache"
	"rentaldesk-bff/internal/config"
	"rentaldesk-bff/internal/jobs"
	"rentaldesk-bff/internal/logger"
	"rentaldesk-bff/internal/repository/postgres"
	"rentaldesk-bff/internal/scheduler"
	"rentaldesk-bff/internal/service"
	"rentaldesk-bff/internal/session"
)

func main() {
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	withScheduler := flag.Bool("with-scheduler", false, "Run the journal sweep jobs in this process")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting RentalDesk BFF...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress(), "grpc_address", cfg.GetGRPCAddress())
	logger.Info("Backend configuration", "base_url", cfg.Backend.BaseURL, "timeout_seconds", cfg.Backend.TimeoutSeconds)
	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)
	if cfg.Session.Bypass {
		logger.Warn("Session bypass is enabled; requests without a token run as the development user", "user_id", cfg.Session.DevUserID)
	}

	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	store := postgres.NewStore(db)

	client := backend.NewClient(cfg.Backend, nil)
	queryCache := cache.New(
		time.Duration(cfg.Cache.TTLSeconds)*time.Second,
		time.Duration(cfg.Cache.CleanupSeconds)*time.Second,
	)
	registry := service.NewWorkflowRegistry(cfg.WorkflowTTL())
	emailSvc := service.NewEmailService(cfg.Email)

	returnSvc := service.NewReturnService(client, queryCache, store, emailSvc, registry, service.ReturnPolicyFromConfig(cfg))
	extensionSvc := service.NewExtensionService(client, queryCache, store, emailSvc, registry)

	handler := httpapi.NewHandler(returnSvc, extensionSvc, registry, store)
	httpServer := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           httpapi.NewRouter(handler, session.NewManager(cfg.Session), cfg.Server),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reporter := grpcapi.NewHealthReporter(store)
	if addr := cfg.GetGRPCAddress(); addr != "" {
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			log.Fatalf("Failed to listen: %v", err)
		}
		grpcServer := grpcapi.NewServer(reporter)
		go reporter.Run(ctx, 15*time.Second)
		go func() {
			logger.Info("gRPC health server listening", "address", addr)
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("Failed to serve gRPC", "error", err)
			}
		}()
		defer grpcServer.GracefulStop()
	}

	if *withScheduler {
		cronScheduler := scheduler.NewScheduler(jobs.NewJobRunner(store, cfg))
		cronScheduler.Start()
		defer cronScheduler.Stop()
	}

	go func() {
		logger.Info("HTTP server listening", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")
	reporter.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", "error", err)
	}
}
