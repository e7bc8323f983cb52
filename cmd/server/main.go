package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"hypertuner/api/rest/routes"
	"hypertuner/config"
	"hypertuner/core/controller"
	"hypertuner/core/executor"
	"hypertuner/core/repository"

	"github.com/gorilla/mux"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := controller.Options{
		AdmissionInterval: cfg.AdmissionInterval,
		PollInterval:      cfg.PollInterval,
	}

	// Initialize database (optional)
	if cfg.DatabaseURL != "" {
		db, err := repository.NewDB(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := db.EnsureSchema(); err != nil {
			log.Fatalf("Failed to initialize schema: %v", err)
		}

		opts.Recorder = repository.NewRecorder(db)
		log.Println("Database connected successfully")
	} else {
		log.Println("DATABASE_URL not set, running without persistence")
	}

	// Initialize trial executor
	var exec executor.TrialExecutor
	switch cfg.ExecutorBackend {
	case "sagemaker":
		sm, err := executor.NewSageMakerExecutor(ctx, executor.SageMakerOptions{
			Region:        cfg.AWSRegion,
			RoleARN:       cfg.SageMakerRoleARN,
			TrainingImage: cfg.TrainingImage,
			MetricName:    cfg.MetricName,
			S3OutputPath:  cfg.OutputS3Path,
		})
		if err != nil {
			log.Fatalf("Failed to initialize SageMaker executor: %v", err)
		}
		exec = sm
		log.Printf("Using SageMaker executor in %s", cfg.AWSRegion)
	case "local":
		exec = executor.NewLocalExecutor(executor.BenchmarkObjective, 0)
		log.Println("Using local executor")
	default:
		log.Fatalf("Unknown executor backend %q", cfg.ExecutorBackend)
	}

	// Initialize job manager
	manager := controller.NewManager(exec, opts)

	// Setup routes
	r := mux.NewRouter()
	routes.SetupRoutes(r, ctx, manager)

	// Health check endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	// Start server
	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Starting server on port %s", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	cancel()
	if err := server.Shutdown(context.Background()); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exited")
}
