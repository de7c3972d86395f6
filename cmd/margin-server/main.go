package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fbatools/margin-scraper/internal/api"
	"github.com/fbatools/margin-scraper/internal/config"
	"github.com/fbatools/margin-scraper/internal/database"
	"github.com/fbatools/margin-scraper/internal/jobs"
	"github.com/fbatools/margin-scraper/internal/metrics"
	"github.com/fbatools/margin-scraper/internal/queue"
	"github.com/fbatools/margin-scraper/pkg/logger"
)

// margin-server exposes the run API and executes queued extraction runs
// on a single background worker.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(ctx, database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	var runQueue queue.Queue
	switch cfg.Queue.Type {
	case "redis":
		runQueue, err = queue.NewRedisQueue(ctx, cfg.Queue.RedisAddr, cfg.Queue.RedisKey)
		if err != nil {
			log.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
	default:
		runQueue = queue.NewInMemoryQueue()
	}
	defer runQueue.Close()

	m := metrics.New()
	repo := database.NewRunRepository(db)
	executor := jobs.NewBrowserExecutor(cfg, log, m)
	manager := jobs.NewManager(repo, runQueue, executor, log, m)

	go func() {
		if err := manager.Work(ctx); err != nil {
			log.Error("worker stopped with error", "error", err)
		}
	}()

	handlers := api.NewHandlers(manager, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://localhost:*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", handlers.Health)
	r.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/runs", handlers.CreateRun)
		r.Get("/runs", handlers.ListRuns)
		r.Get("/runs/{runID}", handlers.GetRun)
	})

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Info("shutting down server...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
	}()

	log.Info("server starting", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
