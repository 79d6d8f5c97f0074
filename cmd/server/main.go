package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"maflab-backend/internal/config"
	"maflab-backend/internal/database"
	"maflab-backend/internal/handlers"
	"maflab-backend/internal/middleware"
	"maflab-backend/internal/repository"
	"maflab-backend/internal/router"
	"maflab-backend/internal/services"
	"maflab-backend/internal/websocket"
	"maflab-backend/internal/worker"
)

func main() {
	log.Println("🚀 Starting MAF.Lab Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// Without the backing services the server still boots, but only to
	// report demo mode.
	if cfg.Demo {
		log.Println("⚠ DATABASE_URL, REDIS_URL or JWT_SECRET missing, running in demo mode")
		serve(cfg, router.NewDemo(cfg.FrontendURL), nil)
		return
	}

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	userRepo := repository.NewUserRepo(pool)
	sessionRepo := repository.NewSessionRepo(pool)
	noteRepo := repository.NewNoteRepo(pool)
	mapRepo := repository.NewConceptMapRepo(pool)
	uploadRepo := repository.NewUploadRepo(pool)
	gamRepo := repository.NewGamificationRepo(pool)
	reportRepo := repository.NewReportRepo(pool)
	relationRepo := repository.NewRelationRepo(pool)
	reviewRepo := repository.NewPeerReviewRepo(pool)
	activityRepo := repository.NewActivityRepo(pool)
	jobRepo := repository.NewJobRepo(pool)

	// ──── Step 5: Initialize Gemini Client ────
	feedbackService, err := services.NewFeedbackService(
		cfg.GeminiAPIKey,
		cfg.GeminiConcurrentReqs,
		redisClients.Queue,
	)
	if err != nil {
		log.Fatalf("✗ Gemini client initialization failed: %v", err)
	}
	defer feedbackService.Close()
	log.Println("✓ Gemini Flash client initialized")

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	emailService := services.NewEmailService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.FrontendURL)
	authService := services.NewAuthService(userRepo, redisClients.Queue, jwtAuth, emailService)
	gamService := services.NewGamificationService(gamRepo, jobRepo, redisClients.Queue)
	reportService := services.NewReportService(pool, reportRepo)
	extractService := services.NewFileExtractService()

	storage, err := services.NewLocalStorage(cfg.StoragePath, cfg.StorageBaseURL)
	if err != nil {
		log.Fatalf("✗ Storage initialization failed: %v", err)
	}

	// ──── Initialize Handlers ────
	authHandler := handlers.NewAuthHandler(authService, cfg.FrontendURL)
	sessionHandler := handlers.NewSessionHandler(sessionRepo, userRepo, feedbackService, gamService, activityRepo)
	noteHandler := handlers.NewNoteHandler(noteRepo)
	mapHandler := handlers.NewConceptMapHandler(mapRepo)
	uploadHandler := handlers.NewUploadHandler(uploadRepo, storage, extractService, activityRepo)
	gamHandler := handlers.NewGamificationHandler(gamRepo)
	dashboardHandler := handlers.NewDashboardHandler(pool, userRepo, sessionRepo, noteRepo, gamRepo, relationRepo)
	userHandler := handlers.NewUserHandler(userRepo)
	reportHandler := handlers.NewReportHandler(pool, reportRepo, jobRepo, redisClients.Queue)
	reviewHandler := handlers.NewPeerReviewHandler(reviewRepo)

	// ──── Step 6: Start Job Worker Pool ────
	workerPool := worker.NewPool(
		redisClients.Queue,
		jobRepo,
		gamRepo,
		sessionRepo,
		reportService,
		3,
	)
	workerPool.Start()
	log.Println("✓ Worker pool started (3 goroutines)")

	// ──── Step 7: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, cfg.JWTSecret)
	log.Println("✓ WebSocket hub started")

	// ──── Step 8: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		authHandler,
		sessionHandler,
		noteHandler,
		mapHandler,
		uploadHandler,
		gamHandler,
		dashboardHandler,
		userHandler,
		reportHandler,
		reviewHandler,
		wsHub,
		cfg.FrontendURL,
	)

	serve(cfg, r, workerPool)
}

func serve(cfg *config.Config, handler http.Handler, workerPool *worker.Pool) {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		if workerPool != nil {
			workerPool.Stop()
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ MAF.Lab Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
