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

	"intervia-backend/internal/config"
	"intervia-backend/internal/database"
	"intervia-backend/internal/handlers"
	"intervia-backend/internal/interview"
	"intervia-backend/internal/middleware"
	"intervia-backend/internal/repository"
	"intervia-backend/internal/router"
	"intervia-backend/internal/services"
	"intervia-backend/internal/websocket"
	"intervia-backend/internal/worker"
)

func main() {
	log.Println("🚀 Starting Intervia Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

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
	candidateRepo := repository.NewCandidateRepo(pool)
	sessionRepo := repository.NewSessionRepo(pool)

	// ──── Step 5: Initialize Gemini Client ────
	aiService, err := services.NewAIService(cfg.GeminiAPIKey, cfg.GeminiConcurrentReqs)
	if err != nil {
		log.Fatalf("✗ Gemini client initialization failed: %v", err)
	}
	defer aiService.Close()
	log.Println("✓ Gemini Flash client initialized")

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	authService := services.NewAuthService(candidateRepo, jwtAuth)

	// ──── Step 6: Initialize Interview Engine ────
	critiqueQueue := worker.NewQueue(redisClients.Queue)
	publisher := websocket.NewPublisher(redisClients.Queue)
	engine := interview.NewEngine(sessionRepo, aiService, critiqueQueue, publisher, interview.Config{
		TotalDuration: cfg.InterviewDuration,
		MaxQuestions:  cfg.MaxQuestions,
	})
	log.Println("✓ Interview engine initialized")

	// ──── Step 7: Start Critique Worker Pool ────
	workerPool := worker.NewPool(redisClients.Queue, aiService, engine, cfg.CritiqueWorkerCount)
	workerPool.Start()
	log.Printf("✓ Critique worker pool started (%d goroutines)", cfg.CritiqueWorkerCount)

	// ──── Step 8: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, jwtAuth, engine)
	log.Println("✓ WebSocket hub started")

	// ──── Initialize Handlers ────
	authHandler := handlers.NewAuthHandler(authService)
	interviewHandler := handlers.NewInterviewHandler(sessionRepo, aiService, engine)

	// ──── Step 9: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		authHandler,
		interviewHandler,
		wsHub,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
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
		workerPool.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ Intervia Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
