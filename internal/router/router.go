package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"intervia-backend/internal/handlers"
	"intervia-backend/internal/metrics"
	"intervia-backend/internal/middleware"
	"intervia-backend/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	authHandler *handlers.AuthHandler,
	interviewHandler *handlers.InterviewHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))
	r.Use(metrics.Middleware)

	// Auth rate limiter (10 req/min per IP)
	authLimiter := middleware.NewRateLimiter(10, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Auth Routes (public) ────
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
		})

		// ──── Interview Routes ────
		r.Route("/interviews", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/", interviewHandler.Create)
			r.Get("/", interviewHandler.List)
			r.Get("/active", interviewHandler.Active)
			r.Get("/{id}", interviewHandler.Get)
			r.Post("/{id}/start", interviewHandler.Start)
			r.Post("/{id}/cancel", interviewHandler.Cancel)
			r.Get("/{id}/resume", interviewHandler.Resume)
			r.Get("/{id}/time", interviewHandler.TimeRemaining)
			r.Get("/{id}/report", interviewHandler.Report)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
