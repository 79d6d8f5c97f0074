package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"maflab-backend/internal/handlers"
	"maflab-backend/internal/middleware"
	"maflab-backend/internal/models"
	"maflab-backend/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	authHandler *handlers.AuthHandler,
	sessionHandler *handlers.SessionHandler,
	noteHandler *handlers.NoteHandler,
	mapHandler *handlers.ConceptMapHandler,
	uploadHandler *handlers.UploadHandler,
	gamHandler *handlers.GamificationHandler,
	dashboardHandler *handlers.DashboardHandler,
	userHandler *handlers.UserHandler,
	reportHandler *handlers.ReportHandler,
	reviewHandler *handlers.PeerReviewHandler,
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

	// Auth rate limiter (10 req/min per IP)
	authLimiter := middleware.NewRateLimiter(10, time.Minute)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Auth Routes (public) ────
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
			r.Get("/verify-email", authHandler.VerifyEmail)
			r.Post("/resend-verification", authHandler.ResendVerification)

			// Logout requires auth
			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Post("/logout", authHandler.Logout)
			})
		})

		// ──── Writing Sessions (students) ────
		r.Route("/sessions", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Use(middleware.RequireRole(models.RoleStudent))
			r.Post("/start", sessionHandler.Start)
			r.Get("/", sessionHandler.List)
			r.Get("/{id}", sessionHandler.Get)
			r.Post("/{id}/versions", sessionHandler.SaveVersion)
			r.Put("/{id}/reflection", sessionHandler.SaveReflection)
			r.Post("/{id}/feedback", sessionHandler.RequestFeedback)
			r.Post("/{id}/save", sessionHandler.Save)
			r.Put("/{id}/autosave", sessionHandler.Autosave)
		})

		// ──── Notes (students) ────
		r.Route("/notes", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Use(middleware.RequireRole(models.RoleStudent))
			r.Post("/", noteHandler.Create)
			r.Get("/", noteHandler.List)
			r.Get("/{id}", noteHandler.Get)
			r.Put("/{id}", noteHandler.Update)
			r.Delete("/{id}", noteHandler.Delete)
		})

		// ──── Concept Maps (students) ────
		r.Route("/concept-maps", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Use(middleware.RequireRole(models.RoleStudent))
			r.Post("/", mapHandler.Create)
			r.Get("/", mapHandler.List)
			r.Get("/{id}", mapHandler.Get)
			r.Post("/{id}/nodes", mapHandler.AddNode)
			r.Post("/{id}/edges", mapHandler.AddEdge)
		})

		// ──── Uploads (students) ────
		r.Route("/uploads", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Use(middleware.RequireRole(models.RoleStudent))
			r.Post("/", uploadHandler.Upload)
			r.Get("/", uploadHandler.List)
		})

		// ──── Gamification ────
		r.Route("/gamification", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Use(middleware.RequireRole(models.RoleStudent))
			r.Get("/progress", gamHandler.Progress)
		})

		// ──── Dashboards (one per role) ────
		r.Route("/dashboard", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)

			r.With(middleware.RequireRole(models.RoleStudent)).
				Get("/student", dashboardHandler.Student)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleAdvisor))
				r.Get("/advisor", dashboardHandler.Advisor)
				r.Get("/advisor/students/{studentID}", dashboardHandler.AdvisorStudentDetail)
			})

			r.With(middleware.RequireRole(models.RoleLecturer, models.RoleAdmin)).
				Get("/lecturer", dashboardHandler.Lecturer)

			r.With(middleware.RequireRole(models.RoleAdmin)).
				Get("/admin", dashboardHandler.Admin)
		})

		// ──── Peer Reviews (advisors) ────
		r.Route("/peer-reviews", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Use(middleware.RequireRole(models.RoleAdvisor))
			r.Get("/", reviewHandler.List)
			r.Put("/{id}/status", reviewHandler.UpdateStatus)
		})

		// ──── Reports ────
		r.With(jwtAuth.Middleware, middleware.RequireRole(models.RoleStudent)).
			Get("/reports/me", reportHandler.StudentStats)

		// ──── Admin ────
		r.Route("/admin", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Use(middleware.RequireRole(models.RoleAdmin))
			r.Get("/users", userHandler.ListUsers)
			r.Post("/reports", reportHandler.Generate)
			r.Get("/reports", reportHandler.List)
		})

		// ──── Profile ────
		r.Route("/user", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/me", userHandler.GetMe)
			r.Put("/me", userHandler.UpdateMe)
			r.Put("/password", userHandler.ChangePassword)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}

// NewDemo serves a degraded surface when the required backing services are
// not configured. The health endpoint reports demo mode and every API
// route answers 503.
func NewDemo(frontendURL string) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"demo"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.HandleFunc("/*", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":{"code":"DEMO_MODE","message":"Running in demo mode; set DATABASE_URL, REDIS_URL and JWT_SECRET to enable the API"}}`))
		})
	})

	return r
}
