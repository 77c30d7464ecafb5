package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/swipehq/interview-backend/internal/config"
	"github.com/swipehq/interview-backend/internal/handler"
	"github.com/swipehq/interview-backend/internal/middleware"
	"github.com/swipehq/interview-backend/internal/response"
	"github.com/swipehq/interview-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth      *handler.AuthHandler
	Candidate *handler.CandidateHandler
	Interview *handler.InterviewHandler
	Dashboard *handler.DashboardHandler
	WS        *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Prometheus metrics.
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Rate limiter for provider-backed routes (10 requests per minute
	// per IP). Generation and regeneration each cost a model call.
	providerLimiter := middleware.NewRateLimiter(10, time.Minute)

	// ─── 1. Auth Group (Public) ────────────────────────────────────────
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/login", handlers.Auth.Login)
		auth.GET("/me", middleware.RequireReviewerJWT(authService), handlers.Auth.Me)
	}

	// ─── 2. Candidate Intake (Public) ──────────────────────────────────
	candidates := router.Group("/api/v1/candidates")
	{
		candidates.POST("", handlers.Candidate.Add)
	}

	// ─── 3. Interview Group (Public, candidate-facing) ─────────────────
	interviewAPI := router.Group("/api/v1/interview")
	{
		interviewAPI.GET("", handlers.Interview.Current)
		interviewAPI.DELETE("", handlers.Interview.Discard)
		interviewAPI.POST("/start", handlers.Interview.Start)
		interviewAPI.POST("/questions", providerLimiter.Middleware(), handlers.Interview.Generate)
		interviewAPI.POST("/questions/default", handlers.Interview.UseDefaults)
		interviewAPI.POST("/questions/:index/regenerate", providerLimiter.Middleware(), handlers.Interview.Regenerate)
		interviewAPI.PUT("/questions/:index/draft", handlers.Interview.Draft)
		interviewAPI.POST("/questions/:index/submit", handlers.Interview.Submit)
		interviewAPI.POST("/evaluate", providerLimiter.Middleware(), handlers.Interview.Evaluate)
		interviewAPI.POST("/pause", handlers.Interview.Pause)
		interviewAPI.POST("/resume", handlers.Interview.Resume)
		interviewAPI.GET("/snapshot", handlers.Interview.Snapshot)
		interviewAPI.POST("/restore", handlers.Interview.Restore)
	}

	// ─── 4. Dashboard Group (Reviewer JWT) ─────────────────────────────
	dashboard := router.Group("/api/v1/dashboard")
	dashboard.Use(middleware.RequireReviewerJWT(authService))
	{
		dashboard.GET("/candidates", handlers.Dashboard.Candidates)
		dashboard.GET("/candidates/:id", handlers.Dashboard.CandidateDetail)
		dashboard.GET("/sessions/:id", handlers.Dashboard.Session)
	}

	// ─── 5. WebSocket Group (Reviewer WS Auth) ─────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireReviewerWSAuth(authService))
	{
		ws.GET("/dashboard", handlers.WS.DashboardStream)
	}

	return router
}
