package http

import (
	"net/http"

	"pixelcanvas/internal/config"
	"pixelcanvas/internal/http/handlers"
	"pixelcanvas/internal/http/middleware"
	"pixelcanvas/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps is everything the router needs. Handler and Health must be set; Hub may be nil in tests.
type Deps struct {
	Handler *handlers.Handler
	Health  *handlers.HealthHandler
	Hub     *ws.Hub
	Config  *config.Config
}

// NewRouter builds the engine with the standard middleware stack and every route.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(), middleware.Metrics(), cors(d.Config.AllowedOrigin))
	RegisterRoutes(r, d)
	return r
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	h := d.Handler
	cfg := d.Config

	// Health checks (no rate limiting)
	r.GET("/health", d.Health.Health)
	r.GET("/healthz", d.Health.Liveness)
	r.GET("/readyz", d.Health.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/version", h.Version)
	r.GET("/env.js", h.EnvJS)

	// raw body, no rate limit: Stripe retries on its own schedule
	r.POST("/webhook/stripe", h.StripeWebhook)

	if d.Hub != nil {
		r.GET("/ws", ws.HandleWS(d.Hub, cfg.AllowedOrigin))
	}

	api := r.Group("/api")
	api.Use(middleware.RedisRateLimit(cfg.APIRateLimit, cfg.APIRateWindow))
	registerAPIRoutes(api, h, cfg)

	if cfg.StaticDir != "" {
		r.Static("/assets", cfg.StaticDir+"/assets")
		r.StaticFile("/", cfg.StaticDir+"/index.html")
	}
	r.NoRoute(handlers.NotFound(cfg.StaticDir))
}

func registerAPIRoutes(api *gin.RouterGroup, h *handlers.Handler, cfg *config.Config) {
	api.POST("/auth/dev", h.DevAuth)

	placeRL := middleware.UserRateLimit("place", cfg.PlaceRateLimit, cfg.PlaceRateWindow)
	chatRL := middleware.UserRateLimit("chat", cfg.ChatRateLimit, cfg.ChatRateWindow)

	// Pixels
	pixels := api.Group("/pixels")
	{
		pixels.POST("/place", middleware.JWT(), placeRL, h.PlacePixel)
		pixels.GET("/box", h.PixelsBox)
	}

	// Leaderboard
	lb := api.Group("/leaderboard")
	{
		lb.GET("/top", h.GetLeaderboard)
		lb.GET("/rank", middleware.JWT(), h.GetMyRank)
	}

	// Users. Static segments are registered before /:uid.
	users := api.Group("/users")
	{
		users.POST("/create", middleware.JWT(), h.CreateUser)
		users.GET("/me/stats", middleware.JWT(), h.MyStats)
		users.GET("/search/query", h.SearchUsers)
		users.GET("/:uid", h.GetUser)
		users.POST("/:uid/bio", middleware.JWT(), h.UpdateBio)
		users.POST("/:uid/profile", middleware.JWT(), h.UpdateProfile)
		users.DELETE("/:uid", middleware.JWT(), h.DeleteUser)
	}

	// Chat
	chat := api.Group("/chat")
	{
		chat.GET("/recent", h.RecentChat)
		chat.POST("/send", middleware.JWT(), chatRL, h.SendChat)
	}

	// Payments
	payments := api.Group("/payments")
	payments.Use(middleware.JWT())
	{
		payments.POST("/create-session", h.CreateCheckoutSession)
		payments.GET("/customer-portal", h.CustomerPortal)
	}

	// Admin
	admin := api.Group("/admin")
	admin.Use(middleware.JWT())
	{
		admin.GET("/stats", h.GetAdminStats)
		admin.POST("/users/:uid/credits", h.GrantCredits)
		admin.GET("/audit", h.AdminAudit)
	}
}

// cors allows the configured origin, or any origin when none is configured.
func cors(allowed string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && (allowed == "" || origin == allowed) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
