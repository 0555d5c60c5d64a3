package routes

import (
	"time"

	"orchid/handlers"
	"orchid/middleware"
	"orchid/storage"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterSessionRoutes registers the session tracker endpoints.
func RegisterSessionRoutes(r *gin.Engine, sh *handlers.SessionHandler, credStore *storage.Store) {
	api := r.Group("/api/ktv/session")
	{
		api.Use(middleware.JWTAuthKTVMiddleware(credStore))
		api.GET("", sh.GetSession)
		api.POST("/start", sh.StartSession)
		api.POST("/clear", sh.ClearSession)
		api.GET("/history", sh.GetHistory)
	}
}

// RegisterHealthRoute registers the health endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/healthz", handlers.HealthHandler)
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, sh *handlers.SessionHandler, credStore *storage.Store) {
	// Setup global middleware (e.g., CORS) here.
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterSessionRoutes(r, sh, credStore)
	RegisterHealthRoute(r)
}
