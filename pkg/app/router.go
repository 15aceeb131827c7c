package app

import (
	"time"

	"github.com/Asaad942/VidFold/pkg/handlers"
	"github.com/Asaad942/VidFold/pkg/middleware"
	cors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Router builds the HTTP routes.
func (a *App) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), a.Metrics.Middleware())

	corsConfig := cors.Config{
		AllowOrigins:     a.cfg.CORS.Origins(),
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", handlers.IdempotencyHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	}
	router.Use(cors.New(corsConfig))

	h := a.Handlers

	router.GET("/health", h.HealthCheck)
	router.GET("/metrics", gin.WrapH(a.Metrics.Handler()))
	router.POST("/api/videos/callback", h.HandleStatusCallback)

	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/register", h.RegisterUser)
		authRoutes.POST("/login", h.LoginUser)
	}

	protectedRoutes := router.Group("/api")
	protectedRoutes.Use(middleware.AuthMiddleware(a.Tokens))
	{
		protectedRoutes.GET("/profile", h.GetProfile)
		protectedRoutes.DELETE("/account", h.DeleteUser)

		videoRoutes := protectedRoutes.Group("/videos")
		{
			videoRoutes.POST("", h.SubmitVideo)
			videoRoutes.GET("", h.ListVideos)
			videoRoutes.GET("/search", h.SearchVideos)
			videoRoutes.POST("/reconcile", h.ReconcilePending)
			videoRoutes.GET("/:id", h.GetVideo)
			videoRoutes.PATCH("/:id", h.UpdateVideo)
			videoRoutes.DELETE("/:id", h.DeleteVideo)
			videoRoutes.POST("/:id/reconcile", h.ReconcileVideo)
		}
	}

	return router
}
