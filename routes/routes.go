package routes

import (
	"stockwatch_backend/controllers"
	"stockwatch_backend/middleware"
	"stockwatch_backend/scheduler"
	"stockwatch_backend/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRoutes sets up all API routes
func SetupRoutes(router *gin.Engine, db *gorm.DB, quotes services.QuoteSource,
	hub *services.RealtimeHub, sched *scheduler.Scheduler) {

	// Initialize controllers
	authController := controllers.NewAuthController(db)
	watchlistController := controllers.NewWatchlistController(db)
	alertController := controllers.NewAlertController(db)
	marketController := controllers.NewMarketController(db, quotes, sched)

	api := router.Group("/api")
	{
		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/register", authController.Register)
			auth.POST("/login", middleware.LoginRateLimitMiddleware(), authController.Login)
			auth.GET("/me", middleware.JWTAuthMiddleware(), authController.Me)
		}

		// Watchlist routes
		watchlist := api.Group("/watchlist")
		watchlist.Use(middleware.JWTAuthMiddleware())
		{
			watchlist.GET("", watchlistController.GetWatchlist)
			watchlist.POST("", watchlistController.AddToWatchlist)
			watchlist.PUT("/:id", watchlistController.UpdateWatchlistEntry)
			watchlist.DELETE("/:id", watchlistController.DeleteWatchlistEntry)
		}

		// Alert routes
		alerts := api.Group("/alerts")
		alerts.Use(middleware.JWTAuthMiddleware())
		{
			alerts.GET("", alertController.GetAlerts)
			alerts.GET("/triggered", alertController.GetTriggeredAlerts)
			alerts.POST("", alertController.CreateAlert)
			alerts.PUT("/:id", alertController.UpdateAlert)
			alerts.POST("/:id/reset", alertController.ResetAlert)
			alerts.DELETE("/:id", alertController.DeleteAlert)
		}

		// Market data routes
		market := api.Group("/market")
		market.Use(middleware.JWTAuthMiddleware())
		{
			market.GET("/search", marketController.SearchSymbols)
			market.POST("/bulk", marketController.GetBulkMarketData)
			market.POST("/refresh", marketController.RefreshMarketData)
			market.GET("/:symbol", marketController.GetMarketData)
			market.GET("/:symbol/history", marketController.GetHistoricalData)
		}
	}

	// Realtime channel; the hub validates the handshake token itself
	router.GET("/ws", hub.HandleWebSocket)
}
