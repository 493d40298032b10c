package routes

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/edrive/ride-hailing/internal/api/handlers"
	"github.com/edrive/ride-hailing/internal/api/middleware"
	"github.com/edrive/ride-hailing/internal/auth"
	"github.com/edrive/ride-hailing/internal/config"
	"github.com/edrive/ride-hailing/pkg/metrics"
)

// SetupRoutes configures all API routes
func SetupRoutes(r *gin.Engine, h *handlers.Handlers, tokens *auth.Tokens, nrApp *newrelic.Application, cfg *config.Config) {
	// Add New Relic middleware if enabled
	if nrApp != nil {
		r.Use(nrgin.Middleware(nrApp))
	}
	r.Use(middleware.RequestLogger(h.Logger))
	r.Use(cors.New(corsConfig(cfg.CORS)))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "healthy", "connections": h.Hub.GetActiveConnections()})
	})

	if cfg.Metrics.Enabled {
		r.Use(metrics.PrometheusMiddleware())
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	// API v1 routes
	v1 := r.Group("/v1")
	v1.Use(middleware.JWTAuth(tokens))
	{
		// WebSocket connection
		v1.GET("/ws", h.HandleWebSocket)

		v1.GET("/cancel-reasons", h.CancelReasons)
		v1.GET("/places", h.ListPlaces)
		v1.POST("/complaints", h.FileComplaint)

		requests := v1.Group("/requests")
		{
			requests.POST("", middleware.RequireRole(auth.RolePassenger), h.CreateRequest)
			requests.GET("", h.ListRequests)
			requests.GET("/mine", h.MyRequests)
			requests.GET("/:id", h.GetRequest)
			requests.POST("/:id/offers", middleware.RequireRole(auth.RoleDriver), h.CreateOffer)
			requests.GET("/:id/offers", h.ListOffers)
			requests.POST("/:id/accept", middleware.RequireRole(auth.RolePassenger), h.AcceptOffer)
			requests.POST("/:id/start", middleware.RequireRole(auth.RoleDriver), h.StartTrip)
			requests.POST("/:id/complete", middleware.RequireRole(auth.RoleDriver), h.CompleteTrip)
			requests.POST("/:id/cancel", h.CancelRequest)
		}

		trips := v1.Group("/trips")
		{
			trips.POST("/:id/location", h.UpdateLocation)
			trips.GET("/:id/location", h.GetLocation)
			trips.POST("/:id/messages", h.SendMessage)
			trips.GET("/:id/messages", h.GetMessages)
			trips.POST("/:id/block", h.BlockParticipant)
			trips.POST("/:id/report", h.ReportParticipant)
			trips.POST("/:id/reviews", h.CreateReview)
		}

		users := v1.Group("/users")
		{
			users.GET("/:id/rating", h.GetRating)
			users.PUT("/me/device-token", h.RegisterDeviceToken)
		}

		notifications := v1.Group("/notifications")
		{
			notifications.GET("", h.ListNotifications)
			notifications.POST("/read-all", h.MarkAllNotificationsRead)
			notifications.POST("/:id/read", h.MarkNotificationRead)
			notifications.DELETE("/:id", h.DeleteNotification)
		}

		drivers := v1.Group("/drivers", middleware.RequireRole(auth.RoleDriver))
		{
			drivers.POST("/onboarding", h.SubmitOnboarding)
			drivers.GET("/me", h.GetMyProfile)
			drivers.GET("/me/earnings", h.GetEarnings)
		}

		admin := v1.Group("/admin", middleware.RequireRole(auth.RoleAdmin))
		{
			admin.GET("/drivers", h.ListDrivers)
			admin.PUT("/drivers/:id/status", h.UpdateDriverStatus)
			admin.DELETE("/requests/:id", h.DeleteRequest)
			admin.GET("/reports", h.ListReports)
			admin.GET("/complaints", h.ListComplaints)
			admin.PUT("/complaints/:id/status", h.UpdateComplaintStatus)
			admin.POST("/places", h.CreatePlace)
			admin.PUT("/places/:id", h.UpdatePlace)
			admin.DELETE("/places/:id", h.DeletePlace)
		}
	}
}

func corsConfig(c config.CORSConfig) cors.Config {
	cc := cors.Config{
		AllowMethods:     c.AllowedMethods,
		AllowHeaders:     c.AllowedHeaders,
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: false,
	}
	for _, o := range c.AllowedOrigins {
		if o == "*" {
			cc.AllowAllOrigins = true
			return cc
		}
	}
	cc.AllowOrigins = c.AllowedOrigins
	return cc
}
