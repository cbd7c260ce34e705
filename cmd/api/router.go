package api

import (
	"net/http"

	"taskflow-backend/internal/auth/delivery"
	authUsecase "taskflow-backend/internal/auth/usecase"
	taskDelivery "taskflow-backend/internal/task/delivery"

	"github.com/gin-gonic/gin"
)

// SetupRoutes mounts every route under /api. A nil tokenUsecase leaves the API open.
func SetupRoutes(r *gin.Engine, tokenUsecase authUsecase.TokenUsecase, taskHandler *taskDelivery.TaskHandler, deviceHandler *delivery.DeviceHandler) {
	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		protected := api.Group("")
		if tokenUsecase != nil {
			protected.Use(delivery.AuthMiddleware(tokenUsecase))
		}

		// Device routes for push notifications
		if deviceHandler != nil {
			devices := protected.Group("/devices")
			{
				devices.POST("", deviceHandler.RegisterDevice)
				devices.DELETE("", deviceHandler.UnregisterDevice)
			}
		}

		taskHandler.RegisterRoutes(protected)
	}
}
