package api

import (
	"taskflow-backend/internal/auth/delivery"
	authRepo "taskflow-backend/internal/auth/repository"
	authUsecase "taskflow-backend/internal/auth/usecase"
	taskDelivery "taskflow-backend/internal/task/delivery"
	taskUsecase "taskflow-backend/internal/task/usecase"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	tokenUsecase  authUsecase.TokenUsecase
	taskHandler   *taskDelivery.TaskHandler
	deviceHandler *delivery.DeviceHandler
}

// NewHandler builds the HTTP layer. tokenUc and devices may be nil.
func NewHandler(svc *taskUsecase.Services, reconciler taskDelivery.Reconciler, devices authRepo.DeviceTokenRepository, tokenUc authUsecase.TokenUsecase) *Handler {
	h := &Handler{
		tokenUsecase: tokenUc,
		taskHandler:  taskDelivery.NewTaskHandler(svc, reconciler),
	}
	if devices != nil {
		h.deviceHandler = delivery.NewDeviceHandler(devices)
	}
	return h
}

// Router returns a gin engine with CORS and every route mounted
func (h *Handler) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h.tokenUsecase, h.taskHandler, h.deviceHandler)
	return r
}
