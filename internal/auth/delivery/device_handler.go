package delivery

import (
	"net/http"

	"taskflow-backend/internal/auth/dto"
	"taskflow-backend/internal/auth/repository"

	"github.com/gin-gonic/gin"
)

// DeviceHandler registers browsers and phones for push notifications
type DeviceHandler struct {
	devices repository.DeviceTokenRepository
}

func NewDeviceHandler(devices repository.DeviceTokenRepository) *DeviceHandler {
	return &DeviceHandler{devices: devices}
}

func (h *DeviceHandler) RegisterDevice(c *gin.Context) {
	var req dto.RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	subject := "anonymous"
	if p := PrincipalFrom(c); p != nil {
		subject = p.Subject
	}

	if err := h.devices.SaveToken(c.Request.Context(), subject, req.Token, req.DeviceInfo); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "device registered"})
}

func (h *DeviceHandler) UnregisterDevice(c *gin.Context) {
	var req dto.RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.devices.DeleteToken(c.Request.Context(), req.Token); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "device removed"})
}
