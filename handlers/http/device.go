package httpHandler

import (
	"encoding/json"
	"errors"
	"net/http"

	"iot-hub/entities"
	"iot-hub/repositories"
	"iot-hub/usecases"

	"github.com/gin-gonic/gin"
)

type DeviceHandler struct {
	useCase *usecases.DeviceUseCase
}

func NewDeviceHandler(useCase *usecases.DeviceUseCase) *DeviceHandler {
	return &DeviceHandler{useCase: useCase}
}

// Create handles POST /api/v1/devices (provisioning ahead of first
// check-in).
func (h *DeviceHandler) Create(c *gin.Context) {
	var device entities.Device
	if err := c.ShouldBindJSON(&device); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	if err := h.useCase.Provision(&device); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": device})
}

// List handles GET /api/v1/devices.
func (h *DeviceHandler) List(c *gin.Context) {
	devices, err := h.useCase.ListDevices()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve devices"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": devices, "count": len(devices)})
}

// CheckIn handles GET /api/v1/devices/:device_id. A device calling for
// itself is a heartbeat (last_seen/IP refreshed, reactivated if needed);
// the system credential gets a liveness-corrected read without faking a
// heartbeat. The response reports whether a command is waiting.
func (h *DeviceHandler) CheckIn(c *gin.Context) {
	deviceID := c.Param("device_id")
	p, _ := PrincipalFrom(c)
	if !p.CanAccessDevice(deviceID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "token does not match device"})
		return
	}

	var (
		device *entities.Device
		err    error
	)
	if p.IsSystem() {
		device, err = h.useCase.Inspect(deviceID)
	} else {
		device, err = h.useCase.CheckIn(deviceID, c.ClientIP())
	}
	if err != nil {
		writeDeviceError(c, err)
		return
	}

	resp := gin.H{
		"device_id":       device.DeviceID,
		"status":          "no_command",
		"last_seen":       device.LastSeen,
		"ip_address":      device.IPAddress,
		"pending_command": nil,
	}
	if device.HasPendingCommand() {
		resp["status"] = "command_pending"
		resp["pending_command"] = json.RawMessage(device.PendingCommand)
		resp["command"] = json.RawMessage(device.PendingCommand)
	}
	c.JSON(http.StatusOK, resp)
}

type deviceUpdateRequest struct {
	Name        *string `json:"name"`
	DeviceType  *string `json:"device_type"`
	Location    *string `json:"location"`
	IsActive    *bool   `json:"is_active"`
	LastCommand *string `json:"last_command"`
	// RawMessage keeps the literal "null", which clears the queued command;
	// an absent field leaves it untouched.
	PendingCommand json.RawMessage `json:"pending_command"`
}

// Update handles PATCH /api/v1/devices/:device_id. Devices confirm command
// execution and refresh metadata; the system credential deposits pending
// commands (the command-channel target).
func (h *DeviceHandler) Update(c *gin.Context) {
	deviceID := c.Param("device_id")
	p, _ := PrincipalFrom(c)
	if !p.CanAccessDevice(deviceID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "token does not match device"})
		return
	}

	var req deviceUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	device, err := h.useCase.ApplyUpdate(deviceID, usecases.DeviceUpdate{
		Name:           req.Name,
		DeviceType:     req.DeviceType,
		Location:       req.Location,
		IsActive:       req.IsActive,
		LastCommand:    req.LastCommand,
		PendingCommand: req.PendingCommand,
	}, p, c.ClientIP())
	if err != nil {
		writeDeviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": device})
}

func writeDeviceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
	case errors.Is(err, usecases.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}
