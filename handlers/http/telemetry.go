package httpHandler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"iot-hub/usecases"

	"github.com/gin-gonic/gin"
)

type TelemetryHandler struct {
	useCase *usecases.DeviceUseCase
}

func NewTelemetryHandler(useCase *usecases.DeviceUseCase) *TelemetryHandler {
	return &TelemetryHandler{useCase: useCase}
}

type telemetryRequest struct {
	Temperature  *float64        `json:"temperature_celsius"`
	Humidity     *float64        `json:"humidity_percent"`
	RelayState   bool            `json:"relay_state"`
	ButtonAction string          `json:"last_button_action"`
	RawData      json.RawMessage `json:"raw_data"`
	Name         *string         `json:"name"`
	DeviceType   *string         `json:"device_type"`
	Location     *string         `json:"location"`
}

// Submit handles POST /api/v1/telemetry. Only a device can submit, and it
// always counts as a heartbeat for that device.
func (h *TelemetryHandler) Submit(c *gin.Context) {
	p, _ := PrincipalFrom(c)
	if p.IsSystem() || p.Device == nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "telemetry submission requires a device token"})
		return
	}

	var req telemetryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	record, err := h.useCase.SubmitTelemetry(p.Device, usecases.TelemetryInput{
		Temperature:  req.Temperature,
		Humidity:     req.Humidity,
		RelayState:   req.RelayState,
		ButtonAction: req.ButtonAction,
		RawData:      req.RawData,
		Name:         req.Name,
		DeviceType:   req.DeviceType,
		Location:     req.Location,
	}, c.ClientIP())
	if err != nil {
		writeDeviceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "telemetry received", "data": record})
}

// History handles GET /api/v1/devices/:device_id/telemetry, most recent
// first.
func (h *TelemetryHandler) History(c *gin.Context) {
	deviceID := c.Param("device_id")
	p, _ := PrincipalFrom(c)
	if !p.CanAccessDevice(deviceID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "token does not match device"})
		return
	}

	limit := 50
	if l := c.Query("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 {
			limit = v
		}
	}

	records, err := h.useCase.History(deviceID, limit)
	if err != nil {
		writeDeviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": records, "count": len(records)})
}
