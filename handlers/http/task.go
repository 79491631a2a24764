package httpHandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"iot-hub/entities"
	"iot-hub/repositories"
	"iot-hub/usecases"

	"github.com/gin-gonic/gin"
)

type TaskHandler struct {
	useCase *usecases.TaskUseCase
}

func NewTaskHandler(useCase *usecases.TaskUseCase) *TaskHandler {
	return &TaskHandler{useCase: useCase}
}

type taskRequest struct {
	Name          string              `json:"name"`
	CommandJSON   json.RawMessage     `json:"command_json"`
	DeviceIDs     []string            `json:"device_ids"`
	ExecutionTime *time.Time          `json:"execution_time"`
	IsRecurrent   bool                `json:"is_recurrent"`
	RecurrentTime entities.TimeOfDay  `json:"recurrent_time"`
	RecurrentDays entities.WeekdaySet `json:"recurrent_days"`
}

// Create handles POST /api/v1/tasks.
func (h *TaskHandler) Create(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	task := &entities.ScheduledTask{
		Name:          req.Name,
		CommandJSON:   string(req.CommandJSON),
		ExecutionTime: req.ExecutionTime,
		IsRecurrent:   req.IsRecurrent,
		RecurrentTime: req.RecurrentTime,
		RecurrentDays: req.RecurrentDays,
	}
	if err := h.useCase.Create(task, req.DeviceIDs); err != nil {
		writeTaskError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": task})
}

// List handles GET /api/v1/tasks.
func (h *TaskHandler) List(c *gin.Context) {
	tasks, err := h.useCase.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve tasks"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": tasks, "count": len(tasks)})
}

// Get handles GET /api/v1/tasks/:id.
func (h *TaskHandler) Get(c *gin.Context) {
	task, err := h.useCase.Get(c.Param("id"))
	if err != nil {
		writeTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": task})
}

type taskUpdateRequest struct {
	Name          *string              `json:"name"`
	CommandJSON   json.RawMessage      `json:"command_json"`
	DeviceIDs     []string             `json:"device_ids"`
	ExecutionTime *time.Time           `json:"execution_time"`
	IsRecurrent   *bool                `json:"is_recurrent"`
	RecurrentTime *entities.TimeOfDay  `json:"recurrent_time"`
	RecurrentDays *entities.WeekdaySet `json:"recurrent_days"`
}

// Update handles PATCH /api/v1/tasks/:id.
func (h *TaskHandler) Update(c *gin.Context) {
	var req taskUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	update := usecases.TaskUpdate{
		Name:          req.Name,
		ExecutionTime: req.ExecutionTime,
		IsRecurrent:   req.IsRecurrent,
		RecurrentTime: req.RecurrentTime,
		RecurrentDays: req.RecurrentDays,
		DeviceIDs:     req.DeviceIDs,
	}
	if len(req.CommandJSON) > 0 {
		command := string(req.CommandJSON)
		update.CommandJSON = &command
	}

	task, err := h.useCase.Update(c.Param("id"), update)
	if err != nil {
		writeTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": task})
}

// Cancel handles POST /api/v1/tasks/:id/cancel.
func (h *TaskHandler) Cancel(c *gin.Context) {
	if err := h.useCase.Cancel(c.Param("id")); err != nil {
		writeTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": entities.TaskCancelled})
}

func writeTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, usecases.ErrNotPending):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}
