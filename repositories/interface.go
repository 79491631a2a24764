package repositories

import (
	"errors"
	"time"

	"iot-hub/entities"
)

// ErrNotFound is returned when a referenced device or task does not exist.
var ErrNotFound = errors.New("not found")

type DeviceRepository interface {
	Create(device *entities.Device) error
	GetByDeviceID(deviceID string) (*entities.Device, error)
	GetAll() ([]entities.Device, error)
	// ListActiveSeenBefore returns devices still flagged active whose last
	// heartbeat is at or before the cutoff (the liveness sweep input).
	ListActiveSeenBefore(cutoff time.Time) ([]entities.Device, error)
	// UpdateFields persists only the named columns, keyed by the hardware
	// device identifier. Partial updates keep concurrent writers from
	// clobbering each other's fields.
	UpdateFields(deviceID string, fields map[string]interface{}) error
}

type TelemetryRepository interface {
	Create(record *entities.TelemetryRecord) error
	// ListByDevice returns records most-recent-first.
	ListByDevice(deviceID string, limit int) ([]entities.TelemetryRecord, error)
	LatestByDevice(deviceID string) (*entities.TelemetryRecord, error)
}

type TaskRepository interface {
	Create(task *entities.ScheduledTask) error
	GetByID(id string) (*entities.ScheduledTask, error)
	GetAll() ([]entities.ScheduledTask, error)
	// DueOneOff returns pending non-recurrent tasks whose execution time
	// has passed.
	DueOneOff(now time.Time) ([]entities.ScheduledTask, error)
	// PendingRecurrent returns all pending recurrent tasks; day/time
	// filtering happens in the selector.
	PendingRecurrent() ([]entities.ScheduledTask, error)
	UpdateFields(id string, fields map[string]interface{}) error
	ReplaceDevices(task *entities.ScheduledTask, devices []entities.Device) error
	Save(task *entities.ScheduledTask) error
}
