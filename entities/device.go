package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Device is the registry record for one ESP8266-class unit. DeviceID is the
// hardware identifier the device sends with every request (e.g. "A113") and
// doubles as its authentication token.
type Device struct {
	ID             string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	DeviceID       string    `gorm:"uniqueIndex;type:varchar(50)" json:"device_id"`
	Name           string    `gorm:"type:varchar(100)" json:"name"`
	DeviceType     string    `gorm:"type:varchar(100)" json:"device_type"`
	Location       string    `gorm:"type:varchar(100)" json:"location"`
	IPAddress      string    `gorm:"type:varchar(45)" json:"ip_address,omitempty"`
	IsActive       bool      `json:"is_active"`
	PendingCommand string    `gorm:"type:text" json:"pending_command,omitempty"` // JSON payload, empty when none queued
	LastCommand    string    `gorm:"type:varchar(255)" json:"last_command,omitempty"`
	LastSeen       time.Time `json:"last_seen"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (d *Device) BeforeCreate(tx *gorm.DB) (err error) {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.Name == "" {
		d.Name = "IoT Device"
	}
	if d.DeviceType == "" {
		d.DeviceType = "Generic"
	}
	if d.Location == "" {
		d.Location = "Unknown"
	}
	if d.LastSeen.IsZero() {
		d.LastSeen = time.Now().UTC()
	}
	return
}

// HasPendingCommand reports whether a command is queued for the device.
func (d *Device) HasPendingCommand() bool {
	return d.PendingCommand != "" && d.PendingCommand != "null"
}
