package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TelemetryRecord is one sensor submission from a device. Records are
// immutable once created and survive as orphaned history if the owning
// device is removed, so DeviceID is nullable.
type TelemetryRecord struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	DeviceID     *string   `gorm:"index;type:varchar(36)" json:"device_id,omitempty"`
	Temperature  *float64  `json:"temperature_celsius,omitempty"`
	Humidity     *float64  `json:"humidity_percent,omitempty"`
	RelayState   bool      `json:"relay_state"`
	ButtonAction string    `gorm:"type:varchar(50)" json:"last_button_action,omitempty"`
	RawData      string    `gorm:"type:text" json:"raw_data,omitempty"` // forward-compatible extra fields
	Timestamp    time.Time `gorm:"index" json:"timestamp"`
}

func (r *TelemetryRecord) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}
	return
}
