package entities

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Task statuses. One-off tasks end in EXECUTED or FAILED; recurring tasks
// stay PENDING across days until an operator cancels them.
const (
	TaskPending   = "PENDING"
	TaskExecuted  = "EXECUTED"
	TaskFailed    = "FAILED"
	TaskCancelled = "CANCELLED"
)

// ScheduledTask is an operator-authored command delivery, either one-off
// (ExecutionTime) or recurring (RecurrentTime on the RecurrentDays weekday
// set, evaluated in the server's local timezone).
type ScheduledTask struct {
	ID            string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name          string     `gorm:"type:varchar(255)" json:"name"`
	CommandJSON   string     `gorm:"type:text" json:"command_json"`
	Devices       []Device   `gorm:"many2many:task_devices" json:"devices,omitempty"`
	ExecutionTime *time.Time `json:"execution_time,omitempty"`
	IsRecurrent   bool       `json:"is_recurrent"`
	RecurrentTime TimeOfDay  `gorm:"type:varchar(8)" json:"recurrent_time"`
	RecurrentDays WeekdaySet `gorm:"type:varchar(15)" json:"recurrent_days"`
	LastRunAt     *time.Time `json:"last_run_at,omitempty"`
	Status        string     `gorm:"type:varchar(50)" json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
}

func (t *ScheduledTask) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Status == "" {
		t.Status = TaskPending
	}
	return
}

// Validate enforces the creation-time rules: the core never dispatches a
// task it cannot interpret.
func (t *ScheduledTask) Validate() error {
	if t.Name == "" {
		return errors.New("task name is required")
	}
	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(t.CommandJSON), &payload); err != nil {
		return errors.New("command_json must be a JSON object")
	}
	if t.IsRecurrent {
		if !t.RecurrentTime.Valid {
			return errors.New("recurrent task requires recurrent_time")
		}
		if len(t.RecurrentDays) == 0 {
			return errors.New("recurrent task requires at least one weekday")
		}
	} else if t.ExecutionTime == nil {
		return errors.New("one-off task requires execution_time")
	}
	return nil
}

// RanOn reports whether the task's last dispatch attempt happened on the
// same calendar date as now. Both instants must be in the same location.
func (t *ScheduledTask) RanOn(now time.Time) bool {
	if t.LastRunAt == nil {
		return false
	}
	y1, m1, d1 := t.LastRunAt.In(now.Location()).Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
