package repositories

import (
	"errors"

	"iot-hub/db"
	"iot-hub/entities"

	"gorm.io/gorm"
)

type telemetryPgRepository struct {
	db db.Database
}

func NewTelemetryPgRepository(database db.Database) TelemetryRepository {
	return &telemetryPgRepository{db: database}
}

func (r *telemetryPgRepository) Create(record *entities.TelemetryRecord) error {
	return r.db.GetDB().Create(record).Error
}

func (r *telemetryPgRepository) ListByDevice(deviceID string, limit int) ([]entities.TelemetryRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []entities.TelemetryRecord
	err := r.db.GetDB().
		Where("device_id = ?", deviceID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

func (r *telemetryPgRepository) LatestByDevice(deviceID string) (*entities.TelemetryRecord, error) {
	var record entities.TelemetryRecord
	err := r.db.GetDB().
		Where("device_id = ?", deviceID).
		Order("timestamp DESC").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}
