package repositories

import (
	"errors"
	"time"

	"iot-hub/db"
	"iot-hub/entities"

	"gorm.io/gorm"
)

type devicePgRepository struct {
	db db.Database
}

func NewDevicePgRepository(database db.Database) DeviceRepository {
	return &devicePgRepository{db: database}
}

func (r *devicePgRepository) Create(device *entities.Device) error {
	return r.db.GetDB().Create(device).Error
}

func (r *devicePgRepository) GetByDeviceID(deviceID string) (*entities.Device, error) {
	var device entities.Device
	err := r.db.GetDB().Where("device_id = ?", deviceID).First(&device).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &device, nil
}

func (r *devicePgRepository) GetAll() ([]entities.Device, error) {
	var devices []entities.Device
	err := r.db.GetDB().Order("name ASC").Find(&devices).Error
	return devices, err
}

func (r *devicePgRepository) ListActiveSeenBefore(cutoff time.Time) ([]entities.Device, error) {
	var devices []entities.Device
	err := r.db.GetDB().
		Where("is_active = ? AND last_seen <= ?", true, cutoff).
		Find(&devices).Error
	return devices, err
}

func (r *devicePgRepository) UpdateFields(deviceID string, fields map[string]interface{}) error {
	res := r.db.GetDB().Model(&entities.Device{}).Where("device_id = ?", deviceID).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
