package repositories

import (
	"errors"
	"time"

	"iot-hub/db"
	"iot-hub/entities"

	"gorm.io/gorm"
)

type taskPgRepository struct {
	db db.Database
}

func NewTaskPgRepository(database db.Database) TaskRepository {
	return &taskPgRepository{db: database}
}

func (r *taskPgRepository) Create(task *entities.ScheduledTask) error {
	return r.db.GetDB().Create(task).Error
}

func (r *taskPgRepository) GetByID(id string) (*entities.ScheduledTask, error) {
	var task entities.ScheduledTask
	err := r.db.GetDB().Preload("Devices").Where("id = ?", id).First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &task, nil
}

func (r *taskPgRepository) GetAll() ([]entities.ScheduledTask, error) {
	var tasks []entities.ScheduledTask
	err := r.db.GetDB().Preload("Devices").Order("created_at DESC").Find(&tasks).Error
	return tasks, err
}

func (r *taskPgRepository) DueOneOff(now time.Time) ([]entities.ScheduledTask, error) {
	var tasks []entities.ScheduledTask
	err := r.db.GetDB().
		Where("is_recurrent = ? AND status = ? AND execution_time IS NOT NULL AND execution_time <= ?",
			false, entities.TaskPending, now).
		Order("execution_time ASC").
		Find(&tasks).Error
	return tasks, err
}

func (r *taskPgRepository) PendingRecurrent() ([]entities.ScheduledTask, error) {
	var tasks []entities.ScheduledTask
	err := r.db.GetDB().
		Where("is_recurrent = ? AND status = ?", true, entities.TaskPending).
		Order("created_at ASC").
		Find(&tasks).Error
	return tasks, err
}

func (r *taskPgRepository) UpdateFields(id string, fields map[string]interface{}) error {
	res := r.db.GetDB().Model(&entities.ScheduledTask{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *taskPgRepository) ReplaceDevices(task *entities.ScheduledTask, devices []entities.Device) error {
	return r.db.GetDB().Model(task).Association("Devices").Replace(devices)
}

func (r *taskPgRepository) Save(task *entities.ScheduledTask) error {
	return r.db.GetDB().Save(task).Error
}
