package usecases

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"iot-hub/db"
	"iot-hub/entities"
	"iot-hub/repositories"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) db.Database {
	t.Helper()
	dsn := fmt.Sprintf("file:usecases-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&entities.Device{}, &entities.TelemetryRecord{}, &entities.ScheduledTask{}))
	return &db.GormDatabase{DB: gdb}
}

func seedDevice(t *testing.T, repo repositories.DeviceRepository, deviceID string, lastSeen time.Time, active bool) *entities.Device {
	t.Helper()
	device := &entities.Device{
		DeviceID: deviceID,
		Name:     "sensor " + deviceID,
		LastSeen: lastSeen,
		IsActive: active,
	}
	require.NoError(t, repo.Create(device))
	return device
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

type fakeSink struct {
	mu     sync.Mutex
	events []string
}

func (s *fakeSink) Publish(event string, data map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *fakeSink) seen(event string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		if e == event {
			return true
		}
	}
	return false
}

type fakeChannel struct {
	mu     sync.Mutex
	pushes map[string][]string
	fail   map[string]error
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{pushes: map[string][]string{}, fail: map[string]error{}}
}

func (f *fakeChannel) Push(ctx context.Context, deviceID string, payload string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushes[deviceID] = append(f.pushes[deviceID], payload)
	return f.fail[deviceID]
}

func (f *fakeChannel) pushCount(deviceID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pushes[deviceID])
}
