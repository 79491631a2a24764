package cache

import (
	"sync"

	"iot-hub/entities"
)

// LatestCache holds the most recent telemetry record per device so the
// dashboard does not hit the store once per device on every render. Keys
// are device primary keys, not hardware identifiers.
type LatestCache struct {
	mu     sync.RWMutex
	latest map[string]entities.TelemetryRecord
}

func NewLatestCache() *LatestCache {
	return &LatestCache{latest: make(map[string]entities.TelemetryRecord)}
}

// Set stores the record if it is newer than the cached one.
func (c *LatestCache) Set(record entities.TelemetryRecord) {
	if record.DeviceID == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.latest[*record.DeviceID]; ok && existing.Timestamp.After(record.Timestamp) {
		return
	}
	c.latest[*record.DeviceID] = record
}

func (c *LatestCache) Get(deviceID string) (entities.TelemetryRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	record, ok := c.latest[deviceID]
	return record, ok
}

func (c *LatestCache) Stats() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return map[string]interface{}{
		"cached_devices": len(c.latest),
	}
}

func (c *LatestCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latest = make(map[string]entities.TelemetryRecord)
}
