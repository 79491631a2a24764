package cache

import (
	"testing"
	"time"

	"iot-hub/entities"

	"github.com/stretchr/testify/require"
)

func record(deviceID string, temp float64, at time.Time) entities.TelemetryRecord {
	return entities.TelemetryRecord{DeviceID: &deviceID, Temperature: &temp, Timestamp: at}
}

func TestSetKeepsNewestRecord(t *testing.T) {
	c := NewLatestCache()
	now := time.Date(2025, 6, 4, 12, 0, 0, 0, time.UTC)

	c.Set(record("dev-1", 20, now))
	c.Set(record("dev-1", 25, now.Add(-time.Minute)))

	got, ok := c.Get("dev-1")
	require.True(t, ok)
	require.Equal(t, 20.0, *got.Temperature, "older record must not replace a newer one")

	c.Set(record("dev-1", 22, now.Add(time.Minute)))
	got, ok = c.Get("dev-1")
	require.True(t, ok)
	require.Equal(t, 22.0, *got.Temperature)
}

func TestSetIgnoresOrphanRecords(t *testing.T) {
	c := NewLatestCache()
	c.Set(entities.TelemetryRecord{Timestamp: time.Now()})
	require.Equal(t, 0, c.Stats()["cached_devices"])
}

func TestClear(t *testing.T) {
	c := NewLatestCache()
	c.Set(record("dev-1", 20, time.Now()))
	c.Set(record("dev-2", 21, time.Now()))
	require.Equal(t, 2, c.Stats()["cached_devices"])

	c.Clear()
	require.Equal(t, 0, c.Stats()["cached_devices"])
	_, ok := c.Get("dev-1")
	require.False(t, ok)
}
