package usecases

import (
	"testing"
	"time"

	"iot-hub/repositories"

	"github.com/stretchr/testify/require"
)

func TestEvaluateFlagsTimedOutDevice(t *testing.T) {
	database := newTestDB(t)
	repo := repositories.NewDevicePgRepository(database)
	sink := &fakeSink{}
	liveness := NewLivenessUseCase(repo, 5*time.Minute, sink)

	now := time.Date(2025, 6, 4, 12, 0, 0, 0, time.UTC)
	device := seedDevice(t, repo, "A113", now.Add(-6*time.Minute), true)

	changed, err := liveness.Evaluate(device, now)
	require.NoError(t, err)
	require.True(t, changed)
	require.False(t, device.IsActive)
	require.True(t, sink.seen("device_offline"))

	stored, err := repo.GetByDeviceID("A113")
	require.NoError(t, err)
	require.False(t, stored.IsActive)
	// Only the active flag was written.
	require.Equal(t, now.Add(-6*time.Minute).Unix(), stored.LastSeen.Unix())

	// Already-offline devices are left alone.
	changed, err = liveness.Evaluate(stored, now)
	require.NoError(t, err)
	require.False(t, changed)
}

func TestEvaluateKeepsFreshDeviceOnline(t *testing.T) {
	database := newTestDB(t)
	repo := repositories.NewDevicePgRepository(database)
	liveness := NewLivenessUseCase(repo, 5*time.Minute, nil)

	now := time.Date(2025, 6, 4, 12, 0, 0, 0, time.UTC)
	device := seedDevice(t, repo, "B201", now.Add(-4*time.Minute), true)

	changed, err := liveness.Evaluate(device, now)
	require.NoError(t, err)
	require.False(t, changed)
	require.True(t, device.IsActive)
}

func TestTouchReactivatesOnCheckIn(t *testing.T) {
	database := newTestDB(t)
	repo := repositories.NewDevicePgRepository(database)
	sink := &fakeSink{}
	liveness := NewLivenessUseCase(repo, 5*time.Minute, sink)

	now := time.Date(2025, 6, 4, 12, 0, 0, 0, time.UTC)
	device := seedDevice(t, repo, "C330", now.Add(-1*time.Hour), false)

	require.NoError(t, liveness.Touch(device, now, "10.0.0.42"))
	require.True(t, device.IsActive)
	require.Equal(t, "10.0.0.42", device.IPAddress)
	require.True(t, sink.seen("device_online"))

	stored, err := repo.GetByDeviceID("C330")
	require.NoError(t, err)
	require.True(t, stored.IsActive)
	require.Equal(t, now.Unix(), stored.LastSeen.Unix())
	require.Equal(t, "10.0.0.42", stored.IPAddress)
}

func TestSweepFlagsOnlyStaleActiveDevices(t *testing.T) {
	database := newTestDB(t)
	repo := repositories.NewDevicePgRepository(database)
	liveness := NewLivenessUseCase(repo, 5*time.Minute, nil)

	now := time.Date(2025, 6, 4, 12, 0, 0, 0, time.UTC)
	seedDevice(t, repo, "stale-active", now.Add(-10*time.Minute), true)
	seedDevice(t, repo, "fresh-active", now.Add(-1*time.Minute), true)
	seedDevice(t, repo, "stale-offline", now.Add(-1*time.Hour), false)

	flagged, err := liveness.Sweep(now)
	require.NoError(t, err)
	require.Equal(t, 1, flagged)

	stored, err := repo.GetByDeviceID("stale-active")
	require.NoError(t, err)
	require.False(t, stored.IsActive)

	stored, err = repo.GetByDeviceID("fresh-active")
	require.NoError(t, err)
	require.True(t, stored.IsActive)

	// Second sweep at the same instant changes nothing.
	flagged, err = liveness.Sweep(now)
	require.NoError(t, err)
	require.Equal(t, 0, flagged)
}
