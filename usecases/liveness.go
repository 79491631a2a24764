package usecases

import (
	"time"

	"iot-hub/entities"
	"iot-hub/repositories"

	"github.com/sirupsen/logrus"
)

// EventSink receives observability events (device online/offline, task
// dispatched). The websocket hub implements it; a nil sink is allowed.
type EventSink interface {
	Publish(event string, data map[string]interface{})
}

// LivenessUseCase flips devices between online and offline based on the
// heartbeat timeout. Evaluate is invoked from three independent call
// sites (periodic sweep, detail fetch, dashboard render) and must agree
// across all of them.
type LivenessUseCase struct {
	devices repositories.DeviceRepository
	timeout time.Duration
	events  EventSink
}

func NewLivenessUseCase(devices repositories.DeviceRepository, timeout time.Duration, events EventSink) *LivenessUseCase {
	return &LivenessUseCase{devices: devices, timeout: timeout, events: events}
}

// Timeout returns the configured heartbeat window.
func (uc *LivenessUseCase) Timeout() time.Duration {
	return uc.timeout
}

// Evaluate corrects the cached active flag against now. Only the is_active
// column is persisted. The call is idempotent: a second invocation with
// the same now finds the flag already corrected and writes nothing.
func (uc *LivenessUseCase) Evaluate(device *entities.Device, now time.Time) (bool, error) {
	if !device.IsActive || now.Sub(device.LastSeen) < uc.timeout {
		return false, nil
	}
	if err := uc.devices.UpdateFields(device.DeviceID, map[string]interface{}{"is_active": false}); err != nil {
		return false, err
	}
	device.IsActive = false
	logrus.WithFields(logrus.Fields{
		"device_id": device.DeviceID,
		"last_seen": device.LastSeen,
	}).Warn("device marked offline after heartbeat timeout")
	uc.publish("device_offline", device)
	return true, nil
}

// Touch records a heartbeat: refreshes last_seen and the caller IP, and
// reactivates the device if it was flagged offline. A device that just
// spoke is never simultaneously marked timed out.
func (uc *LivenessUseCase) Touch(device *entities.Device, now time.Time, ip string) error {
	fields := map[string]interface{}{"last_seen": now}
	if ip != "" {
		fields["ip_address"] = ip
	}
	reactivated := !device.IsActive
	if reactivated {
		fields["is_active"] = true
	}
	if err := uc.devices.UpdateFields(device.DeviceID, fields); err != nil {
		return err
	}
	device.LastSeen = now
	if ip != "" {
		device.IPAddress = ip
	}
	device.IsActive = true
	if reactivated {
		logrus.WithField("device_id", device.DeviceID).Info("device reactivated on check-in")
		uc.publish("device_online", device)
	}
	return nil
}

// Sweep evaluates every active device against now and returns how many
// were flagged offline. A store failure aborts the sweep for this cycle;
// devices already flagged stay flagged, the next cycle self-corrects.
func (uc *LivenessUseCase) Sweep(now time.Time) (int, error) {
	stale, err := uc.devices.ListActiveSeenBefore(now.Add(-uc.timeout))
	if err != nil {
		return 0, err
	}
	flagged := 0
	for i := range stale {
		changed, err := uc.Evaluate(&stale[i], now)
		if err != nil {
			return flagged, err
		}
		if changed {
			flagged++
		}
	}
	return flagged, nil
}

func (uc *LivenessUseCase) publish(event string, device *entities.Device) {
	if uc.events == nil {
		return
	}
	uc.events.Publish(event, map[string]interface{}{
		"device_id": device.DeviceID,
		"name":      device.Name,
		"is_active": device.IsActive,
		"last_seen": device.LastSeen,
	})
}
