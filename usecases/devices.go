package usecases

import (
	"encoding/json"
	"errors"
	"sort"

	"iot-hub/cache"
	"iot-hub/entities"
	"iot-hub/repositories"

	"github.com/sirupsen/logrus"
)

var (
	// ErrForbidden is returned when a principal acts outside its scope,
	// e.g. a device depositing a command.
	ErrForbidden = errors.New("operation not allowed for this principal")
)

// DeviceUseCase covers the device-facing surface: check-in, command
// confirmation, telemetry ingestion and the dashboard read model.
type DeviceUseCase struct {
	devices   repositories.DeviceRepository
	telemetry repositories.TelemetryRepository
	liveness  *LivenessUseCase
	clock     Clock
	latest    *cache.LatestCache
}

func NewDeviceUseCase(
	devices repositories.DeviceRepository,
	telemetry repositories.TelemetryRepository,
	liveness *LivenessUseCase,
	clock Clock,
	latest *cache.LatestCache,
) *DeviceUseCase {
	return &DeviceUseCase{
		devices:   devices,
		telemetry: telemetry,
		liveness:  liveness,
		clock:     clock,
		latest:    latest,
	}
}

// Provision registers a device ahead of its first check-in.
func (uc *DeviceUseCase) Provision(device *entities.Device) error {
	if device.DeviceID == "" {
		return errors.New("device_id is required")
	}
	device.IsActive = true
	return uc.devices.Create(device)
}

// CheckIn handles a device poll: heartbeat plus pending-command report.
// The caller is the device itself, so last_seen/IP are refreshed and an
// inactive device is reactivated before anything else.
func (uc *DeviceUseCase) CheckIn(deviceID, ip string) (*entities.Device, error) {
	device, err := uc.devices.GetByDeviceID(deviceID)
	if err != nil {
		return nil, err
	}
	if err := uc.liveness.Touch(device, uc.clock.Now(), ip); err != nil {
		return nil, err
	}
	return device, nil
}

// Inspect is the non-heartbeat detail fetch used by operators. It corrects
// the active flag against the timeout but records no heartbeat.
func (uc *DeviceUseCase) Inspect(deviceID string) (*entities.Device, error) {
	device, err := uc.devices.GetByDeviceID(deviceID)
	if err != nil {
		return nil, err
	}
	if _, err := uc.liveness.Evaluate(device, uc.clock.Now()); err != nil {
		return nil, err
	}
	return device, nil
}

// DeviceUpdate is a partial update. Pointer fields are applied only when
// set; PendingCommand distinguishes absent (nil) from an explicit JSON
// null, which clears the queued command.
type DeviceUpdate struct {
	Name           *string
	DeviceType     *string
	Location       *string
	IsActive       *bool
	LastCommand    *string
	PendingCommand json.RawMessage
}

// ApplyUpdate performs a field-scoped device update. Devices use it to
// confirm command execution (set last_command, clear pending_command) and
// refresh their display metadata; the system credential uses it to deposit
// a pending command — the inbound half of the command channel.
func (uc *DeviceUseCase) ApplyUpdate(deviceID string, update DeviceUpdate, principal entities.Principal, ip string) (*entities.Device, error) {
	device, err := uc.devices.GetByDeviceID(deviceID)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if update.Name != nil {
		fields["name"] = *update.Name
		device.Name = *update.Name
	}
	if update.DeviceType != nil {
		fields["device_type"] = *update.DeviceType
		device.DeviceType = *update.DeviceType
	}
	if update.Location != nil {
		fields["location"] = *update.Location
		device.Location = *update.Location
	}
	if update.IsActive != nil {
		fields["is_active"] = *update.IsActive
		device.IsActive = *update.IsActive
	}
	if update.LastCommand != nil {
		fields["last_command"] = *update.LastCommand
		device.LastCommand = *update.LastCommand
		// Confirming a command implicitly consumes the queued one.
		if update.PendingCommand == nil {
			fields["pending_command"] = ""
			device.PendingCommand = ""
		}
	}
	if update.PendingCommand != nil {
		if string(update.PendingCommand) == "null" {
			fields["pending_command"] = ""
			device.PendingCommand = ""
		} else {
			if !principal.IsSystem() {
				return nil, ErrForbidden
			}
			var payload map[string]interface{}
			if err := json.Unmarshal(update.PendingCommand, &payload); err != nil {
				return nil, errors.New("pending_command must be a JSON object")
			}
			fields["pending_command"] = string(update.PendingCommand)
			device.PendingCommand = string(update.PendingCommand)
			logrus.WithField("device_id", device.DeviceID).Info("command queued for device")
		}
	}

	if len(fields) > 0 {
		if err := uc.devices.UpdateFields(device.DeviceID, fields); err != nil {
			return nil, err
		}
	}

	// A device talking to us is a heartbeat regardless of what it patched.
	if !principal.IsSystem() {
		if err := uc.liveness.Touch(device, uc.clock.Now(), ip); err != nil {
			return nil, err
		}
	}
	return device, nil
}

// TelemetryInput is one sensor submission, optionally piggybacking device
// metadata updates the way the previous backend allowed.
type TelemetryInput struct {
	Temperature  *float64
	Humidity     *float64
	RelayState   bool
	ButtonAction string
	RawData      json.RawMessage
	Name         *string
	DeviceType   *string
	Location     *string
}

// SubmitTelemetry creates an immutable record for the submitting device
// and performs the same liveness refresh as a check-in.
func (uc *DeviceUseCase) SubmitTelemetry(device *entities.Device, input TelemetryInput, ip string) (*entities.TelemetryRecord, error) {
	record := &entities.TelemetryRecord{
		DeviceID:     &device.ID,
		Temperature:  input.Temperature,
		Humidity:     input.Humidity,
		RelayState:   input.RelayState,
		ButtonAction: input.ButtonAction,
		Timestamp:    uc.clock.Now(),
	}
	if len(input.RawData) > 0 && string(input.RawData) != "null" {
		record.RawData = string(input.RawData)
	}
	if err := uc.telemetry.Create(record); err != nil {
		return nil, err
	}
	if uc.latest != nil {
		uc.latest.Set(*record)
	}

	fields := map[string]interface{}{}
	if input.Name != nil && *input.Name != device.Name {
		fields["name"] = *input.Name
		device.Name = *input.Name
	}
	if input.DeviceType != nil && *input.DeviceType != device.DeviceType {
		fields["device_type"] = *input.DeviceType
		device.DeviceType = *input.DeviceType
	}
	if input.Location != nil && *input.Location != device.Location {
		fields["location"] = *input.Location
		device.Location = *input.Location
	}
	if len(fields) > 0 {
		if err := uc.devices.UpdateFields(device.DeviceID, fields); err != nil {
			return nil, err
		}
	}
	if err := uc.liveness.Touch(device, uc.clock.Now(), ip); err != nil {
		return nil, err
	}
	return record, nil
}

// History returns a device's telemetry, most recent first.
func (uc *DeviceUseCase) History(deviceID string, limit int) ([]entities.TelemetryRecord, error) {
	device, err := uc.devices.GetByDeviceID(deviceID)
	if err != nil {
		return nil, err
	}
	return uc.telemetry.ListByDevice(device.ID, limit)
}

// ListDevices returns all devices with liveness corrected at read time.
func (uc *DeviceUseCase) ListDevices() ([]entities.Device, error) {
	devices, err := uc.devices.GetAll()
	if err != nil {
		return nil, err
	}
	now := uc.clock.Now()
	for i := range devices {
		if _, err := uc.liveness.Evaluate(&devices[i], now); err != nil {
			return nil, err
		}
	}
	return devices, nil
}

// DashboardEntry pairs a device with its most recent telemetry.
type DashboardEntry struct {
	Device entities.Device           `json:"device"`
	Latest *entities.TelemetryRecord `json:"latest_telemetry,omitempty"`
}

// Dashboard builds the admin read model: liveness-corrected devices with
// their latest reading, online first, then by name.
func (uc *DeviceUseCase) Dashboard() ([]DashboardEntry, error) {
	devices, err := uc.ListDevices()
	if err != nil {
		return nil, err
	}
	entries := make([]DashboardEntry, 0, len(devices))
	for i := range devices {
		entry := DashboardEntry{Device: devices[i]}
		if uc.latest != nil {
			if record, ok := uc.latest.Get(devices[i].ID); ok {
				entry.Latest = &record
				entries = append(entries, entry)
				continue
			}
		}
		record, err := uc.telemetry.LatestByDevice(devices[i].ID)
		if err == nil {
			entry.Latest = record
			if uc.latest != nil {
				uc.latest.Set(*record)
			}
		} else if !errors.Is(err, repositories.ErrNotFound) {
			return nil, err
		}
		entries = append(entries, entry)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Device.IsActive != entries[j].Device.IsActive {
			return entries[i].Device.IsActive
		}
		return entries[i].Device.Name < entries[j].Device.Name
	})
	return entries, nil
}
