package httpHandler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"iot-hub/cache"
	"iot-hub/db"
	"iot-hub/entities"
	"iot-hub/repositories"
	"iot-hub/usecases"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSystemToken = "system-secret"

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

type noopChannel struct{}

func (noopChannel) Push(ctx context.Context, deviceID string, payload string) error { return nil }

type testEnv struct {
	router  *gin.Engine
	devices repositories.DeviceRepository
	tasks   repositories.TaskRepository
	clock   *fixedClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:handlers-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&entities.Device{}, &entities.TelemetryRecord{}, &entities.ScheduledTask{}))
	database := &db.GormDatabase{DB: gdb}

	deviceRepo := repositories.NewDevicePgRepository(database)
	telemetryRepo := repositories.NewTelemetryPgRepository(database)
	taskRepo := repositories.NewTaskPgRepository(database)

	clock := &fixedClock{now: time.Date(2025, 6, 4, 12, 0, 0, 0, time.UTC)}
	liveness := usecases.NewLivenessUseCase(deviceRepo, 5*time.Minute, nil)
	deviceUC := usecases.NewDeviceUseCase(deviceRepo, telemetryRepo, liveness, clock, cache.NewLatestCache())
	taskUC := usecases.NewTaskUseCase(taskRepo, deviceRepo, noopChannel{}, clock, nil, time.Second)

	auth := NewAuthMiddleware(deviceRepo, testSystemToken)
	deviceHandler := NewDeviceHandler(deviceUC)
	telemetryHandler := NewTelemetryHandler(deviceUC)
	taskHandler := NewTaskHandler(taskUC)
	dashboardHandler := NewDashboardHandler(deviceUC, 5*time.Minute)

	router := gin.New()
	api := router.Group("/api/v1")
	authed := api.Group("", auth.Require())
	authed.GET("/devices/:device_id", deviceHandler.CheckIn)
	authed.PATCH("/devices/:device_id", deviceHandler.Update)
	authed.POST("/telemetry", telemetryHandler.Submit)
	authed.GET("/devices/:device_id/telemetry", telemetryHandler.History)
	system := api.Group("", auth.Require(), auth.RequireSystem())
	system.POST("/devices", deviceHandler.Create)
	system.GET("/devices", deviceHandler.List)
	system.POST("/tasks", taskHandler.Create)
	system.GET("/tasks", taskHandler.List)
	system.GET("/tasks/:id", taskHandler.Get)
	system.PATCH("/tasks/:id", taskHandler.Update)
	system.POST("/tasks/:id/cancel", taskHandler.Cancel)
	api.GET("/dashboard", dashboardHandler.Show)

	return &testEnv{router: router, devices: deviceRepo, tasks: taskRepo, clock: clock}
}

func (e *testEnv) seed(t *testing.T, deviceID string, lastSeen time.Time, active bool) *entities.Device {
	t.Helper()
	device := &entities.Device{DeviceID: deviceID, Name: "sensor " + deviceID, LastSeen: lastSeen, IsActive: active}
	require.NoError(t, e.devices.Create(device))
	return device
}

func (e *testEnv) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestAuthRejectsMissingAndUnknownTokens(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "A113", env.clock.now, true)

	w := env.do(t, http.MethodGet, "/api/v1/devices/A113", "", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/devices/A113", "no-such-token", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCheckInRefreshesHeartbeatAndReactivates(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "A113", env.clock.now.Add(-time.Hour), false)

	w := env.do(t, http.MethodGet, "/api/v1/devices/A113", "A113", "")
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	require.Equal(t, "A113", body["device_id"])
	require.Equal(t, "no_command", body["status"])
	require.Nil(t, body["pending_command"])

	stored, err := env.devices.GetByDeviceID("A113")
	require.NoError(t, err)
	require.True(t, stored.IsActive)
	require.Equal(t, env.clock.now.Unix(), stored.LastSeen.Unix())
}

func TestCheckInReportsPendingCommand(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "A113", env.clock.now, true)
	require.NoError(t, env.devices.UpdateFields("A113", map[string]interface{}{
		"pending_command": `{"action":"relay_on"}`,
	}))

	w := env.do(t, http.MethodGet, "/api/v1/devices/A113", "A113", "")
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	require.Equal(t, "command_pending", body["status"])
	command, ok := body["command"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "relay_on", command["action"])
}

func TestCheckInRejectsForeignDeviceToken(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "A113", env.clock.now, true)
	env.seed(t, "B201", env.clock.now, true)

	w := env.do(t, http.MethodGet, "/api/v1/devices/B201", "A113", "")
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestSystemInspectDoesNotHeartbeat(t *testing.T) {
	env := newTestEnv(t)
	stale := env.clock.now.Add(-10 * time.Minute)
	env.seed(t, "A113", stale, true)

	w := env.do(t, http.MethodGet, "/api/v1/devices/A113", testSystemToken, "")
	require.Equal(t, http.StatusOK, w.Code)

	// The read corrected the active flag but recorded no heartbeat.
	stored, err := env.devices.GetByDeviceID("A113")
	require.NoError(t, err)
	require.False(t, stored.IsActive)
	require.Equal(t, stale.Unix(), stored.LastSeen.Unix())
}

func TestSystemDepositsCommandDeviceConfirms(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "A113", env.clock.now, true)

	w := env.do(t, http.MethodPatch, "/api/v1/devices/A113", testSystemToken,
		`{"pending_command":{"action":"relay_on"}}`)
	require.Equal(t, http.StatusOK, w.Code)

	stored, err := env.devices.GetByDeviceID("A113")
	require.NoError(t, err)
	require.True(t, stored.HasPendingCommand())

	// The device confirms execution; the queued command is consumed.
	w = env.do(t, http.MethodPatch, "/api/v1/devices/A113", "A113",
		`{"last_command":"relay_on"}`)
	require.Equal(t, http.StatusOK, w.Code)

	stored, err = env.devices.GetByDeviceID("A113")
	require.NoError(t, err)
	require.False(t, stored.HasPendingCommand())
	require.Equal(t, "relay_on", stored.LastCommand)
}

func TestDeviceCannotDepositCommand(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "A113", env.clock.now, true)

	w := env.do(t, http.MethodPatch, "/api/v1/devices/A113", "A113",
		`{"pending_command":{"action":"relay_on"}}`)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestDeviceClearsOwnCommandWithNull(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "A113", env.clock.now, true)
	require.NoError(t, env.devices.UpdateFields("A113", map[string]interface{}{
		"pending_command": `{"action":"relay_on"}`,
	}))

	w := env.do(t, http.MethodPatch, "/api/v1/devices/A113", "A113",
		`{"pending_command":null}`)
	require.Equal(t, http.StatusOK, w.Code)

	stored, err := env.devices.GetByDeviceID("A113")
	require.NoError(t, err)
	require.False(t, stored.HasPendingCommand())
}

func TestProvisionRequiresSystemCredential(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "A113", env.clock.now, true)

	w := env.do(t, http.MethodPost, "/api/v1/devices", "A113", `{"device_id":"NEW01"}`)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/devices", testSystemToken, `{"device_id":"NEW01"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	stored, err := env.devices.GetByDeviceID("NEW01")
	require.NoError(t, err)
	require.True(t, stored.IsActive)
}

func TestTelemetrySubmitAndHistory(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "A113", env.clock.now.Add(-time.Hour), false)

	w := env.do(t, http.MethodPost, "/api/v1/telemetry", "A113",
		`{"temperature_celsius":23.5,"humidity_percent":61.2,"relay_state":true}`)
	require.Equal(t, http.StatusCreated, w.Code)

	// Telemetry counts as a heartbeat.
	stored, err := env.devices.GetByDeviceID("A113")
	require.NoError(t, err)
	require.True(t, stored.IsActive)
	require.Equal(t, env.clock.now.Unix(), stored.LastSeen.Unix())

	w = env.do(t, http.MethodGet, "/api/v1/devices/A113/telemetry", "A113", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	require.Equal(t, float64(1), body["count"])

	// The system credential may not submit telemetry.
	w = env.do(t, http.MethodPost, "/api/v1/telemetry", testSystemToken,
		`{"temperature_celsius":20}`)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestDashboardOrdersOnlineFirst(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "off-1", env.clock.now.Add(-time.Hour), false)
	env.seed(t, "on-b", env.clock.now, true)
	env.seed(t, "on-a", env.clock.now, true)

	w := env.do(t, http.MethodGet, "/api/v1/dashboard", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	entries, ok := body["devices"].([]interface{})
	require.True(t, ok)
	require.Len(t, entries, 3)

	names := make([]string, 0, len(entries))
	for _, raw := range entries {
		entry := raw.(map[string]interface{})
		device := entry["device"].(map[string]interface{})
		names = append(names, device["name"].(string))
	}
	require.Equal(t, []string{"sensor on-a", "sensor on-b", "sensor off-1"}, names)
}
