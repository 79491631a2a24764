package server

import (
	"context"

	"iot-hub/cache"
	"iot-hub/confs"
	"iot-hub/db"
	"iot-hub/handlers"
	httpHandler "iot-hub/handlers/http"
	"iot-hub/repositories"
	"iot-hub/services"
	"iot-hub/usecases"
	"iot-hub/ws"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Server struct {
	app       *gin.Engine
	cfg       *confs.Config
	scheduler *services.Scheduler
}

// New wires repositories, usecases, the scheduler and all HTTP routes.
func New(cfg *confs.Config, database db.Database) *Server {
	app := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	app.Use(cors.New(corsConfig))

	app.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	deviceRepo := repositories.NewDevicePgRepository(database)
	telemetryRepo := repositories.NewTelemetryPgRepository(database)
	taskRepo := repositories.NewTaskPgRepository(database)

	hub := ws.NewHub()
	clock := usecases.NewWallClock(cfg.Location)
	latest := cache.NewLatestCache()

	liveness := usecases.NewLivenessUseCase(deviceRepo, cfg.DeviceTimeout, hub)
	deviceUC := usecases.NewDeviceUseCase(deviceRepo, telemetryRepo, liveness, clock, latest)
	channel := services.NewHTTPCommandChannel(cfg.CommandBaseURL, cfg.SystemToken, cfg.CommandTimeout)
	taskUC := usecases.NewTaskUseCase(taskRepo, deviceRepo, channel, clock, hub, cfg.CommandTimeout)

	scheduler := services.NewScheduler(taskUC, liveness, clock, cfg.SchedulerInterval)

	auth := httpHandler.NewAuthMiddleware(deviceRepo, cfg.SystemToken)
	deviceHandler := httpHandler.NewDeviceHandler(deviceUC)
	telemetryHandler := httpHandler.NewTelemetryHandler(deviceUC)
	taskHandler := httpHandler.NewTaskHandler(taskUC)
	dashboardHandler := httpHandler.NewDashboardHandler(deviceUC, cfg.DeviceTimeout)
	eventsHandler := handlers.NewEventsHandler(hub)

	api := app.Group("/api/v1")
	{
		authed := api.Group("", auth.Require())
		{
			// Device-facing command channel: poll, confirm, telemetry.
			authed.GET("/devices/:device_id", deviceHandler.CheckIn)
			authed.PATCH("/devices/:device_id", deviceHandler.Update)
			authed.PUT("/devices/:device_id", deviceHandler.Update)
			authed.POST("/telemetry", telemetryHandler.Submit)
			authed.GET("/devices/:device_id/telemetry", telemetryHandler.History)
		}

		system := api.Group("", auth.Require(), auth.RequireSystem())
		{
			system.POST("/devices", deviceHandler.Create)
			system.GET("/devices", deviceHandler.List)

			tasks := system.Group("/tasks")
			{
				tasks.POST("", taskHandler.Create)
				tasks.GET("", taskHandler.List)
				tasks.GET("/:id", taskHandler.Get)
				tasks.PATCH("/:id", taskHandler.Update)
				tasks.POST("/:id/cancel", taskHandler.Cancel)
			}
		}

		api.GET("/dashboard", dashboardHandler.Show)
	}

	app.GET("/ws/events", eventsHandler.HandleEvents)

	return &Server{app: app, cfg: cfg, scheduler: scheduler}
}

// Start launches the scheduler and serves HTTP until the process exits.
func (s *Server) Start() error {
	s.scheduler.Start(context.Background())
	return s.app.Run(s.cfg.HTTPAddr)
}
