package confs

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds the runtime settings resolved from the environment.
// Database settings stay in the db package, which reads them directly.
type Config struct {
	HTTPAddr    string
	SystemToken string
	// Location is the timezone schedules are authored in; due-task and
	// liveness decisions are evaluated against it, not UTC.
	Location          *time.Location
	DeviceTimeout     time.Duration
	SchedulerInterval time.Duration
	CommandBaseURL    string
	CommandTimeout    time.Duration
}

// Load reads the optional .env file and resolves the typed config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			logrus.WithError(err).Warn("could not load .env")
		}
	}

	systemToken := os.Getenv("SYSTEM_TOKEN")
	if systemToken == "" {
		return nil, fmt.Errorf("SYSTEM_TOKEN is required (scheduler and operator credential)")
	}

	tz := getEnv("TIMEZONE", "America/Sao_Paulo")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err)
	}

	addr := getEnv("HTTP_ADDR", "0.0.0.0:3536")
	cfg := &Config{
		HTTPAddr:          addr,
		SystemToken:       systemToken,
		Location:          loc,
		DeviceTimeout:     time.Duration(getEnvInt("DEVICE_TIMEOUT_MINUTES", 5)) * time.Minute,
		SchedulerInterval: time.Duration(getEnvInt("SCHEDULER_INTERVAL_SECONDS", 60)) * time.Second,
		CommandBaseURL:    getEnv("COMMAND_BASE_URL", fmt.Sprintf("http://127.0.0.1:%s/api/v1", portOf(addr))),
		CommandTimeout:    time.Duration(getEnvInt("COMMAND_TIMEOUT_SECONDS", 10)) * time.Second,
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		logrus.WithField(key, v).Warn("invalid integer setting, using default")
		return fallback
	}
	return n
}

func portOf(addr string) string {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return addr[i+1:]
		}
	}
	return "3536"
}
