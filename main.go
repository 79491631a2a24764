package main

import (
	"iot-hub/confs"
	"iot-hub/db"
	"iot-hub/server"

	"github.com/sirupsen/logrus"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := confs.Load()
	if err != nil {
		logrus.Fatalf("error loading config: %v", err)
	}

	database, err := db.Connect()
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err)
	}

	srv := server.New(cfg, database)
	if err := srv.Start(); err != nil {
		logrus.Fatalf("server stopped: %v", err)
	}
}
