package handlers

import (
	"net/http"

	"iot-hub/ws"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// EventsHandler streams liveness and dispatch events to dashboard clients.
type EventsHandler struct {
	hub *ws.Hub
}

func NewEventsHandler(hub *ws.Hub) *EventsHandler {
	return &EventsHandler{hub: hub}
}

// HandleEvents upgrades GET /ws/events and keeps the connection registered
// until the client goes away. Client messages are ignored; the read loop
// only detects disconnects.
func (h *EventsHandler) HandleEvents(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("websocket upgrade failed")
		return
	}

	id := uuid.NewString()
	h.hub.Register(id, conn)
	logrus.WithField("subscriber", id).Debug("dashboard client connected")
	defer func() {
		h.hub.Unregister(id)
		logrus.WithField("subscriber", id).Debug("dashboard client disconnected")
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
