package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/acord-review/backend/internal/models"
	"github.com/acord-review/backend/internal/notify"
	"github.com/bytedance/sonic"
	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// WebSocket message types for the notification stream
const (
	// Client -> Server messages
	MsgTypePing = "ping"

	// Server -> Client messages
	MsgTypeConnected = "connected"
	MsgTypePong      = "pong"
	MsgTypeError     = "error"
)

const (
	defaultRecentLimit = 20
	pongWait           = 60 * time.Second
)

// WSMessage is a control message on the notification stream. Notifications
// themselves are sent as plain models.Notification objects.
type WSMessage struct {
	Type      string                `json:"type"`
	Recent    []models.Notification `json:"recent,omitempty"`
	Message   string                `json:"message,omitempty"`
	Timestamp int64                 `json:"timestamp"`
}

// NotificationHandlerImpl implements the NotificationHandler interface
type NotificationHandlerImpl struct {
	hub      *notify.Hub
	upgrader websocket.Upgrader
	log      *log.Logger
}

// NewNotificationHandler creates a handler serving the hub's notifications
func NewNotificationHandler(hub *notify.Hub, logger *log.Logger) NotificationHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &NotificationHandlerImpl{
		hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Allow connections from dev server
				return true
			},
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
		},
		log: logger.WithPrefix("[WebSocket]"),
	}
}

// HandleRecentNotifications returns the latest notifications, oldest first
func (h *NotificationHandlerImpl) HandleRecentNotifications(c echo.Context) error {
	limit := defaultRecentLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return NewValidationError("limit")
		}
		limit = n
	}

	return c.JSON(http.StatusOK, h.hub.Recent(limit))
}

// HandleNotificationStream upgrades to WebSocket and streams every new
// notification until the client goes away
func (h *NotificationHandlerImpl) HandleNotificationStream(c echo.Context) error {
	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	client := h.hub.Register(ws)
	defer h.hub.Unregister(client)

	h.log.Info("client connected", "remote", c.RealIP())

	if err := client.WriteJSON(WSMessage{
		Type:      MsgTypeConnected,
		Recent:    h.hub.Recent(defaultRecentLimit),
		Timestamp: time.Now().UnixMilli(),
	}); err != nil {
		h.log.Warn("failed to send welcome", "err", err)
		return nil
	}

	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("connection error", "err", err)
			}
			break
		}
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))

		var msg WSMessage
		if err := sonic.Unmarshal(data, &msg); err != nil {
			h.send(client, WSMessage{Type: MsgTypeError, Message: "invalid message: " + err.Error()})
			continue
		}

		switch msg.Type {
		case MsgTypePing:
			h.send(client, WSMessage{Type: MsgTypePong})
		default:
			h.send(client, WSMessage{Type: MsgTypeError, Message: "Unknown message type: " + msg.Type})
		}
	}

	h.log.Info("client disconnected", "remote", c.RealIP())
	return nil
}

func (h *NotificationHandlerImpl) send(client *notify.Client, msg WSMessage) {
	msg.Timestamp = time.Now().UnixMilli()
	if err := client.WriteJSON(msg); err != nil {
		h.log.Warn("failed to send message", "err", err)
	}
}
