package relay

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const pingInterval = 30 * time.Second

// UserIDKey is the gin context key an upstream authentication middleware
// must set to the connecting user's id before Handler.ServeWS runs.
// Authentication itself is an external collaborator (§1 Non-goals); this
// package only trusts whatever identity already landed in the context, and
// refuses the upgrade if nothing did.
const UserIDKey = "userID"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // TODO: restrict to configured origins once the external auth layer is wired.
	},
}

// Handler exposes the GET /ws upgrade endpoint.
type Handler struct {
	hub *Hub
}

// NewHandler creates a Handler backed by hub.
func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

// ServeWS upgrades the connection and joins it to the room derived from the
// authenticated user already present in the gin context (§4.G: "it never
// joins other rooms (no client-controlled room names)").
func (h *Handler) ServeWS(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.Errorf("relay: upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sub := h.hub.Subscribe(userID, uuid.NewString())
	defer h.hub.Unsubscribe(sub)

	done := make(chan struct{})
	go h.readLoop(conn, done)
	h.writeLoop(conn, sub, done)
}

// readLoop drains and discards client frames, only watching for the
// connection closing; observers are receive-only over this protocol.
func (h *Handler) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Handler) writeLoop(conn *websocket.Conn, sub *Subscriber, done chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case event, ok := <-sub.Channel:
			if !ok {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		}
	}
}

func userIDFromContext(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get(UserIDKey)
	if !exists {
		return uuid.UUID{}, false
	}
	switch v := value.(type) {
	case uuid.UUID:
		return v, true
	case string:
		id, err := uuid.Parse(v)
		if err != nil {
			return uuid.UUID{}, false
		}
		return id, true
	default:
		return uuid.UUID{}, false
	}
}
