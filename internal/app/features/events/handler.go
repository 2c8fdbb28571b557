// internal/app/features/events/handler.go
package events

import (
	"net/http"
	"time"

	errorsfeature "github.com/dalemusser/gatehub/internal/app/features/errors"
	"github.com/dalemusser/gatehub/internal/app/system/auth"
	"github.com/dalemusser/gatehub/internal/app/system/notify"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// writeWait is how long a single frame write may take before the
	// connection is considered dead.
	writeWait = 10 * time.Second

	// pongWait bounds how long we keep a silent connection; pings go out
	// at pingPeriod so a live client always answers in time.
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Handler streams change events to dashboards over a websocket. Each
// connection is subscribed to its own organization's events only.
type Handler struct {
	Hub *notify.Hub
	Log *zap.Logger

	upgrader websocket.Upgrader
}

func NewHandler(hub *notify.Hub, logger *zap.Logger) *Handler {
	return &Handler{
		Hub: hub,
		Log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// ServeWS handles GET /events/ws. Auth middleware has already resolved the
// session; this just upgrades and pumps.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		errorsfeature.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		h.Log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	sub := h.Hub.Subscribe(u.OrganizationID)
	h.Log.Info("events subscriber connected",
		zap.String("organization_id", u.OrganizationID.Hex()),
		zap.String("user_id", u.UserID.Hex()),
	)

	go h.writePump(conn, sub)
	go h.readPump(conn, sub)
}

// writePump sends hub events and keepalive pings until the subscription or
// the connection dies.
func (h *Handler) writePump(conn *websocket.Conn, sub *notify.Subscription) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		h.Hub.Unsubscribe(sub)
		_ = conn.Close()
	}()

	for {
		select {
		case event, ok := <-sub.C:
			if !ok {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound frames (the stream is one-way) and tears the
// subscription down when the client goes away.
func (h *Handler) readPump(conn *websocket.Conn, sub *notify.Subscription) {
	defer func() {
		h.Hub.Unsubscribe(sub)
		_ = conn.Close()
	}()

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
