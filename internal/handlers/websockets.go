package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 1 << 12

	defaultStreamInterval = time.Second
	minStreamInterval     = 20 * time.Millisecond
	maxStreamInterval     = 10 * time.Second
)

// Message types. Clients may send {"type":"state"} to get a fresh snapshot.
const (
	wsTypeState = "state"
	wsTypeLive  = "live"
	wsTypeError = "error"
)

type wsEnvelope struct {
	Type  string `json:"type"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

type wsRequest struct {
	Type string `json:"type"`
}

// Any origin is accepted.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// streamInterval reads ?interval=500ms or ?interval_ms=500, clamped to the allowed range.
// Unparsable values fall back to the default.
func streamInterval(c *gin.Context) time.Duration {
	d := time.Duration(0)
	if s := c.Query("interval"); s != "" {
		d, _ = time.ParseDuration(s)
	}
	if d <= 0 {
		if ms, err := strconv.Atoi(c.Query("interval_ms")); err == nil {
			d = time.Duration(ms) * time.Millisecond
		}
	}
	switch {
	case d <= 0:
		return defaultStreamInterval
	case d < minStreamInterval:
		return minStreamInterval
	case d > maxStreamInterval:
		return maxStreamInterval
	}
	return d
}

// @Summary      Live heater stream
// @Description  WebSocket. Sends the heater state once, then each new LiveView as {"type":"live"}.
// @Tags         stream
// @Param        interval     query  string  false  "Poll interval, e.g. 500ms"
// @Param        interval_ms  query  int     false  "Poll interval in milliseconds"
// @Router       /ws [get]
func (h *Handler) wsConnect(c *gin.Context) {
	interval := streamInterval(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_upgrade_failed", "err", err)
		}
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	ctx := c.Request.Context()
	if err := h.sendState(ctx, conn); err != nil {
		if h.log != nil {
			h.log.Infow("ws_initial_state_failed", "err", err)
		}
		return
	}

	refresh := make(chan struct{}, 1)
	done := make(chan struct{})
	go h.readRequests(conn, refresh, done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	var version uint64
	for {
		var err error
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			err = conn.WriteMessage(websocket.PingMessage, nil)
		case <-refresh:
			err = h.sendState(ctx, conn)
		case <-ticker.C:
			version, err = h.sendLive(conn, version)
		}
		if err != nil {
			if h.log != nil {
				h.log.Infow("ws_write_failed", "err", err)
			}
			return
		}
	}
}

// readRequests runs until the client goes away. It turns state requests into
// refresh signals; all writes stay on the connection goroutine.
func (h *Handler) readRequests(conn *websocket.Conn, refresh chan<- struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if h.log != nil {
				h.log.Debugw("ws_read_closed", "err", err)
			}
			return
		}
		var req wsRequest
		if json.Unmarshal(msg, &req) != nil || req.Type != wsTypeState {
			continue
		}
		select {
		case refresh <- struct{}{}:
		default:
		}
	}
}

// sendState writes the current snapshot. A lookup failure is reported to the client
// as an error envelope and returned.
func (h *Handler) sendState(ctx context.Context, conn *websocket.Conn) error {
	st, err := h.services.Monitoring.GetState(ctx)
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_get_state_failed", "err", err)
		}
		_ = conn.WriteJSON(wsEnvelope{Type: wsTypeError, Error: errGetState})
		return err
	}
	return conn.WriteJSON(wsEnvelope{Type: wsTypeState, Data: st})
}

// sendLive writes the published LiveView when its version differs from last and
// returns the version the client now holds.
func (h *Handler) sendLive(conn *websocket.Conn, last uint64) (uint64, error) {
	view := h.services.Acquisition.Live()
	if view.Version == 0 || view.Version == last {
		return last, nil
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(wsEnvelope{Type: wsTypeLive, Data: view}); err != nil {
		return last, err
	}
	return view.Version, nil
}
