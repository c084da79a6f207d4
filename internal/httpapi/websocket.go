package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"llmeval/internal/evaluator"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		if !corsEnabled {
			return true
		}
		origin := r.Header.Get("Origin")
		for _, o := range corsAllowedOrigins {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	},
}

const wsWriteWait = 10 * time.Second

// ws godoc
// @Summary      Event feed
// @Description  Websocket stream of evaluator events as JSON. The first message is a status snapshot.
// @Tags         status
// @Router       /ws [get]
func (h *handlers) ws(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "event feed disabled")
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an error response.
		zlog.Warn().Err(err).Msg("websocket upgrade")
		return
	}
	defer conn.Close()

	events, cancel := h.events.Subscribe(256)
	defer cancel()
	wsClients.Inc()
	defer wsClients.Dec()

	// Reader: the feed is one-way, but reading is required to process
	// control frames and notice the client closing.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					zlog.Debug().Err(err).Msg("websocket read")
				}
				return
			}
		}
	}()

	snap := h.svc.Snapshot()
	hello := evaluator.Event{
		Name:    "status",
		ModelID: snap.Model.ID,
		Session: snap.Session.ID,
		Fields: map[string]any{
			"phase":      string(snap.Phase),
			"model_info": snap.ModelInfo,
			"running":    snap.Running,
			"output":     snap.Session.Output,
			"stat":       snap.Stat,
		},
	}
	if err := writeEvent(conn, hello); err != nil {
		return
	}

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()
	for {
		select {
		case <-closed:
			return
		case <-shutdownCtx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(wsWriteWait))
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := writeEvent(conn, ev); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

func writeEvent(conn *websocket.Conn, ev evaluator.Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(ev)
}
