package http

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
)

// WatchHandler pushes player status frames over a websocket. The engine itself is
// strictly poll-based; this handler is the polling client, running a ticker against
// the pure PlayerStatus read and forwarding a frame only when the phase or question
// position changed. Clients that cannot hold a socket just poll the status route.
type WatchHandler struct {
	service  *app.GameService
	interval time.Duration
	upgrader websocket.Upgrader
}

func NewWatchHandler(service *app.GameService, interval time.Duration) *WatchHandler {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	return &WatchHandler{
		service:  service,
		interval: interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type statusFrame struct {
	Type    string              `json:"type"`
	Payload domain.PlayerStatus `json:"payload"`
}

// ServeWatch upgrades the request and streams status changes until the session ends
// or the client disconnects.
func (h *WatchHandler) ServeWatch(w http.ResponseWriter, r *http.Request) {
	playerID, err := pathID(r, "playerID")
	if err != nil {
		http.Error(w, "invalid player id", http.StatusBadRequest)
		return
	}

	status, err := h.service.PlayerStatus(playerID)
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(statusFrame{Type: "status", Payload: status}); err != nil {
		return
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	last := status
	for {
		select {
		case <-closed:
			return
		case <-ticker.C:
			status, err := h.service.PlayerStatus(playerID)
			if err != nil {
				return
			}
			if status == last {
				continue
			}
			last = status
			if err := conn.WriteJSON(statusFrame{Type: "status", Payload: status}); err != nil {
				return
			}
			if status.State == domain.StateEnd {
				return
			}
		}
	}
}
