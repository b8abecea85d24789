package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/verte-zerg/tuimeteor/internal/model"
)

const (
	sendBuffer   = 16
	writeTimeout = 5 * time.Second
	pongTimeout  = 60 * time.Second
	pingPeriod   = 45 * time.Second
)

type watcher struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (w *watcher) close() {
	w.once.Do(func() {
		close(w.send)
	})
}

// Hub fans leaderboard events out to websocket watchers.
type Hub struct {
	mu       sync.Mutex
	watchers map[*watcher]struct{}
	closed   bool
	logger   *log.Logger
	upgrader websocket.Upgrader
}

// NewHub returns an empty hub.
func NewHub(logger *log.Logger) *Hub {
	return &Hub{
		watchers: make(map[*watcher]struct{}),
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Len returns the number of connected watchers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.watchers)
}

// Broadcast queues ev for every watcher. Watchers with a full buffer are dropped.
func (h *Hub) Broadcast(ev model.LiveEvent) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("failed to marshal live event", "err", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for w := range h.watchers {
		select {
		case w.send <- data:
		default:
			h.logger.Warn("dropping slow watcher", "remote", w.conn.RemoteAddr())
			delete(h.watchers, w)
			w.close()
		}
	}
}

// Close disconnects every watcher and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for w := range h.watchers {
		delete(h.watchers, w)
		w.close()
	}
}

// ServeHTTP upgrades the request and streams events until the peer leaves.
func (h *Hub) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	w := &watcher{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		message := websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down")
		_ = conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(writeTimeout))
		_ = conn.Close()
		return
	}
	h.watchers[w] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("watcher connected", "remote", conn.RemoteAddr())

	go h.writeLoop(w)
	h.readLoop(w)
}

func (h *Hub) remove(w *watcher) {
	h.mu.Lock()
	delete(h.watchers, w)
	h.mu.Unlock()
	w.close()
}

// readLoop discards client messages; it only exists to notice disconnects
// and answer pings.
func (h *Hub) readLoop(w *watcher) {
	defer h.remove(w)
	w.conn.SetReadLimit(512)
	_ = w.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	w.conn.SetPongHandler(func(string) error {
		return w.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})
	for {
		if _, _, err := w.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(w *watcher) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if cerr := w.conn.Close(); cerr != nil {
			// Best-effort close.
			_ = cerr
		}
	}()
	for {
		select {
		case data, ok := <-w.send:
			_ = w.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = w.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := w.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = w.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := w.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
