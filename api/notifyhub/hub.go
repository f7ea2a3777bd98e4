package notifyhub

import (
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/moyoez/wx-station-go/tool"
	"github.com/moyoez/wx-station-go/types"
)

// writeTimeout bounds a single websocket write.
const writeTimeout = 2 * time.Second

// Hub fans config-change notifications out to the open config pages.
type Hub struct {
	mu    sync.RWMutex
	conns map[*websocket.Conn]struct{}
	// writeMu serializes writes; a websocket conn allows one writer at a time.
	writeMu sync.Mutex
}

var _ types.NotifyHub = (*Hub)(nil)

func New() *Hub {
	return &Hub{
		conns: make(map[*websocket.Conn]struct{}),
	}
}

func (h *Hub) Register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = struct{}{}
}

func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
}

// Len returns the number of connected pages.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Send writes one notification to a single connection.
func (h *Hub) Send(conn *websocket.Conn, notification *types.Notification) error {
	payload, err := sonic.Marshal(notification)
	if err != nil {
		return err
	}
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, payload)
}

// Broadcast sends the notification to every page; connections that fail are dropped.
func (h *Hub) Broadcast(notification *types.Notification) {
	if notification == nil {
		return
	}
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := h.Send(conn, notification); err != nil {
			tool.DefaultLogger.Debugf("[Notify] Dropping page %s: %v", conn.RemoteAddr(), err)
			h.Unregister(conn)
			_ = conn.Close()
		}
	}
	if len(conns) > 0 {
		tool.DefaultLogger.Debugf("[Notify] %s sent to %d page(s)", notification.Type, len(conns))
	}
}
