package api

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/lakegate/internal/logging"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The SPA is served from the same origin; cross-origin upgrades are
	// handled by the CORS layer for plain HTTP, so accept here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ConnectionManager tracks active websocket clients and fans messages out
// to all of them.
type ConnectionManager struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// NewConnectionManager creates an empty manager.
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		conns: make(map[*websocket.Conn]struct{}),
	}
}

func (m *ConnectionManager) add(conn *websocket.Conn) {
	m.mu.Lock()
	m.conns[conn] = struct{}{}
	n := len(m.conns)
	m.mu.Unlock()

	logging.Debugf("Websocket client connected (%d active)", n)
}

func (m *ConnectionManager) remove(conn *websocket.Conn) {
	m.mu.Lock()
	delete(m.conns, conn)
	n := len(m.conns)
	m.mu.Unlock()

	conn.Close()
	logging.Debugf("Websocket client disconnected (%d active)", n)
}

// Count returns the number of active connections.
func (m *ConnectionManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.conns)
}

// Broadcast sends a text message to every connected client. Clients that
// fail to receive are dropped.
func (m *ConnectionManager) Broadcast(message []byte) {
	m.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(m.conns))
	for c := range m.conns {
		conns = append(conns, c)
	}
	m.mu.Unlock()

	for _, c := range conns {
		if err := c.WriteMessage(websocket.TextMessage, message); err != nil {
			m.remove(c)
		}
	}
}

// WSHandler upgrades the connection and echoes messages back to the sender
// until the client disconnects.
func (s *Server) WSHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warnf("Websocket upgrade failed: %v", err)
		return
	}

	s.connections.add(conn)
	defer s.connections.remove(conn)

	for {
		msgType, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Debugf("Websocket read error: %v", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, append([]byte("Echo: "), message...)); err != nil {
			return
		}
	}
}
