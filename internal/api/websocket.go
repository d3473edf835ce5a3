package api

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"vtouchpad/internal/dispatch"
	"vtouchpad/internal/protocol"
)

const (
	pongWait     = 60 * time.Second
	pingPeriod   = 50 * time.Second
	writeWait    = 10 * time.Second
	maxMessage   = 4096
	sendCapacity = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The controller page may be served from any host name of this machine
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSManager tracks the controller connections
type WSManager struct {
	server     *Server
	clients    map[*WebSocketClient]bool
	clientsMu  sync.RWMutex
	register   chan *WebSocketClient
	unregister chan *WebSocketClient
	shutdown   chan struct{}
	once       sync.Once
}

// WebSocketClient is one controller connection and its session
type WebSocketClient struct {
	manager *WSManager
	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
	session *dispatch.Session
}

func newWSManager(s *Server) *WSManager {
	return &WSManager{
		server:     s,
		clients:    make(map[*WebSocketClient]bool),
		register:   make(chan *WebSocketClient),
		unregister: make(chan *WebSocketClient),
		shutdown:   make(chan struct{}),
	}
}

func (m *WSManager) start() {
	for {
		select {
		case client := <-m.register:
			m.clientsMu.Lock()
			m.clients[client] = true
			n := len(m.clients)
			m.clientsMu.Unlock()
			log.Debugf("WebSocket with %s opened (session %d, %d active)", client.session.RemoteAddr, client.session.ID, n)

		case client := <-m.unregister:
			m.clientsMu.Lock()
			if _, ok := m.clients[client]; ok {
				delete(m.clients, client)
				close(client.done)
			}
			n := len(m.clients)
			m.clientsMu.Unlock()
			log.Debugf("WebSocket with %s closed (session %d, %d active)", client.session.RemoteAddr, client.session.ID, n)

		case <-m.shutdown:
			m.clientsMu.Lock()
			for client := range m.clients {
				delete(m.clients, client)
				close(client.done)
				client.conn.Close()
			}
			m.clientsMu.Unlock()
			return
		}
	}
}

func (m *WSManager) stop() {
	m.once.Do(func() { close(m.shutdown) })
}

// Count returns the number of open controller connections
func (m *WSManager) Count() int {
	m.clientsMu.RLock()
	defer m.clientsMu.RUnlock()
	return len(m.clients)
}

func (m *WSManager) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("Failed to upgrade connection from %s: %v", r.RemoteAddr, err)
		return
	}

	client := &WebSocketClient{
		manager: m,
		conn:    conn,
		send:    make(chan []byte, sendCapacity),
		done:    make(chan struct{}),
		session: m.server.newSession(r.RemoteAddr),
	}

	select {
	case m.register <- client:
	case <-m.shutdown:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// readPump executes the commands of one connection in order.
func (c *WebSocketClient) readPump() {
	defer func() {
		select {
		case c.manager.unregister <- c:
		case <-c.manager.shutdown:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessage)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Errorf("Failed to read WebSocket data from %s: %v", c.session.RemoteAddr, err)
			}
			break
		}

		c.handleMessage(message)
	}
}

// writePump sends error reports and keeps the connection alive.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *WebSocketClient) handleMessage(data []byte) {
	cmd, err := protocol.DecodeCommand(data)
	if err != nil {
		reason, cause := protocol.ReasonInvalidData, err
		var decodeErr *protocol.DecodeError
		if errors.As(err, &decodeErr) {
			reason, cause = decodeErr.Reason, decodeErr.Err
		}
		log.Debugf("Session %d: cannot decode %q: %v", c.session.ID, data, err)
		c.report(protocol.NewErrorReport(reason, cause, protocol.Capture(0)))
		return
	}

	if err := c.manager.server.dispatcher.Dispatch(cmd, c.session); err != nil {
		var dispatchErr *dispatch.Error
		if errors.As(err, &dispatchErr) {
			c.report(dispatchErr.Report())
			return
		}
		c.report(protocol.NewErrorReport(protocol.ReasonInternalError, err, protocol.Capture(0)))
	}
}

func (c *WebSocketClient) report(r *protocol.ErrorReport) {
	b, err := r.Encode()
	if err != nil {
		log.Errorf("Failed to encode error report: %v", err)
		return
	}

	select {
	case c.send <- b:
	case <-c.done:
	default:
		log.Errorf("Session %d: dropping error report, send buffer full", c.session.ID)
	}
}
