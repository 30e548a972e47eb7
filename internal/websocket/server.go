package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/macman10536/Adsb-alert/pkg/logger"
)

// Message types pushed to and received from the presentation layer
const (
	MessageTypeSnapshot       = "snapshot"        // Published result, once per cycle
	MessageTypeAlert          = "alert"           // One fired alert event
	MessageTypeSelect         = "select"          // Client selects an aircraft by hex
	MessageTypeClearSelection = "clear_selection" // Client clears the selection
	MessageTypeError          = "error"           // Server reply to a bad client message
)

const (
	sendBufferSize      = 64
	broadcastBufferSize = 16
	writeWait           = 10 * time.Second
	pongWait            = 60 * time.Second
	pingPeriod          = (pongWait * 9) / 10
	maxMessageBytes     = 4096
)

// Message represents a WebSocket message
type Message struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// MessageHandler handles commands sent by a display
type MessageHandler interface {
	HandleMessage(client *Client, messageType string, data map[string]any) error
}

// Client is one connected display. Its send queue belongs to the hub, which is
// the only goroutine that writes to or closes it.
type Client struct {
	conn      *websocket.Conn
	send      chan *Message
	hub       *Server
	closeConn sync.Once
}

// envelope carries a reply meant for a single client
type envelope struct {
	client  *Client
	message *Message
}

// Server is the push hub. The Run goroutine owns the client set; everything else talks
// to it over channels. Nothing sent to the hub blocks: a full hub queue drops the
// message and a client whose queue is full is disconnected.
type Server struct {
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	direct     chan envelope
	stopped    chan struct{}
	connected  atomic.Int64

	upgrader       websocket.Upgrader
	messageHandler MessageHandler
	logger         *logger.Logger
}

// NewServer creates the hub; call Run to start it
func NewServer(log *logger.Logger) *Server {
	return &Server{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, broadcastBufferSize),
		direct:     make(chan envelope, broadcastBufferSize),
		stopped:    make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Local display, any origin
			},
		},
		logger: log.Named("web-socket"),
	}
}

// SetMessageHandler routes display commands to handler. Call before Run.
func (s *Server) SetMessageHandler(handler MessageHandler) {
	s.messageHandler = handler
}

// Run serves the hub until ctx is cancelled, then disconnects every client
func (s *Server) Run(ctx context.Context) {
	s.logger.Info("Starting WebSocket hub")
	clients := make(map[*Client]struct{})

	drop := func(c *Client) {
		if _, ok := clients[c]; ok {
			delete(clients, c)
			s.connected.Store(int64(len(clients)))
			close(c.send)
		}
	}
	deliver := func(c *Client, m *Message) {
		select {
		case c.send <- m:
		default:
			s.logger.Debug("Dropping slow client", logger.String("message_type", m.Type))
			drop(c)
		}
	}

	for {
		select {
		case <-ctx.Done():
			close(s.stopped)
			for c := range clients {
				drop(c)
			}
			s.logger.Info("WebSocket hub stopped")
			return

		case c := <-s.register:
			clients[c] = struct{}{}
			s.connected.Store(int64(len(clients)))
			s.logger.Debug("Client registered", logger.Int("client_count", len(clients)))

		case c := <-s.unregister:
			drop(c)
			s.logger.Debug("Client unregistered", logger.Int("client_count", len(clients)))

		case m := <-s.broadcast:
			for c := range clients {
				deliver(c, m)
			}

		case e := <-s.direct:
			if _, ok := clients[e.client]; ok {
				deliver(e.client, e.message)
			}
		}
	}
}

// HandleConnection upgrades an HTTP request and attaches the display to the hub
func (s *Server) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection",
			logger.Error(err),
			logger.String("remote_addr", r.RemoteAddr))
		return
	}

	c := &Client{
		conn: conn,
		send: make(chan *Message, sendBufferSize),
		hub:  s,
	}

	select {
	case s.register <- c:
	case <-s.stopped:
		conn.Close()
		return
	case <-r.Context().Done():
		conn.Close()
		return
	}
	s.logger.Debug("Client connected", logger.String("remote_addr", r.RemoteAddr))

	go c.readPump()
	go c.writePump()
}

// Broadcast queues a message for every display. It reports false when the hub queue is full.
func (s *Server) Broadcast(message *Message) bool {
	select {
	case s.broadcast <- message:
		return true
	default:
		s.logger.Warn("Broadcast queue full, dropping message",
			logger.String("message_type", message.Type))
		return false
	}
}

// ClientCount returns the number of connected displays
func (s *Server) ClientCount() int {
	return int(s.connected.Load())
}

// SendMessage queues a reply for this display only. It never blocks.
func (c *Client) SendMessage(message *Message) bool {
	select {
	case c.hub.direct <- envelope{client: c, message: message}:
		return true
	default:
		return false
	}
}

// Close drops the underlying connection; both pumps then exit
func (c *Client) Close() {
	c.closeConn.Do(func() { c.conn.Close() })
}

// readPump decodes display commands until the connection fails
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.stopped:
		}
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageBytes)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	log := c.hub.logger
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Warn("WebSocket read error", logger.Error(err))
			}
			return
		}

		var message Message
		if err := json.Unmarshal(raw, &message); err != nil {
			log.Warn("Ignoring malformed display message", logger.Error(err))
			continue
		}
		if c.hub.messageHandler == nil {
			continue
		}
		if err := c.hub.messageHandler.HandleMessage(c, message.Type, message.Data); err != nil {
			log.Warn("Display command failed",
				logger.String("type", message.Type),
				logger.Error(err))
			c.SendMessage(&Message{
				Type: MessageTypeError,
				Data: map[string]any{"error": err.Error(), "request": message.Type},
			})
		}
	}
}

// writePump writes queued messages and keepalive pings. It sends a close frame once
// the hub closes the queue.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				c.hub.logger.Debug("Write failed", logger.Error(err))
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
