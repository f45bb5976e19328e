package realtime

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second

	// closeSessionReplaced signals the client its socket was superseded by a
	// newer connection for the same user.
	closeSessionReplaced = 4001
)

// Connection wraps a websocket and coordinates outbound writes through a
// buffered channel. One Connection belongs to exactly one user session and
// is safe for concurrent use.
type Connection struct {
	UserID string

	ws    *websocket.Conn
	send  chan []byte
	once  sync.Once
	close chan struct{}
}

// NewConnection constructs a Connection for the given user.
func NewConnection(userID string, ws *websocket.Conn, bufferSize int) *Connection {
	return &Connection{
		UserID: userID,
		ws:     ws,
		send:   make(chan []byte, bufferSize),
		close:  make(chan struct{}),
	}
}

// Start launches the write loop. It must be called exactly once.
func (c *Connection) Start() {
	go c.writeLoop()
}

// Send enqueues a payload for delivery. A full buffer closes the connection
// to keep backpressure bounded instead of blocking the sender.
func (c *Connection) Send(payload []byte) error {
	select {
	case <-c.close:
		return errors.New("connection closed")
	case c.send <- payload:
		return nil
	default:
		c.Close(websocket.CloseGoingAway, "send buffer full")
		return errors.New("send buffer full")
	}
}

// Close terminates the connection and stops the write loop. Safe to call
// more than once.
func (c *Connection) Close(code int, reason string) {
	c.once.Do(func() {
		close(c.close)
		deadline := time.Now().Add(writeWait)
		_ = c.ws.SetWriteDeadline(deadline)
		_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
		_ = c.ws.Close()
	})
}

func (c *Connection) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.close:
			return
		case payload := <-c.send:
			if err := c.write(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Connection) write(messageType int, payload []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(messageType, payload)
}
