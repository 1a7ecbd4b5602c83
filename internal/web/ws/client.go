package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/boardbank/internal/protocol"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Buffer size for outgoing messages
	sendBufferSize = 256
)

// Client is one websocket connection. It is the broadcast subscriber for
// every game the connection joins.
type Client struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func newClient(id string, conn *websocket.Conn) *Client {
	return &Client{
		id:   id,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}
}

// ID returns the connection id
func (c *Client) ID() string {
	return c.id
}

// Deliver queues msg for writing. It never blocks and returns false if the
// buffer is full or the connection is closing.
func (c *Client) Deliver(msg []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// close stops the write loop. Safe to call more than once.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
	}
}

// readLoop reads frames until the connection fails and hands each to handle
func (c *Client) readLoop(handle func([]byte)) error {
	c.conn.SetReadLimit(protocol.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return err
		}
		handle(data)
	}
}

// writeLoop pumps queued messages to the connection and keeps it alive with pings
func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			// Flush whatever is already queued, then say goodbye
			for {
				select {
				case msg := <-c.send:
					_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
					if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
						return
					}
				default:
					_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
					_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
			}
		}
	}
}
