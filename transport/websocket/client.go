package websocket

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// The peer must show liveness (pong or ping) within this window,
	// otherwise the connection is dropped.
	clientTimeout = 10 * time.Second

	// Send pings to the peer with this period. Must be less than
	// clientTimeout.
	heartbeatInterval = 5 * time.Second

	// Maximum message size allowed from the peer.
	maxMessageSize = 512

	// Outbound frames queued per client before the hub starts dropping.
	sendBufferSize = 256
)

// commandPrefix marks an inbound text frame as a command rather than a
// relay payload.
const commandPrefix = "/"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Overlays are loaded from arbitrary origins (OBS, browser sources).
		return true
	},
}

// Client owns one WebSocket connection: its liveness, its command parsing,
// and the only goroutines allowed to touch the underlying transport.
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	// send is drained by the write pump. The hub closes it on disconnect.
	send chan []byte

	// id is the session id assigned by the hub at connect time.
	id uint64

	// room is the room this connection currently relays into. Only the
	// read pump touches it after connect.
	room string
}

// readPump reads frames from the peer and routes them: commands are handled
// locally, everything else is relayed through the hub. It also enforces the
// liveness deadline. On any exit path the client is disconnected from the
// hub; Disconnect is idempotent, so racing with the write pump is safe.
func (c *Client) readPump() {
	defer func() {
		c.hub.Disconnect(c.id)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(clientTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(clientTimeout))
		return nil
	})
	c.conn.SetPingHandler(func(appData string) error {
		c.conn.SetReadDeadline(time.Now().Add(clientTimeout))
		return c.conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			// Covers close frames, protocol errors, and heartbeat
			// expiry (read deadline). All of them end the session.
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("Client %d read error: %v", c.id, err)
			}
			return
		}

		if messageType != websocket.TextMessage {
			log.Printf("Client %d sent unexpected frame type %d, closing", c.id, messageType)
			return
		}

		c.handleText(strings.TrimSpace(string(message)))
	}
}

// handleText classifies one inbound text frame as a command or a relay
// payload and executes it.
func (c *Client) handleText(text string) {
	if !strings.HasPrefix(text, commandPrefix) {
		c.hub.Relay(c.id, c.room, text)
		return
	}

	verb, arg, _ := strings.Cut(text, " ")
	switch verb {
	case "/list":
		// One outbound frame per room name.
		for _, room := range c.hub.ListRooms() {
			c.queue([]byte(room))
		}

	case "/join":
		arg = strings.TrimSpace(arg)
		if arg == "" {
			c.queue([]byte("!!! room name is required"))
			return
		}
		c.room = arg
		c.hub.Join(c.id, arg)
		c.queue([]byte("joined"))

	default:
		c.queue([]byte(fmt.Sprintf("!!! unknown command: %q", text)))
	}
}

// queue enqueues an outbound frame without blocking the read pump. A full
// queue drops the frame, same as hub fan-out.
func (c *Client) queue(frame []byte) {
	select {
	case c.send <- frame:
	default:
		log.Printf("Client %d send queue full, dropping frame", c.id)
	}
}

// writePump writes queued frames to the peer and sends the periodic
// heartbeat ping. It exits when the hub closes the send channel or a write
// fails.
func (c *Client) writePump() {
	ticker := time.NewTicker(heartbeatInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
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
