package hub

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"tickflow/logger"
)

// controlMsg is a client→server frame on the multiplexed endpoint.
type controlMsg struct {
	Type      string   `json:"type"`
	Symbol    string   `json:"symbol,omitempty"`
	Exchanges []string `json:"exchanges,omitempty"`
}

// Client is one connected consumer. Outbound payloads go through a buffered
// send channel; a client that cannot keep up loses frames instead of stalling
// the broadcast loop.
//
// persistent marks clients that supplied their own stable id: only their
// subscription sets are retained for replay after a disconnect. Clients with
// a server-assigned id cannot reconnect under it, so keeping their sessions
// would only accumulate dead entries.
type Client struct {
	id         string
	persistent bool
	hub        *Hub
	ws         *websocket.Conn
	send       chan []byte
	log        *logger.Entry
}

func newClient(id string, persistent bool, h *Hub, ws *websocket.Conn, sendBuffer int) *Client {
	if sendBuffer <= 0 {
		sendBuffer = 256
	}
	return &Client{
		id:         id,
		persistent: persistent,
		hub:        h,
		ws:         ws,
		send:       make(chan []byte, sendBuffer),
		log:        logger.GetLogger().WithComponent("hub").WithFields(logger.Fields{"client": id}),
	}
}

// enqueue hands a payload to the write pump without blocking.
func (c *Client) enqueue(payload []byte) {
	select {
	case c.send <- payload:
	default:
		c.log.Warn("client send buffer full, dropping frame")
	}
}

func (c *Client) readPump(pongWait time.Duration) {
	defer func() {
		c.hub.unregister(c)
		c.ws.Close()
	}()

	c.ws.SetReadLimit(4096)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, frame, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		var msg controlMsg
		if err := json.Unmarshal(frame, &msg); err != nil {
			c.log.WithError(err).Debug("ignoring malformed control frame")
			continue
		}
		switch msg.Type {
		case "subscribe":
			if msg.Symbol == "" || len(msg.Exchanges) == 0 {
				continue
			}
			c.hub.clientSubscribe(c, msg.Symbol, msg.Exchanges)
		case "unsubscribe":
			if msg.Symbol == "" {
				continue
			}
			c.hub.clientUnsubscribe(c, msg.Symbol)
		}
	}
}

func (c *Client) writePump(writeTimeout, pingPeriod time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
