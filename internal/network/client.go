package network

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/MRamiBalles/Nationship/internal/platform/metrics"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 4096
	// Upper bound for one command, including storage loads.
	commandTimeout = 5 * time.Second
)

// Client is one WebSocket connection bound to a nation.
type Client struct {
	hub      *Hub
	service  *Service
	conn     *websocket.Conn
	send     chan []byte
	nationID string
	limiter  *rate.Limiter
}

// NewClient creates a new WebSocket client for nationID.
func NewClient(hub *Hub, service *Service, conn *websocket.Conn, nationID string) *Client {
	perSecond := hub.tuning.MaxMessagesPerSecond
	return &Client{
		hub:      hub,
		service:  service,
		conn:     conn,
		send:     make(chan []byte, hub.tuning.ClientSendBuffer),
		nationID: nationID,
		limiter:  rate.NewLimiter(rate.Limit(perSecond), perSecond),
	}
}

// Register adds the client to the hub.
func (c *Client) Register() {
	select {
	case c.hub.register <- c:
	case <-c.hub.done:
	}
}

// ReadPump reads commands from the websocket connection and executes them.
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				metrics.Get().RecordWSError()
				c.hub.logger.Warn("websocket read failed", "nation_id", c.nationID, "err", err)
			}
			break
		}
		metrics.Get().RecordWSMessage(true)

		var cmd Command
		if err := json.Unmarshal(message, &cmd); err != nil {
			c.hub.Reply(c, Message{Type: MsgTypeError, Error: "malformed command: " + err.Error()})
			continue
		}
		c.handleCommand(cmd)
	}
}

func (c *Client) handleCommand(cmd Command) {
	if !c.limiter.Allow() {
		c.hub.logger.Warn("rate limit exceeded", "nation_id", c.nationID, "type", cmd.Type)
		c.hub.Reply(c, Message{Type: MsgTypeError, Error: "rate limit exceeded"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	res, err := c.service.Handle(ctx, c.nationID, cmd)
	if err != nil {
		if !IsClientError(err) {
			c.hub.logger.Error("command failed", "nation_id", c.nationID, "type", cmd.Type, "err", err)
		}
		c.hub.Reply(c, Message{Type: MsgTypeError, Error: err.Error()})
		return
	}
	// Events reach every client through the broadcast; the sender gets the fresh snapshot.
	res.Events = nil
	c.hub.Reply(c, Message{Type: MsgTypeSnapshot, Snapshot: &res.Snapshot, Result: &res})
}

// WritePump pumps messages from the hub to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
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
			// One frame per message so clients can decode each as JSON.
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				metrics.Get().RecordWSError()
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

// Upgrader builds the websocket upgrader. An empty allow list accepts every origin.
func Upgrader(allowedOrigins []string) websocket.Upgrader {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowed) == 0 {
				return true
			}
			return allowed[r.Header.Get("Origin")]
		},
	}
}

// ServeWs upgrades GET /ws?nation_id=ID and starts the client pumps.
func ServeWs(hub *Hub, service *Service, upgrader websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		nationID := r.URL.Query().Get("nation_id")
		if nationID == "" {
			jsonError(w, "missing nation_id", http.StatusBadRequest)
			return
		}
		if hub.Full(nationID) {
			jsonError(w, "too many clients for this nation", http.StatusServiceUnavailable)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			metrics.Get().RecordWSError()
			hub.logger.Warn("failed to upgrade websocket connection", "err", err)
			return
		}

		client := NewClient(hub, service, conn, nationID)
		client.Register()

		// Greet with the current state so the client can render before the first event.
		ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
		snap, err := service.Snapshot(ctx, nationID)
		cancel()
		if err == nil {
			hub.Reply(client, Message{Type: MsgTypeSnapshot, Snapshot: &snap})
		}

		go client.WritePump()
		go client.ReadPump()
	}
}
