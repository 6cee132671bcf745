package network

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/MRamiBalles/Nationship/internal/domain/civilization"
	"github.com/MRamiBalles/Nationship/internal/events"
	"github.com/MRamiBalles/Nationship/internal/platform/logger"
	"github.com/MRamiBalles/Nationship/internal/platform/metrics"
	"github.com/MRamiBalles/Nationship/internal/platform/optimization"
)

// Outbound message types.
const (
	MsgTypeEvent    = "EVENT"
	MsgTypeSnapshot = "SNAPSHOT"
	MsgTypeError    = "ERROR"
)

// Message is the JSON frame sent to WebSocket clients.
type Message struct {
	Type     string                 `json:"type"`
	Event    *events.GameEvent      `json:"event,omitempty"`
	Snapshot *civilization.Snapshot `json:"snapshot,omitempty"`
	Result   *Result                `json:"result,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

type envelope struct {
	nationID string
	data     []byte
}

type reply struct {
	client *Client
	data   []byte
}

// Hub maintains the set of active clients per nation and broadcasts events to them.
type Hub struct {
	clients    map[string]map[*Client]bool
	broadcast  chan envelope
	replies    chan reply
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.Mutex
	tuning     *optimization.Config
	logger     *logger.Logger

	lastProcessedEvent int
}

// NewHub initializes a new WebSocket Hub.
func NewHub(tuning *optimization.Config, log *logger.Logger) *Hub {
	if tuning == nil {
		tuning = optimization.DefaultConfig()
	}
	return &Hub{
		broadcast:  make(chan envelope, tuning.BroadcastChannelBuffer),
		replies:    make(chan reply, tuning.BroadcastChannelBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[string]map[*Client]bool),
		tuning:     tuning,
		logger:     log.With("component", "hub"),
	}
}

// Run starts the Hub's main loop to handle client connections and broadcasts.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			h.logger.Info("websocket hub shutting down")
			return
		case client := <-h.register:
			h.mu.Lock()
			set, ok := h.clients[client.nationID]
			if !ok {
				set = make(map[*Client]bool)
				h.clients[client.nationID] = set
			}
			set[client] = true
			h.mu.Unlock()
			metrics.Get().RecordWSConnection(1)
			h.logger.Info("websocket client connected", "nation_id", client.nationID)
		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()
		case env := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients[env.nationID] {
				select {
				case client.send <- env.data:
					metrics.Get().RecordWSMessage(false)
				default:
					h.remove(client)
				}
			}
			h.mu.Unlock()
		case r := <-h.replies:
			h.mu.Lock()
			if h.clients[r.client.nationID][r.client] {
				select {
				case r.client.send <- r.data:
					metrics.Get().RecordWSMessage(false)
				default:
					h.remove(r.client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove must be called with h.mu held.
func (h *Hub) remove(client *Client) {
	set := h.clients[client.nationID]
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.clients, client.nationID)
	}
	close(client.send)
	metrics.Get().RecordWSConnection(-1)
	h.logger.Info("websocket client disconnected", "nation_id", client.nationID)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, set := range h.clients {
		for client := range set {
			h.remove(client)
		}
	}
}

// Connected returns the number of clients watching a nation.
func (h *Hub) Connected(nationID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[nationID])
}

// Full reports whether a nation reached the per-nation client limit.
func (h *Hub) Full(nationID string) bool {
	return h.Connected(nationID) >= h.tuning.MaxClientsPerNation
}

// Nations lists the nations with at least one client, with their client counts.
func (h *Hub) Nations() map[string]int {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]int, len(h.clients))
	for id, set := range h.clients {
		out[id] = len(set)
	}
	return out
}

// BroadcastEvent serializes a GameEvent and sends it to the clients of its nation.
func (h *Hub) BroadcastEvent(event events.GameEvent) {
	payload, err := json.Marshal(Message{Type: MsgTypeEvent, Event: &event})
	if err != nil {
		h.logger.Error("failed to serialize event for broadcast", "event_id", event.ID, "err", err)
		return
	}
	select {
	case h.broadcast <- envelope{nationID: event.NationID, data: payload}:
	case <-h.done:
	}
}

// Reply sends a message to one client only.
func (h *Hub) Reply(client *Client, msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to serialize reply", "err", err)
		return
	}
	select {
	case h.replies <- reply{client: client, data: payload}:
	case <-h.done:
	}
}

// StartEventPoller spawns a goroutine that forwards new event log entries to the Hub.
// Events already in the log when it starts are not replayed.
func (h *Hub) StartEventPoller(ctx context.Context, eventLog *events.EventLog) {
	h.lastProcessedEvent = eventLog.Len()
	go func() {
		pollInterval := time.NewTicker(200 * time.Millisecond)
		defer pollInterval.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-pollInterval.C:
				h.PollEvents(eventLog)
			}
		}
	}()
}

// PollEvents broadcasts the events appended since the last poll.
func (h *Hub) PollEvents(eventLog *events.EventLog) int {
	fresh, offset := eventLog.Since(h.lastProcessedEvent)
	h.lastProcessedEvent = offset
	for _, event := range fresh {
		h.BroadcastEvent(event)
	}
	return len(fresh)
}
