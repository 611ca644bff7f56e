package events

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	dom "github.com/tsukiblade/SimpleTaskManager/internal/domain"
	"github.com/tsukiblade/SimpleTaskManager/internal/dto"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	TaskCreated   = "task_created"
	TaskUpdated   = "task_updated"
	TaskCompleted = "task_completed"
	TaskDeleted   = "task_deleted"
)

const (
	writeWait  = 5 * time.Second
	sendBuffer = 16
)

// Event describes one change to the task collection. Task is nil for deletes.
type Event struct {
	Type   string
	TaskID int64
	Task   *dom.Task
}

type message struct {
	Event  string            `json:"event"`
	TaskID int64             `json:"task_id"`
	Task   *dto.TaskResponse `json:"task,omitempty"`
}

// Hub fans task events out to every connected websocket client. Each
// client has its own buffered queue and writer goroutine, so Publish never
// waits on the network.
type Hub struct {
	log      *zap.SugaredLogger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	// reason is sent in the close frame; set before send is closed.
	reason string
}

func NewHub(lg *zap.SugaredLogger) *Hub {
	return &Hub{
		log: lg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// Publish queues ev for all clients. A client whose queue is full is dropped.
func (h *Hub) Publish(ev Event) {
	msg := message{Event: ev.Type, TaskID: ev.TaskID}
	if ev.Task != nil {
		resp := dto.NewTaskResponse(*ev.Task)
		msg.Task = &resp
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Errorw("marshal task event", "event", ev.Type, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.log.Warnw("websocket client too slow, dropping", "remote", c.conn.RemoteAddr().String())
			h.dropLocked(c, "client too slow")
		}
	}
}

// ServeWS upgrades the request and keeps the client registered until it
// disconnects. Incoming messages are discarded.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnw("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.log.Debugw("websocket client connected", "remote", r.RemoteAddr)

	go h.writeLoop(c)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.remove(c, "bye")
			h.log.Debugw("websocket client disconnected", "remote", r.RemoteAddr, "error", err)
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	defer close(c.done)
	defer c.conn.Close()

	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.log.Warnw("websocket write failed, dropping client", "remote", c.conn.RemoteAddr().String(), "error", err)
			h.remove(c, "write failed")
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, c.reason),
		time.Now().Add(writeWait))
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and waits for their close frames until ctx
// is done. Connections still pending then are closed without one.
func (h *Hub) Close(ctx context.Context) {
	h.mu.Lock()
	closing := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		h.dropLocked(c, "server shutting down")
		closing = append(closing, c)
	}
	h.mu.Unlock()

	for _, c := range closing {
		select {
		case <-c.done:
		case <-ctx.Done():
			c.conn.Close()
		}
	}
}

func (h *Hub) remove(c *client, reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(c, reason)
}

// dropLocked unregisters c and stops its writer. h.mu must be held.
func (h *Hub) dropLocked(c *client, reason string) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	c.reason = reason
	close(c.send)
}
