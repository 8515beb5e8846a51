package websocket

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gofiber/contrib/websocket"

	"github.com/medianote/api/internal/model"
)

// Hub fans task progress messages out to the clients subscribed to each task.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*websocket.Conn]struct{}
	broadcast   chan broadcastMessage
}

type broadcastMessage struct {
	taskID  string
	payload []byte
}

// NewHub creates an empty hub; call Run in a goroutine before use.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[*websocket.Conn]struct{}),
		broadcast:   make(chan broadcastMessage, 64),
	}
}

// Run delivers broadcast messages to subscribers until the channel closes.
func (h *Hub) Run() {
	for msg := range h.broadcast {
		h.mu.RLock()
		conns := h.subscribers[msg.taskID]
		for conn := range conns {
			if err := conn.WriteMessage(websocket.TextMessage, msg.payload); err != nil {
				log.Printf("WebSocket write failed for task %s: %v", msg.taskID, err)
			}
		}
		h.mu.RUnlock()
	}
}

// HandleConnection subscribes a client to a task's updates and blocks until
// the client disconnects.
func (h *Hub) HandleConnection(conn *websocket.Conn, taskID string) {
	h.subscribe(taskID, conn)
	defer h.unsubscribe(taskID, conn)

	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		// Answer pings so idle clients stay connected.
		var msg model.WSMessage
		if messageType == websocket.TextMessage && json.Unmarshal(payload, &msg) == nil && msg.Type == model.WSMessageTypePing {
			pong, _ := json.Marshal(model.WSMessage{Type: model.WSMessageTypePong})
			_ = conn.WriteMessage(websocket.TextMessage, pong)
		}
	}
}

// BroadcastProgress pushes a progress update to a task's subscribers.
func (h *Hub) BroadcastProgress(taskID string, progress int, status model.JobStatus, step string) {
	h.send(taskID, model.WSProgressMessage{
		Type:        model.WSMessageTypeProgress,
		TaskID:      taskID,
		Progress:    progress,
		Status:      status,
		CurrentStep: step,
	})
}

// BroadcastComplete pushes the final result to a task's subscribers.
func (h *Hub) BroadcastComplete(taskID string, result interface{}) {
	h.send(taskID, model.WSCompleteMessage{
		Type:   model.WSMessageTypeComplete,
		TaskID: taskID,
		Result: result,
	})
}

// BroadcastError pushes a failure to a task's subscribers.
func (h *Hub) BroadcastError(taskID, code, message string) {
	h.send(taskID, model.WSErrorMessage{
		Type:   model.WSMessageTypeError,
		TaskID: taskID,
		Error:  model.WSError{Code: code, Message: message},
	})
}

func (h *Hub) send(taskID string, msg interface{}) {
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Printf("WebSocket marshal failed for task %s: %v", taskID, err)
		return
	}
	select {
	case h.broadcast <- broadcastMessage{taskID: taskID, payload: payload}:
	default:
		log.Printf("WebSocket broadcast buffer full, dropping message for task %s", taskID)
	}
}

func (h *Hub) subscribe(taskID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subscribers[taskID] == nil {
		h.subscribers[taskID] = make(map[*websocket.Conn]struct{})
	}
	h.subscribers[taskID][conn] = struct{}{}
}

func (h *Hub) unsubscribe(taskID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subscribers[taskID], conn)
	if len(h.subscribers[taskID]) == 0 {
		delete(h.subscribers, taskID)
	}
}
