package ws

import (
	"encoding/json"
	"log"
	"sync"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Status events pushed to the evaluator's browser
const (
	MsgScorePersisted     MessageType = "score_persisted"
	MsgScorePersistFailed MessageType = "score_persist_failed"
	MsgCaseSubmitted      MessageType = "case_submitted"
	MsgError              MessageType = "error"
)

// Message is the WebSocket envelope format
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Hub manages WebSocket connections, one per evaluator. A newer
// connection for the same evaluator replaces the older one.
type Hub struct {
	conns map[string]*Connection

	mu sync.RWMutex

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *BroadcastMessage
}

// Connection represents a WebSocket connection
type Connection struct {
	EvaluatorID string
	Send        chan []byte
	Hub         *Hub
}

// BroadcastMessage is a message addressed to one evaluator
type BroadcastMessage struct {
	EvaluatorID string
	Message     *Message
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	h := &Hub{
		conns:      make(map[string]*Connection),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan *BroadcastMessage, 256),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			if old, ok := h.conns[conn.EvaluatorID]; ok {
				close(old.Send)
			}
			h.conns[conn.EvaluatorID] = conn
			h.mu.Unlock()
			log.Printf("Evaluator %s connected via WebSocket", conn.EvaluatorID)

		case conn := <-h.unregister:
			h.mu.Lock()
			if existing, ok := h.conns[conn.EvaluatorID]; ok && existing == conn {
				delete(h.conns, conn.EvaluatorID)
				close(conn.Send)
				log.Printf("Evaluator %s disconnected", conn.EvaluatorID)
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			if conn, ok := h.conns[msg.EvaluatorID]; ok {
				data, _ := json.Marshal(msg.Message)
				select {
				case conn.Send <- data:
				default:
					// Drop message if buffer full
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// BroadcastToEvaluator sends a status event to one evaluator's browser
// (implements service.Broadcaster)
func (h *Hub) BroadcastToEvaluator(evaluatorID string, msgType string, payload interface{}) {
	data, _ := json.Marshal(payload)
	h.broadcast <- &BroadcastMessage{
		EvaluatorID: evaluatorID,
		Message: &Message{
			Type:    MessageType(msgType),
			Payload: data,
		},
	}
}
