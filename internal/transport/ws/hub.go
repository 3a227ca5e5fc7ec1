package ws

import (
	"encoding/json"
	"sync"

	"fieldsurvey/internal/log"
	"fieldsurvey/internal/metrics"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	MsgResponseCreated MessageType = "response_created"
	MsgSubscribed      MessageType = "subscribed"
)

// Message is the WebSocket envelope format
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Hub fans live survey events out to dashboard connections
type Hub struct {
	// surveyID -> subscribers
	subscribers map[string]map[*Connection]struct{}

	mu sync.RWMutex

	// Channels for coordination
	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *BroadcastMessage
	done       chan struct{}

	metrics *metrics.Collector
}

// Connection represents a WebSocket connection
type Connection struct {
	SurveyID string
	UserID   string
	Send     chan []byte
	Hub      *Hub
}

// BroadcastMessage is a message to broadcast
type BroadcastMessage struct {
	SurveyID string
	Message  *Message
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	h := &Hub{
		subscribers: make(map[string]map[*Connection]struct{}),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		broadcast:   make(chan *BroadcastMessage, 256),
		done:        make(chan struct{}),
	}
	go h.run()
	return h
}

// SetMetrics tracks open feed connections
func (h *Hub) SetMetrics(m *metrics.Collector) {
	h.metrics = m
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			if h.subscribers[conn.SurveyID] == nil {
				h.subscribers[conn.SurveyID] = make(map[*Connection]struct{})
			}
			h.subscribers[conn.SurveyID][conn] = struct{}{}
			h.mu.Unlock()
			h.metrics.FeedConnected()
			log.Debugf("feed subscriber %s joined survey %s", conn.UserID, conn.SurveyID)

		case conn := <-h.unregister:
			h.mu.Lock()
			if subs, ok := h.subscribers[conn.SurveyID]; ok {
				if _, ok := subs[conn]; ok {
					delete(subs, conn)
					close(conn.Send)
					if len(subs) == 0 {
						delete(h.subscribers, conn.SurveyID)
					}
					h.metrics.FeedDisconnected()
					log.Debugf("feed subscriber %s left survey %s", conn.UserID, conn.SurveyID)
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			data, err := json.Marshal(msg.Message)
			if err != nil {
				log.Errorf("feed message encode failed: %v", err)
				continue
			}
			h.mu.RLock()
			for conn := range h.subscribers[msg.SurveyID] {
				select {
				case conn.Send <- data:
				default:
					// Drop message if buffer full
				}
			}
			h.mu.RUnlock()

		case <-h.done:
			h.mu.Lock()
			for surveyID, subs := range h.subscribers {
				for conn := range subs {
					close(conn.Send)
					h.metrics.FeedDisconnected()
				}
				delete(h.subscribers, surveyID)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.done:
		close(conn.Send)
	}
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Close disconnects every subscriber and stops the hub
func (h *Hub) Close() {
	select {
	case <-h.done:
	default:
		close(h.done)
	}
}

// SubscriberCount returns the open connections for a survey
func (h *Hub) SubscriberCount(surveyID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[surveyID])
}

// BroadcastToSurvey queues an event for a survey's subscribers (implements
// service.Broadcaster). It never blocks the caller; events are dropped when
// the queue is full.
func (h *Hub) BroadcastToSurvey(surveyID string, msgType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Errorf("feed payload encode failed: %v", err)
		return
	}
	msg := &BroadcastMessage{
		SurveyID: surveyID,
		Message: &Message{
			Type:    MessageType(msgType),
			Payload: data,
		},
	}
	select {
	case h.broadcast <- msg:
	default:
		log.Warnf("feed queue full, dropping %s for survey %s", msgType, surveyID)
	}
}
