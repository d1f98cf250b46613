package events

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/qrdine/qrdine/utils"
)

// Event types carried in websocket frames.
const (
	EventTableOccupancy = "table_occupancy"
	EventSessionOpened  = "session_opened"
	EventSessionClosed  = "session_closed"
	EventGuestJoined    = "guest_joined"
	EventNewOrder       = "new_order"
	EventOrderStatus    = "order_status"
	EventOrderReady     = "order_ready"
	EventPaymentCreated = "payment_created"
	EventPaymentStatus  = "payment_status"
)

type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Topic names, namespaced by entity.
func OrderTopic(id uint) string        { return fmt.Sprintf("order:%d", id) }
func TableTopic(id uint) string        { return fmt.Sprintf("table:%d", id) }
func TableSessionTopic(id uint) string { return fmt.Sprintf("table_session:%d", id) }
func WaiterTopic(id uint) string       { return fmt.Sprintf("waiter:%d", id) }
func RestaurantTopic(id uint) string   { return fmt.Sprintf("restaurant:%d", id) }

// Publisher is what the services publish through. Satisfied by *Hub;
// tests substitute a recorder.
type Publisher interface {
	Publish(topic string, ev Event)
}

// Mirror forwards published events somewhere else (e.g. Redis) so that
// listeners on other instances see them too. Best effort.
type Mirror interface {
	Publish(topic string, payload []byte) error
}

// Hub fans events out to the websocket listeners subscribed to a topic.
// No persistence, no replay, no cross-topic ordering: a listener that
// disconnects simply stops receiving.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[*websocket.Conn]bool
	topics map[*websocket.Conn][]string
	mirror Mirror
}

func NewHub() *Hub {
	return &Hub{
		subs:   make(map[string]map[*websocket.Conn]bool),
		topics: make(map[*websocket.Conn][]string),
	}
}

// SetMirror attaches an optional cross-instance mirror.
func (h *Hub) SetMirror(m Mirror) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.mirror = m
}

// Subscribe registers a connection for the given topics.
func (h *Hub) Subscribe(conn *websocket.Conn, topics []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, t := range topics {
		if h.subs[t] == nil {
			h.subs[t] = make(map[*websocket.Conn]bool)
		}
		h.subs[t][conn] = true
	}
	h.topics[conn] = append(h.topics[conn], topics...)
}

// Unsubscribe drops a connection from all its topics and closes it.
func (h *Hub) Unsubscribe(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, t := range h.topics[conn] {
		delete(h.subs[t], conn)
		if len(h.subs[t]) == 0 {
			delete(h.subs, t)
		}
	}
	delete(h.topics, conn)
	conn.Close()
}

// SubscriberCount reports how many connections listen on a topic.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[topic])
}

// Publish delivers ev to every listener of topic. Fire and forget: a
// failed write skips the listener, it is dropped on its next read error.
func (h *Hub) Publish(topic string, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		if utils.ErrorLogger != nil {
			utils.ErrorLogger.Printf("events: marshal %s: %v", ev.Event, err)
		}
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.subs[topic] {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil && utils.ErrorLogger != nil {
			utils.ErrorLogger.Printf("events: write to %s listener: %v", topic, err)
		}
	}

	if h.mirror != nil {
		if err := h.mirror.Publish(topic, data); err != nil && utils.ErrorLogger != nil {
			utils.ErrorLogger.Printf("events: mirror %s: %v", topic, err)
		}
	}
}
