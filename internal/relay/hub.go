// Package relay forwards monitor_update events from the durable Redis
// stream to per-user websocket observers (§4.G), grounded on the teacher's
// internal/services/host.StateCollector subscriber registry and
// internal/api/handlers/websocket_handler.go's connection loop, reworked so
// a connection's room is derived solely from its authenticated identity
// rather than a client-supplied subscription list.
package relay

import (
	"sync"

	"github.com/google/uuid"
)

// subscriberBuffer bounds how many pending events an observer can lag
// behind before updates are dropped for it, mirroring the teacher's
// buffered StateSubscriber.Channel.
const subscriberBuffer = 64

// Subscriber is one websocket connection's inbox. Channel is closed by
// Hub.Unsubscribe; callers must stop reading from it once that happens.
type Subscriber struct {
	id      string
	userID  uuid.UUID
	Channel chan Event
}

// Hub fans out events to every subscriber currently joined to a user's
// room. There is exactly one room per user; subscribers never choose their
// own room.
type Hub struct {
	mu    sync.RWMutex
	rooms map[uuid.UUID]map[string]*Subscriber
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[uuid.UUID]map[string]*Subscriber)}
}

// Subscribe joins a new Subscriber to userID's room. subscriberID should be
// unique per connection (e.g. a fresh uuid), so unrelated connections from
// the same user don't collide.
func (h *Hub) Subscribe(userID uuid.UUID, subscriberID string) *Subscriber {
	sub := &Subscriber{id: subscriberID, userID: userID, Channel: make(chan Event, subscriberBuffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[userID]
	if !ok {
		room = make(map[string]*Subscriber)
		h.rooms[userID] = room
	}
	room[subscriberID] = sub
	return sub
}

// Unsubscribe removes sub from its room and closes its channel. Safe to
// call more than once.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[sub.userID]
	if !ok {
		return
	}
	if _, ok := room[sub.id]; !ok {
		return
	}
	delete(room, sub.id)
	if len(room) == 0 {
		delete(h.rooms, sub.userID)
	}
	close(sub.Channel)
}

// Broadcast delivers event to every subscriber in userID's room. A
// subscriber whose inbox is full is skipped rather than blocked, so one
// slow observer never stalls delivery to the rest of the room.
func (h *Hub) Broadcast(userID uuid.UUID, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.rooms[userID] {
		select {
		case sub.Channel <- event:
		default:
		}
	}
}

// RoomSize reports how many subscribers are currently joined to userID's
// room.
func (h *Hub) RoomSize(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[userID])
}

// Subscribers reports the total number of connections across every room.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, room := range h.rooms {
		n += len(room)
	}
	return n
}
