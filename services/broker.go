package services

import (
	"log"
	"sync"
)

// Event names published by the lifecycle engine.
const (
	EventNewIssue     = "newIssue"
	EventIssueUpdated = "issueUpdated"
)

// Event is a named payload delivered to village subscribers. The
// payload is relayed to clients verbatim by the transport layer.
type Event struct {
	Name    string `json:"event"`
	Payload any    `json:"payload"`
}

// Subscriber is one connected session. Events arrive on C; delivery is
// best effort, so a full buffer drops the event rather than blocking
// the publisher.
type Subscriber struct {
	ch chan Event
}

func NewSubscriber(buffer int) *Subscriber {
	if buffer <= 0 {
		buffer = 16
	}
	return &Subscriber{ch: make(chan Event, buffer)}
}

// C is the subscriber's event stream.
func (s *Subscriber) C() <-chan Event { return s.ch }

// Broker fans lifecycle events out to the sessions joined to each
// village's room. Delivery is at most once with no replay: a session
// not joined at publish time never sees the event.
type Broker struct {
	mu    sync.RWMutex
	rooms map[string]map[*Subscriber]struct{}
	joins map[*Subscriber]string
}

func NewBroker() *Broker {
	return &Broker{
		rooms: make(map[string]map[*Subscriber]struct{}),
		joins: make(map[*Subscriber]string),
	}
}

// Join adds the subscriber to a village room. Idempotent; joining a
// second room moves the subscriber out of the first.
func (b *Broker) Join(sub *Subscriber, villageID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if prev, ok := b.joins[sub]; ok {
		if prev == villageID {
			return
		}
		b.removeLocked(sub, prev)
	}

	room, ok := b.rooms[villageID]
	if !ok {
		room = make(map[*Subscriber]struct{})
		b.rooms[villageID] = room
	}
	room[sub] = struct{}{}
	b.joins[sub] = villageID
}

// Leave removes the subscriber from its room, if any.
func (b *Broker) Leave(sub *Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if villageID, ok := b.joins[sub]; ok {
		b.removeLocked(sub, villageID)
	}
}

// removeLocked requires b.mu held.
func (b *Broker) removeLocked(sub *Subscriber, villageID string) {
	delete(b.joins, sub)
	if room, ok := b.rooms[villageID]; ok {
		delete(room, sub)
		if len(room) == 0 {
			delete(b.rooms, villageID)
		}
	}
}

// Publish delivers the event to every session currently in the
// village's room.
func (b *Broker) Publish(villageID, name string, payload any) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	room, ok := b.rooms[villageID]
	if !ok {
		return
	}
	ev := Event{Name: name, Payload: payload}
	for sub := range room {
		select {
		case sub.ch <- ev:
		default:
			log.Printf("broker: dropping %s for slow subscriber in village %s", name, villageID)
		}
	}
}

// RoomSize reports the current subscriber count for a village.
func (b *Broker) RoomSize(villageID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.rooms[villageID])
}
