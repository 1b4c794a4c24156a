package broker

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Channel represents the type of event channel
type Channel string

const (
	// ChannelAdmin fans out to every admin console.
	ChannelAdmin Channel = "admin"
	// ChannelUser is a private per-user feed (customer or technician).
	ChannelUser Channel = "user"
)

// Event represents a system event
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Timestamp int64                  `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// SegmentedBroker manages channel-based event distribution.
// Admin clients receive everything published to the admin channel; each
// user only receives events scoped to their own id.
type SegmentedBroker struct {
	adminClients map[chan Event]bool

	// map[user_id]map[client_channel]bool
	userClients map[string]map[chan Event]bool

	mutex sync.RWMutex
}

// NewSegmentedBroker creates a new segmented broker instance
func NewSegmentedBroker() *SegmentedBroker {
	return &SegmentedBroker{
		adminClients: make(map[chan Event]bool),
		userClients:  make(map[string]map[chan Event]bool),
	}
}

// Subscribe creates a new client channel and returns it.
// For admin: id is ignored. For user: id is the user id.
func (b *SegmentedBroker) Subscribe(channel Channel, id string) chan Event {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	clientChan := make(chan Event, 10) // Buffered to prevent blocking

	switch channel {
	case ChannelAdmin:
		b.adminClients[clientChan] = true

	case ChannelUser:
		if _, exists := b.userClients[id]; !exists {
			b.userClients[id] = make(map[chan Event]bool)
		}
		b.userClients[id][clientChan] = true
	}

	return clientChan
}

// Unsubscribe removes a client channel
func (b *SegmentedBroker) Unsubscribe(channel Channel, id string, clientChan chan Event) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	switch channel {
	case ChannelAdmin:
		delete(b.adminClients, clientChan)
		close(clientChan)

	case ChannelUser:
		if clients, exists := b.userClients[id]; exists {
			delete(clients, clientChan)
			if len(clients) == 0 {
				delete(b.userClients, id)
			}
		}
		close(clientChan)
	}
}

// Publish sends an event to the appropriate channel(s). Events without an
// id get one stamped so clients can de-duplicate reconnect replays.
func (b *SegmentedBroker) Publish(channel Channel, id string, event Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	b.mutex.RLock()
	defer b.mutex.RUnlock()

	switch channel {
	case ChannelAdmin:
		for clientChan := range b.adminClients {
			select {
			case clientChan <- event:
			default:
				// Client not ready, skip to avoid blocking
			}
		}

	case ChannelUser:
		if clients, exists := b.userClients[id]; exists {
			for clientChan := range clients {
				select {
				case clientChan <- event:
				default:
					// Client not ready, skip
				}
			}
		}
	}
}

// GetStats returns current broker statistics
func (b *SegmentedBroker) GetStats() map[string]int {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	userCount := 0
	for _, clients := range b.userClients {
		userCount += len(clients)
	}

	return map[string]int{
		"admin_clients": len(b.adminClients),
		"user_clients":  userCount,
	}
}

// Publisher adapts the broker to the engine's realtime port: it builds the
// Event envelope and routes by channel name.
type Publisher struct {
	broker *SegmentedBroker
}

func NewPublisher(b *SegmentedBroker) *Publisher {
	return &Publisher{broker: b}
}

func (p *Publisher) Publish(channel string, userID string, eventType string, data map[string]interface{}) {
	event := Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().Unix(),
		Data:      data,
	}

	switch Channel(channel) {
	case ChannelAdmin:
		p.broker.Publish(ChannelAdmin, "", event)
	case ChannelUser:
		p.broker.Publish(ChannelUser, userID, event)
	}
}
