package socket

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/matic113/freelance-platform-sub003/internal/events"
)

// Broadcaster publishes lifecycle events to the hub.
type Broadcaster struct {
	hub *Hub
}

func NewBroadcaster(hub *Hub) *Broadcaster {
	return &Broadcaster{hub: hub}
}

// Publish sends e to both parties' user rooms and the contract room.
func (b *Broadcaster) Publish(_ context.Context, e events.Event) error {
	data, err := json.Marshal(Message{Type: MessageEvent, Event: &e, Timestamp: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", e.Type, err)
	}

	rooms := make([]string, 0, len(e.Parties)+1)
	for _, userID := range e.Parties {
		rooms = append(rooms, UserRoom(userID))
	}
	rooms = append(rooms, ContractRoom(e.ContractID))

	if !b.hub.SendToRooms(rooms, data) {
		return fmt.Errorf("broadcast queue full, dropped %s event for contract %s", e.Type, e.ContractID)
	}
	return nil
}

var _ events.Publisher = (*Broadcaster)(nil)
