package stream

import (
	"context"

	"github.com/microarena/duelcore/internal/events"
)

// HubPublisher adapts the hub to the events.Publisher interface so it can be
// a fanout target next to Kafka: every engine event is also pushed to the
// spectators following that duel.
type HubPublisher struct {
	hub *Hub
}

// NewHubPublisher wraps a hub as an event publisher.
func NewHubPublisher(hub *Hub) *HubPublisher {
	return &HubPublisher{hub: hub}
}

// PublishBetPlaced pushes the event to the duel's subscribers.
func (p *HubPublisher) PublishBetPlaced(ctx context.Context, e events.BetPlaced) error {
	p.hub.Broadcast(e.DuelID, Envelope{Type: "bet_placed", Data: e})
	return nil
}

// PublishDuelResolved pushes the event to the duel's subscribers.
func (p *HubPublisher) PublishDuelResolved(ctx context.Context, e events.DuelResolved) error {
	p.hub.Broadcast(e.DuelID, Envelope{Type: "duel_resolved", Data: e})
	return nil
}

// PublishDuelCancelled pushes the event to the duel's subscribers.
func (p *HubPublisher) PublishDuelCancelled(ctx context.Context, e events.DuelCancelled) error {
	p.hub.Broadcast(e.DuelID, Envelope{Type: "duel_cancelled", Data: e})
	return nil
}

// Close closes the underlying hub.
func (p *HubPublisher) Close() error {
	return p.hub.Close()
}
