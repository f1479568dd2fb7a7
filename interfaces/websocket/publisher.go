package websocket

import (
	"context"

	"canvasflow/domain/events"
)

// EventBroadcaster publishes request lifecycle events onto the hub's feed
type EventBroadcaster struct {
	hub *Hub
}

func NewEventBroadcaster(hub *Hub) *EventBroadcaster {
	return &EventBroadcaster{hub: hub}
}

// Publish sends a single event to all connected clients
func (b *EventBroadcaster) Publish(ctx context.Context, event events.DomainEvent) error {
	return b.hub.Broadcast(event.GetEventType(), event.GetAggregateID(), event)
}

// PublishBatch sends multiple events in order
func (b *EventBroadcaster) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	for _, event := range batch {
		if err := b.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
