package distributed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"livecart/internal/core/domain"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// EventType represents the type of event
type EventType string

const (
	EventRoomEnded EventType = "room.ended"
)

// Event is one room lifecycle notification shared between relay instances.
// A viewer's websocket may land on a different instance than its seller's;
// the bus is how that instance learns the room died.
type Event struct {
	Type       EventType       `json:"type"`
	InstanceID string          `json:"instance_id"`
	Timestamp  time.Time       `json:"timestamp"`
	RoomID     domain.RoomID   `json:"room_id"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// RoomEventBus provides event publishing and subscription for coordination
type RoomEventBus struct {
	client     *redis.Client
	instanceID string
	logger     *zap.SugaredLogger
	pubsub     *redis.PubSub
	channel    string
}

// NewRoomEventBus creates a new event bus
func NewRoomEventBus(client *redis.Client, instanceID string, logger *zap.SugaredLogger) *RoomEventBus {
	return &RoomEventBus{
		client:     client,
		instanceID: instanceID,
		logger:     logger,
		channel:    "livecart:rooms:events",
	}
}

// Publish publishes an event to the event bus
func (eb *RoomEventBus) Publish(ctx context.Context, event *Event) error {
	event.InstanceID = eb.instanceID
	event.Timestamp = time.Now()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := eb.client.Publish(ctx, eb.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	eb.logger.Debugw("published event",
		"type", event.Type,
		"room_id", event.RoomID,
	)

	return nil
}

// Subscribe blocks, calling handler for every event published by another
// instance. Events from this instance are skipped.
func (eb *RoomEventBus) Subscribe(ctx context.Context, handler func(*Event) error) error {
	if eb.pubsub != nil {
		return fmt.Errorf("already subscribed")
	}

	eb.pubsub = eb.client.Subscribe(ctx, eb.channel)
	defer eb.pubsub.Close()

	ch := eb.pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-ch:
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				eb.logger.Warnw("failed to unmarshal event",
					"error", err,
					"payload", msg.Payload,
				)
				continue
			}

			if event.InstanceID == eb.instanceID {
				continue
			}

			if err := handler(&event); err != nil {
				eb.logger.Warnw("error handling event",
					"type", event.Type,
					"error", err,
				)
			}
		}
	}
}

// PublishRoomEnded publishes a room ended event
func (eb *RoomEventBus) PublishRoomEnded(ctx context.Context, roomID domain.RoomID) error {
	return eb.Publish(ctx, &Event{
		Type:   EventRoomEnded,
		RoomID: roomID,
	})
}

// Close closes the event bus
func (eb *RoomEventBus) Close() error {
	if eb.pubsub != nil {
		return eb.pubsub.Close()
	}
	return nil
}
