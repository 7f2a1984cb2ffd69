package eventbus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

type Event struct {
	Type      string          `json:"type"`
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

type AllocationEvent struct {
	AllocationID  string `json:"allocation_id"`
	Name          string `json:"name"`
	ResourceType  string `json:"resource_type"`
	UnitCount     int    `json:"unit_count"`
	EstimatedCost string `json:"estimated_cost"`
	CreatedAt     string `json:"created_at"`
}

type RejectionEvent struct {
	ResourceType string `json:"resource_type"`
	UnitCount    int    `json:"unit_count"`
	Reason       string `json:"reason"`
	Message      string `json:"message,omitempty"`
}

const (
	ChannelAllocation = "allocation"
	ChannelAdmission  = "admission"

	TypeAllocationCreated = "allocation.created"
	TypeAdmissionRejected = "admission.rejected"
)

// Publisher delivers events to subscribers. Delivery is best effort.
type Publisher interface {
	Publish(ctx context.Context, channel string, event Event) error
}

// Bus publishes events over Redis pub/sub.
type Bus struct {
	client redis.Cmdable
	prefix string
}

var _ Publisher = (*Bus)(nil)

// NewBus creates a Bus; channel names are prefixed with prefix.
func NewBus(client redis.Cmdable, prefix string) *Bus {
	return &Bus{client: client, prefix: prefix}
}

func NewEvent(eventType string, payload interface{}) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		Type:      eventType,
		Timestamp: time.Now().Unix(),
		Data:      data,
	}, nil
}

func (b *Bus) Publish(ctx context.Context, channel string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.prefix+channel, payload).Err()
}

// NopPublisher discards events. It is used when Redis is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, Event) error {
	return nil
}
