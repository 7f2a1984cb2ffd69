package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	channel string
	payload []byte
}

// fakeRedis records Publish calls; every other Cmdable method is unused.
type fakeRedis struct {
	redis.Cmdable
	messages []published
	err      error
}

func (f *fakeRedis) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	f.messages = append(f.messages, published{channel: channel, payload: message.([]byte)})
	cmd.SetVal(1)
	return cmd
}

func TestBusPublish(t *testing.T) {
	client := &fakeRedis{}
	bus := NewBus(client, "gpucost:events:")

	event, err := NewEvent(TypeAllocationCreated, AllocationEvent{AllocationID: "alloc-1", ResourceType: "nvidia-t4", UnitCount: 2, EstimatedCost: "10.52"})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), ChannelAllocation, event))

	require.Len(t, client.messages, 1)
	assert.Equal(t, "gpucost:events:allocation", client.messages[0].channel)

	var decoded Event
	require.NoError(t, json.Unmarshal(client.messages[0].payload, &decoded))
	assert.Equal(t, TypeAllocationCreated, decoded.Type)

	var data AllocationEvent
	require.NoError(t, json.Unmarshal(decoded.Data, &data))
	assert.Equal(t, "alloc-1", data.AllocationID)
	assert.Equal(t, "10.52", data.EstimatedCost)
}

func TestBusPublishError(t *testing.T) {
	bus := NewBus(&fakeRedis{err: errors.New("connection refused")}, "")

	event, err := NewEvent(TypeAdmissionRejected, RejectionEvent{Reason: "insufficient_resources"})
	require.NoError(t, err)
	assert.EqualError(t, bus.Publish(context.Background(), ChannelAdmission, event), "connection refused")
}

func TestNopPublisher(t *testing.T) {
	assert.NoError(t, NopPublisher{}.Publish(context.Background(), ChannelAdmission, Event{}))
}
