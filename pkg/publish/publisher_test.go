package publish

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ridgeline-homes/portalchat/pkg/events"
)

type fakeBroker struct {
	frames map[string][][]byte
	err    error
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{frames: make(map[string][][]byte)}
}

func (b *fakeBroker) Publish(ctx context.Context, destination string, frame []byte) error {
	if b.err != nil {
		return b.err
	}
	b.frames[destination] = append(b.frames[destination], frame)
	return nil
}

func TestDestinationNaming(t *testing.T) {
	assert.Equal(t, "private-u1", Destination("u1"))
}

func TestPublishAddressesPrivateDestination(t *testing.T) {
	broker := newFakeBroker()
	p := New(broker, zap.NewNop())

	p.Publish(context.Background(), "u1", events.KindMessagesRead, events.MessagesRead{
		ChannelID: "dm:u1:u2",
		ReadBy:    "u2",
	})

	require.Len(t, broker.frames["private-u1"], 1)
	assert.Empty(t, broker.frames["private-u2"])
	assert.Empty(t, broker.frames["private-u3"])

	env, err := events.Decode(broker.frames["private-u1"][0])
	require.NoError(t, err)
	assert.Equal(t, events.KindMessagesRead, env.Event)

	var payload events.MessagesRead
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, "u2", payload.ReadBy)
}

func TestPublishAllFansOutPerUser(t *testing.T) {
	broker := newFakeBroker()
	p := New(broker, zap.NewNop())

	p.PublishAll(context.Background(), []string{"u1", "u2"}, events.KindUserTyping, events.UserTyping{
		ChannelID: "dm:u1:u2",
		UserID:    "u1",
		IsTyping:  true,
	})

	assert.Len(t, broker.frames["private-u1"], 1)
	assert.Len(t, broker.frames["private-u2"], 1)
	assert.Len(t, broker.frames, 2)
}

func TestBrokerErrorIsSwallowed(t *testing.T) {
	broker := newFakeBroker()
	broker.err = errors.New("transport gone")
	p := New(broker, zap.NewNop())

	// Must not panic or surface the transport failure.
	p.Publish(context.Background(), "u1", events.KindNewMessage, events.NewMessage{ChannelID: "dm:u1:u2"})
	p.PublishAll(context.Background(), []string{"u1", "u2"}, events.KindNewMessage, events.NewMessage{ChannelID: "dm:u1:u2"})
}
