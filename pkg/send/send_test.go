package send

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ridgeline-homes/portalchat/pkg/channel"
	"github.com/ridgeline-homes/portalchat/pkg/events"
	"github.com/ridgeline-homes/portalchat/pkg/fanout"
	"github.com/ridgeline-homes/portalchat/pkg/model"
)

type fakeStore struct {
	nextID    int64
	insertErr error
	members   map[string][]string
}

func (f *fakeStore) InsertMessage(ctx context.Context, channelID, senderID, senderName, body string) (model.Message, error) {
	if f.insertErr != nil {
		return model.Message{}, f.insertErr
	}
	f.nextID++
	return model.Message{
		ID:         f.nextID,
		ChannelID:  channelID,
		SenderID:   senderID,
		SenderName: senderName,
		Body:       body,
		CreatedAt:  time.Now(),
	}, nil
}

func (f *fakeStore) Members(ctx context.Context, channelID string) ([]string, error) {
	return f.members[channelID], nil
}

func (f *fakeStore) UnreadSenders(ctx context.Context, channelID, userID string) ([]string, error) {
	return nil, nil
}

type fakePublisher struct {
	destinations []string
	kinds        []events.Kind
}

func (f *fakePublisher) PublishAll(ctx context.Context, userIDs []string, kind events.Kind, payload any) {
	f.destinations = append(f.destinations, userIDs...)
	f.kinds = append(f.kinds, kind)
}

type fakeActivity struct {
	records []model.Message
	err     error
}

func (f *fakeActivity) Publish(ctx context.Context, msg model.Message) error {
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, msg)
	return nil
}

func TestSendFansOutToParticipantsOnly(t *testing.T) {
	st := &fakeStore{}
	pub := &fakePublisher{}
	act := &fakeActivity{}
	svc := NewService(st, fanout.NewResolver(st), pub, act, zap.NewNop())

	chanID := channel.DirectID("u1", "u2")
	msg, err := svc.Send(context.Background(), chanID, "u1", "Avery", "m1")
	require.NoError(t, err)
	assert.NotZero(t, msg.ID)

	// Both participants and nobody else; u3 never appears.
	assert.ElementsMatch(t, []string{"u1", "u2"}, pub.destinations)
	assert.NotContains(t, pub.destinations, "u3")
	assert.Equal(t, []events.Kind{events.KindNewMessage}, pub.kinds)

	require.Len(t, act.records, 1)
	assert.Equal(t, msg.ID, act.records[0].ID)
}

func TestSendPersistFailurePublishesNothing(t *testing.T) {
	st := &fakeStore{insertErr: errors.New("write timeout")}
	pub := &fakePublisher{}
	svc := NewService(st, fanout.NewResolver(st), pub, &fakeActivity{}, zap.NewNop())

	_, err := svc.Send(context.Background(), channel.DirectID("u1", "u2"), "u1", "Avery", "m1")
	require.Error(t, err)
	assert.Empty(t, pub.destinations)
}

func TestSendMalformedChannelStillCommits(t *testing.T) {
	st := &fakeStore{}
	pub := &fakePublisher{}
	svc := NewService(st, fanout.NewResolver(st), pub, &fakeActivity{}, zap.NewNop())

	// Direct-prefixed but undecodable: delivery is skipped, the write stands.
	msg, err := svc.Send(context.Background(), "dm:broken", "u1", "Avery", "m1")
	require.NoError(t, err)
	assert.NotZero(t, msg.ID)
	assert.Empty(t, pub.destinations)
}

func TestSendActivityFailureIsNonFatal(t *testing.T) {
	st := &fakeStore{}
	pub := &fakePublisher{}
	svc := NewService(st, fanout.NewResolver(st), pub, &fakeActivity{err: errors.New("broker down")}, zap.NewNop())

	_, err := svc.Send(context.Background(), channel.DirectID("u1", "u2"), "u1", "Avery", "m1")
	require.NoError(t, err)
	assert.Len(t, pub.destinations, 2)
}
