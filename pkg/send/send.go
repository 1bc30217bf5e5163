// Package send is the message send pipeline shared by the gateway and
// the HTTP API: persist, fan out, record activity.
package send

import (
	"context"

	"go.uber.org/zap"

	"github.com/ridgeline-homes/portalchat/pkg/events"
	"github.com/ridgeline-homes/portalchat/pkg/model"
)

// MessageStore persists messages and assigns their ids.
type MessageStore interface {
	InsertMessage(ctx context.Context, channelID, senderID, senderName, body string) (model.Message, error)
}

// MessageResolver computes who must see a new message.
type MessageResolver interface {
	MessageDestinations(ctx context.Context, channelID string) ([]string, error)
}

// EventPublisher is the fire-and-forget event sink.
type EventPublisher interface {
	PublishAll(ctx context.Context, userIDs []string, kind events.Kind, payload any)
}

// ActivityRecorder feeds the conversation materializer.
type ActivityRecorder interface {
	Publish(ctx context.Context, msg model.Message) error
}

type Service struct {
	store    MessageStore
	resolver MessageResolver
	pub      EventPublisher
	activity ActivityRecorder
	log      *zap.Logger
}

func NewService(store MessageStore, resolver MessageResolver, pub EventPublisher, activity ActivityRecorder, log *zap.Logger) *Service {
	return &Service{store: store, resolver: resolver, pub: pub, activity: activity, log: log}
}

// Send persists a message and returns the stored row with its
// server-assigned id; the caller inserts that row optimistically. Only
// the persistence write can fail the call. Fanout, event publishing and
// activity recording are best-effort: a client that misses the push
// recovers on its next reload.
func (s *Service) Send(ctx context.Context, channelID, senderID, senderName, body string) (model.Message, error) {
	msg, err := s.store.InsertMessage(ctx, channelID, senderID, senderName, body)
	if err != nil {
		return model.Message{}, err
	}

	destinations, err := s.resolver.MessageDestinations(ctx, channelID)
	if err != nil {
		// The row is committed; delivery just degrades to polling.
		s.log.Warn("resolve message destinations",
			zap.String("channel_id", channelID),
			zap.Error(err),
		)
	} else {
		s.pub.PublishAll(ctx, destinations, events.KindNewMessage, events.NewMessage{
			ChannelID: channelID,
			Message:   msg,
		})
	}

	if s.activity != nil {
		if err := s.activity.Publish(ctx, msg); err != nil {
			s.log.Warn("record activity", zap.Int64("message_id", msg.ID), zap.Error(err))
		}
	}
	return msg, nil
}
