// Package readstate records channel-granular read watermarks and tells
// the affected senders. There is no per-message read ledger: "read" is
// derived from the membership watermark and collapsed into the readAt
// stamp carried by the event.
package readstate

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ridgeline-homes/portalchat/pkg/events"
)

// Store is the persistence the tracker needs.
type Store interface {
	UpsertLastRead(ctx context.Context, userID, channelID string, at time.Time) error
}

// ReadResolver yields the distinct senders who must be told about a read.
type ReadResolver interface {
	ReadDestinations(ctx context.Context, channelID, readerID string) ([]string, error)
}

// EventPublisher is the fire-and-forget event sink.
type EventPublisher interface {
	Publish(ctx context.Context, userID string, kind events.Kind, payload any)
}

type Tracker struct {
	store    Store
	resolver ReadResolver
	pub      EventPublisher
	log      *zap.Logger
	now      func() time.Time
}

func NewTracker(store Store, resolver ReadResolver, pub EventPublisher, log *zap.Logger) *Tracker {
	return &Tracker{store: store, resolver: resolver, pub: pub, log: log, now: time.Now}
}

// MarkRead records that userID has read channelID up to now and notifies
// every sender with previously-unread messages there.
//
// The membership write is the durability anchor: if it fails the whole
// operation fails and nothing is published. Everything after it is
// best-effort. Calling MarkRead again with no new messages is a safe
// no-op: the sender set is empty, so no events go out and the watermark
// simply advances.
func (t *Tracker) MarkRead(ctx context.Context, userID, channelID string) error {
	// Senders must be computed before the watermark moves, otherwise the
	// write erases the very unread state that identifies them.
	senders, err := t.resolver.ReadDestinations(ctx, channelID, userID)
	if err != nil {
		// Notification is best-effort; the watermark write still has to land.
		t.log.Warn("resolve read destinations",
			zap.String("channel_id", channelID),
			zap.Error(err),
		)
		senders = nil
	}

	now := t.now()
	if err := t.store.UpsertLastRead(ctx, userID, channelID, now); err != nil {
		return err
	}

	if len(senders) == 0 {
		return nil
	}
	receipt := events.MessagesRead{ChannelID: channelID, ReadBy: userID, ReadAt: now}
	for _, sender := range senders {
		t.pub.Publish(ctx, sender, events.KindMessagesRead, receipt)
	}
	return nil
}
