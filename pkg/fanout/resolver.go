// Package fanout maps a channel and action onto the exact set of users
// that must observe the resulting event. Nobody outside a channel's
// participants or its historical senders is ever resolved as a
// destination.
package fanout

import (
	"context"
	"fmt"

	"github.com/ridgeline-homes/portalchat/pkg/channel"
)

// MembershipSource is the slice of persistence the resolver needs for
// channels whose roster is not encoded in the identifier.
type MembershipSource interface {
	Members(ctx context.Context, channelID string) ([]string, error)
	UnreadSenders(ctx context.Context, channelID, userID string) ([]string, error)
}

type Resolver struct {
	src MembershipSource
}

func NewResolver(src MembershipSource) *Resolver {
	return &Resolver{src: src}
}

// MessageDestinations resolves who must receive a new-message event.
// Direct channels decode both participants straight from the canonical
// id, no persistence round trip; the sender is included so their other
// open sessions reconcile too. Group channels use the roster.
func (r *Resolver) MessageDestinations(ctx context.Context, channelID string) ([]string, error) {
	if channel.IsDirect(channelID) {
		return channel.Participants(channelID)
	}
	members, err := r.src.Members(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("fanout: resolve members of %s: %w", channelID, err)
	}
	return members, nil
}

// ReadDestinations resolves who must receive a messages-read event when
// readerID reads the channel: the distinct senders with messages the
// reader had not read. An empty result means the read is a no-op for
// delivery purposes.
func (r *Resolver) ReadDestinations(ctx context.Context, channelID, readerID string) ([]string, error) {
	senders, err := r.src.UnreadSenders(ctx, channelID, readerID)
	if err != nil {
		return nil, fmt.Errorf("fanout: resolve unread senders of %s: %w", channelID, err)
	}
	return senders, nil
}
