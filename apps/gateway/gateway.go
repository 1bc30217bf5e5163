package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/ridgeline-homes/portalchat/pkg/auth"
	"github.com/ridgeline-homes/portalchat/pkg/events"
	"github.com/ridgeline-homes/portalchat/pkg/fanout"
	"github.com/ridgeline-homes/portalchat/pkg/publish"
	"github.com/ridgeline-homes/portalchat/pkg/readstate"
	"github.com/ridgeline-homes/portalchat/pkg/send"
	"github.com/ridgeline-homes/portalchat/pkg/store"
)

// Gateway owns the socket-facing side: frames come in, the send
// pipeline, read tracker and typing relay do the rest.
type Gateway struct {
	hub      *Hub
	auth     *auth.Authenticator
	sender   *send.Service
	tracker  *readstate.Tracker
	resolver *fanout.Resolver
	pub      *publish.Publisher
	store    *store.Store
	log      *zap.Logger
}

func (g *Gateway) handleFrame(ctx context.Context, c *Client, f frame) {
	switch f.Type {
	case "message":
		g.handleSend(ctx, c, f)
	case "typing":
		g.handleTyping(ctx, c, f)
	case "read":
		g.handleRead(ctx, c, f)
	default:
		g.log.Warn("unknown frame type", zap.String("type", f.Type), zap.String("user_id", c.userID))
	}
}

func (g *Gateway) handleSend(ctx context.Context, c *Client, f frame) {
	msg, err := g.sender.Send(ctx, f.ChannelID, c.userID, c.userName, f.Body)
	if err != nil {
		g.log.Error("send message",
			zap.String("channel_id", f.ChannelID),
			zap.String("user_id", c.userID),
			zap.Error(err),
		)
		c.push(events.KindSendError, events.SendError{ChannelID: f.ChannelID, Reason: "message not sent"})
		return
	}
	// Ack only this session; the sender's other sessions get the
	// broadcast copy through their private destination.
	c.push(events.KindSendAck, events.SendAck{Message: msg})
}

// handleTyping relays the ephemeral signal to everyone who would see a
// message in the channel. Nothing is persisted; a lost signal heals via
// the receiver-side expiry.
func (g *Gateway) handleTyping(ctx context.Context, c *Client, f frame) {
	destinations, err := g.resolver.MessageDestinations(ctx, f.ChannelID)
	if err != nil {
		g.log.Warn("resolve typing destinations",
			zap.String("channel_id", f.ChannelID),
			zap.Error(err),
		)
		return
	}
	g.pub.PublishAll(ctx, destinations, events.KindUserTyping, events.UserTyping{
		ChannelID: f.ChannelID,
		UserID:    c.userID,
		UserName:  c.userName,
		IsTyping:  f.IsTyping,
	})
}

func (g *Gateway) handleRead(ctx context.Context, c *Client, f frame) {
	if err := g.tracker.MarkRead(ctx, c.userID, f.ChannelID); err != nil {
		g.log.Error("mark read",
			zap.String("channel_id", f.ChannelID),
			zap.String("user_id", c.userID),
			zap.Error(err),
		)
		return
	}
	// The durable counter mirrors the watermark; reset is best-effort.
	if err := g.store.ResetUnread(ctx, c.userID, f.ChannelID); err != nil {
		g.log.Warn("reset unread counter",
			zap.String("channel_id", f.ChannelID),
			zap.String("user_id", c.userID),
			zap.Error(err),
		)
	}
}
