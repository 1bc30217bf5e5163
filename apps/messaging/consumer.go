package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/ridgeline-homes/portalchat/pkg/activity"
	"github.com/ridgeline-homes/portalchat/pkg/channel"
	"github.com/ridgeline-homes/portalchat/pkg/store"
)

// Consumer materializes the durable per-user conversation ranking from
// the activity stream: every message bumps the channel for all its
// observers and increments the unread counter for everyone but the
// sender. Clients do the same incrementally; this is the authoritative
// copy they reconcile against.
type Consumer struct {
	reader *kafka.Reader
	store  *store.Store
	log    *zap.Logger
}

func NewConsumer(reader *kafka.Reader, st *store.Store, log *zap.Logger) *Consumer {
	return &Consumer{reader: reader, store: st, log: log}
}

func (c *Consumer) Consume(ctx context.Context) {
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Warn("read activity", zap.Error(err))
			time.Sleep(1 * time.Second)
			continue
		}

		var rec activity.Record
		if err := json.Unmarshal(m.Value, &rec); err != nil {
			c.log.Warn("unmarshal activity record", zap.Error(err))
			continue
		}
		c.apply(ctx, rec)
	}
}

func (c *Consumer) apply(ctx context.Context, rec activity.Record) {
	msg := rec.Message

	var observers []string
	var err error
	if channel.IsDirect(msg.ChannelID) {
		observers, err = channel.Participants(msg.ChannelID)
	} else {
		observers, err = c.store.Members(ctx, msg.ChannelID)
	}
	if err != nil {
		c.log.Warn("resolve observers", zap.String("channel_id", msg.ChannelID), zap.Error(err))
		return
	}

	for _, userID := range observers {
		if err := c.store.TouchConversation(ctx, userID, msg.ChannelID, msg.Body, msg.CreatedAt); err != nil {
			c.log.Warn("touch conversation",
				zap.String("user_id", userID),
				zap.String("channel_id", msg.ChannelID),
				zap.Error(err),
			)
		}
		if userID == msg.SenderID {
			// A sender never accrues unread from their own message.
			continue
		}
		if err := c.store.IncrementUnread(ctx, userID, msg.ChannelID); err != nil {
			c.log.Warn("increment unread",
				zap.String("user_id", userID),
				zap.String("channel_id", msg.ChannelID),
				zap.Error(err),
			)
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
