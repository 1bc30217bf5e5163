// Package store is the persistence collaborator: messages, read-state
// memberships, channel rosters and the materialized per-user conversation
// list, all in ScyllaDB.
package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/gocql/gocql"

	"github.com/ridgeline-homes/portalchat/pkg/channel"
	"github.com/ridgeline-homes/portalchat/pkg/model"
	"github.com/ridgeline-homes/portalchat/pkg/snowflake"
)

type Store struct {
	session *Session
	ids     *snowflake.Node
}

func New(session *Session, ids *snowflake.Node) *Store {
	return &Store{session: session, ids: ids}
}

// InsertMessage persists a message with a server-assigned id and returns
// the stored row. The returned id is what every client deduplicates on.
func (s *Store) InsertMessage(ctx context.Context, channelID, senderID, senderName, body string) (model.Message, error) {
	msg := model.Message{
		ID:         s.ids.Generate(),
		ChannelID:  channelID,
		SenderID:   senderID,
		SenderName: senderName,
		Body:       body,
	}
	msg.CreatedAt = snowflake.Time(msg.ID)

	err := s.session.Query(
		`INSERT INTO messages (channel_id, id, sender_id, sender_name, body, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ChannelID, msg.ID, msg.SenderID, msg.SenderName, msg.Body, msg.CreatedAt,
	).WithContext(ctx).Exec()
	if err != nil {
		return model.Message{}, fmt.Errorf("store: insert message: %w", err)
	}
	return msg, nil
}

// History returns a channel's messages in creation order. For direct
// channels the viewer's own messages are decorated with ReadAt derived
// from the other party's membership watermark; there is no per-message
// read ledger.
func (s *Store) History(ctx context.Context, channelID, viewerID string) ([]model.Message, error) {
	iter := s.session.Query(
		`SELECT channel_id, id, sender_id, sender_name, body, created_at FROM messages WHERE channel_id = ?`,
		channelID,
	).WithContext(ctx).Iter()

	var messages []model.Message
	var m model.Message
	for iter.Scan(&m.ChannelID, &m.ID, &m.SenderID, &m.SenderName, &m.Body, &m.CreatedAt) {
		m.ReadAt = nil
		messages = append(messages, m)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("store: load history: %w", err)
	}

	if channel.IsDirect(channelID) && viewerID != "" {
		if other, err := channel.Other(channelID, viewerID); err == nil {
			lastRead, err := s.LastRead(ctx, other, channelID)
			if err == nil && !lastRead.IsZero() {
				for i := range messages {
					if messages[i].SenderID == viewerID && !messages[i].CreatedAt.After(lastRead) {
						at := lastRead
						messages[i].ReadAt = &at
					}
				}
			}
		}
	}
	return messages, nil
}

// UnreadSenders returns the distinct senders of messages in the channel
// that userID has not read yet, per the membership watermark.
func (s *Store) UnreadSenders(ctx context.Context, channelID, userID string) ([]string, error) {
	lastRead, err := s.LastRead(ctx, userID, channelID)
	if err != nil {
		return nil, err
	}

	iter := s.session.Query(
		`SELECT sender_id, created_at FROM messages WHERE channel_id = ?`,
		channelID,
	).WithContext(ctx).Iter()

	seen := make(map[string]struct{})
	var senderID string
	var createdAt time.Time
	for iter.Scan(&senderID, &createdAt) {
		if senderID == userID || !createdAt.After(lastRead) {
			continue
		}
		seen[senderID] = struct{}{}
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("store: scan unread senders: %w", err)
	}

	senders := make([]string, 0, len(seen))
	for id := range seen {
		senders = append(senders, id)
	}
	sort.Strings(senders)
	return senders, nil
}

// LastRead returns the membership watermark, zero time if none exists.
func (s *Store) LastRead(ctx context.Context, userID, channelID string) (time.Time, error) {
	var at time.Time
	err := s.session.Query(
		`SELECT last_read_at FROM memberships WHERE user_id = ? AND channel_id = ?`,
		userID, channelID,
	).WithContext(ctx).Scan(&at)
	if err == gocql.ErrNotFound {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("store: load membership: %w", err)
	}
	return at, nil
}

// UpsertLastRead advances the membership watermark. Last writer wins;
// concurrent "now" writes are commutative for this use.
func (s *Store) UpsertLastRead(ctx context.Context, userID, channelID string, at time.Time) error {
	err := s.session.Query(
		`INSERT INTO memberships (user_id, channel_id, last_read_at) VALUES (?, ?, ?)`,
		userID, channelID, at,
	).WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("store: upsert membership: %w", err)
	}
	return nil
}

// Members returns the roster of a group channel.
func (s *Store) Members(ctx context.Context, channelID string) ([]string, error) {
	iter := s.session.Query(
		`SELECT user_id FROM channel_members WHERE channel_id = ?`,
		channelID,
	).WithContext(ctx).Iter()

	var members []string
	var userID string
	for iter.Scan(&userID) {
		members = append(members, userID)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("store: load members: %w", err)
	}
	return members, nil
}

func (s *Store) AddMember(ctx context.Context, channelID, userID string) error {
	err := s.session.Query(
		`INSERT INTO channel_members (channel_id, user_id) VALUES (?, ?)`,
		channelID, userID,
	).WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("store: add member: %w", err)
	}
	return nil
}

// Conversations returns a user's channel list with unread counters,
// ordered by most recent activity (stable on ties).
func (s *Store) Conversations(ctx context.Context, userID string) ([]model.Conversation, error) {
	iter := s.session.Query(
		`SELECT channel_id, last_updated, preview FROM user_conversations WHERE user_id = ?`,
		userID,
	).WithContext(ctx).Iter()

	var conversations []model.Conversation
	var c model.Conversation
	for iter.Scan(&c.ChannelID, &c.LastActivity, &c.Preview) {
		c.UnreadCount = 0
		conversations = append(conversations, c)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("store: load conversations: %w", err)
	}

	for i := range conversations {
		var count int64
		err := s.session.Query(
			`SELECT unread_count FROM conversation_counters WHERE user_id = ? AND channel_id = ?`,
			userID, conversations[i].ChannelID,
		).WithContext(ctx).Scan(&count)
		if err == nil {
			conversations[i].UnreadCount = count
		}
	}

	sort.SliceStable(conversations, func(i, j int) bool {
		return conversations[i].LastActivity.After(conversations[j].LastActivity)
	})
	return conversations, nil
}

// TouchConversation bumps a channel to the top of a user's list.
func (s *Store) TouchConversation(ctx context.Context, userID, channelID, preview string, at time.Time) error {
	err := s.session.Query(
		`INSERT INTO user_conversations (user_id, channel_id, last_updated, preview) VALUES (?, ?, ?, ?)`,
		userID, channelID, at, preview,
	).WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("store: touch conversation: %w", err)
	}
	return nil
}

func (s *Store) IncrementUnread(ctx context.Context, userID, channelID string) error {
	err := s.session.Query(
		`UPDATE conversation_counters SET unread_count = unread_count + 1 WHERE user_id = ? AND channel_id = ?`,
		userID, channelID,
	).WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("store: increment unread: %w", err)
	}
	return nil
}

// ResetUnread zeroes a counter. Counter columns cannot be set, so the row
// is deleted, which reads back as zero.
func (s *Store) ResetUnread(ctx context.Context, userID, channelID string) error {
	err := s.session.Query(
		`DELETE FROM conversation_counters WHERE user_id = ? AND channel_id = ?`,
		userID, channelID,
	).WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("store: reset unread: %w", err)
	}
	return nil
}
