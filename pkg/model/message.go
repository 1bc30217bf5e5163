package model

import "time"

// Message is a single chat message. The ID is server-assigned (snowflake)
// and is the only identity key clients may deduplicate on.
type Message struct {
	ID         int64      `json:"id"`
	ChannelID  string     `json:"channelId"`
	SenderID   string     `json:"senderId"`
	SenderName string     `json:"senderDisplayName"`
	Body       string     `json:"body"`
	CreatedAt  time.Time  `json:"createdAt"`
	ReadAt     *time.Time `json:"readAt,omitempty"`
}

// Read reports whether the message has been read by the other party.
func (m *Message) Read() bool {
	return m.ReadAt != nil
}

// Membership records how far a user has read into a channel. It is the
// single durable source of truth for unread computation: a message is
// unread by u iff it was created after u's LastReadAt.
type Membership struct {
	UserID     string    `json:"userId"`
	ChannelID  string    `json:"channelId"`
	LastReadAt time.Time `json:"lastReadAt"`
}

// Conversation is one row of a user's channel list, ordered by most
// recent activity.
type Conversation struct {
	ChannelID    string    `json:"channelId"`
	Preview      string    `json:"preview"`
	LastActivity time.Time `json:"lastActivity"`
	UnreadCount  int64     `json:"unreadCount"`
}
