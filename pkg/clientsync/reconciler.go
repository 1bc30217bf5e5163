// Package clientsync merges the three concurrent update sources of a
// chat client - optimistic local inserts, pushed events, and periodic
// authoritative reloads - into one deduplicated, ordered view with
// correct unread badges and typing indicators.
package clientsync

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ridgeline-homes/portalchat/pkg/events"
	"github.com/ridgeline-homes/portalchat/pkg/inbox"
	"github.com/ridgeline-homes/portalchat/pkg/model"
	"github.com/ridgeline-homes/portalchat/pkg/timeline"
	"github.com/ridgeline-homes/portalchat/pkg/typing"
)

// Reconciler is one user's client-side state for every channel they can
// see. All entry points are safe for concurrent use; the socket reader
// and the UI loop share it.
type Reconciler struct {
	mu        sync.Mutex
	self      string
	timelines map[string]*timeline.Timeline
	inbox     *inbox.Inbox
	typists   *typing.IndicatorSet
	log       *zap.Logger
}

func New(selfID string, quiet time.Duration, log *zap.Logger) *Reconciler {
	return &Reconciler{
		self:      selfID,
		timelines: make(map[string]*timeline.Timeline),
		inbox:     inbox.New(),
		typists:   typing.NewIndicatorSet(quiet),
		log:       log,
	}
}

func (r *Reconciler) channelLocked(channelID string) *timeline.Timeline {
	tl, ok := r.timelines[channelID]
	if !ok {
		tl = timeline.New()
		r.timelines[channelID] = tl
	}
	return tl
}

// ApplyLocalSend is the optimistic path: the send call returned its
// server-assigned message and the UI shows it immediately, before any
// broadcast arrives. The broadcast copy later dedups against this one.
func (r *Reconciler) ApplyLocalSend(msg model.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.channelLocked(msg.ChannelID).Insert(msg)
	// Own sends never count toward the badge.
	r.inbox.Touch(msg.ChannelID, "", msg.Body, msg.CreatedAt, false)
}

// HandleEvent folds in one pushed frame from the private destination.
func (r *Reconciler) HandleEvent(raw []byte) error {
	env, err := events.Decode(raw)
	if err != nil {
		return err
	}

	switch env.Event {
	case events.KindNewMessage:
		var ev events.NewMessage
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return fmt.Errorf("clientsync: decode new-message: %w", err)
		}
		r.applyNewMessage(ev)
	case events.KindMessagesRead:
		var ev events.MessagesRead
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return fmt.Errorf("clientsync: decode messages-read: %w", err)
		}
		r.applyMessagesRead(ev)
	case events.KindUserTyping:
		var ev events.UserTyping
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return fmt.Errorf("clientsync: decode user-typing: %w", err)
		}
		if ev.UserID != r.self {
			r.typists.Apply(ev.ChannelID, ev.UserID, ev.UserName, ev.IsTyping)
		}
	default:
		r.log.Debug("ignoring unknown event", zap.String("event", string(env.Event)))
	}
	return nil
}

func (r *Reconciler) applyNewMessage(ev events.NewMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg := ev.Message
	inserted := r.channelLocked(msg.ChannelID).Insert(msg)

	// Badge accounting is gated on the actual insert, so at-least-once
	// redelivery counts once. Self-authored copies were accounted for by
	// the optimistic path and never badge.
	count := inserted &&
		msg.SenderID != r.self &&
		msg.ChannelID != r.inbox.OpenID()
	r.inbox.Touch(msg.ChannelID, msg.SenderName, msg.Body, msg.CreatedAt, count)

	// A real message supersedes any typing indicator from its author.
	if msg.SenderID != r.self {
		r.typists.Apply(msg.ChannelID, msg.SenderID, msg.SenderName, false)
	}
}

func (r *Reconciler) applyMessagesRead(ev events.MessagesRead) {
	if ev.ReadBy == r.self {
		// Our own read actions do not flip our sent-message decorations.
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Only this user's own still-unread messages flip; MarkRead never
	// downgrades an existing stamp.
	r.channelLocked(ev.ChannelID).MarkRead(r.self, ev.ReadAt)
}

// ApplyReload replaces nothing: an authoritative message list is merged
// through the same insert-if-absent path as every other source.
func (r *Reconciler) ApplyReload(channelID string, msgs []model.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tl := r.channelLocked(channelID)
	for _, m := range msgs {
		if !tl.Insert(m) && m.ReadAt != nil {
			// Known message, fresher decoration.
			tl.MarkRead(m.SenderID, *m.ReadAt)
		}
	}
}

// ApplyConversations swaps in an authoritative channel list snapshot.
func (r *Reconciler) ApplyConversations(conversations []model.Conversation) {
	entries := make([]inbox.Entry, 0, len(conversations))
	for _, c := range conversations {
		entries = append(entries, inbox.Entry{
			ChannelID:    c.ChannelID,
			Preview:      c.Preview,
			LastActivity: c.LastActivity,
			Unread:       int(c.UnreadCount),
		})
	}
	r.inbox.ReplaceAll(entries)
}

// OpenChannel selects a channel on screen and zeroes its badge
// optimistically. The caller fires the mark-read action in the
// background; a later ApplyConversations reconciles any discrepancy.
func (r *Reconciler) OpenChannel(channelID string) {
	r.inbox.Open(channelID)
}

// OpenID returns the channel currently on screen, empty if none.
func (r *Reconciler) OpenID() string {
	return r.inbox.OpenID()
}

// Messages returns the merged, ordered list for a channel.
func (r *Reconciler) Messages(channelID string) []model.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.channelLocked(channelID).Messages()
}

// Conversations returns the ranked channel list.
func (r *Reconciler) Conversations() []inbox.Entry {
	return r.inbox.Entries()
}

// TotalUnread is the aggregate badge.
func (r *Reconciler) TotalUnread() int {
	return r.inbox.TotalUnread()
}

// Typists lists who is currently typing in a channel.
func (r *Reconciler) Typists(channelID string) []string {
	return r.typists.Typists(channelID)
}
