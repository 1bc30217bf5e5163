package clientsync

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ridgeline-homes/portalchat/pkg/channel"
	"github.com/ridgeline-homes/portalchat/pkg/events"
	"github.com/ridgeline-homes/portalchat/pkg/model"
)

func newReconciler(self string) *Reconciler {
	return New(self, 25*time.Millisecond, zap.NewNop())
}

func frame(t *testing.T, kind events.Kind, payload any) []byte {
	t.Helper()
	raw, err := events.Marshal(kind, payload)
	require.NoError(t, err)
	return raw
}

func testMessage(id int64, sender, senderName string, at time.Time) model.Message {
	return model.Message{
		ID:         id,
		ChannelID:  channel.DirectID("u1", "u2"),
		SenderID:   sender,
		SenderName: senderName,
		Body:       "hello",
		CreatedAt:  at,
	}
}

func TestOptimisticThenPushedDeduplicates(t *testing.T) {
	r := newReconciler("u1")
	chanID := channel.DirectID("u1", "u2")
	m1 := testMessage(100, "u1", "Avery", time.Now())

	// Send returns, UI inserts optimistically.
	r.ApplyLocalSend(m1)
	// The broadcast copy arrives afterwards.
	require.NoError(t, r.HandleEvent(frame(t, events.KindNewMessage, events.NewMessage{ChannelID: chanID, Message: m1})))

	assert.Len(t, r.Messages(chanID), 1)
}

func TestPushedThenReloadedDeduplicates(t *testing.T) {
	r := newReconciler("u2")
	chanID := channel.DirectID("u1", "u2")
	m1 := testMessage(100, "u1", "Avery", time.Now())

	require.NoError(t, r.HandleEvent(frame(t, events.KindNewMessage, events.NewMessage{ChannelID: chanID, Message: m1})))
	r.ApplyReload(chanID, []model.Message{m1})

	assert.Len(t, r.Messages(chanID), 1)
}

func TestDuplicateDeliveryCountsUnreadOnce(t *testing.T) {
	r := newReconciler("u2")
	chanID := channel.DirectID("u1", "u2")
	m1 := testMessage(100, "u1", "Avery", time.Now())
	ev := frame(t, events.KindNewMessage, events.NewMessage{ChannelID: chanID, Message: m1})

	// At-least-once transport delivers the same event twice.
	require.NoError(t, r.HandleEvent(ev))
	require.NoError(t, r.HandleEvent(ev))

	assert.Len(t, r.Messages(chanID), 1)
	assert.Equal(t, 1, r.TotalUnread())
}

func TestSelfMessagesNeverBadge(t *testing.T) {
	r := newReconciler("u1")
	chanID := channel.DirectID("u1", "u2")

	for i := int64(1); i <= 5; i++ {
		m := testMessage(i, "u1", "Avery", time.Now())
		r.ApplyLocalSend(m)
		require.NoError(t, r.HandleEvent(frame(t, events.KindNewMessage, events.NewMessage{ChannelID: chanID, Message: m})))
	}

	assert.Equal(t, 0, r.TotalUnread())
	assert.Len(t, r.Messages(chanID), 5)
}

func TestOpenChannelSuppressesBadge(t *testing.T) {
	r := newReconciler("u2")
	chanID := channel.DirectID("u1", "u2")
	r.OpenChannel(chanID)

	m1 := testMessage(100, "u1", "Avery", time.Now())
	require.NoError(t, r.HandleEvent(frame(t, events.KindNewMessage, events.NewMessage{ChannelID: chanID, Message: m1})))

	assert.Equal(t, 0, r.TotalUnread())
}

func TestReadReceiptFlipsOwnMessages(t *testing.T) {
	r := newReconciler("u1")
	chanID := channel.DirectID("u1", "u2")
	m1 := testMessage(100, "u1", "Avery", time.Now())
	r.ApplyLocalSend(m1)

	readAt := time.Now().Add(time.Second)
	require.NoError(t, r.HandleEvent(frame(t, events.KindMessagesRead, events.MessagesRead{
		ChannelID: chanID,
		ReadBy:    "u2",
		ReadAt:    readAt,
	})))

	msgs := r.Messages(chanID)
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].Read())
}

func TestReadReceiptNeverDowngrades(t *testing.T) {
	r := newReconciler("u1")
	chanID := channel.DirectID("u1", "u2")
	m1 := testMessage(100, "u1", "Avery", time.Now())
	r.ApplyLocalSend(m1)

	first := time.Now().Add(time.Second)
	require.NoError(t, r.HandleEvent(frame(t, events.KindMessagesRead, events.MessagesRead{
		ChannelID: chanID, ReadBy: "u2", ReadAt: first,
	})))
	// Replayed receipt with a different stamp.
	require.NoError(t, r.HandleEvent(frame(t, events.KindMessagesRead, events.MessagesRead{
		ChannelID: chanID, ReadBy: "u2", ReadAt: first.Add(time.Hour),
	})))

	msgs := r.Messages(chanID)
	require.NotNil(t, msgs[0].ReadAt)
	assert.True(t, msgs[0].ReadAt.Equal(first))
}

func TestOwnReadReceiptIgnored(t *testing.T) {
	r := newReconciler("u2")
	chanID := channel.DirectID("u1", "u2")
	m := testMessage(100, "u2", "Blake", time.Now())
	r.ApplyLocalSend(m)

	// B reading the channel must not flip B's own view of B's messages.
	require.NoError(t, r.HandleEvent(frame(t, events.KindMessagesRead, events.MessagesRead{
		ChannelID: chanID, ReadBy: "u2", ReadAt: time.Now(),
	})))

	assert.False(t, r.Messages(chanID)[0].Read())
}

func TestTypingIndicatorLifecycle(t *testing.T) {
	r := newReconciler("u2")
	chanID := channel.DirectID("u1", "u2")

	require.NoError(t, r.HandleEvent(frame(t, events.KindUserTyping, events.UserTyping{
		ChannelID: chanID, UserID: "u1", UserName: "Avery", IsTyping: true,
	})))
	assert.Equal(t, []string{"Avery"}, r.Typists(chanID))

	// Own echo is ignored.
	require.NoError(t, r.HandleEvent(frame(t, events.KindUserTyping, events.UserTyping{
		ChannelID: chanID, UserID: "u2", UserName: "Blake", IsTyping: true,
	})))
	assert.Equal(t, []string{"Avery"}, r.Typists(chanID))

	// The author's message supersedes their typing indicator.
	require.NoError(t, r.HandleEvent(frame(t, events.KindNewMessage, events.NewMessage{
		ChannelID: chanID, Message: testMessage(100, "u1", "Avery", time.Now()),
	})))
	assert.Empty(t, r.Typists(chanID))
}

func TestReloadBackfillsReadDecoration(t *testing.T) {
	r := newReconciler("u1")
	chanID := channel.DirectID("u1", "u2")
	m1 := testMessage(100, "u1", "Avery", time.Now())
	r.ApplyLocalSend(m1)

	// The authoritative reload carries derived read state the push missed.
	readAt := time.Now().Add(time.Minute)
	decorated := m1
	decorated.ReadAt = &readAt
	r.ApplyReload(chanID, []model.Message{decorated})

	msgs := r.Messages(chanID)
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].Read())
}

func TestReloadKeepsLaterMessagesUnread(t *testing.T) {
	r := newReconciler("u1")
	chanID := channel.DirectID("u1", "u2")
	base := time.Now()
	m1 := testMessage(100, "u1", "Avery", base)
	m2 := testMessage(200, "u1", "Avery", base.Add(10*time.Second))
	r.ApplyLocalSend(m1)
	r.ApplyLocalSend(m2)

	// The other party's watermark sits between the two sends, so the
	// reload decorates m1 and leaves m2 unread.
	readAt := base.Add(5 * time.Second)
	decorated := m1
	decorated.ReadAt = &readAt
	r.ApplyReload(chanID, []model.Message{decorated, m2})

	msgs := r.Messages(chanID)
	require.Len(t, msgs, 2)
	assert.True(t, msgs[0].Read())
	assert.False(t, msgs[1].Read(), "the reload said m2 is unread")
}

// Mirrors the client's goroutine layout: the stdin loop opens channels
// while the socket reader applies events and the refresh ticker reads
// OpenID. Meaningful under -race.
func TestConcurrentOpenAndEvents(t *testing.T) {
	r := newReconciler("u2")
	chanID := channel.DirectID("u1", "u2")
	base := time.Now()

	frames := make([][]byte, 100)
	for i := range frames {
		frames[i] = frame(t, events.KindNewMessage, events.NewMessage{
			ChannelID: chanID,
			Message:   testMessage(int64(i), "u1", "Avery", base.Add(time.Duration(i)*time.Millisecond)),
		})
	}

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			r.OpenChannel(chanID)
		}
	}()
	go func() {
		defer wg.Done()
		for _, ev := range frames {
			assert.NoError(t, r.HandleEvent(ev))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			_ = r.OpenID()
			_ = r.Conversations()
		}
	}()
	wg.Wait()

	assert.Equal(t, chanID, r.OpenID())
	assert.Len(t, r.Messages(chanID), 100)
}

func TestConversationsSnapshot(t *testing.T) {
	r := newReconciler("u1")
	base := time.Now()

	r.ApplyConversations([]model.Conversation{
		{ChannelID: "a", LastActivity: base, UnreadCount: 2},
		{ChannelID: "b", LastActivity: base.Add(time.Second), UnreadCount: 1},
	})

	entries := r.Conversations()
	require.Len(t, entries, 2)
	assert.Equal(t, "b", entries[0].ChannelID)
	assert.Equal(t, 3, r.TotalUnread())
}
