package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridgeline-homes/portalchat/pkg/model"
)

func msg(id int64, sender string, at time.Time) model.Message {
	return model.Message{
		ID:        id,
		ChannelID: "dm:u1:u2",
		SenderID:  sender,
		Body:      "hi",
		CreatedAt: at,
	}
}

func TestInsertDeduplicatesAcrossAllPaths(t *testing.T) {
	base := time.Now()
	m1 := msg(100, "u1", base)

	tl := New()
	assert.True(t, tl.Insert(m1), "optimistic insert")
	assert.False(t, tl.Insert(m1), "pushed copy is a no-op")
	assert.False(t, tl.Insert(m1), "at-least-once redelivery is a no-op")
	assert.False(t, tl.Insert(m1), "reloaded copy is a no-op")

	assert.Equal(t, 1, tl.Len())
}

func TestInsertDedupIsOrderIndependent(t *testing.T) {
	base := time.Now()
	m1 := msg(100, "u1", base)

	// Pushed event lands before the optimistic insert.
	tl := New()
	assert.True(t, tl.Insert(m1))
	assert.False(t, tl.Insert(m1))
	assert.Equal(t, 1, tl.Len())
}

func TestOrderByCreatedAt(t *testing.T) {
	base := time.Now()
	tl := New()

	tl.Insert(msg(3, "u1", base.Add(2*time.Second)))
	tl.Insert(msg(1, "u2", base))
	tl.Insert(msg(2, "u1", base.Add(time.Second)))

	got := tl.Messages()
	require.Len(t, got, 3)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, int64(2), got[1].ID)
	assert.Equal(t, int64(3), got[2].ID)
}

func TestEqualTimestampsKeepArrivalOrder(t *testing.T) {
	at := time.Now()
	tl := New()

	tl.Insert(msg(7, "u1", at))
	tl.Insert(msg(5, "u2", at))
	tl.Insert(msg(9, "u1", at))

	got := tl.Messages()
	assert.Equal(t, []int64{7, 5, 9}, []int64{got[0].ID, got[1].ID, got[2].ID})
}

func TestMarkReadOnlyOwnUnread(t *testing.T) {
	base := time.Now()
	tl := New()
	tl.Insert(msg(1, "u1", base))
	tl.Insert(msg(2, "u2", base.Add(time.Second)))
	tl.Insert(msg(3, "u1", base.Add(2*time.Second)))

	readAt := base.Add(3 * time.Second)
	assert.Equal(t, 2, tl.MarkRead("u1", readAt))

	got := tl.Messages()
	assert.True(t, got[0].Read())
	assert.False(t, got[1].Read(), "other party's messages untouched")
	assert.True(t, got[2].Read())
}

func TestMarkReadStopsAtWatermark(t *testing.T) {
	base := time.Now()
	tl := New()
	tl.Insert(msg(1, "u1", base))
	tl.Insert(msg(2, "u1", base.Add(10*time.Second)))

	// The receipt sits between the two messages: only the earlier one flips.
	assert.Equal(t, 1, tl.MarkRead("u1", base.Add(5*time.Second)))

	got := tl.Messages()
	assert.True(t, got[0].Read())
	assert.False(t, got[1].Read(), "messages after the watermark stay unread")
}

func TestMarkReadIsMonotonic(t *testing.T) {
	base := time.Now()
	tl := New()
	tl.Insert(msg(1, "u1", base))

	first := base.Add(time.Second)
	require.Equal(t, 1, tl.MarkRead("u1", first))

	// A later (or replayed) event can never alter the existing stamp.
	assert.Equal(t, 0, tl.MarkRead("u1", base.Add(2*time.Second)))

	m, ok := tl.Get(1)
	require.True(t, ok)
	require.NotNil(t, m.ReadAt)
	assert.True(t, m.ReadAt.Equal(first))
}

func TestLatest(t *testing.T) {
	tl := New()
	_, ok := tl.Latest()
	assert.False(t, ok)

	base := time.Now()
	tl.Insert(msg(1, "u1", base))
	tl.Insert(msg(2, "u2", base.Add(time.Second)))

	latest, ok := tl.Latest()
	require.True(t, ok)
	assert.Equal(t, int64(2), latest.ID)
}
