// Package inbox maintains a user's channel list: most-recent-activity
// first, with a per-channel unread badge and an aggregate total.
package inbox

import (
	"sort"
	"sync"
	"time"
)

// Entry is one channel row in the list.
type Entry struct {
	ChannelID    string
	Title        string
	Preview      string
	LastActivity time.Time
	Unread       int
}

type Inbox struct {
	mu      sync.Mutex
	order   []*Entry
	byID    map[string]*Entry
	openID  string
}

func New() *Inbox {
	return &Inbox{byID: make(map[string]*Entry)}
}

// Touch records activity on a channel: updates the preview, moves the
// channel to the top, and bumps the unread badge when countUnread is set.
// Callers pass countUnread=false for self-authored messages and for the
// currently open channel.
func (b *Inbox) Touch(channelID, title, preview string, at time.Time, countUnread bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.byID[channelID]
	if !ok {
		e = &Entry{ChannelID: channelID, Title: title}
		b.byID[channelID] = e
		b.order = append(b.order, e)
	}
	if title != "" {
		e.Title = title
	}
	e.Preview = preview
	e.LastActivity = at
	if countUnread {
		e.Unread++
	}
	b.moveToFront(e)
}

func (b *Inbox) moveToFront(e *Entry) {
	for i, cur := range b.order {
		if cur == e {
			copy(b.order[1:i+1], b.order[:i])
			b.order[0] = e
			return
		}
	}
}

// Open marks a channel as the one on screen and zeroes its badge
// optimistically, before any server round trip. A later ReplaceAll
// reconciles whatever the server says.
func (b *Inbox) Open(channelID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.openID = channelID
	if e, ok := b.byID[channelID]; ok {
		e.Unread = 0
	}
}

// OpenID returns the currently open channel, empty if none.
func (b *Inbox) OpenID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.openID
}

// ReplaceAll swaps in an authoritative snapshot, ordered by last activity
// descending. The sort is stable so equal timestamps keep their incoming
// order and the list does not flicker between reloads.
func (b *Inbox) ReplaceAll(entries []Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.order = b.order[:0]
	b.byID = make(map[string]*Entry, len(entries))
	for i := range entries {
		e := entries[i]
		b.byID[e.ChannelID] = &e
		b.order = append(b.order, &e)
	}
	sort.SliceStable(b.order, func(i, j int) bool {
		return b.order[i].LastActivity.After(b.order[j].LastActivity)
	})
	// Never trust a stale unread count for the channel on screen.
	if e, ok := b.byID[b.openID]; ok {
		e.Unread = 0
	}
}

// Entries returns the ordered list as values.
func (b *Inbox) Entries() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Entry, len(b.order))
	for i, e := range b.order {
		out[i] = *e
	}
	return out
}

// TotalUnread is the aggregate badge across all channels.
func (b *Inbox) TotalUnread() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	total := 0
	for _, e := range b.order {
		total += e.Unread
	}
	return total
}
