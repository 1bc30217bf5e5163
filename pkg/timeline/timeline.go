// Package timeline holds one channel's materialized message list. Every
// update source - optimistic local insert, pushed event, authoritative
// reload - is an insert-if-absent keyed by the server-assigned message
// id, so arrival order and duplication cannot produce a visible dupe.
package timeline

import (
	"sort"
	"time"

	"github.com/ridgeline-homes/portalchat/pkg/model"
)

type Timeline struct {
	byID  map[int64]*model.Message
	order []*model.Message // CreatedAt ascending, stable for equal stamps
}

func New() *Timeline {
	return &Timeline{byID: make(map[int64]*model.Message)}
}

// Insert adds a message unless its id is already present, and reports
// whether it actually inserted. Callers gate unread accounting on the
// return so a duplicate delivery can never count twice.
func (t *Timeline) Insert(msg model.Message) bool {
	if _, ok := t.byID[msg.ID]; ok {
		return false
	}
	m := msg
	t.byID[m.ID] = &m

	// Insert after any existing message with an equal or earlier stamp so
	// equal timestamps keep arrival order.
	i := sort.Search(len(t.order), func(i int) bool {
		return t.order[i].CreatedAt.After(m.CreatedAt)
	})
	t.order = append(t.order, nil)
	copy(t.order[i+1:], t.order[i:])
	t.order[i] = &m
	return true
}

// MarkRead stamps ReadAt on every still-unread message sent by senderID
// with CreatedAt at or before readAt. A receipt is a watermark: messages
// sent after it stay unread. An already-set ReadAt is never downgraded or
// cleared; the transition is one-way. Returns how many messages changed.
func (t *Timeline) MarkRead(senderID string, readAt time.Time) int {
	changed := 0
	for _, m := range t.order {
		if m.CreatedAt.After(readAt) {
			break
		}
		if m.SenderID == senderID && m.ReadAt == nil {
			at := readAt
			m.ReadAt = &at
			changed++
		}
	}
	return changed
}

// Get looks a message up by id.
func (t *Timeline) Get(id int64) (model.Message, bool) {
	m, ok := t.byID[id]
	if !ok {
		return model.Message{}, false
	}
	return *m, true
}

// Messages returns the ordered list as values.
func (t *Timeline) Messages() []model.Message {
	out := make([]model.Message, len(t.order))
	for i, m := range t.order {
		out[i] = *m
	}
	return out
}

func (t *Timeline) Len() int {
	return len(t.order)
}

// Latest returns the most recent message, if any.
func (t *Timeline) Latest() (model.Message, bool) {
	if len(t.order) == 0 {
		return model.Message{}, false
	}
	return *t.order[len(t.order)-1], true
}
