package profile

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Update announces that a user's stored profile changed. Subscribers
// re-fetch whatever they derived from it (resolved goals, completeness).
type Update struct {
	UserID uuid.UUID
	At     time.Time
}

// Events is an in-process subscriber bus. Publish never blocks: a subscriber
// that has fallen behind misses the update and catches up on its next fetch,
// which is safe because updates carry no state of their own.
type Events struct {
	mu   sync.Mutex
	next int
	subs map[int]chan Update
}

func NewEvents() *Events {
	return &Events{subs: make(map[int]chan Update)}
}

// Subscribe returns a receive channel and a cancel func. Cancel must be
// called when the subscriber goes away or the channel leaks.
func (e *Events) Subscribe() (<-chan Update, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.next
	e.next++
	ch := make(chan Update, 8)
	e.subs[id] = ch

	cancel := func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if c, ok := e.subs[id]; ok {
			delete(e.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

func (e *Events) Publish(u Update) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ch := range e.subs {
		select {
		case ch <- u:
		default:
		}
	}
}
