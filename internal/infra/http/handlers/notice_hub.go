package handlers

import (
	"sync"

	"github.com/xavierca1/prospect-crm/internal/usecase"
)

// NoticeHub fans repository notices out to the event streams of the user
// who caused them. It implements usecase.Notifier.
type NoticeHub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]subscriber
	closed bool
}

type subscriber struct {
	userID string
	ch     chan usecase.Notice
}

var _ usecase.Notifier = (*NoticeHub)(nil)

func NewNoticeHub() *NoticeHub {
	return &NoticeHub{subs: make(map[int]subscriber)}
}

// Subscribe receives the notices addressed to userID plus the ones
// addressed to nobody in particular.
func (h *NoticeHub) Subscribe(userID string) (<-chan usecase.Notice, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan usecase.Notice, 16)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = subscriber{userID: userID, ch: ch}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(ch)
			}
		})
	}
}

// Notify never blocks; a full subscriber misses the notice.
func (h *NoticeHub) Notify(n usecase.Notice) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs {
		if n.UserID != "" && n.UserID != sub.userID {
			continue
		}
		select {
		case sub.ch <- n:
		default:
		}
	}
}

// Close ends every subscription; later subscribers get a closed channel.
func (h *NoticeHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, sub := range h.subs {
		delete(h.subs, id)
		close(sub.ch)
	}
}
