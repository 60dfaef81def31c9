package dispatch

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultHandoffTTL is how long an unclaimed handoff stays valid.
const DefaultHandoffTTL = 5 * time.Minute

var (
	ErrHandoffNotFound = errors.New("handoff not found")
	ErrHandoffExpired  = errors.New("handoff expired")
)

// Handoff carries a selection from the step that made it to the upload
// that consumes it.
type Handoff struct {
	ID          uuid.UUID
	MessageID   string
	Attachments []string
	CreatedAt   time.Time
}

// Handoffs is a one-shot store of pending selections.
type Handoffs struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items map[uuid.UUID]Handoff
}

// NewHandoffs creates a store. A non-positive ttl selects DefaultHandoffTTL.
func NewHandoffs(ttl time.Duration) *Handoffs {
	if ttl <= 0 {
		ttl = DefaultHandoffTTL
	}
	return &Handoffs{
		ttl:   ttl,
		now:   time.Now,
		items: make(map[uuid.UUID]Handoff),
	}
}

// Put records a selection and returns its id.
func (h *Handoffs) Put(messageID string, attachments []string) uuid.UUID {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	h.prune(now)

	ho := Handoff{
		ID:          uuid.New(),
		MessageID:   messageID,
		Attachments: append([]string(nil), attachments...),
		CreatedAt:   now,
	}
	h.items[ho.ID] = ho
	return ho.ID
}

// Take returns and removes a handoff. A second Take for the same id fails.
func (h *Handoffs) Take(id uuid.UUID) (Handoff, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ho, ok := h.items[id]
	if !ok {
		return Handoff{}, ErrHandoffNotFound
	}
	delete(h.items, id)
	if h.now().Sub(ho.CreatedAt) > h.ttl {
		return Handoff{}, ErrHandoffExpired
	}
	return ho, nil
}

// Len returns the number of pending handoffs, expired ones included.
func (h *Handoffs) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.items)
}

func (h *Handoffs) prune(now time.Time) {
	for id, ho := range h.items {
		if now.Sub(ho.CreatedAt) > h.ttl {
			delete(h.items, id)
		}
	}
}
