package upload

import (
	"sync"

	"github.com/nhle/paperless-upload/internal/model"
)

// inflight tracks message ids with a running upload.
type inflight struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

// acquire marks messageID as running. It fails with ErrUploadInFlight
// when another upload of the same message has not finished.
func (g *inflight) acquire(messageID string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ids == nil {
		g.ids = make(map[string]struct{})
	}
	if _, busy := g.ids[messageID]; busy {
		return nil, model.ErrUploadInFlight
	}
	g.ids[messageID] = struct{}{}
	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		delete(g.ids, messageID)
	}, nil
}

// keyedMutex serializes work per key. Entries are dropped once no holder
// or waiter remains.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyedEntry)
	}
	e, ok := k.locks[key]
	if !ok {
		e = &keyedEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
