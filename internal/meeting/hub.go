package meeting

import (
	"context"
	"sync"
	"time"
)

// Hub owns one Watcher per class so every mounted view of a class shares a
// single poll loop. Watchers are created lazily and run until the hub closes.
type Hub struct {
	svc      *Service
	interval time.Duration

	mu       sync.Mutex
	watchers map[string]*Watcher
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewHub(svc *Service, interval time.Duration) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		svc:      svc,
		interval: interval,
		watchers: make(map[string]*Watcher),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Watcher returns the poller for a class, creating and starting it on first
// use. The first refresh runs synchronously so a caller sees the current
// state instead of the zero value.
func (h *Hub) Watcher(classID string) *Watcher {
	h.mu.Lock()
	w, ok := h.watchers[classID]
	if !ok {
		w = NewWatcher(h.svc, classID, h.interval)
		h.watchers[classID] = w
	}
	h.mu.Unlock()

	if !ok {
		w.refresh(h.ctx)
		go w.Run(h.ctx)
	}
	return w
}

// Signal forwards an end signal to a class's watcher, if one is running.
func (h *Hub) Signal(classID, signalType string) {
	h.mu.Lock()
	w := h.watchers[classID]
	h.mu.Unlock()
	if w != nil {
		w.Signal(signalType)
	}
}

func (h *Hub) Close() {
	h.cancel()
}
