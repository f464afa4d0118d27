package meeting

import (
	"context"
	"log"
	"sync"
	"time"

	"intelliclass/internal/store"
)

type State string

const (
	StateNoMeeting  State = "no_meeting"
	StateInProgress State = "in_progress"
)

// Watcher tracks a class's meeting state for one mounted view. It polls the
// store on a fixed interval, so the view can lag the shared state by up to
// one tick, except that an end signal flips the local state immediately.
type Watcher struct {
	Service  *Service
	ClassID  string
	Interval time.Duration

	mu      sync.Mutex
	state   State
	meeting store.Meeting
	signals chan string
}

func NewWatcher(svc *Service, classID string, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Watcher{
		Service:  svc,
		ClassID:  classID,
		Interval: interval,
		state:    StateNoMeeting,
		signals:  make(chan string, 4),
	}
}

// Run polls until ctx is cancelled. It refreshes once immediately so a view
// mounted right after a start action sees InProgress without waiting a tick.
func (w *Watcher) Run(ctx context.Context) {
	w.refresh(ctx)

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.refresh(ctx)
		case sig := <-w.signals:
			if sig == SignalMeetingEnded {
				w.setState(StateNoMeeting, store.Meeting{})
			}
		}
	}
}

// Signal delivers a cross-origin message from the embedded meeting UI.
func (w *Watcher) Signal(signalType string) {
	select {
	case w.signals <- signalType:
	default:
	}
}

func (w *Watcher) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Watcher) Meeting() store.Meeting {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.meeting
}

func (w *Watcher) refresh(ctx context.Context) {
	m, active, err := w.Service.Active(ctx, w.ClassID)
	if err != nil {
		log.Printf("meeting: poll failed for class %s: %v", w.ClassID, err)
		return
	}
	if active {
		w.setState(StateInProgress, m)
	} else {
		w.setState(StateNoMeeting, store.Meeting{})
	}
}

func (w *Watcher) setState(state State, m store.Meeting) {
	w.mu.Lock()
	w.state = state
	w.meeting = m
	w.mu.Unlock()
}
