package player

import (
	"context"
	"log"
	"time"

	"github.com/killallgit/castero/internal/store"
)

// DefaultTrackInterval is how often playback positions are persisted.
const DefaultTrackInterval = 5 * time.Second

// Tracker periodically records the active player's position so a
// later session can resume where this one left off.
type Tracker struct {
	store    store.Store
	queue    *Queue
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

func NewTracker(s store.Store, q *Queue, interval time.Duration) *Tracker {
	if interval <= 0 {
		interval = DefaultTrackInterval
	}
	return &Tracker{
		store:    s,
		queue:    q,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins sampling in the background.
func (t *Tracker) Start(ctx context.Context) {
	go t.run(ctx)
}

// Stop flushes one final sample and stops the tracker.
func (t *Tracker) Stop(ctx context.Context) {
	close(t.stop)
	<-t.done
	t.sample(ctx)
}

func (t *Tracker) run(ctx context.Context) {
	defer close(t.done)
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-t.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.sample(ctx)
		}
	}
}

func (t *Tracker) sample(ctx context.Context) {
	p := t.queue.First()
	if p == nil || p.State() == Stopped {
		return
	}
	e := p.Episode()
	if e == nil {
		return
	}
	pos := p.Position()
	if pos <= 0 {
		return
	}
	if err := t.store.ReplaceProgress(ctx, e, pos); err != nil {
		log.Printf("Failed to record playback position for episode %d: %v", e.ID, err)
	}
}
