package player

import (
	"context"
	"log"
	"sync"

	"github.com/killallgit/castero/internal/models"
	"github.com/killallgit/castero/internal/store"
)

// Queue is an ordered list of players. The head is the active one;
// advancing destroys the head and promotes the next.
type Queue struct {
	mu           sync.Mutex
	players      []Player
	seekDistance int
}

// NewQueue creates an empty queue. seekDistance is the per-keypress
// seek distance in seconds.
func NewQueue(seekDistance int) *Queue {
	return &Queue{seekDistance: seekDistance}
}

// Add appends a player to the end of the queue.
func (q *Queue) Add(p Player) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.players = append(q.players, p)
}

// First returns the active player, or nil when the queue is empty.
func (q *Queue) First() Player {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.players) == 0 {
		return nil
	}
	return q.players[0]
}

// Players returns a snapshot of the queue contents in order.
func (q *Queue) Players() []Player {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Player, len(q.players))
	copy(out, q.players)
	return out
}

// Length returns the number of queued players.
func (q *Queue) Length() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.players)
}

// Next destroys the active player and promotes the following one.
func (q *Queue) Next() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.players) == 0 {
		return
	}
	_ = q.players[0].Destroy()
	q.players = q.players[1:]
}

// Clear destroys every player and empties the queue.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, p := range q.players {
		_ = p.Destroy()
	}
	q.players = nil
}

// Play starts the active player. A head that fails to start is
// destroyed and the next one is tried; the error is returned only
// when the whole queue drains without starting anything.
func (q *Queue) Play() error {
	var firstErr error
	for {
		p := q.First()
		if p == nil {
			return firstErr
		}
		err := p.Play()
		if err == nil {
			return nil
		}
		if firstErr == nil {
			firstErr = err
		}
		log.Printf("Skipping unplayable %q: %v", p.Title(), err)
		q.Next()
	}
}

// Pause pauses the active player.
func (q *Queue) Pause() error {
	if p := q.First(); p != nil {
		return p.Pause()
	}
	return nil
}

// Toggle pauses the active player when playing, resumes it otherwise.
func (q *Queue) Toggle() error {
	p := q.First()
	if p == nil {
		return nil
	}
	if p.State() == Playing {
		return p.Pause()
	}
	return p.Play()
}

// Stop stops the active player, keeping it at the head of the queue.
func (q *Queue) Stop() error {
	if p := q.First(); p != nil {
		return p.Stop()
	}
	return nil
}

// Seek moves the active player by the configured seek distance.
// direction is -1 or +1.
func (q *Queue) Seek(direction int) error {
	if p := q.First(); p != nil {
		return p.SeekBy(direction, q.seekDistance)
	}
	return nil
}

// Remove deletes the given player from the queue and returns its
// former index, or -1 if it was not queued.
func (q *Queue) Remove(target Player) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, p := range q.players {
		if p == target {
			_ = p.Destroy()
			q.players = append(q.players[:i], q.players[i+1:]...)
			return i
		}
	}
	return -1
}

// Jump makes the given queued player the active one, destroying
// everything ahead of it.
func (q *Queue) Jump(target Player) {
	q.mu.Lock()
	found := false
	for _, p := range q.players {
		if p == target {
			found = true
			break
		}
	}
	q.mu.Unlock()
	if !found {
		return
	}
	_ = q.Stop()
	for q.First() != target {
		q.Next()
	}
}

// Update advances the queue when the active player has finished. A
// player with unknown duration never auto-advances. The check and the
// advance happen under one lock hold so concurrent callers observing
// the same finished head advance only once.
func (q *Queue) Update() {
	q.mu.Lock()
	if len(q.players) == 0 {
		q.mu.Unlock()
		return
	}
	p := q.players[0]
	dur := p.Duration()
	if dur <= 0 || p.Position() < dur {
		q.mu.Unlock()
		return
	}
	_ = p.Destroy()
	q.players = q.players[1:]
	var next Player
	if len(q.players) > 0 {
		next = q.players[0]
	}
	q.mu.Unlock()
	if next != nil {
		_ = next.Play()
	}
}

// Save persists the queued episode ids in order.
func (q *Queue) Save(ctx context.Context, s store.Store) error {
	var ids []int64
	for _, p := range q.Players() {
		if e := p.Episode(); e != nil {
			ids = append(ids, e.ID)
		}
	}
	return s.ReplaceQueue(ctx, ids)
}

// Restore rebuilds the queue from the persisted episode ids, using
// the factory to construct a player per episode. resolve picks each
// episode's media source; nil means the enclosure URL. Episodes that
// no longer exist are skipped by the store.
func (q *Queue) Restore(ctx context.Context, s store.Store, factory Factory, resolve func(*models.Episode) string) error {
	if resolve == nil {
		resolve = func(e *models.Episode) string { return e.Enclosure }
	}
	episodes, err := s.Queue(ctx)
	if err != nil {
		return err
	}
	for i := range episodes {
		e := &episodes[i]
		q.Add(factory(e.String(), resolve(e), e))
	}
	return nil
}
