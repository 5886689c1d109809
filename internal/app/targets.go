package app

import (
	"sync"

	"github.com/ayusman/fingertrack/internal/press"
	"github.com/ayusman/fingertrack/internal/track"
)

// Target is the stimulus a press event is scored against.
type Target struct {
	Finger      track.Finger
	SpawnTimeMS int64
}

// TargetResolver pairs a press event with the stimulus it answers. A false
// return means the press has no active target and produces no trial.
type TargetResolver interface {
	Resolve(event press.Event) (Target, bool)
}

// TargetQueue is a FIFO resolver fed by the game front-end. A press consumes
// the oldest pending target in the pressed finger's lane; a press in a lane
// with no pending target falls back to the oldest target overall, which
// scores it as a wrong-finger trial.
type TargetQueue struct {
	mu      sync.Mutex
	pending []Target
}

// NewTargetQueue creates an empty queue.
func NewTargetQueue() *TargetQueue {
	return &TargetQueue{}
}

// Spawn enqueues a stimulus for the given finger.
func (q *TargetQueue) Spawn(f track.Finger, spawnTimeMS int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, Target{Finger: f, SpawnTimeMS: spawnTimeMS})
}

// Pending returns the number of unanswered targets.
func (q *TargetQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Resolve implements TargetResolver.
func (q *TargetQueue) Resolve(event press.Event) (Target, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return Target{}, false
	}

	for i, t := range q.pending {
		if t.Finger == event.Finger {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return t, true
		}
	}

	t := q.pending[0]
	q.pending = q.pending[1:]
	return t, true
}
