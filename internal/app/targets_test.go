package app

import (
	"testing"

	"github.com/ayusman/fingertrack/internal/press"
	"github.com/ayusman/fingertrack/internal/track"
)

func pressOn(f track.Finger, ts int64) press.Event {
	return press.Event{Finger: f, TimestampMS: ts}
}

func TestTargetQueueLanePriority(t *testing.T) {
	q := NewTargetQueue()
	q.Spawn(track.LeftIndex, 100)
	q.Spawn(track.RightRing, 200)

	// A press on the right ring consumes its own lane's target even though
	// the left index target is older.
	target, ok := q.Resolve(pressOn(track.RightRing, 500))
	if !ok {
		t.Fatal("expected a target")
	}
	if target.Finger != track.RightRing || target.SpawnTimeMS != 200 {
		t.Errorf("resolved %+v, want right ring at 200", target)
	}
	if q.Pending() != 1 {
		t.Errorf("pending = %d, want 1", q.Pending())
	}
}

func TestTargetQueueFallsBackToOldest(t *testing.T) {
	q := NewTargetQueue()
	q.Spawn(track.LeftIndex, 100)
	q.Spawn(track.LeftMiddle, 200)

	target, ok := q.Resolve(pressOn(track.RightPinky, 500))
	if !ok {
		t.Fatal("expected a target")
	}
	if target.Finger != track.LeftIndex {
		t.Errorf("fallback resolved %v, want oldest (left_index)", target.Finger)
	}
}

func TestTargetQueueEmpty(t *testing.T) {
	q := NewTargetQueue()
	if _, ok := q.Resolve(pressOn(track.LeftThumb, 500)); ok {
		t.Error("empty queue must not resolve")
	}
}
