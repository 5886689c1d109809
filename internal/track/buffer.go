package track

import "errors"

// DefaultSpanMS is the rolling history retained by a FrameBuffer.
const DefaultSpanMS = 1000

// ErrOutOfOrder is returned when a snapshot's timestamp is older than the
// newest entry already in the buffer.
var ErrOutOfOrder = errors.New("snapshot timestamp out of order")

// FrameBuffer keeps a bounded rolling history of frame snapshots ordered by
// timestamp. Older entries are evicted as newer ones arrive, so a push is
// amortized O(1).
type FrameBuffer struct {
	spanMS  int64
	entries []FrameSnapshot
}

// NewFrameBuffer creates a FrameBuffer retaining spanMS milliseconds of
// history. Non-positive spans fall back to DefaultSpanMS.
func NewFrameBuffer(spanMS int64) *FrameBuffer {
	if spanMS <= 0 {
		spanMS = DefaultSpanMS
	}
	return &FrameBuffer{
		spanMS:  spanMS,
		entries: make([]FrameSnapshot, 0, 64),
	}
}

// Push appends a snapshot to the history. Timestamps must be monotonically
// non-decreasing; out-of-order input is rejected with ErrOutOfOrder and the
// buffer is left unchanged.
func (b *FrameBuffer) Push(snap FrameSnapshot) error {
	if n := len(b.entries); n > 0 && snap.TimestampMS < b.entries[n-1].TimestampMS {
		return ErrOutOfOrder
	}

	b.entries = append(b.entries, snap)

	// Evict everything older than the retention span.
	cutoff := snap.TimestampMS - b.spanMS
	start := 0
	for start < len(b.entries) && b.entries[start].TimestampMS < cutoff {
		start++
	}
	if start > 0 {
		b.entries = append(b.entries[:0], b.entries[start:]...)
	}

	return nil
}

// Window returns the snapshots with timestamps in
// [centerMS-preMS, centerMS+postMS], ordered by timestamp. During cold start
// or sensor dropout the returned window is simply shorter than expected;
// callers must tolerate partial windows.
func (b *FrameBuffer) Window(centerMS, preMS, postMS int64) []FrameSnapshot {
	lo := centerMS - preMS
	hi := centerMS + postMS

	var out []FrameSnapshot
	for _, snap := range b.entries {
		if snap.TimestampMS < lo {
			continue
		}
		if snap.TimestampMS > hi {
			break
		}
		out = append(out, snap)
	}
	return out
}

// Len returns the number of buffered snapshots.
func (b *FrameBuffer) Len() int {
	return len(b.entries)
}

// Latest returns the most recent snapshot, if any.
func (b *FrameBuffer) Latest() (FrameSnapshot, bool) {
	if len(b.entries) == 0 {
		return FrameSnapshot{}, false
	}
	return b.entries[len(b.entries)-1], true
}
