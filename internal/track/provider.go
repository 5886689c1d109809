package track

import "sync"

// Provider supplies tracking snapshots to the core loop. Acquisition is
// asynchronous and lives entirely in the implementation; the core polls
// Latest once per tick and never blocks on it.
type Provider interface {
	// Latest returns the newest snapshot produced since the previous call,
	// or false if nothing new arrived. A false result is a no-op for the
	// tick, not an error.
	Latest() (FrameSnapshot, bool)

	// Close releases any resources held by the provider.
	Close() error
}

// MockProvider is a test implementation of Provider that plays back a queued
// sequence of snapshots, one per poll.
type MockProvider struct {
	mu    sync.Mutex
	queue []FrameSnapshot
}

// NewMockProvider creates a MockProvider with an optional initial queue.
func NewMockProvider(snaps ...FrameSnapshot) *MockProvider {
	return &MockProvider{queue: snaps}
}

// Queue appends snapshots to the playback queue.
func (p *MockProvider) Queue(snaps ...FrameSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = append(p.queue, snaps...)
}

// Latest pops the next queued snapshot.
func (p *MockProvider) Latest() (FrameSnapshot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.queue) == 0 {
		return FrameSnapshot{}, false
	}
	snap := p.queue[0]
	p.queue = p.queue[1:]
	return snap, true
}

// Close is a no-op for the mock provider.
func (p *MockProvider) Close() error {
	return nil
}
