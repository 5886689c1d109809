// Package record captures the raw snapshot stream to disk and plays it back
// as a tracking provider, so a session can be re-analyzed without a camera.
package record

import (
	"fmt"
	"os"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/ayusman/fingertrack/internal/track"
)

// formatVersion guards against replaying files written by an incompatible
// build.
const formatVersion = 1

type header struct {
	Version   int    `msgpack:"version"`
	CreatedAt string `msgpack:"created_at"`
}

// Recorder appends snapshots to a MessagePack stream file.
type Recorder struct {
	mu  sync.Mutex
	f   *os.File
	enc *msgpack.Encoder
}

// NewRecorder creates the recording file and writes the stream header.
func NewRecorder(path, createdAt string) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create recording: %w", err)
	}
	enc := msgpack.NewEncoder(f)
	if err := enc.Encode(header{Version: formatVersion, CreatedAt: createdAt}); err != nil {
		f.Close()
		return nil, fmt.Errorf("write recording header: %w", err)
	}
	return &Recorder{f: f, enc: enc}, nil
}

// Record appends one snapshot to the stream.
func (r *Recorder) Record(snap track.FrameSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enc.Encode(snap)
}

// Close flushes and closes the recording file.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.f.Close()
}
