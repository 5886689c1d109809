package record

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/ayusman/fingertrack/internal/track"
)

// ErrBadRecording is returned when a recording file cannot be replayed.
var ErrBadRecording = errors.New("record: unreadable recording file")

// ReplayProvider implements track.Provider from a recorded snapshot stream.
// Frames are released in real time relative to their recorded timestamps, so
// the pipeline consumes them at the original pace.
type ReplayProvider struct {
	frames []track.FrameSnapshot
	next   int
	start  time.Time
	base   int64
}

// OpenReplay loads an entire recording into memory and prepares playback.
func OpenReplay(path string) (*ReplayProvider, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open recording: %w", err)
	}
	defer f.Close()

	dec := msgpack.NewDecoder(f)

	var hdr header
	if err := dec.Decode(&hdr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRecording, err)
	}
	if hdr.Version != formatVersion {
		return nil, fmt.Errorf("%w: format version %d", ErrBadRecording, hdr.Version)
	}

	var frames []track.FrameSnapshot
	for {
		var snap track.FrameSnapshot
		if err := dec.Decode(&snap); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("%w: %v", ErrBadRecording, err)
		}
		frames = append(frames, snap)
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: empty stream", ErrBadRecording)
	}

	return &ReplayProvider{
		frames: frames,
		start:  time.Now(),
		base:   frames[0].TimestampMS,
	}, nil
}

// Latest returns the next frame once its recorded offset has elapsed. It
// reports false while playback is ahead of schedule or exhausted.
func (p *ReplayProvider) Latest() (track.FrameSnapshot, bool) {
	if p.next >= len(p.frames) {
		return track.FrameSnapshot{}, false
	}
	elapsed := time.Since(p.start).Milliseconds()
	frame := p.frames[p.next]
	if frame.TimestampMS-p.base > elapsed {
		return track.FrameSnapshot{}, false
	}
	p.next++
	return frame, true
}

// Done reports whether every recorded frame has been released.
func (p *ReplayProvider) Done() bool {
	return p.next >= len(p.frames)
}

// Len returns the number of frames in the recording.
func (p *ReplayProvider) Len() int {
	return len(p.frames)
}

// Close releases the provider. The file is already closed after load.
func (p *ReplayProvider) Close() error {
	return nil
}
