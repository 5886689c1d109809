package vision

import (
	"sync"
	"time"

	"github.com/ayusman/fingertrack/internal/log"
	"github.com/ayusman/fingertrack/internal/track"
)

// minHandScore discards low-confidence detections before they reach the
// pipeline.
const minHandScore = 0.5

// CameraProvider implements track.Provider on top of a camera and a hand
// landmark detector. A background goroutine captures and detects at the
// configured rate; Latest hands each fresh snapshot to the pipeline exactly
// once.
type CameraProvider struct {
	camera   Camera
	detector Detector

	mu       sync.Mutex
	latest   track.FrameSnapshot
	fresh    bool
	lastSeen [track.NumFingers]track.FingerState

	start time.Time
	stop  chan struct{}
	done  chan struct{}
}

// NewCameraProvider opens the camera and starts the capture loop.
func NewCameraProvider(camera Camera, detector Detector, pollHz int) (*CameraProvider, error) {
	if err := camera.Open(); err != nil {
		return nil, err
	}
	if pollHz <= 0 {
		pollHz = DefaultFPS
	}

	p := &CameraProvider{
		camera:   camera,
		detector: detector,
		start:    time.Now(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go p.loop(time.Second / time.Duration(pollHz))
	return p, nil
}

// Latest returns the most recent unseen snapshot. It reports false when no
// new frame has arrived since the previous call.
func (p *CameraProvider) Latest() (track.FrameSnapshot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.fresh {
		return track.FrameSnapshot{}, false
	}
	p.fresh = false
	return p.latest, true
}

// Close stops the capture loop and releases the camera and detector.
func (p *CameraProvider) Close() error {
	close(p.stop)
	<-p.done

	err := p.camera.Close()
	if derr := p.detector.Close(); err == nil {
		err = derr
	}
	return err
}

func (p *CameraProvider) loop(interval time.Duration) {
	defer close(p.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.captureOnce()
		}
	}
}

func (p *CameraProvider) captureOnce() {
	frame, err := p.camera.ReadFrame()
	if err != nil {
		log.Debugf("camera read failed: %v", err)
		return
	}
	defer frame.Close()

	hands, err := p.detector.Detect(frame)
	if err != nil {
		log.Debugf("hand detection failed: %v", err)
		return
	}

	ts := time.Since(p.start).Milliseconds()
	snap := p.buildSnapshot(ts, hands)

	p.mu.Lock()
	p.latest = snap
	p.fresh = true
	p.mu.Unlock()
}

// buildSnapshot converts detected landmarks to a tracking snapshot. Fingers
// on a hand that dropped out keep their last seen state, flagged invisible.
func (p *CameraProvider) buildSnapshot(ts int64, hands []HandLandmarks) track.FrameSnapshot {
	snap := track.FrameSnapshot{TimestampMS: ts}

	for f := track.Finger(0); f < track.NumFingers; f++ {
		state := p.lastSeen[f]
		state.Finger = f
		state.Visible = false
		snap.Fingers[f] = state
	}

	for i := range hands {
		h := &hands[i]
		if h.Score < minHandScore {
			continue
		}
		hand, ok := h.Hand()
		if !ok {
			continue
		}

		switch hand {
		case track.LeftHand:
			snap.LeftVisible = true
		case track.RightHand:
			snap.RightVisible = true
		}

		for _, f := range track.Fingers(hand) {
			state := track.FingerState{
				Finger:  f,
				Tip:     h.TipPosition(f),
				Angle:   h.FlexionAngle(f),
				Visible: true,
			}
			snap.Fingers[f] = state
			p.lastSeen[f] = state
		}
	}

	return snap
}
