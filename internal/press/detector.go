// Package press turns calibrated flexion angles into discrete press events
// with hysteresis and per-finger cooldown.
package press

import (
	"github.com/ayusman/fingertrack/internal/calib"
	"github.com/ayusman/fingertrack/internal/track"
)

// Config holds the press detection tunables.
type Config struct {
	// HysteresisMargin is the angular gap below the press threshold a finger
	// must fall to count as released again.
	HysteresisMargin float64
	// CooldownMS is the minimum time between accepted presses on one finger.
	CooldownMS int64
}

// DefaultConfig returns the standard detection tunables.
func DefaultConfig() Config {
	return Config{
		HysteresisMargin: 5.0,
		CooldownMS:       250,
	}
}

// Event is a discrete press: one finger crossing its calibrated threshold.
// Events are created here and never mutated.
type Event struct {
	Finger      track.Finger
	TimestampMS int64
	// Snapshot is the frame that triggered the press.
	Snapshot track.FrameSnapshot
}

// fingerState is the logical press state of one finger.
type fingerState int

const (
	released fingerState = iota
	pressed
)

// Detector tracks per-finger press state across ticks. A finger without a
// calibration record never fires. The detector is owned by the single core
// thread and holds no locks.
type Detector struct {
	cfg      Config
	set      *calib.Set
	states   [track.NumFingers]fingerState
	cooldown [track.NumFingers]int64
}

// NewDetector creates a Detector. The calibration set may be nil, in which
// case no finger fires until SetCalibration is called.
func NewDetector(cfg Config, set *calib.Set) *Detector {
	return &Detector{cfg: cfg, set: set}
}

// SetCalibration swaps in a calibration set. All fingers return to released
// so a mid-session recalibration cannot leave a stale pressed state.
func (d *Detector) SetCalibration(set *calib.Set) {
	d.set = set
	d.states = [track.NumFingers]fingerState{}
	d.cooldown = [track.NumFingers]int64{}
}

// Calibrated reports whether the detector has a calibration set.
func (d *Detector) Calibrated() bool {
	return d.set != nil
}

// IsPressed reports the current logical state of a finger. Release is a
// query only; no event is emitted for it.
func (d *Detector) IsPressed(f track.Finger) bool {
	return d.states[f] == pressed
}

// Update consumes one live snapshot and returns the presses it triggered.
// Fingers whose hand is not visible this tick keep their state untouched;
// tracking dropout is a pause condition, not a failure.
func (d *Detector) Update(snap track.FrameSnapshot) []Event {
	if d.set == nil {
		return nil
	}

	var events []Event
	ts := snap.TimestampMS

	for f := track.Finger(0); f < track.NumFingers; f++ {
		fs := snap.Finger(f)
		if !fs.Visible {
			continue
		}

		rec := d.set.Record(f)

		switch d.states[f] {
		case released:
			if fs.Angle >= rec.ThresholdAngle && ts >= d.cooldown[f] {
				d.states[f] = pressed
				d.cooldown[f] = ts + d.cfg.CooldownMS
				events = append(events, Event{
					Finger:      f,
					TimestampMS: ts,
					Snapshot:    snap,
				})
			}
		case pressed:
			if fs.Angle < rec.ThresholdAngle-d.cfg.HysteresisMargin {
				d.states[f] = released
			}
		}
	}

	return events
}
