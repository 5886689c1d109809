package press

import (
	"testing"

	"github.com/ayusman/fingertrack/internal/calib"
	"github.com/ayusman/fingertrack/internal/track"
)

// calibSet returns a set with baseline 10 and threshold 40 for every finger.
func calibSet() *calib.Set {
	set := &calib.Set{}
	for f := track.Finger(0); f < track.NumFingers; f++ {
		set.Records[f] = calib.Record{
			Finger:          f,
			BaselineAngle:   10,
			ThresholdAngle:  40,
			CompatThreshold: calib.DefaultCompatThreshold,
		}
	}
	return set
}

func feed(d *Detector, f track.Finger, angles []float64, startTS, stepMS int64) []Event {
	var events []Event
	ts := startTS
	for _, angle := range angles {
		snap := track.WithAngle(track.RestingSnapshot(ts, 10), f, angle)
		events = append(events, d.Update(snap)...)
		ts += stepMS
	}
	return events
}

func TestDetector_SinglePressWithHysteresis(t *testing.T) {
	d := NewDetector(DefaultConfig(), calibSet())
	f := track.RightIndex

	// Baseline 10, trigger at 40: the 38/41/42 run must fire exactly once,
	// at the 41 sample, and release only below 35.
	angles := []float64{10, 15, 25, 38, 41, 42, 20}
	events := feed(d, f, angles, 1000, 500)

	if len(events) != 1 {
		t.Fatalf("expected exactly 1 press event, got %d", len(events))
	}
	if events[0].Finger != f {
		t.Errorf("event finger = %s, want %s", events[0].Finger, f)
	}
	// The 41-degree sample is the 5th, at t=1000+4*500.
	if events[0].TimestampMS != 3000 {
		t.Errorf("event at %d, want 3000 (the 41-degree sample)", events[0].TimestampMS)
	}
	// The 20-degree sample dropped below 35, so the finger is released.
	if d.IsPressed(f) {
		t.Error("expected finger released after falling below threshold - margin")
	}
}

func TestDetector_HysteresisPreventsChatter(t *testing.T) {
	d := NewDetector(DefaultConfig(), calibSet())
	f := track.LeftMiddle

	// Oscillation between 41 and 37 stays inside the hysteresis band
	// (released below 35): one press, no chatter.
	angles := []float64{41, 37, 41, 37, 41}
	events := feed(d, f, angles, 0, 500)

	if len(events) != 1 {
		t.Errorf("expected 1 press despite oscillation near threshold, got %d", len(events))
	}
	if !d.IsPressed(f) {
		t.Error("expected finger still logically pressed inside hysteresis band")
	}
}

func TestDetector_CooldownBlocksDoubleFire(t *testing.T) {
	d := NewDetector(DefaultConfig(), calibSet())
	f := track.LeftIndex

	// Press, quick release, and re-press all within the 250ms cooldown: the
	// second crossing must not fire.
	angles := []float64{45, 20, 45}
	events := feed(d, f, angles, 0, 50)
	if len(events) != 1 {
		t.Fatalf("expected 1 press within cooldown window, got %d", len(events))
	}

	// After the cooldown elapses a new crossing fires again.
	later := feed(d, f, []float64{20, 45}, 400, 50)
	if len(later) != 1 {
		t.Errorf("expected press after cooldown elapsed, got %d", len(later))
	}
}

func TestDetector_UncalibratedFingerNeverFires(t *testing.T) {
	d := NewDetector(DefaultConfig(), nil)

	events := feed(d, track.RightRing, []float64{90, 90, 90}, 0, 100)
	if len(events) != 0 {
		t.Errorf("expected no events without calibration, got %d", len(events))
	}

	// Calibration arriving later enables detection.
	d.SetCalibration(calibSet())
	events = feed(d, track.RightRing, []float64{10, 90}, 1000, 100)
	if len(events) != 1 {
		t.Errorf("expected 1 event after calibration, got %d", len(events))
	}
}

func TestDetector_InvisibleHandPausesDetection(t *testing.T) {
	d := NewDetector(DefaultConfig(), calibSet())
	f := track.LeftThumb

	// Press the finger, then hide its hand while still over threshold: state
	// is held, no release, no new events.
	feed(d, f, []float64{50}, 0, 50)
	if !d.IsPressed(f) {
		t.Fatal("expected pressed state")
	}

	hidden := track.WithoutHand(track.WithAngle(track.RestingSnapshot(1000, 10), f, 50), track.LeftHand)
	if events := d.Update(hidden); len(events) != 0 {
		t.Errorf("expected no events while hand hidden, got %d", len(events))
	}
	if !d.IsPressed(f) {
		t.Error("expected pressed state held through dropout")
	}
}

func TestDetector_IndependentFingers(t *testing.T) {
	d := NewDetector(DefaultConfig(), calibSet())

	snap := track.RestingSnapshot(100, 10)
	snap = track.WithAngle(snap, track.LeftIndex, 45)
	snap = track.WithAngle(snap, track.RightIndex, 45)

	events := d.Update(snap)
	if len(events) != 2 {
		t.Fatalf("expected 2 simultaneous presses, got %d", len(events))
	}

	got := map[track.Finger]bool{}
	for _, e := range events {
		got[e.Finger] = true
	}
	if !got[track.LeftIndex] || !got[track.RightIndex] {
		t.Errorf("expected presses on left_index and right_index, got %v", got)
	}
}
