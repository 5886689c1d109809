package kinematics

import (
	"math"
	"testing"

	"github.com/ayusman/fingertrack/internal/calib"
	"github.com/ayusman/fingertrack/internal/press"
	"github.com/ayusman/fingertrack/internal/track"
)

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

// stillWindow returns n resting snapshots, 50ms apart, starting at startTS.
func stillWindow(startTS int64, n int) []track.FrameSnapshot {
	window := make([]track.FrameSnapshot, 0, n)
	for i := 0; i < n; i++ {
		window = append(window, track.RestingSnapshot(startTS+int64(i)*50, 10))
	}
	return window
}

// moveFinger displaces one finger's tip by dx millimeters per frame.
func moveFinger(window []track.FrameSnapshot, f track.Finger, dx float64) {
	for i := range window {
		tip := window[i].Finger(f).Tip
		tip.X += dx * float64(i)
		window[i] = track.WithTip(window[i], f, tip)
	}
}

func pressAt(f track.Finger, ts int64) press.Event {
	return press.Event{
		Finger:      f,
		TimestampMS: ts,
		Snapshot:    track.WithAngle(track.RestingSnapshot(ts, 10), f, 45),
	}
}

func TestCompute_ReactionTime(t *testing.T) {
	p := NewProcessor(DefaultConfig())
	window := stillWindow(1250, 12)
	target := track.RightIndex
	moveFinger(window, target, 2)

	m := p.Compute(pressAt(target, 1450), window, target, 1000, calibSet())

	if m.ReactionTimeMS != 450 {
		t.Errorf("reaction time = %v, want 450", m.ReactionTimeMS)
	}
	if m.Confidence != ConfidenceHigh {
		t.Errorf("expected high confidence, got %s", m.Confidence)
	}
}

func TestCompute_NegativeReactionTimeFlagged(t *testing.T) {
	p := NewProcessor(DefaultConfig())
	window := stillWindow(800, 12)
	target := track.LeftIndex
	moveFinger(window, target, 2)

	// Spawn after the press: pairing anomaly.
	m := p.Compute(pressAt(target, 1000), window, target, 1200, calibSet())

	if m.ReactionTimeMS != -200 {
		t.Errorf("reaction time = %v, want raw -200 (not clamped)", m.ReactionTimeMS)
	}
	if m.Confidence != ConfidenceLow {
		t.Error("expected low confidence for negative reaction time")
	}
}

func TestCompute_OnlyTargetMovesMLRZero(t *testing.T) {
	p := NewProcessor(DefaultConfig())
	target := track.RightMiddle
	window := stillWindow(1000, 12)
	moveFinger(window, target, 3)

	m := p.Compute(pressAt(target, 1300), window, target, 1000, calibSet())

	if !m.MLRValid {
		t.Fatal("expected valid MLR")
	}
	if m.MotionLeakageRatio != 0 {
		t.Errorf("MLR = %v, want 0 when only the target moves", m.MotionLeakageRatio)
	}
}

func TestCompute_MLRAndCleanTrial(t *testing.T) {
	p := NewProcessor(DefaultConfig())
	target := track.RightIndex
	other := track.RightMiddle

	// Target travels 20mm over the window, one other finger travels 1mm.
	window := stillWindow(1000, 11)
	moveFinger(window, target, 2)   // 10 steps x 2mm = 20mm
	moveFinger(window, other, 0.1)  // 10 steps x 0.1mm = 1mm

	m := p.Compute(pressAt(target, 1300), window, target, 1000, calibSet())

	if !m.MLRValid {
		t.Fatal("expected valid MLR")
	}
	if math.Abs(m.MotionLeakageRatio-0.05) > 1e-9 {
		t.Errorf("MLR = %v, want 0.05", m.MotionLeakageRatio)
	}
	if m.CoupledKeypress {
		t.Error("no finger crossed the coupling threshold")
	}
	if !m.IsCleanTrial {
		t.Error("correct finger, no coupling, MLR 0.05: expected clean trial")
	}
	if math.Abs(m.TargetPathLength-20) > 1e-9 {
		t.Errorf("target path = %v, want 20", m.TargetPathLength)
	}
	if math.Abs(m.TotalNonTargetPath()-1) > 1e-9 {
		t.Errorf("non-target path = %v, want 1", m.TotalNonTargetPath())
	}
}

func TestCompute_UndefinedMLR(t *testing.T) {
	p := NewProcessor(DefaultConfig())
	target := track.LeftRing
	other := track.LeftMiddle

	// Target never moves, another finger does: MLR undefined, not infinite.
	window := stillWindow(1000, 12)
	moveFinger(window, other, 1)

	m := p.Compute(pressAt(target, 1300), window, target, 1000, calibSet())

	if m.MLRValid {
		t.Error("expected MLR invalid when target is still and others move")
	}
	if !math.IsNaN(m.MotionLeakageRatio) {
		t.Errorf("MLR = %v, want NaN", m.MotionLeakageRatio)
	}
	if m.Confidence != ConfidenceLow {
		t.Error("expected low confidence for undefined MLR")
	}
	if m.IsCleanTrial {
		t.Error("undefined MLR cannot be a clean trial")
	}
}

func TestCompute_CoupledKeypress(t *testing.T) {
	p := NewProcessor(DefaultConfig())
	target := track.RightIndex
	window := stillWindow(1000, 12)
	moveFinger(window, target, 2)

	// A non-target finger crosses baseline+30 in one frame mid-window.
	window[6] = track.WithAngle(window[6], track.RightRing, 41)

	m := p.Compute(pressAt(target, 1300), window, target, 1000, calibSet())

	if !m.CoupledKeypress {
		t.Error("expected coupled keypress when a non-target finger crosses 30 degrees")
	}
	if m.IsCleanTrial {
		t.Error("coupled trial cannot be clean")
	}
}

func TestCompute_WrongFingerNeverClean(t *testing.T) {
	p := NewProcessor(DefaultConfig())
	target := track.RightIndex
	pressedF := track.RightMiddle

	window := stillWindow(1000, 12)
	moveFinger(window, target, 2)

	m := p.Compute(pressAt(pressedF, 1300), window, target, 1000, calibSet())

	if !m.IsWrongFinger {
		t.Error("expected wrong finger")
	}
	if m.IsCleanTrial {
		t.Error("is_clean_trial implies pressed == target")
	}
}

func TestCompute_ShortWindowLowConfidence(t *testing.T) {
	p := NewProcessor(DefaultConfig())
	target := track.LeftIndex
	window := stillWindow(1280, 2)
	moveFinger(window, target, 2)

	m := p.Compute(pressAt(target, 1300), window, target, 1000, calibSet())

	if m.Confidence != ConfidenceLow {
		t.Error("expected low confidence for a 2-sample window")
	}
	// Metrics are still computed from what is available.
	if m.TargetPathLength == 0 {
		t.Error("expected path length computed from partial window")
	}
}

func TestCompute_GapContributesNoDistance(t *testing.T) {
	p := NewProcessor(DefaultConfig())
	target := track.LeftIndex

	// Finger moves 2mm per frame, but the hand vanishes for the middle
	// frames and reappears far away. The invisible span and the
	// reappearance jump add nothing.
	window := stillWindow(1000, 6)
	moveFinger(window, target, 2)
	window[2] = track.WithoutHand(window[2], track.LeftHand)
	window[3] = track.WithoutHand(window[3], track.LeftHand)

	m := p.Compute(pressAt(target, 1150), window, target, 1000, calibSet())

	// Visible consecutive pairs: (0,1) and (4,5), 2mm each.
	if math.Abs(m.TargetPathLength-4) > 1e-9 {
		t.Errorf("target path = %v, want 4 with gap bridged", m.TargetPathLength)
	}
}

func TestCompute_Deterministic(t *testing.T) {
	p := NewProcessor(DefaultConfig())
	target := track.RightThumb
	window := stillWindow(1000, 12)
	moveFinger(window, target, 1.5)
	ev := pressAt(target, 1300)

	a := p.Compute(ev, window, target, 1000, calibSet())
	b := p.Compute(ev, window, target, 1000, calibSet())

	if a.MotionLeakageRatio != b.MotionLeakageRatio ||
		a.TargetPathLength != b.TargetPathLength ||
		a.IsCleanTrial != b.IsCleanTrial {
		t.Error("identical inputs must produce identical metrics")
	}
}

func TestMLRRating(t *testing.T) {
	cases := []struct {
		mlr  float64
		want string
	}{
		{0.0, "PERFECT"},
		{0.05, "PERFECT"},
		{0.10, "CLEAN"},
		{0.25, "GOOD"},
		{0.50, "FAIR"},
		{0.51, "NEEDS WORK"},
		{math.NaN(), "UNDEFINED"},
	}
	for _, c := range cases {
		if got := MLRRating(c.mlr); got != c.want {
			t.Errorf("MLRRating(%v) = %q, want %q", c.mlr, got, c.want)
		}
	}
}
