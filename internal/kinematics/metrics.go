// Package kinematics derives per-trial biomechanical metrics from a window
// of frame snapshots around a press event.
package kinematics

import (
	"math"

	"github.com/ayusman/fingertrack/internal/calib"
	"github.com/ayusman/fingertrack/internal/press"
	"github.com/ayusman/fingertrack/internal/track"
)

// Config holds the analysis window tunables.
type Config struct {
	// WindowPreMS and WindowPostMS bound the analysis window around a press.
	WindowPreMS  int64
	WindowPostMS int64
	// MLRThreshold is the maximum motion leakage ratio for a clean trial.
	MLRThreshold float64
	// CoupledDelta is the angle-from-baseline a non-target finger must cross
	// to count as a coupled keypress.
	CoupledDelta float64
	// MinWindowSamples is the smallest window that still yields full
	// confidence metrics.
	MinWindowSamples int
}

// DefaultConfig returns the standard analysis tunables.
func DefaultConfig() Config {
	return Config{
		WindowPreMS:      200,
		WindowPostMS:     400,
		MLRThreshold:     0.10,
		CoupledDelta:     30.0,
		MinWindowSamples: 5,
	}
}

// Confidence flags a trial whose inputs were degraded.
type Confidence int

const (
	ConfidenceHigh Confidence = iota
	ConfidenceLow
)

// String returns "high" or "low".
func (c Confidence) String() string {
	if c == ConfidenceHigh {
		return "high"
	}
	return "low"
}

// TrialMetrics is the immutable result of analyzing one press event.
type TrialMetrics struct {
	ReactionTimeMS float64

	TargetFinger  track.Finger
	PressedFinger track.Finger
	IsWrongFinger bool

	TargetPathLength     float64
	NonTargetPathLengths map[track.Finger]float64

	// MotionLeakageRatio is NaN when MLRValid is false: the target finger
	// did not move while others did, so the ratio is undefined.
	MotionLeakageRatio float64
	MLRValid           bool

	CoupledKeypress bool
	IsCleanTrial    bool
	Confidence      Confidence
}

// TotalNonTargetPath returns the summed path length of the 9 non-target
// fingers.
func (m *TrialMetrics) TotalNonTargetPath() float64 {
	var sum float64
	for _, l := range m.NonTargetPathLengths {
		sum += l
	}
	return sum
}

// Processor computes trial metrics. Compute is a pure function of its
// inputs: identical press, window, target, and spawn time always produce
// identical metrics.
type Processor struct {
	cfg Config
}

// NewProcessor creates a Processor with the given tunables.
func NewProcessor(cfg Config) *Processor {
	return &Processor{cfg: cfg}
}

// Config returns the processor's window tunables.
func (p *Processor) Config() Config {
	return p.cfg
}

// Compute derives the metrics for one press event. The window is the slice
// of snapshots returned by the frame buffer around the press timestamp; it
// may be partial during cold start or dropout, in which case the metrics are
// still computed but flagged low confidence.
func (p *Processor) Compute(
	event press.Event,
	window []track.FrameSnapshot,
	target track.Finger,
	spawnTimeMS int64,
	set *calib.Set,
) TrialMetrics {
	m := TrialMetrics{
		ReactionTimeMS: float64(event.TimestampMS - spawnTimeMS),
		TargetFinger:   target,
		PressedFinger:  event.Finger,
		IsWrongFinger:  event.Finger != target,
		Confidence:     ConfidenceHigh,
	}

	// A negative reaction time means the press was paired with the wrong
	// spawn. Record it raw; the trial is flagged instead of clamped.
	if m.ReactionTimeMS < 0 {
		m.Confidence = ConfidenceLow
	}
	if len(window) < p.cfg.MinWindowSamples {
		m.Confidence = ConfidenceLow
	}

	paths := pathLengths(window)
	m.TargetPathLength = paths[target]
	m.NonTargetPathLengths = make(map[track.Finger]float64, track.NumFingers-1)
	var nonTargetSum float64
	for f := track.Finger(0); f < track.NumFingers; f++ {
		if f == target {
			continue
		}
		m.NonTargetPathLengths[f] = paths[f]
		nonTargetSum += paths[f]
	}

	const eps = 1e-9
	switch {
	case m.TargetPathLength > eps:
		m.MotionLeakageRatio = nonTargetSum / m.TargetPathLength
		m.MLRValid = true
	case nonTargetSum <= eps:
		m.MotionLeakageRatio = 0
		m.MLRValid = true
	default:
		m.MotionLeakageRatio = math.NaN()
		m.MLRValid = false
		m.Confidence = ConfidenceLow
	}

	m.CoupledKeypress = p.coupledKeypress(window, target, set)

	m.IsCleanTrial = !m.IsWrongFinger &&
		!m.CoupledKeypress &&
		m.MLRValid &&
		m.MotionLeakageRatio <= p.cfg.MLRThreshold

	return m
}

// pathLengths sums the Euclidean tip travel per finger across consecutive
// snapshots. A finger invisible in either of two consecutive snapshots
// contributes no distance for that step: the tip is treated as holding its
// last known position until seen again.
func pathLengths(window []track.FrameSnapshot) [track.NumFingers]float64 {
	var paths [track.NumFingers]float64
	if len(window) < 2 {
		return paths
	}

	for i := 1; i < len(window); i++ {
		prev, curr := &window[i-1], &window[i]
		for f := track.Finger(0); f < track.NumFingers; f++ {
			pf, cf := prev.Finger(f), curr.Finger(f)
			if pf.Visible && cf.Visible {
				paths[f] += pf.Tip.Distance(cf.Tip)
			}
		}
	}
	return paths
}

// coupledKeypress reports whether any non-target finger's angle-from-baseline
// crossed the coupling threshold anywhere in the window.
func (p *Processor) coupledKeypress(window []track.FrameSnapshot, target track.Finger, set *calib.Set) bool {
	if set == nil {
		return false
	}
	for i := range window {
		for f := track.Finger(0); f < track.NumFingers; f++ {
			if f == target {
				continue
			}
			fs := window[i].Finger(f)
			if !fs.Visible {
				continue
			}
			if set.Deviation(f, fs.Angle) >= p.cfg.CoupledDelta {
				return true
			}
		}
	}
	return false
}

// MLRRating maps a motion leakage ratio onto a coaching band.
func MLRRating(mlr float64) string {
	switch {
	case math.IsNaN(mlr):
		return "UNDEFINED"
	case mlr <= 0.05:
		return "PERFECT"
	case mlr <= 0.10:
		return "CLEAN"
	case mlr <= 0.25:
		return "GOOD"
	case mlr <= 0.50:
		return "FAIR"
	default:
		return "NEEDS WORK"
	}
}
