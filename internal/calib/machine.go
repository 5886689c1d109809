package calib

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/ayusman/fingertrack/internal/track"
)

// Phase identifies a calibration machine state.
type Phase int

const (
	// PhaseWaitingHands waits for the hands to be steadily visible.
	PhaseWaitingHands Phase = iota
	// PhaseBaselineLeft accumulates resting angles for the left hand.
	PhaseBaselineLeft
	// PhaseBaselineRight accumulates resting angles for the right hand.
	PhaseBaselineRight
	// PhaseFinger calibrates individual fingers in lane order.
	PhaseFinger
	// PhaseComplete is terminal and yields a full record set.
	PhaseComplete
)

// String returns a short phase name for status displays and logs.
func (p Phase) String() string {
	switch p {
	case PhaseWaitingHands:
		return "waiting_hands"
	case PhaseBaselineLeft:
		return "baseline_left"
	case PhaseBaselineRight:
		return "baseline_right"
	case PhaseFinger:
		return "calibrating_finger"
	case PhaseComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Config holds the calibration tunables.
type Config struct {
	// ThresholdDelta is the angle-from-baseline that constitutes a press.
	ThresholdDelta float64
	// BaselineDurationMS is how long resting angles are accumulated per hand.
	BaselineDurationMS int64
	// MaxGapMS is the longest hand dropout tolerated during baseline capture
	// before the phase restarts from zero.
	MaxGapMS int64
	// HoldDurationMS is how long a finger must sustain the threshold before
	// the machine auto-advances.
	HoldDurationMS int64
	// HandDebounceMS is how long both hands must be continuously visible
	// before calibration leaves WaitingHands.
	HandDebounceMS int64
	// CompatThreshold is stamped onto every record for legacy position-based
	// consumers.
	CompatThreshold float64
}

// DefaultConfig returns the standard calibration tunables.
func DefaultConfig() Config {
	return Config{
		ThresholdDelta:     30.0,
		BaselineDurationMS: 10000,
		MaxGapMS:           3000,
		HoldDurationMS:     500,
		HandDebounceMS:     500,
		CompatThreshold:    DefaultCompatThreshold,
	}
}

// Status is a read-only view of calibration progress for display.
type Status struct {
	Phase           Phase        `json:"phase"`
	PhaseName       string       `json:"phase_name"`
	Finger          track.Finger `json:"finger"`
	FingerIndex     int          `json:"finger_index"`
	Progress        float64      `json:"progress"`
	BaselineElapsed int64        `json:"baseline_elapsed_ms"`
	BaselineTotal   int64        `json:"baseline_total_ms"`
	HoldProgress    float64      `json:"hold_progress"`
	Deviation       float64      `json:"deviation"`
}

// Machine is the guided calibration state machine. It consumes one live
// snapshot per tick and walks WaitingHands through per-finger calibration to
// Complete. It is owned by the single core thread and holds no locks.
type Machine struct {
	cfg Config

	phase     Phase
	fingerIdx int

	// WaitingHands debounce
	debounceStartMS int64

	// Baseline accumulation for the current hand phase
	samples       [track.NumFingers][]float64
	elapsedMS     int64
	prevTS        int64
	prevVisible   bool
	lastVisibleMS int64

	baselines    [track.NumFingers]float64
	baselinesSet bool

	// Per-finger hold tracking
	holdStartMS int64
	deviation   float64

	result *Set
}

// NewMachine creates a calibration machine in WaitingHands.
func NewMachine(cfg Config) *Machine {
	m := &Machine{cfg: cfg}
	m.reset()
	return m
}

// reset returns the machine to WaitingHands, discarding all accumulation.
func (m *Machine) reset() {
	m.phase = PhaseWaitingHands
	m.fingerIdx = 0
	m.debounceStartMS = -1
	m.clearPhaseState()
	m.baselines = [track.NumFingers]float64{}
	m.baselinesSet = false
	m.result = nil
}

// clearPhaseState discards the in-flight accumulation of the current phase.
func (m *Machine) clearPhaseState() {
	for i := range m.samples {
		m.samples[i] = nil
	}
	m.elapsedMS = 0
	m.prevTS = -1
	m.prevVisible = false
	m.lastVisibleMS = -1
	m.holdStartMS = -1
	m.deviation = 0
}

// Cancel aborts the run and returns to WaitingHands with no residual state.
func (m *Machine) Cancel() {
	m.reset()
}

// Done reports whether calibration has reached the terminal phase.
func (m *Machine) Done() bool {
	return m.phase == PhaseComplete
}

// Records returns the completed calibration set, or false while the machine
// is still running.
func (m *Machine) Records() (*Set, bool) {
	if m.phase != PhaseComplete || m.result == nil {
		return nil, false
	}
	return m.result, true
}

// Update advances the machine with one live snapshot. It is a no-op once the
// machine is complete.
func (m *Machine) Update(snap track.FrameSnapshot) {
	switch m.phase {
	case PhaseWaitingHands:
		m.updateWaitingHands(snap)
	case PhaseBaselineLeft:
		m.updateBaseline(snap, track.LeftHand, PhaseBaselineRight)
	case PhaseBaselineRight:
		m.updateBaseline(snap, track.RightHand, PhaseFinger)
	case PhaseFinger:
		m.updateFinger(snap)
	case PhaseComplete:
	}
}

func (m *Machine) updateWaitingHands(snap track.FrameSnapshot) {
	if !snap.LeftVisible || !snap.RightVisible {
		m.debounceStartMS = -1
		return
	}
	if m.debounceStartMS < 0 {
		m.debounceStartMS = snap.TimestampMS
	}
	if snap.TimestampMS-m.debounceStartMS >= m.cfg.HandDebounceMS {
		m.phase = PhaseBaselineLeft
		m.clearPhaseState()
	}
}

func (m *Machine) updateBaseline(snap track.FrameSnapshot, hand track.Hand, next Phase) {
	ts := snap.TimestampMS

	if !snap.HandVisible(hand) {
		// Accumulation pauses while the hand is away; a long enough gap
		// restarts the phase from zero.
		if m.lastVisibleMS >= 0 && ts-m.lastVisibleMS > m.cfg.MaxGapMS {
			m.clearPhaseState()
		}
		m.prevVisible = false
		m.prevTS = ts
		return
	}

	if m.prevVisible && m.prevTS >= 0 && ts > m.prevTS {
		m.elapsedMS += ts - m.prevTS
	}
	m.prevTS = ts
	m.prevVisible = true
	m.lastVisibleMS = ts

	for _, f := range track.Fingers(hand) {
		if snap.Finger(f).Visible {
			m.samples[f] = append(m.samples[f], snap.Finger(f).Angle)
		}
	}

	if m.elapsedMS < m.cfg.BaselineDurationMS {
		return
	}

	// Baseline per finger is the median of its samples, robust to brief
	// motion spikes during the capture.
	for _, f := range track.Fingers(hand) {
		m.baselines[f] = median(m.samples[f])
	}

	m.phase = next
	m.clearPhaseState()
	if next == PhaseFinger {
		m.baselinesSet = true
		m.fingerIdx = 0
	}
}

func (m *Machine) updateFinger(snap track.FrameSnapshot) {
	f := track.Finger(m.fingerIdx)
	ts := snap.TimestampMS
	m.prevTS = ts

	if !snap.HandVisible(f.Hand()) || !snap.Finger(f).Visible {
		m.holdStartMS = -1
		return
	}

	m.deviation = snap.Finger(f).Angle - m.baselines[f]

	if m.deviation < m.cfg.ThresholdDelta {
		// Hold resets on any sample below threshold.
		m.holdStartMS = -1
		return
	}

	if m.holdStartMS < 0 {
		m.holdStartMS = ts
		return
	}

	if ts-m.holdStartMS < m.cfg.HoldDurationMS {
		return
	}

	m.advanceFinger()
}

func (m *Machine) advanceFinger() {
	m.fingerIdx++
	m.holdStartMS = -1
	m.deviation = 0

	if m.fingerIdx < track.NumFingers {
		return
	}

	set := &Set{}
	for f := track.Finger(0); f < track.NumFingers; f++ {
		set.Records[f] = Record{
			Finger:          f,
			BaselineAngle:   m.baselines[f],
			ThresholdAngle:  m.baselines[f] + m.cfg.ThresholdDelta,
			CompatThreshold: m.cfg.CompatThreshold,
		}
	}
	m.result = set
	m.phase = PhaseComplete
}

// Status returns a read-only view of the current progress.
func (m *Machine) Status() Status {
	s := Status{
		Phase:         m.phase,
		PhaseName:     m.phase.String(),
		FingerIndex:   m.fingerIdx,
		BaselineTotal: m.cfg.BaselineDurationMS,
		Deviation:     m.deviation,
	}

	switch m.phase {
	case PhaseBaselineLeft, PhaseBaselineRight:
		s.BaselineElapsed = m.elapsedMS
	case PhaseFinger:
		s.Finger = track.Finger(m.fingerIdx)
		s.Progress = float64(m.fingerIdx) / float64(track.NumFingers)
		if m.holdStartMS >= 0 && m.prevTS >= 0 {
			held := float64(m.prevTS - m.holdStartMS)
			s.HoldProgress = held / float64(m.cfg.HoldDurationMS)
			if s.HoldProgress > 1 {
				s.HoldProgress = 1
			}
		}
	case PhaseComplete:
		s.Progress = 1
	}
	return s
}

// median returns the middle value of the samples, or 0 for an empty slice.
func median(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}
