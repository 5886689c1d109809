// Package calib provides the guided calibration state machine and the
// per-finger calibration records it produces.
package calib

import (
	"math"

	"github.com/ayusman/fingertrack/internal/track"
)

// DefaultCompatThreshold is the legacy position-based press threshold kept on
// every record for consumers that still compare tip height instead of
// flexion angle.
const DefaultCompatThreshold = 0.3

// Record holds the calibrated angles for a single finger.
type Record struct {
	Finger          track.Finger `json:"finger"`
	BaselineAngle   float64      `json:"baseline_angle"`
	ThresholdAngle  float64      `json:"threshold_angle"`
	CompatThreshold float64      `json:"compat_threshold"`
}

// Deviation returns the angle-from-baseline for a measured flexion angle.
func (r Record) Deviation(angle float64) float64 {
	return angle - r.BaselineAngle
}

// valid reports whether the record's values are physically meaningful.
func (r Record) valid() bool {
	for _, v := range []float64{r.BaselineAngle, r.ThresholdAngle, r.CompatThreshold} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return r.Finger.Valid() && r.ThresholdAngle > r.BaselineAngle
}

// Set is a complete calibration: exactly one record per finger. Partial sets
// never escape the calibration machine.
type Set struct {
	Records [track.NumFingers]Record
}

// Record returns the record for the given finger.
func (s *Set) Record(f track.Finger) Record {
	return s.Records[f]
}

// Deviation returns the angle-from-baseline for a finger's measured angle.
func (s *Set) Deviation(f track.Finger, angle float64) float64 {
	return s.Records[f].Deviation(angle)
}

// valid reports whether every finger has a plausible record.
func (s *Set) valid() bool {
	for f := track.Finger(0); f < track.NumFingers; f++ {
		r := s.Records[f]
		if r.Finger != f || !r.valid() {
			return false
		}
	}
	return true
}
