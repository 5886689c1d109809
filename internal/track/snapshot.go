package track

import "math"

// Point3D represents a 3D point in millimeters.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Distance calculates the Euclidean distance to another point.
func (p Point3D) Distance(q Point3D) float64 {
	dx := p.X - q.X
	dy := p.Y - q.Y
	dz := p.Z - q.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// FingerState is the per-frame sample for a single finger: tip position in
// millimeters and flexion angle in degrees, increasing as the finger curls.
// Visible is false when the finger's hand was not tracked this frame, in
// which case the other fields are stale.
type FingerState struct {
	Finger  Finger  `json:"finger"`
	Tip     Point3D `json:"tip"`
	Angle   float64 `json:"angle"`
	Visible bool    `json:"visible"`
}

// FrameSnapshot is one tick's worth of tracking data for both hands.
// Snapshots are immutable once created; the FrameBuffer owns them after
// ingestion.
type FrameSnapshot struct {
	TimestampMS  int64                   `json:"timestamp_ms"`
	Fingers      [NumFingers]FingerState `json:"fingers"`
	LeftVisible  bool                    `json:"left_visible"`
	RightVisible bool                    `json:"right_visible"`
}

// HandVisible reports whether the given hand was tracked in this frame.
func (s *FrameSnapshot) HandVisible(h Hand) bool {
	if h == LeftHand {
		return s.LeftVisible
	}
	return s.RightVisible
}

// AnyHandVisible reports whether at least one hand was tracked.
func (s *FrameSnapshot) AnyHandVisible() bool {
	return s.LeftVisible || s.RightVisible
}

// Finger returns the sample for the given finger.
func (s *FrameSnapshot) Finger(f Finger) FingerState {
	return s.Fingers[f]
}
