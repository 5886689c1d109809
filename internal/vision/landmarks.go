// Package vision turns camera frames into finger tracking snapshots. It
// captures frames with GoCV, detects hand landmarks through a MediaPipe
// subprocess, and derives per-finger flexion angles and tip positions.
package vision

import (
	"math"

	"github.com/ayusman/fingertrack/internal/track"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// handSpanMM converts MediaPipe's normalized coordinates to millimeters,
// using a nominal adult wrist-to-middle-knuckle span as the reference.
const handSpanMM = 80.0

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
type HandLandmarks struct {
	Points     [NumLandmarks]track.Point3D `json:"points"`
	Handedness string                      `json:"handedness"` // "Left" or "Right"
	Score      float64                     `json:"score"`
}

// fingerJoints gives each finger's MCP, middle joint, and tip landmark.
// Thumbs bend at the IP joint; the other fingers at the PIP.
func fingerJoints(f track.Finger) (mcp, mid, tip int) {
	switch f {
	case track.LeftThumb, track.RightThumb:
		return ThumbMCP, ThumbIP, ThumbTip
	case track.LeftIndex, track.RightIndex:
		return IndexMCP, IndexPIP, IndexTip
	case track.LeftMiddle, track.RightMiddle:
		return MiddleMCP, MiddlePIP, MiddleTip
	case track.LeftRing, track.RightRing:
		return RingMCP, RingPIP, RingTip
	default:
		return PinkyMCP, PinkyPIP, PinkyTip
	}
}

// FlexionAngle derives the flexion angle of a finger in degrees. A straight
// finger reads near 0; a fully curled finger approaches 180. The angle is the
// bend at the middle joint between the proximal and distal segments, which is
// stable under hand rotation because it only depends on relative landmark
// positions.
func (h *HandLandmarks) FlexionAngle(f track.Finger) float64 {
	mcp, mid, tip := fingerJoints(f)
	return jointAngle(h.Points[mcp], h.Points[mid], h.Points[tip])
}

// TipPosition returns a finger's tip position scaled to millimeters.
func (h *HandLandmarks) TipPosition(f track.Finger) track.Point3D {
	_, _, tip := fingerJoints(f)
	scale := h.mmScale()
	p := h.Points[tip]
	return track.Point3D{X: p.X * scale, Y: p.Y * scale, Z: p.Z * scale}
}

// mmScale computes the normalized-to-millimeter factor from the observed
// wrist-to-middle-MCP distance.
func (h *HandLandmarks) mmScale() float64 {
	span := h.Points[Wrist].Distance(h.Points[MiddleMCP])
	if span < 1e-10 {
		return 0
	}
	return handSpanMM / span
}

// Hand maps MediaPipe handedness to the tracking hand. MediaPipe labels
// assume a mirrored selfie view, which matches a camera facing the player.
func (h *HandLandmarks) Hand() (track.Hand, bool) {
	switch h.Handedness {
	case "Left":
		return track.LeftHand, true
	case "Right":
		return track.RightHand, true
	}
	return 0, false
}

// jointAngle returns the bend in degrees at point b between segments a-b and
// b-c. Collinear points (a straight finger) give 0.
func jointAngle(a, b, c track.Point3D) float64 {
	v1 := track.Point3D{X: a.X - b.X, Y: a.Y - b.Y, Z: a.Z - b.Z}
	v2 := track.Point3D{X: c.X - b.X, Y: c.Y - b.Y, Z: c.Z - b.Z}

	n1 := math.Sqrt(v1.X*v1.X + v1.Y*v1.Y + v1.Z*v1.Z)
	n2 := math.Sqrt(v2.X*v2.X + v2.Y*v2.Y + v2.Z*v2.Z)
	if n1 < 1e-10 || n2 < 1e-10 {
		return 0
	}

	cos := (v1.X*v2.X + v1.Y*v2.Y + v1.Z*v2.Z) / (n1 * n2)
	cos = math.Max(-1, math.Min(1, cos))

	// The angle between the segments is pi at full extension; flexion is
	// its supplement.
	return 180 - math.Acos(cos)*180/math.Pi
}
