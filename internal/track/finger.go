// Package track provides hand tracking types and the rolling frame history
// used for press detection and kinematic analysis.
package track

// Hand identifies one of the two tracked hands.
type Hand int

const (
	LeftHand Hand = iota
	RightHand
)

// String returns "left" or "right".
func (h Hand) String() string {
	if h == LeftHand {
		return "left"
	}
	return "right"
}

// Finger identifies one of the 10 tracked fingers. The ordering follows the
// screen lanes from left to right: left pinky through right pinky.
type Finger int

const (
	LeftPinky Finger = iota
	LeftRing
	LeftMiddle
	LeftIndex
	LeftThumb
	RightThumb
	RightIndex
	RightMiddle
	RightRing
	RightPinky
	NumFingers = 10
)

var fingerNames = [NumFingers]string{
	"left_pinky", "left_ring", "left_middle", "left_index", "left_thumb",
	"right_thumb", "right_index", "right_middle", "right_ring", "right_pinky",
}

var fingerDisplayNames = [NumFingers]string{
	"L5", "L4", "L3", "L2", "L1",
	"R1", "R2", "R3", "R4", "R5",
}

// Valid reports whether f is one of the 10 finger identifiers.
func (f Finger) Valid() bool {
	return f >= 0 && f < NumFingers
}

// String returns the canonical finger name, e.g. "left_index".
func (f Finger) String() string {
	if !f.Valid() {
		return "unknown"
	}
	return fingerNames[f]
}

// DisplayName returns the short on-screen label, e.g. "L2".
func (f Finger) DisplayName() string {
	if !f.Valid() {
		return "?"
	}
	return fingerDisplayNames[f]
}

// Hand returns the hand this finger belongs to.
func (f Finger) Hand() Hand {
	if f <= LeftThumb {
		return LeftHand
	}
	return RightHand
}

// Lane returns the screen lane index for this finger. Lanes and fingers map
// one-to-one, so the lane index equals the finger identifier.
func (f Finger) Lane() int {
	return int(f)
}

// FingerForLane returns the finger mapped to the given screen lane.
func FingerForLane(lane int) (Finger, bool) {
	f := Finger(lane)
	return f, f.Valid()
}

// ParseFinger resolves a canonical finger name back to its identifier.
func ParseFinger(name string) (Finger, bool) {
	for i, n := range fingerNames {
		if n == name {
			return Finger(i), true
		}
	}
	return 0, false
}

// Fingers returns the fingers of the given hand in lane order.
func Fingers(h Hand) []Finger {
	if h == LeftHand {
		return []Finger{LeftPinky, LeftRing, LeftMiddle, LeftIndex, LeftThumb}
	}
	return []Finger{RightThumb, RightIndex, RightMiddle, RightRing, RightPinky}
}
