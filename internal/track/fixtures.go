package track

// Preset snapshot constructors used by tests across packages, in the spirit
// of recorded reference frames.

// RestingSnapshot returns a snapshot with both hands visible and every finger
// relaxed at the given flexion angle. Tips are spread along X by lane, 30 mm
// apart, 200 mm above the sensor.
func RestingSnapshot(timestampMS int64, angle float64) FrameSnapshot {
	snap := FrameSnapshot{
		TimestampMS:  timestampMS,
		LeftVisible:  true,
		RightVisible: true,
	}
	for f := Finger(0); f < NumFingers; f++ {
		snap.Fingers[f] = FingerState{
			Finger:  f,
			Tip:     Point3D{X: float64(f.Lane()) * 30.0, Y: 200.0, Z: 0},
			Angle:   angle,
			Visible: true,
		}
	}
	return snap
}

// WithAngle returns a copy of the snapshot with one finger's flexion angle
// replaced.
func WithAngle(snap FrameSnapshot, f Finger, angle float64) FrameSnapshot {
	snap.Fingers[f].Angle = angle
	return snap
}

// WithTip returns a copy of the snapshot with one finger's tip position
// replaced.
func WithTip(snap FrameSnapshot, f Finger, tip Point3D) FrameSnapshot {
	snap.Fingers[f].Tip = tip
	return snap
}

// WithoutHand returns a copy of the snapshot with the given hand hidden and
// its fingers marked invisible.
func WithoutHand(snap FrameSnapshot, h Hand) FrameSnapshot {
	if h == LeftHand {
		snap.LeftVisible = false
	} else {
		snap.RightVisible = false
	}
	for _, f := range Fingers(h) {
		snap.Fingers[f].Visible = false
	}
	return snap
}
