package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ayusman/fingertrack/internal/calib"
	"github.com/ayusman/fingertrack/internal/track"
)

// PressLogEntry is one press event in the session event log.
type PressLogEntry struct {
	Type           string  `json:"type"`
	Timestamp      string  `json:"timestamp"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	FingerPressed  string  `json:"finger_pressed"`
	TargetFinger   string  `json:"target_finger,omitempty"`
	IsCorrect      bool    `json:"is_correct"`
	AngleDegrees   float64 `json:"angle_degrees"`
	LeftVisible    bool    `json:"left_visible"`
	RightVisible   bool    `json:"right_visible"`
}

// EventLog records press events for one session and persists them as
// session_<key>.json alongside the trial exports.
type EventLog struct {
	sessionID  string
	sessionKey string
	startedAt  time.Time
	path       string

	calibration *calib.Set
	events      []PressLogEntry
}

// NewEventLog creates the event log for a session. The calibration set in
// use is embedded in the file header for later analysis; it may be nil.
func NewEventLog(dir, sessionID, sessionKey string, start time.Time, set *calib.Set) *EventLog {
	return &EventLog{
		sessionID:   sessionID,
		sessionKey:  sessionKey,
		startedAt:   start,
		path:        filepath.Join(dir, "session_"+sessionKey+".json"),
		calibration: set,
	}
}

// Path returns the log file location.
func (l *EventLog) Path() string {
	return l.path
}

// LogPress appends one press event.
func (l *EventLog) LogPress(pressed, target track.Finger, snap track.FrameSnapshot, now time.Time) {
	entry := PressLogEntry{
		Type:           "finger_press",
		Timestamp:      now.Format(time.RFC3339),
		ElapsedSeconds: round3(now.Sub(l.startedAt).Seconds()),
		FingerPressed:  pressed.String(),
		IsCorrect:      pressed == target,
		AngleDegrees:   snap.Finger(pressed).Angle,
		LeftVisible:    snap.LeftVisible,
		RightVisible:   snap.RightVisible,
	}
	if target.Valid() {
		entry.TargetFinger = target.String()
	}
	l.events = append(l.events, entry)
}

// Flush writes the full event log to disk.
func (l *EventLog) Flush() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	var calRecords []calib.Record
	if l.calibration != nil {
		for f := track.Finger(0); f < track.NumFingers; f++ {
			calRecords = append(calRecords, l.calibration.Record(f))
		}
	}

	payload := struct {
		SessionID   string          `json:"session_id"`
		SessionKey  string          `json:"session_key"`
		StartTime   string          `json:"start_time"`
		Calibration []calib.Record  `json:"calibration_used,omitempty"`
		Events      []PressLogEntry `json:"events"`
	}{
		SessionID:   l.sessionID,
		SessionKey:  l.sessionKey,
		StartTime:   l.startedAt.Format(time.RFC3339),
		Calibration: calRecords,
		Events:      l.events,
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode event log: %w", err)
	}
	if err := os.WriteFile(l.path, data, 0o644); err != nil {
		return fmt.Errorf("write event log: %w", err)
	}
	return nil
}
