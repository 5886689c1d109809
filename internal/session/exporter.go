// Package session aggregates trial metrics into session-level statistics and
// writes the per-session trial and event logs.
package session

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/fingertrack/internal/kinematics"
	"github.com/ayusman/fingertrack/internal/track"
)

// keyFormat produces the session key embedded in output filenames.
const keyFormat = "20060102_150405"

// TrialRecord is one exported trial row.
type TrialRecord struct {
	TrialNumber    int     `json:"trial_number"`
	Timestamp      string  `json:"timestamp"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`

	TargetFinger  string `json:"target_finger"`
	PressedFinger string `json:"pressed_finger"`
	IsWrongFinger bool   `json:"is_wrong_finger"`

	ReactionTimeMS float64 `json:"reaction_time_ms"`
	// MotionLeakageRatio is nil when the ratio is undefined for the trial.
	MotionLeakageRatio *float64 `json:"motion_leakage_ratio"`
	CoupledKeypress    bool     `json:"coupled_keypress"`
	IsCleanTrial       bool     `json:"is_clean_trial"`
	Confidence         string   `json:"confidence"`

	TargetPathLengthMM         float64 `json:"target_path_length_mm"`
	TotalNonTargetPathLengthMM float64 `json:"total_non_target_path_length_mm"`
}

// Aggregate is the finalized session-level summary.
type Aggregate struct {
	SessionID       string  `json:"session_id"`
	SessionKey      string  `json:"session_key"`
	StartTime       string  `json:"start_time"`
	EndTime         string  `json:"end_time"`
	DurationSeconds float64 `json:"duration_seconds"`

	TotalTrials          int `json:"total_trials"`
	CorrectTrials        int `json:"correct_trials"`
	WrongFingerTrials    int `json:"wrong_finger_trials"`
	CleanTrials          int `json:"clean_trials"`
	CoupledTrials        int `json:"coupled_keypress_trials"`
	LowConfidenceTrials  int `json:"low_confidence_trials"`

	// Rates are percentages of total trials.
	WrongFingerRate     float64 `json:"wrong_finger_error_rate"`
	CleanTrialRate      float64 `json:"clean_trial_rate"`
	CoupledKeypressRate float64 `json:"coupled_keypress_rate"`

	// Averages exclude low-confidence reaction times and undefined ratios.
	AvgReactionTimeMS float64 `json:"avg_reaction_time_ms"`
	AvgMLR            float64 `json:"avg_motion_leakage_ratio"`
}

// Exporter folds trial metrics into running aggregates, append-only. All
// statistics are incremental; nothing is recomputed from raw history.
type Exporter struct {
	id        string
	key       string
	startedAt time.Time

	trials []TrialRecord

	wrongCount   int
	cleanCount   int
	coupledCount int
	lowConfCount int

	rtSum   float64
	rtCount int

	mlrSum   float64
	mlrCount int

	finalized bool
}

// NewExporter starts a session at the given time. The session key embeds the
// start time and names every output file.
func NewExporter(start time.Time) *Exporter {
	return &Exporter{
		id:        uuid.New().String(),
		key:       start.Format(keyFormat),
		startedAt: start,
	}
}

// ID returns the session's unique identifier.
func (e *Exporter) ID() string {
	return e.id
}

// Key returns the filename-safe session key.
func (e *Exporter) Key() string {
	return e.key
}

// StartedAt returns the session start time.
func (e *Exporter) StartedAt() time.Time {
	return e.startedAt
}

// Append records one trial's metrics and returns the exported row.
func (e *Exporter) Append(m kinematics.TrialMetrics, now time.Time) TrialRecord {
	rec := TrialRecord{
		TrialNumber:                len(e.trials) + 1,
		Timestamp:                  now.Format(time.RFC3339),
		ElapsedSeconds:             round3(now.Sub(e.startedAt).Seconds()),
		TargetFinger:               m.TargetFinger.String(),
		PressedFinger:              m.PressedFinger.String(),
		IsWrongFinger:              m.IsWrongFinger,
		ReactionTimeMS:             m.ReactionTimeMS,
		CoupledKeypress:            m.CoupledKeypress,
		IsCleanTrial:               m.IsCleanTrial,
		Confidence:                 m.Confidence.String(),
		TargetPathLengthMM:         round2(m.TargetPathLength),
		TotalNonTargetPathLengthMM: round2(m.TotalNonTargetPath()),
	}
	if m.MLRValid {
		mlr := round4(m.MotionLeakageRatio)
		rec.MotionLeakageRatio = &mlr
	}
	e.trials = append(e.trials, rec)

	if m.IsWrongFinger {
		e.wrongCount++
	}
	if m.IsCleanTrial {
		e.cleanCount++
	}
	if m.CoupledKeypress {
		e.coupledCount++
	}
	if m.Confidence == kinematics.ConfidenceLow {
		e.lowConfCount++
	}

	// Low-confidence trials (pairing anomalies, short windows) are recorded
	// but excluded from the averaged statistics.
	if m.Confidence == kinematics.ConfidenceHigh {
		e.rtSum += m.ReactionTimeMS
		e.rtCount++
	}
	if m.MLRValid {
		e.mlrSum += m.MotionLeakageRatio
		e.mlrCount++
	}

	return rec
}

// Trials returns the recorded trial rows in order.
func (e *Exporter) Trials() []TrialRecord {
	return e.trials
}

// Finalize produces the immutable session aggregate. Call once at session
// end.
func (e *Exporter) Finalize(end time.Time) Aggregate {
	e.finalized = true

	agg := Aggregate{
		SessionID:           e.id,
		SessionKey:          e.key,
		StartTime:           e.startedAt.Format(time.RFC3339),
		EndTime:             end.Format(time.RFC3339),
		DurationSeconds:     round2(end.Sub(e.startedAt).Seconds()),
		TotalTrials:         len(e.trials),
		WrongFingerTrials:   e.wrongCount,
		CleanTrials:         e.cleanCount,
		CoupledTrials:       e.coupledCount,
		LowConfidenceTrials: e.lowConfCount,
	}
	agg.CorrectTrials = agg.TotalTrials - agg.WrongFingerTrials

	if total := float64(agg.TotalTrials); total > 0 {
		agg.WrongFingerRate = round2(float64(e.wrongCount) / total * 100)
		agg.CleanTrialRate = round2(float64(e.cleanCount) / total * 100)
		agg.CoupledKeypressRate = round2(float64(e.coupledCount) / total * 100)
	}
	if e.rtCount > 0 {
		agg.AvgReactionTimeMS = round2(e.rtSum / float64(e.rtCount))
	}
	if e.mlrCount > 0 {
		agg.AvgMLR = round4(e.mlrSum / float64(e.mlrCount))
	}
	return agg
}

// Finalized reports whether Finalize has been called.
func (e *Exporter) Finalized() bool {
	return e.finalized
}

// WrongFingerFor is a convenience for callers logging individual presses.
func WrongFingerFor(pressed, target track.Finger) bool {
	return pressed != target
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
