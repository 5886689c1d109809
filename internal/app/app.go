// Package app wires the tracking provider, calibration, press detection,
// kinematics and session export into one tick-driven pipeline.
package app

import (
	"fmt"
	"sync"
	"time"

	"github.com/ayusman/fingertrack/internal/calib"
	"github.com/ayusman/fingertrack/internal/config"
	"github.com/ayusman/fingertrack/internal/kinematics"
	"github.com/ayusman/fingertrack/internal/log"
	"github.com/ayusman/fingertrack/internal/press"
	"github.com/ayusman/fingertrack/internal/record"
	"github.com/ayusman/fingertrack/internal/session"
	"github.com/ayusman/fingertrack/internal/store"
	"github.com/ayusman/fingertrack/internal/track"
)

// Config holds the application dependencies and tunables.
type Config struct {
	Provider track.Provider
	Store    *store.Store
	Resolver TargetResolver

	// Recorder, when set, captures the raw snapshot stream for replay.
	Recorder *record.Recorder

	Settings config.Config
}

// App owns the pipeline. All tracking state is mutated by the single tick
// goroutine; LiveState and ShouldPause take the state lock so the server can
// read concurrently.
type App struct {
	cfg Config

	buffer    *track.FrameBuffer
	machine   *calib.Machine
	detector  *press.Detector
	processor *kinematics.Processor

	exporter *session.Exporter
	eventLog *session.EventLog

	mu             sync.RWMutex
	calSet         *calib.Set
	calStatus      calib.Status
	calibrating    bool
	lastSnap       track.FrameSnapshot
	haveSnap       bool
	lastHandSeenMS int64
	lastTrial      *session.TrialRecord
	trialCount     int

	pending []pendingTrial

	stopCh chan struct{}
	doneCh chan struct{}
}

// pendingTrial holds a resolved press until the post-press window has fully
// streamed into the buffer.
type pendingTrial struct {
	event  press.Event
	target Target
}

// New creates the application. A calibration set persisted by a previous run
// is loaded from the calibration file, falling back to the most recent set in
// the store.
func New(cfg Config) (*App, error) {
	if cfg.Provider == nil {
		return nil, fmt.Errorf("app: tracking provider is required")
	}
	if cfg.Resolver == nil {
		cfg.Resolver = NewTargetQueue()
	}

	a := &App{
		cfg:       cfg,
		buffer:    track.NewFrameBuffer(cfg.Settings.Tracking.BufferSpanMS),
		processor: kinematics.NewProcessor(cfg.Settings.KinematicsProcessorConfig()),
	}

	set := a.loadCalibration()
	a.calSet = set
	a.detector = press.NewDetector(cfg.Settings.PressDetectorConfig(), set)

	start := time.Now()
	a.exporter = session.NewExporter(start)
	a.eventLog = session.NewEventLog(
		cfg.Settings.Output.Dir, a.exporter.ID(), a.exporter.Key(), start, set)

	if cfg.Store != nil {
		if err := cfg.Store.Sessions().Begin(a.exporter.ID(), a.exporter.Key(), start); err != nil {
			return nil, fmt.Errorf("app: begin session: %w", err)
		}
	}

	return a, nil
}

// loadCalibration prefers the calibration file and falls back to the store.
func (a *App) loadCalibration() *calib.Set {
	set, err := calib.Load(a.cfg.Settings.Output.CalibrationPath)
	if err == nil {
		log.Infof("loaded calibration from %s", a.cfg.Settings.Output.CalibrationPath)
		return set
	}

	if a.cfg.Store != nil {
		stored, serr := a.cfg.Store.Calibrations().Latest()
		if serr == nil && stored != nil {
			log.Info("loaded calibration from store")
			return stored
		}
	}

	log.Infow("no calibration available, run calibration first", "reason", err)
	return nil
}

// SessionID returns the current session's unique identifier.
func (a *App) SessionID() string {
	return a.exporter.ID()
}

// SessionKey returns the current session's filename key.
func (a *App) SessionKey() string {
	return a.exporter.Key()
}

// Calibrated reports whether a calibration set is active.
func (a *App) Calibrated() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.calSet != nil
}

// StartCalibration begins a guided calibration run. Press detection is
// suspended until the run completes or is cancelled.
func (a *App) StartCalibration() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.machine = calib.NewMachine(a.cfg.Settings.CalibConfig())
	a.calibrating = true
	a.pending = nil
	log.Info("calibration started")
}

// CancelCalibration aborts an in-flight calibration run. The previous
// calibration set, if any, stays active.
func (a *App) CancelCalibration() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.machine != nil {
		a.machine.Cancel()
	}
	a.machine = nil
	a.calibrating = false
	log.Info("calibration cancelled")
}

// ShouldPause reports whether both hands have been out of view for longer
// than delayMS. The front-end uses this to pause gameplay instead of scoring
// missed targets against the player.
func (a *App) ShouldPause(delayMS int64) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if !a.haveSnap {
		return false
	}
	if a.lastSnap.AnyHandVisible() {
		return false
	}
	return a.lastSnap.TimestampMS-a.lastHandSeenMS > delayMS
}

// LiveState is the JSON view of the running pipeline for the API and the
// WebSocket feed.
type LiveState struct {
	Mode         string               `json:"mode"`
	Calibrated   bool                 `json:"calibrated"`
	Calibration  *calib.Status        `json:"calibration,omitempty"`
	LeftVisible  bool                 `json:"left_visible"`
	RightVisible bool                 `json:"right_visible"`
	TimestampMS  int64                `json:"timestamp_ms"`
	Fingers      []FingerLiveState    `json:"fingers,omitempty"`
	SessionKey   string               `json:"session_key"`
	TrialCount   int                  `json:"trial_count"`
	LastTrial    *session.TrialRecord `json:"last_trial,omitempty"`
}

// FingerLiveState is the per-finger slice of the live state: current angle,
// deviation from the calibrated baseline, and logical press state.
type FingerLiveState struct {
	Finger    string  `json:"finger"`
	Lane      int     `json:"lane"`
	Angle     float64 `json:"angle"`
	Deviation float64 `json:"deviation"`
	Pressed   bool    `json:"pressed"`
	Visible   bool    `json:"visible"`
}

// State returns the current live state.
func (a *App) State() LiveState {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s := LiveState{
		Calibrated:   a.calSet != nil,
		LeftVisible:  a.lastSnap.LeftVisible,
		RightVisible: a.lastSnap.RightVisible,
		TimestampMS:  a.lastSnap.TimestampMS,
		SessionKey:   a.exporter.Key(),
		TrialCount:   a.trialCount,
		LastTrial:    a.lastTrial,
	}

	if a.haveSnap {
		s.Fingers = make([]FingerLiveState, track.NumFingers)
		for f := track.Finger(0); f < track.NumFingers; f++ {
			fs := a.lastSnap.Finger(f)
			state := FingerLiveState{
				Finger:  f.String(),
				Lane:    f.Lane(),
				Angle:   fs.Angle,
				Pressed: a.detector.IsPressed(f),
				Visible: fs.Visible,
			}
			if a.calSet != nil {
				state.Deviation = a.calSet.Deviation(f, fs.Angle)
			}
			s.Fingers[f] = state
		}
	}

	switch {
	case a.calibrating:
		s.Mode = "calibrating"
		status := a.calStatus
		s.Calibration = &status
	case a.calSet != nil:
		s.Mode = "running"
	default:
		s.Mode = "uncalibrated"
	}
	return s
}

// Finish closes the session: remaining pending trials are scored against
// whatever window the buffer holds, aggregates are finalized, and the trial
// table, event log and database rows are written.
func (a *App) Finish() (session.Aggregate, error) {
	a.mu.Lock()
	a.flushPending(true)
	a.mu.Unlock()

	end := time.Now()
	agg := a.exporter.Finalize(end)

	var firstErr error
	if _, err := a.exporter.Export(a.cfg.Settings.Output.Dir, agg); err != nil {
		log.Errorf("export session files: %v", err)
		firstErr = err
	}
	if err := a.eventLog.Flush(); err != nil {
		log.Errorf("write event log: %v", err)
		if firstErr == nil {
			firstErr = err
		}
	}

	if a.cfg.Store != nil {
		if err := a.cfg.Store.Sessions().Finish(agg); err != nil {
			log.Errorf("store session aggregates: %v", err)
			if firstErr == nil {
				firstErr = err
			}
		}
		if err := a.cfg.Store.Trials().CreateBatch(a.exporter.ID(), a.exporter.Trials()); err != nil {
			log.Errorf("store session trials: %v", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	log.Infow("session finished",
		"session_key", a.exporter.Key(),
		"trials", agg.TotalTrials,
		"clean_rate", agg.CleanTrialRate,
	)
	return agg, firstErr
}
