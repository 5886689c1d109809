package app

import (
	"errors"
	"time"

	"github.com/ayusman/fingertrack/internal/calib"
	"github.com/ayusman/fingertrack/internal/log"
	"github.com/ayusman/fingertrack/internal/track"
)

// Start launches the tick loop polling the provider at the configured rate.
func (a *App) Start() {
	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.loop()
}

// Stop terminates the tick loop and waits for it to drain.
func (a *App) Stop() {
	if a.stopCh == nil {
		return
	}
	close(a.stopCh)
	<-a.doneCh
	a.stopCh = nil
}

func (a *App) loop() {
	defer close(a.doneCh)

	interval := time.Second / time.Duration(a.cfg.Settings.Tracking.PollHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-a.stopCh:
			return
		case <-ticker.C:
			a.tick(time.Now())
		}
	}
}

// tick runs one pipeline step: ingest the newest snapshot, advance either
// calibration or press detection, and score any press whose analysis window
// has fully arrived.
func (a *App) tick(now time.Time) {
	snap, ok := a.cfg.Provider.Latest()
	if !ok {
		return
	}

	if a.cfg.Recorder != nil {
		if err := a.cfg.Recorder.Record(snap); err != nil {
			log.Warnf("record snapshot: %v", err)
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.buffer.Push(snap); err != nil {
		if errors.Is(err, track.ErrOutOfOrder) {
			// A regressed timestamp means the provider restarted or is
			// misbehaving. The snapshot is dropped, never reordered.
			log.Warnw("dropped out-of-order snapshot",
				"timestamp_ms", snap.TimestampMS)
			return
		}
		log.Errorf("buffer push: %v", err)
		return
	}

	a.lastSnap = snap
	a.haveSnap = true
	if snap.AnyHandVisible() {
		a.lastHandSeenMS = snap.TimestampMS
	}

	if a.calibrating {
		a.machine.Update(snap)
		a.calStatus = a.machine.Status()
		if a.machine.Done() {
			a.completeCalibration()
		}
		return
	}

	for _, event := range a.detector.Update(snap) {
		target, resolved := a.cfg.Resolver.Resolve(event)
		if !resolved {
			// A press with no active target still goes to the event log;
			// it just doesn't become a trial.
			a.eventLog.LogPress(event.Finger, track.Finger(-1), event.Snapshot, now)
			continue
		}
		a.eventLog.LogPress(event.Finger, target.Finger, event.Snapshot, now)
		a.pending = append(a.pending, pendingTrial{event: event, target: target})
	}

	a.flushPending(false)
}

// completeCalibration persists the finished set and arms the press detector.
func (a *App) completeCalibration() {
	set, ok := a.machine.Records()
	if !ok {
		return
	}

	if err := calib.Save(a.cfg.Settings.Output.CalibrationPath, set); err != nil {
		log.Errorf("save calibration file: %v", err)
	}
	if a.cfg.Store != nil {
		if _, err := a.cfg.Store.Calibrations().Save(set); err != nil {
			log.Errorf("store calibration: %v", err)
		}
	}

	a.calSet = set
	a.detector.SetCalibration(set)
	a.machine = nil
	a.calibrating = false
	log.Info("calibration complete")
}

// flushPending scores every held press whose post-press window has streamed
// in. With force set, remaining presses are scored against whatever partial
// window exists; the metrics come back flagged low confidence when the
// window is too thin.
func (a *App) flushPending(force bool) {
	if len(a.pending) == 0 {
		return
	}

	latest, ok := a.buffer.Latest()
	if !ok && !force {
		return
	}

	postMS := a.cfg.Settings.Kinematics.WindowPostMS
	kept := a.pending[:0]
	for _, p := range a.pending {
		if !force && latest.TimestampMS < p.event.TimestampMS+postMS {
			kept = append(kept, p)
			continue
		}

		window := a.buffer.Window(
			p.event.TimestampMS,
			a.cfg.Settings.Kinematics.WindowPreMS,
			postMS,
		)
		metrics := a.processor.Compute(
			p.event, window, p.target.Finger, p.target.SpawnTimeMS, a.calSet)

		rec := a.exporter.Append(metrics, time.Now())
		a.trialCount++
		a.lastTrial = &rec

		log.Debugw("trial scored",
			"trial", rec.TrialNumber,
			"target", rec.TargetFinger,
			"pressed", rec.PressedFinger,
			"reaction_ms", rec.ReactionTimeMS,
			"clean", rec.IsCleanTrial,
		)
	}
	a.pending = kept
}
