package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/fingertrack/internal/calib"
	"github.com/ayusman/fingertrack/internal/config"
	"github.com/ayusman/fingertrack/internal/store"
	"github.com/ayusman/fingertrack/internal/track"
)

// testSettings points every output at a temp dir with fast defaults.
func testSettings(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Output.Dir = dir
	cfg.Output.DBPath = filepath.Join(dir, "test.db")
	cfg.Output.CalibrationPath = filepath.Join(dir, "calibration.json")
	return cfg
}

// calibratedSet builds a full set with baseline 10 and threshold 40.
func calibratedSet() *calib.Set {
	set := &calib.Set{}
	for f := track.Finger(0); f < track.NumFingers; f++ {
		set.Records[f] = calib.Record{
			Finger:          f,
			BaselineAngle:   10,
			ThresholdAngle:  40,
			CompatThreshold: calib.DefaultCompatThreshold,
		}
	}
	return set
}

func newTestApp(t *testing.T, cfg config.Config, provider track.Provider) (*App, *store.Store, *TargetQueue) {
	t.Helper()

	st, err := store.New(cfg.Output.DBPath)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	queue := NewTargetQueue()
	a, err := New(Config{
		Provider: provider,
		Store:    st,
		Resolver: queue,
		Settings: cfg,
	})
	if err != nil {
		t.Fatalf("create app: %v", err)
	}
	return a, st, queue
}

func TestPressBecomesTrial(t *testing.T) {
	cfg := testSettings(t)
	if err := calib.Save(cfg.Output.CalibrationPath, calibratedSet()); err != nil {
		t.Fatal(err)
	}

	provider := track.NewMockProvider()
	a, st, queue := newTestApp(t, cfg, provider)

	if !a.Calibrated() {
		t.Fatal("app must load the persisted calibration")
	}

	// A target spawns at 1000ms in the right index lane.
	queue.Spawn(track.RightIndex, 1000)

	// Resting frames, the press at 1500ms with real tip motion, then enough
	// frames to close the post-press window.
	for ts := int64(1000); ts < 1500; ts += 50 {
		provider.Queue(track.RestingSnapshot(ts, 10))
	}
	pressFrame := track.WithAngle(track.RestingSnapshot(1500, 10), track.RightIndex, 45)
	pressFrame = track.WithTip(pressFrame, track.RightIndex, track.Point3D{X: 180, Y: 180, Z: 0})
	provider.Queue(pressFrame)
	for ts := int64(1550); ts <= 2000; ts += 50 {
		provider.Queue(track.WithAngle(track.RestingSnapshot(ts, 10), track.RightIndex, 20))
	}

	for i := 0; i < 40; i++ {
		a.tick(time.Now())
	}

	state := a.State()
	if state.Mode != "running" {
		t.Fatalf("mode = %q, want running", state.Mode)
	}
	if state.TrialCount != 1 {
		t.Fatalf("trial count = %d, want 1", state.TrialCount)
	}
	if state.LastTrial.ReactionTimeMS != 500 {
		t.Errorf("reaction time = %v, want 500", state.LastTrial.ReactionTimeMS)
	}
	if state.LastTrial.IsWrongFinger {
		t.Error("press on the target lane must not score as wrong finger")
	}
	if len(state.Fingers) != track.NumFingers {
		t.Fatalf("live state fingers = %d, want %d", len(state.Fingers), track.NumFingers)
	}
	if state.Fingers[track.RightIndex].Lane != track.RightIndex.Lane() {
		t.Error("live state lane mapping is off")
	}

	agg, err := a.Finish()
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if agg.TotalTrials != 1 || agg.CorrectTrials != 1 {
		t.Errorf("aggregate = %+v", agg)
	}

	// Exports land in the output dir.
	for _, name := range []string{
		"trials_" + a.SessionKey() + ".csv",
		"trials_" + a.SessionKey() + ".json",
		"session_" + a.SessionKey() + ".json",
	} {
		if _, err := os.Stat(filepath.Join(cfg.Output.Dir, name)); err != nil {
			t.Errorf("missing export %s: %v", name, err)
		}
	}

	// Rows land in the store.
	trials, err := st.Trials().ListBySession(a.SessionID())
	if err != nil {
		t.Fatal(err)
	}
	if len(trials) != 1 {
		t.Fatalf("stored trials = %d, want 1", len(trials))
	}
}

func TestWrongLanePressScoresOldestTarget(t *testing.T) {
	cfg := testSettings(t)
	if err := calib.Save(cfg.Output.CalibrationPath, calibratedSet()); err != nil {
		t.Fatal(err)
	}

	provider := track.NewMockProvider()
	a, _, queue := newTestApp(t, cfg, provider)

	queue.Spawn(track.LeftRing, 1000)

	for ts := int64(1000); ts < 1400; ts += 50 {
		provider.Queue(track.RestingSnapshot(ts, 10))
	}
	provider.Queue(track.WithAngle(track.RestingSnapshot(1400, 10), track.RightMiddle, 50))
	for ts := int64(1450); ts <= 1900; ts += 50 {
		provider.Queue(track.RestingSnapshot(ts, 10))
	}

	for i := 0; i < 40; i++ {
		a.tick(time.Now())
	}

	state := a.State()
	if state.TrialCount != 1 {
		t.Fatalf("trial count = %d, want 1", state.TrialCount)
	}
	if !state.LastTrial.IsWrongFinger {
		t.Error("cross-lane press must score as wrong finger")
	}
	if state.LastTrial.TargetFinger != "left_ring" {
		t.Errorf("target = %q, want left_ring", state.LastTrial.TargetFinger)
	}
	if state.LastTrial.PressedFinger != "right_middle" {
		t.Errorf("pressed = %q, want right_middle", state.LastTrial.PressedFinger)
	}
}

func TestCalibrationRunArmsDetector(t *testing.T) {
	cfg := testSettings(t)
	// Fast calibration so the test drives a short stream.
	cfg.Calibration.BaselineDurationMS = 200
	cfg.Calibration.HoldDurationMS = 100
	cfg.Calibration.HandDebounceMS = 100

	provider := track.NewMockProvider()
	a, st, _ := newTestApp(t, cfg, provider)

	if a.Calibrated() {
		t.Fatal("no calibration should exist yet")
	}

	a.StartCalibration()
	if a.State().Mode != "calibrating" {
		t.Fatalf("mode = %q, want calibrating", a.State().Mode)
	}

	ts := int64(0)
	step := func(n int, angle float64, finger track.Finger) {
		for i := 0; i < n; i++ {
			ts += 50
			snap := track.RestingSnapshot(ts, 10)
			if finger.Valid() {
				snap = track.WithAngle(snap, finger, angle)
			}
			provider.Queue(snap)
			a.tick(time.Now())
		}
	}

	// Debounce, then both baselines.
	step(4, 10, track.Finger(-1))
	step(6, 10, track.Finger(-1))
	step(6, 10, track.Finger(-1))

	// Hold each finger over threshold until the machine advances.
	for f := track.Finger(0); f < track.NumFingers; f++ {
		step(5, 50, f)
	}

	if !a.Calibrated() {
		t.Fatalf("calibration did not complete, state: %+v", a.State().Calibration)
	}
	if a.State().Mode != "running" {
		t.Errorf("mode = %q, want running", a.State().Mode)
	}

	// The set is persisted to both the file and the store.
	if _, err := calib.Load(cfg.Output.CalibrationPath); err != nil {
		t.Errorf("calibration file not written: %v", err)
	}
	if n, err := st.Calibrations().Count(); err != nil || n != 1 {
		t.Errorf("stored calibrations = %d (%v), want 1", n, err)
	}
}

func TestShouldPauseOnHandDropout(t *testing.T) {
	cfg := testSettings(t)
	provider := track.NewMockProvider()
	a, _, _ := newTestApp(t, cfg, provider)

	provider.Queue(track.RestingSnapshot(1000, 10))
	a.tick(time.Now())
	if a.ShouldPause(500) {
		t.Error("hands visible must not pause")
	}

	gone := track.WithoutHand(track.WithoutHand(track.RestingSnapshot(1400, 10), track.LeftHand), track.RightHand)
	provider.Queue(gone)
	a.tick(time.Now())
	if a.ShouldPause(500) {
		t.Error("400ms dropout is under the 500ms delay")
	}

	gone2 := track.WithoutHand(track.WithoutHand(track.RestingSnapshot(1700, 10), track.LeftHand), track.RightHand)
	provider.Queue(gone2)
	a.tick(time.Now())
	if !a.ShouldPause(500) {
		t.Error("700ms dropout must pause")
	}
}

func TestOutOfOrderSnapshotDropped(t *testing.T) {
	cfg := testSettings(t)
	provider := track.NewMockProvider()
	a, _, _ := newTestApp(t, cfg, provider)

	provider.Queue(track.RestingSnapshot(2000, 10))
	a.tick(time.Now())
	provider.Queue(track.RestingSnapshot(1500, 10))
	a.tick(time.Now())

	if got := a.State().TimestampMS; got != 2000 {
		t.Errorf("timestamp = %d, want 2000 (stale snapshot must be dropped)", got)
	}
}
