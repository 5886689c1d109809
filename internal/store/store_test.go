package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/fingertrack/internal/calib"
	"github.com/ayusman/fingertrack/internal/session"
	"github.com/ayusman/fingertrack/internal/track"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "fingertrack.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSessionRoundTrip(t *testing.T) {
	s := testStore(t)

	start := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	if err := s.Sessions().Begin("sess-1", "20260828_100000", start); err != nil {
		t.Fatalf("begin session: %v", err)
	}

	agg := session.Aggregate{
		SessionID:         "sess-1",
		SessionKey:        "20260828_100000",
		StartTime:         start.Format(time.RFC3339),
		EndTime:           start.Add(5 * time.Minute).Format(time.RFC3339),
		DurationSeconds:   300,
		TotalTrials:       20,
		CorrectTrials:     18,
		WrongFingerTrials: 2,
		CleanTrials:       15,
		CleanTrialRate:    75,
		WrongFingerRate:   10,
		AvgReactionTimeMS: 420.5,
		AvgMLR:            0.07,
	}
	if err := s.Sessions().Finish(agg); err != nil {
		t.Fatalf("finish session: %v", err)
	}

	got, err := s.Sessions().Get("sess-1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.TotalTrials != 20 || got.CleanTrialRate != 75 || got.AvgReactionTimeMS != 420.5 {
		t.Errorf("aggregate mismatch: %+v", got)
	}

	list, err := s.Sessions().List()
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("expected 1 session, got %d", len(list))
	}
}

func TestTrialBatchRoundTrip(t *testing.T) {
	s := testStore(t)

	start := time.Now()
	if err := s.Sessions().Begin("sess-2", "key-2", start); err != nil {
		t.Fatal(err)
	}

	mlr := 0.05
	trials := []session.TrialRecord{
		{
			TrialNumber:        1,
			Timestamp:          start.Format(time.RFC3339),
			ElapsedSeconds:     1.5,
			TargetFinger:       "right_index",
			PressedFinger:      "right_index",
			ReactionTimeMS:     450,
			MotionLeakageRatio: &mlr,
			IsCleanTrial:       true,
			Confidence:         "high",
			TargetPathLengthMM: 20,
		},
		{
			TrialNumber:    2,
			Timestamp:      start.Format(time.RFC3339),
			ElapsedSeconds: 3.2,
			TargetFinger:   "left_ring",
			PressedFinger:  "left_middle",
			IsWrongFinger:  true,
			ReactionTimeMS: 600,
			// MLR undefined for this trial.
			Confidence: "low",
		},
	}

	if err := s.Trials().CreateBatch("sess-2", trials); err != nil {
		t.Fatalf("create batch: %v", err)
	}

	got, err := s.Trials().ListBySession("sess-2")
	if err != nil {
		t.Fatalf("list trials: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 trials, got %d", len(got))
	}

	if got[0].MotionLeakageRatio == nil || *got[0].MotionLeakageRatio != 0.05 {
		t.Errorf("trial 1 MLR = %v, want 0.05", got[0].MotionLeakageRatio)
	}
	if got[1].MotionLeakageRatio != nil {
		t.Error("trial 2 MLR must stay NULL")
	}
	if !got[1].IsWrongFinger || got[1].PressedFinger != "left_middle" {
		t.Errorf("trial 2 mismatch: %+v", got[1])
	}
}

func TestCalibrationHistory(t *testing.T) {
	s := testStore(t)

	latest, err := s.Calibrations().Latest()
	if err != nil {
		t.Fatalf("latest on empty store: %v", err)
	}
	if latest != nil {
		t.Fatal("expected nil calibration on empty store")
	}

	set := &calib.Set{}
	for f := track.Finger(0); f < track.NumFingers; f++ {
		set.Records[f] = calib.Record{
			Finger:          f,
			BaselineAngle:   12,
			ThresholdAngle:  42,
			CompatThreshold: calib.DefaultCompatThreshold,
		}
	}

	if _, err := s.Calibrations().Save(set); err != nil {
		t.Fatalf("save calibration: %v", err)
	}

	latest, err = s.Calibrations().Latest()
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest == nil {
		t.Fatal("expected a calibration set")
	}
	if rec := latest.Record(track.RightPinky); rec.ThresholdAngle != 42 {
		t.Errorf("threshold = %v, want 42", rec.ThresholdAngle)
	}

	n, err := s.Calibrations().Count()
	if err != nil || n != 1 {
		t.Errorf("count = %d (%v), want 1", n, err)
	}
}
