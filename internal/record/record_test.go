package record

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/fingertrack/internal/track"
)

func TestRecordReplayRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.ftrec")

	rec, err := NewRecorder(path, "2026-08-28T10:00:00Z")
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}

	want := []track.FrameSnapshot{
		track.RestingSnapshot(1000, 10),
		track.WithAngle(track.RestingSnapshot(1016, 10), track.RightIndex, 42),
		track.WithoutHand(track.RestingSnapshot(1033, 10), track.LeftHand),
	}
	for _, snap := range want {
		if err := rec.Record(snap); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	rp, err := OpenReplay(path)
	if err != nil {
		t.Fatalf("open replay: %v", err)
	}
	defer rp.Close()

	if rp.Len() != len(want) {
		t.Fatalf("frame count = %d, want %d", rp.Len(), len(want))
	}

	var got []track.FrameSnapshot
	deadline := time.Now().Add(2 * time.Second)
	for !rp.Done() {
		if time.Now().After(deadline) {
			t.Fatal("replay did not finish in time")
		}
		snap, ok := rp.Latest()
		if !ok {
			time.Sleep(time.Millisecond)
			continue
		}
		got = append(got, snap)
	}

	for i, snap := range got {
		if snap.TimestampMS != want[i].TimestampMS {
			t.Errorf("frame %d timestamp = %d, want %d", i, snap.TimestampMS, want[i].TimestampMS)
		}
	}
	if got[1].Finger(track.RightIndex).Angle != 42 {
		t.Errorf("angle not preserved: %v", got[1].Finger(track.RightIndex).Angle)
	}
	if got[2].LeftVisible {
		t.Error("left hand visibility not preserved")
	}
}

func TestReplayPacesFrames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.ftrec")

	rec, err := NewRecorder(path, "2026-08-28T10:00:00Z")
	if err != nil {
		t.Fatal(err)
	}
	rec.Record(track.RestingSnapshot(0, 10))
	rec.Record(track.RestingSnapshot(200, 10))
	rec.Close()

	rp, err := OpenReplay(path)
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := rp.Latest(); !ok {
		t.Fatal("first frame should be available immediately")
	}
	if _, ok := rp.Latest(); ok {
		t.Error("second frame released 200ms early")
	}
}

func TestOpenReplayRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.ftrec")
	if err := os.WriteFile(path, []byte("not msgpack at all"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenReplay(path); !errors.Is(err, ErrBadRecording) {
		t.Fatalf("expected ErrBadRecording, got %v", err)
	}
}
