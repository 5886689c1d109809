package calib

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ayusman/fingertrack/internal/track"
)

// ErrInvalidRecord is returned when a persisted calibration file is missing,
// incomplete, or malformed. Callers treat it as "no calibration" and force
// recalibration.
var ErrInvalidRecord = errors.New("calibration record invalid or incomplete")

type fileRecord struct {
	Finger          string  `json:"finger"`
	BaselineAngle   float64 `json:"baseline_angle"`
	ThresholdAngle  float64 `json:"threshold_angle"`
	CompatThreshold float64 `json:"compat_threshold"`
}

type fileSet struct {
	SavedAt string       `json:"saved_at"`
	Records []fileRecord `json:"records"`
}

// Save writes a complete calibration set to path as JSON.
func Save(path string, set *Set) error {
	if set == nil || !set.valid() {
		return ErrInvalidRecord
	}

	out := fileSet{SavedAt: time.Now().Format(time.RFC3339)}
	for f := track.Finger(0); f < track.NumFingers; f++ {
		r := set.Records[f]
		out.Records = append(out.Records, fileRecord{
			Finger:          f.String(),
			BaselineAngle:   r.BaselineAngle,
			ThresholdAngle:  r.ThresholdAngle,
			CompatThreshold: r.CompatThreshold,
		})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode calibration: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write calibration file: %w", err)
	}
	return nil
}

// Load reads a calibration set from path. Incomplete or malformed sets are
// rejected as a whole with ErrInvalidRecord; a missing file is reported the
// same way since both mean "recalibrate".
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrInvalidRecord
		}
		return nil, fmt.Errorf("read calibration file: %w", err)
	}

	var in fileSet
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	if len(in.Records) != track.NumFingers {
		return nil, fmt.Errorf("%w: %d records, want %d", ErrInvalidRecord, len(in.Records), track.NumFingers)
	}

	var set Set
	seen := [track.NumFingers]bool{}
	for _, fr := range in.Records {
		f, ok := track.ParseFinger(fr.Finger)
		if !ok {
			return nil, fmt.Errorf("%w: unknown finger %q", ErrInvalidRecord, fr.Finger)
		}
		if seen[f] {
			return nil, fmt.Errorf("%w: duplicate finger %q", ErrInvalidRecord, fr.Finger)
		}
		seen[f] = true
		set.Records[f] = Record{
			Finger:          f,
			BaselineAngle:   fr.BaselineAngle,
			ThresholdAngle:  fr.ThresholdAngle,
			CompatThreshold: fr.CompatThreshold,
		}
	}

	if !set.valid() {
		return nil, ErrInvalidRecord
	}
	return &set, nil
}

// Reset deletes the calibration file. A missing file is not an error.
func Reset(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove calibration file: %w", err)
	}
	return nil
}
