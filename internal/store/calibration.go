package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/fingertrack/internal/calib"
	"github.com/ayusman/fingertrack/internal/track"
)

// CalibrationRepository stores completed calibration sets for history and
// recovery. The JSON calibration file stays the exchange format; rows here
// are an audit trail of every completed run.
type CalibrationRepository struct {
	db *sql.DB
}

// Calibrations returns the calibration repository for this store.
func (s *Store) Calibrations() *CalibrationRepository {
	return &CalibrationRepository{db: s.db}
}

// Save persists a completed calibration set and returns its row ID.
func (r *CalibrationRepository) Save(set *calib.Set) (string, error) {
	records := make([]calib.Record, 0, track.NumFingers)
	for f := track.Finger(0); f < track.NumFingers; f++ {
		records = append(records, set.Record(f))
	}

	data, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("encode calibration records: %w", err)
	}

	id := uuid.New().String()
	_, err = r.db.Exec(
		`INSERT INTO calibration_sets (id, records, created_at) VALUES (?, ?, ?)`,
		id, string(data), time.Now().Format(time.RFC3339),
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

// Latest retrieves the most recently saved calibration set, or nil if none
// exists.
func (r *CalibrationRepository) Latest() (*calib.Set, error) {
	var data string
	err := r.db.QueryRow(
		`SELECT records FROM calibration_sets ORDER BY created_at DESC LIMIT 1`,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var records []calib.Record
	if err := json.Unmarshal([]byte(data), &records); err != nil {
		return nil, fmt.Errorf("decode calibration records: %w", err)
	}
	if len(records) != track.NumFingers {
		return nil, calib.ErrInvalidRecord
	}

	var set calib.Set
	for _, rec := range records {
		if !rec.Finger.Valid() {
			return nil, calib.ErrInvalidRecord
		}
		set.Records[rec.Finger] = rec
	}
	return &set, nil
}

// Count returns the number of stored calibration sets.
func (r *CalibrationRepository) Count() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM calibration_sets`).Scan(&n)
	return n, err
}
