package store

import (
	"database/sql"

	"github.com/ayusman/fingertrack/internal/session"
)

// TrialRepository provides CRUD operations for trial rows.
type TrialRepository struct {
	db *sql.DB
}

// Trials returns the trial repository for this store.
func (s *Store) Trials() *TrialRepository {
	return &TrialRepository{db: s.db}
}

// CreateBatch inserts all trials for a session in a single transaction.
func (r *TrialRepository) CreateBatch(sessionID string, trials []session.TrialRecord) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO trials (
		session_id, trial_number, timestamp, elapsed_seconds,
		target_finger, pressed_finger, is_wrong_finger,
		reaction_time_ms, motion_leakage_ratio, coupled_keypress,
		is_clean_trial, confidence, target_path_length_mm,
		total_non_target_path_length_mm
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range trials {
		var mlr sql.NullFloat64
		if t.MotionLeakageRatio != nil {
			mlr = sql.NullFloat64{Float64: *t.MotionLeakageRatio, Valid: true}
		}
		if _, err := stmt.Exec(
			sessionID,
			t.TrialNumber,
			t.Timestamp,
			t.ElapsedSeconds,
			t.TargetFinger,
			t.PressedFinger,
			t.IsWrongFinger,
			t.ReactionTimeMS,
			mlr,
			t.CoupledKeypress,
			t.IsCleanTrial,
			t.Confidence,
			t.TargetPathLengthMM,
			t.TotalNonTargetPathLengthMM,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListBySession retrieves a session's trials ordered by trial number.
func (r *TrialRepository) ListBySession(sessionID string) ([]session.TrialRecord, error) {
	rows, err := r.db.Query(
		`SELECT trial_number, timestamp, elapsed_seconds, target_finger,
			pressed_finger, is_wrong_finger, reaction_time_ms,
			motion_leakage_ratio, coupled_keypress, is_clean_trial,
			confidence, target_path_length_mm,
			total_non_target_path_length_mm
		 FROM trials WHERE session_id = ? ORDER BY trial_number`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []session.TrialRecord
	for rows.Next() {
		var t session.TrialRecord
		var mlr sql.NullFloat64
		if err := rows.Scan(
			&t.TrialNumber,
			&t.Timestamp,
			&t.ElapsedSeconds,
			&t.TargetFinger,
			&t.PressedFinger,
			&t.IsWrongFinger,
			&t.ReactionTimeMS,
			&mlr,
			&t.CoupledKeypress,
			&t.IsCleanTrial,
			&t.Confidence,
			&t.TargetPathLengthMM,
			&t.TotalNonTargetPathLengthMM,
		); err != nil {
			return nil, err
		}
		if mlr.Valid {
			v := mlr.Float64
			t.MotionLeakageRatio = &v
		}
		out = append(out, t)
	}

	return out, rows.Err()
}
