package store

import (
	"database/sql"
	"time"

	"github.com/ayusman/fingertrack/internal/session"
)

// SessionRepository provides CRUD operations for play sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Begin inserts a session row when a session starts. Aggregates are filled
// in by Finish.
func (r *SessionRepository) Begin(id, key string, start time.Time) error {
	_, err := r.db.Exec(
		`INSERT INTO sessions (id, session_key, start_time) VALUES (?, ?, ?)`,
		id, key, start.Format(time.RFC3339),
	)
	return err
}

// Finish stores the finalized aggregates on the session row.
func (r *SessionRepository) Finish(agg session.Aggregate) error {
	_, err := r.db.Exec(
		`UPDATE sessions SET
			end_time = ?,
			duration_seconds = ?,
			total_trials = ?,
			correct_trials = ?,
			wrong_finger_trials = ?,
			clean_trials = ?,
			coupled_keypress_trials = ?,
			low_confidence_trials = ?,
			wrong_finger_error_rate = ?,
			clean_trial_rate = ?,
			coupled_keypress_rate = ?,
			avg_reaction_time_ms = ?,
			avg_motion_leakage_ratio = ?
		WHERE id = ?`,
		agg.EndTime,
		agg.DurationSeconds,
		agg.TotalTrials,
		agg.CorrectTrials,
		agg.WrongFingerTrials,
		agg.CleanTrials,
		agg.CoupledTrials,
		agg.LowConfidenceTrials,
		agg.WrongFingerRate,
		agg.CleanTrialRate,
		agg.CoupledKeypressRate,
		agg.AvgReactionTimeMS,
		agg.AvgMLR,
		agg.SessionID,
	)
	return err
}

// Get retrieves a session's aggregates by ID.
func (r *SessionRepository) Get(id string) (*session.Aggregate, error) {
	row := r.db.QueryRow(
		`SELECT id, session_key, start_time, COALESCE(end_time, ''),
			duration_seconds, total_trials, correct_trials,
			wrong_finger_trials, clean_trials, coupled_keypress_trials,
			low_confidence_trials, wrong_finger_error_rate, clean_trial_rate,
			coupled_keypress_rate, avg_reaction_time_ms,
			avg_motion_leakage_ratio
		 FROM sessions WHERE id = ?`, id)

	agg, err := scanAggregate(row)
	if err != nil {
		return nil, err
	}
	return agg, nil
}

// List retrieves all sessions, newest first.
func (r *SessionRepository) List() ([]session.Aggregate, error) {
	rows, err := r.db.Query(
		`SELECT id, session_key, start_time, COALESCE(end_time, ''),
			duration_seconds, total_trials, correct_trials,
			wrong_finger_trials, clean_trials, coupled_keypress_trials,
			low_confidence_trials, wrong_finger_error_rate, clean_trial_rate,
			coupled_keypress_rate, avg_reaction_time_ms,
			avg_motion_leakage_ratio
		 FROM sessions ORDER BY start_time DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []session.Aggregate
	for rows.Next() {
		agg, err := scanAggregate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *agg)
	}
	return out, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanAggregate(sc scanner) (*session.Aggregate, error) {
	var agg session.Aggregate
	err := sc.Scan(
		&agg.SessionID,
		&agg.SessionKey,
		&agg.StartTime,
		&agg.EndTime,
		&agg.DurationSeconds,
		&agg.TotalTrials,
		&agg.CorrectTrials,
		&agg.WrongFingerTrials,
		&agg.CleanTrials,
		&agg.CoupledTrials,
		&agg.LowConfidenceTrials,
		&agg.WrongFingerRate,
		&agg.CleanTrialRate,
		&agg.CoupledKeypressRate,
		&agg.AvgReactionTimeMS,
		&agg.AvgMLR,
	)
	if err != nil {
		return nil, err
	}
	return &agg, nil
}
