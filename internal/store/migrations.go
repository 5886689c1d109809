package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Sessions table - one row per play session with its final aggregates
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			session_key TEXT NOT NULL UNIQUE,
			start_time TEXT NOT NULL,
			end_time TEXT,
			duration_seconds REAL NOT NULL DEFAULT 0,
			total_trials INTEGER NOT NULL DEFAULT 0,
			correct_trials INTEGER NOT NULL DEFAULT 0,
			wrong_finger_trials INTEGER NOT NULL DEFAULT 0,
			clean_trials INTEGER NOT NULL DEFAULT 0,
			coupled_keypress_trials INTEGER NOT NULL DEFAULT 0,
			low_confidence_trials INTEGER NOT NULL DEFAULT 0,
			wrong_finger_error_rate REAL NOT NULL DEFAULT 0,
			clean_trial_rate REAL NOT NULL DEFAULT 0,
			coupled_keypress_rate REAL NOT NULL DEFAULT 0,
			avg_reaction_time_ms REAL NOT NULL DEFAULT 0,
			avg_motion_leakage_ratio REAL NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Trials table - per-press biomechanical metrics
		`CREATE TABLE IF NOT EXISTS trials (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			trial_number INTEGER NOT NULL,
			timestamp TEXT NOT NULL,
			elapsed_seconds REAL NOT NULL,
			target_finger TEXT NOT NULL,
			pressed_finger TEXT NOT NULL,
			is_wrong_finger INTEGER NOT NULL,
			reaction_time_ms REAL NOT NULL,
			motion_leakage_ratio REAL,
			coupled_keypress INTEGER NOT NULL,
			is_clean_trial INTEGER NOT NULL,
			confidence TEXT NOT NULL,
			target_path_length_mm REAL NOT NULL,
			total_non_target_path_length_mm REAL NOT NULL
		)`,

		// Calibration sets table - completed calibrations as JSON records
		`CREATE TABLE IF NOT EXISTS calibration_sets (
			id TEXT PRIMARY KEY,
			records TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Indexes for better query performance
		`CREATE INDEX IF NOT EXISTS idx_trials_session_id ON trials(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_session_key ON sessions(session_key)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
