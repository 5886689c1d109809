package session

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// ExportPaths are the files written for a finished session.
type ExportPaths struct {
	CSV  string `json:"csv"`
	JSON string `json:"json"`
}

// Export writes the trial table and session summary to
// trials_<key>.csv and trials_<key>.json in dir. A write failure is
// reported to the caller; it never interrupts the caller's loop.
func (e *Exporter) Export(dir string, agg Aggregate) (ExportPaths, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ExportPaths{}, fmt.Errorf("create output directory: %w", err)
	}

	base := "trials_" + e.key
	paths := ExportPaths{
		CSV:  filepath.Join(dir, base+".csv"),
		JSON: filepath.Join(dir, base+".json"),
	}

	if err := e.exportCSV(paths.CSV, agg); err != nil {
		return paths, err
	}
	if err := e.exportJSON(paths.JSON, agg); err != nil {
		return paths, err
	}
	return paths, nil
}

var csvHeader = []string{
	"trial_number",
	"timestamp",
	"elapsed_seconds",
	"target_finger",
	"pressed_finger",
	"is_wrong_finger",
	"reaction_time_ms",
	"motion_leakage_ratio",
	"coupled_keypress",
	"is_clean_trial",
	"confidence",
	"target_path_length_mm",
	"total_non_target_path_length_mm",
}

func (e *Exporter) exportCSV(path string, agg Aggregate) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	if err := w.Write(csvHeader); err != nil {
		return err
	}

	for _, trial := range e.trials {
		mlr := ""
		if trial.MotionLeakageRatio != nil {
			mlr = formatFloat(*trial.MotionLeakageRatio)
		}
		row := []string{
			strconv.Itoa(trial.TrialNumber),
			trial.Timestamp,
			formatFloat(trial.ElapsedSeconds),
			trial.TargetFinger,
			trial.PressedFinger,
			strconv.FormatBool(trial.IsWrongFinger),
			formatFloat(trial.ReactionTimeMS),
			mlr,
			strconv.FormatBool(trial.CoupledKeypress),
			strconv.FormatBool(trial.IsCleanTrial),
			trial.Confidence,
			formatFloat(trial.TargetPathLengthMM),
			formatFloat(trial.TotalNonTargetPathLengthMM),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	// Summary block after the trial rows, key/value style.
	summary := [][]string{
		{""},
		{"--- SESSION SUMMARY ---"},
		{"session_id", agg.SessionID},
		{"start_time", agg.StartTime},
		{"end_time", agg.EndTime},
		{"duration_seconds", formatFloat(agg.DurationSeconds)},
		{"total_trials", strconv.Itoa(agg.TotalTrials)},
		{"correct_trials", strconv.Itoa(agg.CorrectTrials)},
		{"wrong_finger_trials", strconv.Itoa(agg.WrongFingerTrials)},
		{"clean_trials", strconv.Itoa(agg.CleanTrials)},
		{"coupled_keypress_trials", strconv.Itoa(agg.CoupledTrials)},
		{"low_confidence_trials", strconv.Itoa(agg.LowConfidenceTrials)},
		{"wrong_finger_error_rate_%", formatFloat(agg.WrongFingerRate)},
		{"clean_trial_rate_%", formatFloat(agg.CleanTrialRate)},
		{"coupled_keypress_rate_%", formatFloat(agg.CoupledKeypressRate)},
		{"avg_reaction_time_ms", formatFloat(agg.AvgReactionTimeMS)},
		{"avg_motion_leakage_ratio", formatFloat(agg.AvgMLR)},
	}
	for _, row := range summary {
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func (e *Exporter) exportJSON(path string, agg Aggregate) error {
	payload := struct {
		Summary Aggregate     `json:"summary"`
		Trials  []TrialRecord `json:"trials"`
	}{
		Summary: agg,
		Trials:  e.trials,
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode trials json: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write trials json: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
