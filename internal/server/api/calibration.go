package api

import (
	"net/http"

	"github.com/ayusman/fingertrack/internal/calib"
	"github.com/ayusman/fingertrack/internal/store"
	"github.com/ayusman/fingertrack/internal/track"
)

// CalibrationHandler serves the most recently completed calibration set.
type CalibrationHandler struct {
	store *store.Store
}

// NewCalibrationHandler creates a new CalibrationHandler with the given store.
func NewCalibrationHandler(s *store.Store) *CalibrationHandler {
	return &CalibrationHandler{store: s}
}

type calibrationRecordResponse struct {
	Finger          string  `json:"finger"`
	BaselineAngle   float64 `json:"baseline_angle"`
	ThresholdAngle  float64 `json:"threshold_angle"`
	CompatThreshold float64 `json:"compat_threshold"`
}

type calibrationResponse struct {
	Calibrated bool                        `json:"calibrated"`
	Records    []calibrationRecordResponse `json:"records,omitempty"`
}

// ServeHTTP handles GET /api/calibration.
func (h *CalibrationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	set, err := h.store.Calibrations().Latest()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load calibration")
		return
	}
	if set == nil {
		writeJSON(w, http.StatusOK, calibrationResponse{Calibrated: false})
		return
	}

	writeJSON(w, http.StatusOK, toCalibrationResponse(set))
}

func toCalibrationResponse(set *calib.Set) calibrationResponse {
	resp := calibrationResponse{Calibrated: true}
	for f := track.Finger(0); f < track.NumFingers; f++ {
		rec := set.Record(f)
		resp.Records = append(resp.Records, calibrationRecordResponse{
			Finger:          f.String(),
			BaselineAngle:   rec.BaselineAngle,
			ThresholdAngle:  rec.ThresholdAngle,
			CompatThreshold: rec.CompatThreshold,
		})
	}
	return resp
}
