// Package api provides HTTP API handlers for session history and calibration
// data.
package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/fingertrack/internal/session"
	"github.com/ayusman/fingertrack/internal/store"
)

// SessionsHandler handles HTTP requests for session resources.
type SessionsHandler struct {
	store *store.Store
}

// NewSessionsHandler creates a new SessionsHandler with the given store.
func NewSessionsHandler(s *store.Store) *SessionsHandler {
	return &SessionsHandler{store: s}
}

// ServeHTTP implements the http.Handler interface and routes requests.
// Expected paths: /api/sessions, /api/sessions/{id}, /api/sessions/{id}/trials
func (h *SessionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/sessions")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		h.list(w, r)
		return
	}

	if id, ok := strings.CutSuffix(path, "/trials"); ok {
		h.trials(w, r, id)
		return
	}
	h.get(w, r, path)
}

type listSessionsResponse struct {
	Sessions []session.Aggregate `json:"sessions"`
}

type trialsResponse struct {
	SessionID string                `json:"session_id"`
	Trials    []session.TrialRecord `json:"trials"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// list handles GET /api/sessions and returns all sessions, newest first.
func (h *SessionsHandler) list(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.Sessions().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	if sessions == nil {
		sessions = []session.Aggregate{}
	}
	writeJSON(w, http.StatusOK, listSessionsResponse{Sessions: sessions})
}

// get handles GET /api/sessions/{id}.
func (h *SessionsHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	agg, err := h.store.Sessions().Get(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get session")
		return
	}
	writeJSON(w, http.StatusOK, agg)
}

// trials handles GET /api/sessions/{id}/trials.
func (h *SessionsHandler) trials(w http.ResponseWriter, r *http.Request, id string) {
	trials, err := h.store.Trials().ListBySession(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list trials")
		return
	}
	if trials == nil {
		trials = []session.TrialRecord{}
	}
	writeJSON(w, http.StatusOK, trialsResponse{SessionID: id, Trials: trials})
}
