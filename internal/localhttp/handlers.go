package localhttp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/MJE43/playdeck/internal/app"
	"github.com/MJE43/playdeck/internal/games"
)

const (
	maxIntentBytes = 16 << 10
	maxScriptBytes = 64 << 10
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":  "ok",
		"version": s.deps.Runtime.Snapshot().Version,
	}
	if !s.started.IsZero() {
		resp["uptime"] = time.Since(s.started).Round(time.Second).String()
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /api/v1/state
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Runtime.Snapshot())
}

// GET /api/v1/routes
func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"routes": app.Routes()})
}

// GET /api/v1/games
func (s *Server) handleGames(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"games": games.ListGames()})
}

// GET /api/v1/intents
func (s *Server) handleIntentKinds(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"kinds": app.IntentKinds()})
}

// POST /api/v1/intents
func (s *Server) handleIntent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxIntentBytes+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errObj("VALIDATION_ERROR", "failed to read body", ""))
		return
	}
	if len(body) > maxIntentBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, errObj("VALIDATION_ERROR", "intent too large", ""))
		return
	}

	in, err := app.DecodeExternalIntent(body)
	if err != nil {
		writeIntentError(w, err)
		return
	}
	snap, err := s.deps.Runtime.Send(r.Context(), in)
	if err != nil {
		writeIntentError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// GET /api/v1/journal?limit=
func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if s.deps.Journal == nil {
		writeJSON(w, http.StatusOK, map[string]any{"entries": []any{}, "count": 0})
		return
	}
	limit := clampInt(qInt(r, "limit", 50), 1, 500)
	entries, err := s.deps.Journal.Recent(r.Context(), limit)
	if err != nil {
		s.log.Error("journal query failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errObj("SERVER_ERROR", "failed to read journal", ""))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries, "count": len(entries)})
}

// GET /api/v1/journal/kinds
func (s *Server) handleJournalKinds(w http.ResponseWriter, r *http.Request) {
	if s.deps.Journal == nil {
		writeJSON(w, http.StatusOK, map[string]any{"kinds": []any{}})
		return
	}
	counts, err := s.deps.Journal.CountByKind(r.Context())
	if err != nil {
		s.log.Error("journal count failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errObj("SERVER_ERROR", "failed to read journal", ""))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"kinds": counts})
}

type scriptRequest struct {
	Source string `json:"source"`
}

// POST /api/v1/scripts/run
func (s *Server) handleScript(w http.ResponseWriter, r *http.Request) {
	if s.deps.Scripts == nil {
		writeJSON(w, http.StatusNotFound, errObj("NOT_FOUND", "scripting is disabled", ""))
		return
	}
	var req scriptRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxScriptBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errObj("VALIDATION_ERROR", "invalid JSON", ""))
		return
	}
	if req.Source == "" {
		writeJSON(w, http.StatusUnprocessableEntity, errObj("VALIDATION_ERROR", "source is required", "source"))
		return
	}

	res, err := s.deps.Scripts.Run(r.Context(), req.Source)
	status := http.StatusOK
	if err != nil {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, res)
}

// errorStatus classifies an intent error: decode failures are validation
// errors, container rejections are state conflicts.
func errorStatus(err error) (int, string, string) {
	var fe *app.FieldError
	switch {
	case errors.As(err, &fe):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", fe.Field
	case errors.Is(err, app.ErrUnknownIntent), errors.Is(err, app.ErrInvalidIntent), errors.Is(err, app.ErrInternalIntent):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", "type"
	case errors.Is(err, games.ErrInvalidChoice):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", "choice"
	case errors.Is(err, app.ErrStopped):
		return http.StatusServiceUnavailable, "SERVER_ERROR", ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "SERVER_ERROR", ""
	default:
		return http.StatusConflict, "INVALID_STATE", ""
	}
}

func writeIntentError(w http.ResponseWriter, err error) {
	status, code, field := errorStatus(err)
	writeJSON(w, status, errObj(code, err.Error(), field))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func errObj(code, msg, field string) map[string]apiError {
	return map[string]apiError{"error": {Code: code, Message: msg, Field: field}}
}

func qInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
