package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/saviobatista/uav-deconfliction/internal/checker"
	"github.com/saviobatista/uav-deconfliction/internal/db"
	"github.com/saviobatista/uav-deconfliction/internal/deconflict"
	"github.com/saviobatista/uav-deconfliction/internal/log"
	"github.com/saviobatista/uav-deconfliction/internal/parser"
	"github.com/saviobatista/uav-deconfliction/internal/scenarios"
	"github.com/saviobatista/uav-deconfliction/internal/stats"
	"github.com/saviobatista/uav-deconfliction/internal/types"
)

const (
	maxBodyBytes       = 10 << 20
	defaultRecentLimit = 50
)

// HistoryReader serves stored checks
type HistoryReader interface {
	GetCheck(ctx context.Context, checkID string) (*types.CheckReport, error)
	GetRecentChecks(ctx context.Context, limit int) ([]db.CheckSummary, error)
	GetConflictsByMission(ctx context.Context, missionID string, since time.Time) ([]db.MissionConflict, error)
	GetSystemStats(ctx context.Context, start, end time.Time) ([]types.SystemStats, error)
}

// Server is the HTTP front end of the checker
type Server struct {
	svc     *checker.Service
	stats   *stats.Stats
	history HistoryReader
	logger  *log.Logger
}

// NewServer creates a server. history may be nil, in which case the
// history endpoints answer 503.
func NewServer(svc *checker.Service, st *stats.Stats, history HistoryReader, logger *log.Logger) *Server {
	return &Server{svc: svc, stats: st, history: history, logger: logger}
}

// Handler returns the routes of the API
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/check_conflicts", s.handleCheckConflicts)
	mux.HandleFunc("GET /api/test_cases", s.handleListTestCases)
	mux.HandleFunc("GET /api/test_cases/{id}", s.handleGetTestCase)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/stats/history", s.handleStatsHistory)
	mux.HandleFunc("GET /api/checks", s.handleRecentChecks)
	mux.HandleFunc("GET /api/checks/{id}", s.handleGetCheck)
	mux.HandleFunc("GET /api/missions/{id}/conflicts", s.handleMissionConflicts)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return mux
}

func (s *Server) handleCheckConflicts(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body: "+err.Error())
		return
	}

	report, err := s.svc.CheckRaw(r.Context(), r.Header.Get("X-Request-ID"), "api", body)
	switch {
	case errors.Is(err, parser.ErrMissingMissionData):
		writeError(w, http.StatusBadRequest, "Missing required mission data")
		return
	case errors.Is(err, deconflict.ErrMalformedMission):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.logger.Error("Error processing conflict check", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("X-Check-ID", report.CheckID)
	writeJSON(w, http.StatusOK, report.Result())
}

func (s *Server) handleListTestCases(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios.List())
}

func (s *Server) handleGetTestCase(w http.ResponseWriter, r *http.Request) {
	sc, ok := scenarios.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Test case not found")
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.stats.Snapshot())
}

func (s *Server) handleStatsHistory(w http.ResponseWriter, r *http.Request) {
	if !s.requireHistory(w) {
		return
	}

	end := time.Now().UTC()
	start := end.Add(-24 * time.Hour)
	var err error
	if v := r.URL.Query().Get("start"); v != "" {
		if start, err = time.Parse(time.RFC3339, v); err != nil {
			writeError(w, http.StatusBadRequest, "invalid start: "+err.Error())
			return
		}
	}
	if v := r.URL.Query().Get("end"); v != "" {
		if end, err = time.Parse(time.RFC3339, v); err != nil {
			writeError(w, http.StatusBadRequest, "invalid end: "+err.Error())
			return
		}
	}

	history, err := s.history.GetSystemStats(r.Context(), start, end)
	if err != nil {
		s.internalError(w, "Failed to read stats history", err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleRecentChecks(w http.ResponseWriter, r *http.Request) {
	if !s.requireHistory(w) {
		return
	}

	limit := defaultRecentLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	checks, err := s.history.GetRecentChecks(r.Context(), limit)
	if err != nil {
		s.internalError(w, "Failed to read recent checks", err)
		return
	}
	writeJSON(w, http.StatusOK, checks)
}

func (s *Server) handleGetCheck(w http.ResponseWriter, r *http.Request) {
	if !s.requireHistory(w) {
		return
	}

	report, err := s.history.GetCheck(r.Context(), r.PathValue("id"))
	if errors.Is(err, db.ErrCheckNotFound) {
		writeError(w, http.StatusNotFound, "Check not found")
		return
	}
	if err != nil {
		s.internalError(w, "Failed to read check", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleMissionConflicts(w http.ResponseWriter, r *http.Request) {
	if !s.requireHistory(w) {
		return
	}

	since := time.Now().UTC().Add(-24 * time.Hour)
	if v := r.URL.Query().Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid since: "+err.Error())
			return
		}
		since = t
	}

	conflicts, err := s.history.GetConflictsByMission(r.Context(), r.PathValue("id"), since)
	if err != nil {
		s.internalError(w, "Failed to read mission conflicts", err)
		return
	}
	writeJSON(w, http.StatusOK, conflicts)
}

func (s *Server) requireHistory(w http.ResponseWriter) bool {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "check history is not configured")
		return false
	}
	return true
}

func (s *Server) internalError(w http.ResponseWriter, msg string, err error) {
	s.logger.Error(msg, "error", err)
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
