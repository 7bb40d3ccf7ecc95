package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/paulantoine/coursemate/internal/tools"
)

// QueryRequest is the body of POST /api/query.
type QueryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

// QueryResponse carries the answer, its sources, and the session the
// exchange was recorded under.
type QueryResponse struct {
	Answer    string         `json:"answer"`
	Sources   []tools.Source `json:"sources"`
	SessionID string         `json:"session_id"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, s.logger, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, s.logger, http.StatusBadRequest, "query must not be empty")
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = s.rag.CreateSession()
	}

	answer, sources, err := s.rag.Query(r.Context(), req.Query, sessionID)
	if err != nil {
		s.logger.Error("query failed", "session_id", sessionID, "error", err)
		writeError(w, s.logger, http.StatusInternalServerError, "query processing failed")
		return
	}

	if sources == nil {
		sources = []tools.Source{}
	}
	writeJSON(w, s.logger, http.StatusOK, QueryResponse{
		Answer:    answer,
		Sources:   sources,
		SessionID: sessionID,
	})
}

func (s *Server) handleCourses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, s.rag.GetAnalytics())
}

// SessionResponse is the body of POST /api/sessions.
type SessionResponse struct {
	SessionID string `json:"session_id"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, http.StatusCreated, SessionResponse{SessionID: s.rag.CreateSession()})
}

// ClearSessionRequest is the body of POST /api/sessions/clear.
type ClearSessionRequest struct {
	SessionID string `json:"session_id"`
}

func (s *Server) handleClearSession(w http.ResponseWriter, r *http.Request) {
	var req ClearSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		writeError(w, s.logger, http.StatusBadRequest, "session_id is required")
		return
	}

	s.rag.ClearSession(req.SessionID)
	writeJSON(w, s.logger, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, map[string]string{"status": "ok"})
}
