package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/paulantoine/coursemate/internal/log"
	"github.com/paulantoine/coursemate/internal/rag"
	"github.com/paulantoine/coursemate/internal/tools"
)

// mockRAG is a scriptable coordinator.
type mockRAG struct {
	answer    string
	sources   []tools.Source
	queryErr  error
	panicking bool

	gotQuery   string
	gotSession string
	cleared    []string
	created    int
}

func (m *mockRAG) Query(_ context.Context, text, sessionID string) (string, []tools.Source, error) {
	if m.panicking {
		panic("boom")
	}
	m.gotQuery = text
	m.gotSession = sessionID
	return m.answer, m.sources, m.queryErr
}

func (m *mockRAG) CreateSession() string {
	m.created++
	return "session-123"
}

func (m *mockRAG) ClearSession(id string) {
	m.cleared = append(m.cleared, id)
}

func (m *mockRAG) GetAnalytics() rag.Analytics {
	return rag.Analytics{
		TotalCourses: 2,
		CourseTitles: []string{"Course A", "Course B"},
	}
}

func newTestServer(m *mockRAG) http.Handler {
	return NewServer(m, log.NewNop()).Handler()
}

func TestHandleQuery(t *testing.T) {
	m := &mockRAG{
		answer:  "Lesson 1 covers embeddings.",
		sources: []tools.Source{{Text: "Course A - Lesson 1", Link: "https://example.com/1"}},
	}
	h := newTestServer(m)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/query",
		strings.NewReader(`{"query": "What is covered in lesson 1?"}`)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp QueryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Answer != "Lesson 1 covers embeddings." {
		t.Errorf("answer = %q", resp.Answer)
	}
	if len(resp.Sources) != 1 || resp.Sources[0].Link != "https://example.com/1" {
		t.Errorf("sources = %+v", resp.Sources)
	}

	// No session supplied: one is created and returned.
	if m.created != 1 || resp.SessionID != "session-123" {
		t.Errorf("expected auto-created session, created=%d id=%q", m.created, resp.SessionID)
	}
	if m.gotSession != "session-123" {
		t.Errorf("query ran under session %q", m.gotSession)
	}
}

func TestHandleQuery_ExistingSession(t *testing.T) {
	m := &mockRAG{answer: "ok"}
	h := newTestServer(m)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/query",
		strings.NewReader(`{"query": "q", "session_id": "existing-42"}`)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if m.created != 0 {
		t.Errorf("must not create a session when one is supplied")
	}
	if m.gotSession != "existing-42" {
		t.Errorf("session = %q", m.gotSession)
	}
}

func TestHandleQuery_EmptySourcesSerializeAsArray(t *testing.T) {
	h := newTestServer(&mockRAG{answer: "general knowledge answer"})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/query",
		strings.NewReader(`{"query": "q"}`)))

	if !strings.Contains(rec.Body.String(), `"sources":[]`) {
		t.Errorf("sources must encode as an empty array, got: %s", rec.Body.String())
	}
}

func TestHandleQuery_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{not json`},
		{"empty query", `{"query": "  "}`},
		{"missing query", `{}`},
	}

	h := newTestServer(&mockRAG{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(tt.body)))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestHandleQuery_GenerationFailure(t *testing.T) {
	h := newTestServer(&mockRAG{queryErr: errors.New("model unavailable")})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/query",
		strings.NewReader(`{"query": "q"}`)))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "model unavailable") {
		t.Errorf("internal error details must not leak to clients: %s", rec.Body.String())
	}
}

func TestHandleQuery_MethodNotAllowed(t *testing.T) {
	h := newTestServer(&mockRAG{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/query", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestHandleCourses(t *testing.T) {
	h := newTestServer(&mockRAG{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/courses", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp rag.Analytics
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.TotalCourses != 2 || len(resp.CourseTitles) != 2 {
		t.Errorf("analytics = %+v", resp)
	}
}

func TestHandleCreateSession(t *testing.T) {
	m := &mockRAG{}
	h := newTestServer(m)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sessions", nil))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp SessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.SessionID != "session-123" {
		t.Errorf("session_id = %q", resp.SessionID)
	}
}

func TestHandleClearSession(t *testing.T) {
	m := &mockRAG{}
	h := newTestServer(m)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sessions/clear",
		strings.NewReader(`{"session_id": "session-99"}`)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(m.cleared) != 1 || m.cleared[0] != "session-99" {
		t.Errorf("cleared = %v", m.cleared)
	}
}

func TestHandleClearSession_MissingID(t *testing.T) {
	h := newTestServer(&mockRAG{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sessions/clear",
		strings.NewReader(`{}`)))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	h := newTestServer(&mockRAG{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	h := newTestServer(&mockRAG{panicking: true})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/query",
		strings.NewReader(`{"query": "q"}`)))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("panic must become a 500, got %d", rec.Code)
	}
}
