// Package session keeps bounded conversation history keyed by opaque
// session identifiers. History is a sliding window: the most recent
// exchanges are retained, the oldest evicted. Abandoned sessions are
// never collected; that is an accepted non-goal.
package session

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Turn is one conversation turn.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Store is an in-memory session store. It is safe for concurrent
// access to distinct sessions; simultaneous writes within a single
// session are a caller responsibility (one query per session in
// flight at a time).
type Store struct {
	mu       sync.RWMutex
	sessions map[string][]Turn
	maxTurns int // 2 * kept exchanges
	logger   *slog.Logger
}

// NewStore creates a store keeping at most maxExchanges user/assistant
// pairs per session.
func NewStore(maxExchanges int, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if maxExchanges < 0 {
		maxExchanges = 0
	}
	return &Store{
		sessions: make(map[string][]Turn),
		maxTurns: maxExchanges * 2,
		logger:   logger,
	}
}

// Create returns a new opaque session identifier, unique per call.
func (s *Store) Create() string {
	id := uuid.NewString()

	s.mu.Lock()
	s.sessions[id] = nil
	s.mu.Unlock()

	s.logger.Debug("session created", "session_id", id)
	return id
}

// AddExchange appends one user/assistant pair, creating the session on
// first reference, then truncates the oldest turns past the window.
func (s *Store) AddExchange(id, userText, assistantText string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := append(s.sessions[id],
		Turn{Role: "user", Content: userText},
		Turn{Role: "assistant", Content: assistantText},
	)
	if len(turns) > s.maxTurns {
		turns = turns[len(turns)-s.maxTurns:]
	}
	s.sessions[id] = turns
}

// History returns the session's turns, oldest first. Unknown sessions
// yield an empty history, never an error: a fresh session is presumed.
func (s *Store) History(id string) []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.sessions[id]
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}

// FormatHistory renders the session's turns for prompt inclusion, one
// "Role: content" line per turn. Empty string for unknown sessions.
func (s *Store) FormatHistory(id string) string {
	turns := s.History(id)
	if len(turns) == 0 {
		return ""
	}

	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		role := t.Role
		if role != "" {
			role = strings.ToUpper(role[:1]) + role[1:]
		}
		lines = append(lines, role+": "+t.Content)
	}
	return strings.Join(lines, "\n")
}

// Clear discards the session's history. The identifier stays usable.
func (s *Store) Clear(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}
