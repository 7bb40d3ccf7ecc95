// Package rag wires the retrieval pipeline together: document
// ingestion into the vector store, and per-query orchestration of the
// tool-calling model with session history and source attribution.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulantoine/coursemate/internal/course"
	"github.com/paulantoine/coursemate/internal/generation"
	"github.com/paulantoine/coursemate/internal/session"
	"github.com/paulantoine/coursemate/internal/tools"
)

// Store is the slice of the vector store the coordinator needs for
// ingestion and statistics.
type Store interface {
	AddCourse(ctx context.Context, c *course.Course, chunks []course.Chunk) error
	CourseExists(ctx context.Context, title string) bool
	ClearAll(ctx context.Context) error
	CourseCount() int
	CourseTitles() []string
}

// Analytics is the read-only course summary exposed for statistics
// display.
type Analytics struct {
	TotalCourses int      `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}

// System coordinates the pipeline components. Construct one per
// process at startup and share it; the components behind it handle
// concurrent queries against distinct sessions.
type System struct {
	processor    *course.Processor
	store        Store
	toolManager  *tools.Manager
	orchestrator *generation.Orchestrator
	sessions     *session.Store
	logger       *slog.Logger
}

// New creates the coordinator from explicitly constructed components.
func New(
	processor *course.Processor,
	store Store,
	toolManager *tools.Manager,
	orchestrator *generation.Orchestrator,
	sessions *session.Store,
	logger *slog.Logger,
) *System {
	if logger == nil {
		logger = slog.Default()
	}
	return &System{
		processor:    processor,
		store:        store,
		toolManager:  toolManager,
		orchestrator: orchestrator,
		sessions:     sessions,
		logger:       logger,
	}
}

// IngestFolder loads every course document under path into the store.
// Already-cataloged titles are skipped unless clearExisting wipes the
// store first, making startup ingestion idempotent. A malformed
// document is logged and skipped; store failures abort the batch.
// Returns the number of courses and chunks added.
func (s *System) IngestFolder(ctx context.Context, path string, clearExisting bool) (int, int, error) {
	if clearExisting {
		s.logger.Info("clearing existing course data")
		if err := s.store.ClearAll(ctx); err != nil {
			return 0, 0, err
		}
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return 0, 0, fmt.Errorf("reading course folder %q: %w", path, err)
	}

	coursesAdded, chunksAdded := 0, 0
	for _, entry := range entries {
		if entry.IsDir() || !isCourseFile(entry.Name()) {
			continue
		}
		filePath := filepath.Join(path, entry.Name())

		raw, err := os.ReadFile(filePath)
		if err != nil {
			s.logger.Warn("skipping unreadable document", "file", filePath, "error", err)
			continue
		}

		c, chunks, err := s.processor.Process(string(raw))
		if err != nil {
			var parseErr *course.ParseError
			if errors.As(err, &parseErr) {
				s.logger.Warn("skipping malformed document", "file", filePath, "error", err)
				continue
			}
			return coursesAdded, chunksAdded, fmt.Errorf("processing %q: %w", filePath, err)
		}

		if s.store.CourseExists(ctx, c.Title) {
			s.logger.Debug("course already ingested", "title", c.Title)
			continue
		}

		if err := s.store.AddCourse(ctx, c, chunks); err != nil {
			return coursesAdded, chunksAdded, err
		}
		coursesAdded++
		chunksAdded += len(chunks)
		s.logger.Info("course ingested", "title", c.Title, "chunks", len(chunks))
	}

	return coursesAdded, chunksAdded, nil
}

// Query answers one user question. It builds the prompt with the
// session's history, drives the orchestrator, drains the sources
// accumulated by the tools, and records the exchange. Sources are
// drained exactly once per query so they never leak across turns.
func (s *System) Query(ctx context.Context, text, sessionID string) (string, []tools.Source, error) {
	prompt := "Answer this question about course materials: " + text
	history := s.sessions.FormatHistory(sessionID)

	answer, err := s.orchestrator.Respond(ctx, prompt, history, s.toolManager)
	if err != nil {
		// Leftover sources from a partially completed turn must not
		// surface on the next query.
		s.toolManager.DrainSources()
		return "", nil, err
	}

	sources := s.toolManager.DrainSources()

	if sessionID != "" {
		s.sessions.AddExchange(sessionID, text, answer)
	}
	return answer, sources, nil
}

// CreateSession issues a new opaque session identifier.
func (s *System) CreateSession() string {
	return s.sessions.Create()
}

// ClearSession discards a session's history.
func (s *System) ClearSession(id string) {
	s.sessions.Clear(id)
}

// GetAnalytics returns the course statistics for display.
func (s *System) GetAnalytics() Analytics {
	return Analytics{
		TotalCourses: s.store.CourseCount(),
		CourseTitles: s.store.CourseTitles(),
	}
}

// isCourseFile reports whether a directory entry looks like a course
// document. Hidden files are ignored.
func isCourseFile(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md":
		return true
	default:
		return false
	}
}
