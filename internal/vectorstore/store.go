// Package vectorstore maintains the two similarity indexes behind the
// retrieval pipeline: a catalog index with one entry per course for
// fuzzy title resolution and link lookup, and a content index with one
// entry per chunk for metadata-filtered semantic search.
//
// Both indexes live in an embedded chromem-go database persisted under
// a configured directory. Writes flush per document; no explicit
// teardown is required.
package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"strconv"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/paulantoine/coursemate/internal/course"
)

const (
	catalogCollection = "course_catalog"
	contentCollection = "course_content"
)

// Content index metadata keys.
const (
	metaCourseTitle  = "course_title"
	metaLessonNumber = "lesson_number"
	metaChunkIndex   = "chunk_index"
)

// SearchResult is one ranked content match. Results are ordered most
// relevant first.
type SearchResult struct {
	Text         string
	CourseTitle  string
	LessonNumber *int // nil for chunks of an unnumbered implicit lesson
	Similarity   float32
}

// LessonMeta is the serialized lesson table stored in catalog metadata
// for outline display and link lookup.
type LessonMeta struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Link   string `json:"link,omitempty"`
}

// CourseMeta is the catalog view of one course.
type CourseMeta struct {
	Title      string
	Link       string
	Instructor string
	Lessons    []LessonMeta
}

// Option configures a Store.
type Option func(*Store)

// WithMaxResults sets the top-K limit for content search. Default 5.
func WithMaxResults(k int) Option {
	return func(s *Store) {
		if k > 0 {
			s.maxResults = k
		}
	}
}

// WithMinResolveSimilarity sets the confidence floor for fuzzy course
// name resolution. The default of 0 trusts the nearest catalog entry
// unconditionally.
func WithMinResolveSimilarity(min float32) Option {
	return func(s *Store) {
		s.minResolve = min
	}
}

// WithLogger sets the store logger. Default slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Store provides course-aware access to the catalog and content
// indexes. Reads are safe for concurrent use; ingestion is expected to
// run once at startup, and a concurrent ingest and query against the
// same course is undefined behavior.
type Store struct {
	db      *chromem.DB
	catalog *chromem.Collection
	content *chromem.Collection
	embed   chromem.EmbeddingFunc

	maxResults int
	minResolve float32
	logger     *slog.Logger

	// chromem has no document enumeration, so known titles are kept
	// here. The registry is warmed during startup ingestion when the
	// coordinator probes every document's title via CourseExists.
	mu     sync.RWMutex
	titles map[string]struct{}
}

// New opens (or creates) the persistent store at path.
func New(path string, embed chromem.EmbeddingFunc, opts ...Option) (*Store, error) {
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("opening vector store at %q: %w", path, err)
	}

	s := &Store{
		db:         db,
		embed:      embed,
		maxResults: 5,
		logger:     slog.Default(),
		titles:     make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.openCollections(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) openCollections() error {
	catalog, err := s.db.GetOrCreateCollection(catalogCollection, nil, s.embed)
	if err != nil {
		return fmt.Errorf("opening catalog index: %w", err)
	}
	content, err := s.db.GetOrCreateCollection(contentCollection, nil, s.embed)
	if err != nil {
		return fmt.Errorf("opening content index: %w", err)
	}
	s.catalog = catalog
	s.content = content
	return nil
}

// AddCourse upserts the course's catalog entry and replaces its chunk
// set in the content index. The replacement is atomic at the store
// boundary: old chunks are removed before the new set is written.
func (s *Store) AddCourse(ctx context.Context, c *course.Course, chunks []course.Chunk) error {
	lessons := make([]LessonMeta, 0, len(c.Lessons))
	for _, l := range c.Lessons {
		lessons = append(lessons, LessonMeta{Number: l.Number, Title: l.Title, Link: l.Link})
	}
	lessonsJSON, err := json.Marshal(lessons)
	if err != nil {
		return fmt.Errorf("serializing lesson table for %q: %w", c.Title, err)
	}

	// Replace any previous catalog entry and chunk set for this title.
	if _, err := s.catalog.GetByID(ctx, c.Title); err == nil {
		if err := s.catalog.Delete(ctx, nil, nil, c.Title); err != nil {
			return fmt.Errorf("removing stale catalog entry for %q: %w", c.Title, err)
		}
		if err := s.content.Delete(ctx, map[string]string{metaCourseTitle: c.Title}, nil); err != nil {
			return fmt.Errorf("removing stale chunks for %q: %w", c.Title, err)
		}
	}

	err = s.catalog.AddDocuments(ctx, []chromem.Document{{
		ID:      c.Title,
		Content: c.Title,
		Metadata: map[string]string{
			"link":       c.Link,
			"instructor": c.Instructor,
			"lessons":    string(lessonsJSON),
		},
	}}, 1)
	if err != nil {
		return fmt.Errorf("adding catalog entry for %q: %w", c.Title, err)
	}

	docs := make([]chromem.Document, 0, len(chunks))
	for _, ch := range chunks {
		meta := map[string]string{
			metaCourseTitle: ch.CourseTitle,
			metaChunkIndex:  strconv.Itoa(ch.Index),
		}
		if ch.LessonNumber != nil {
			meta[metaLessonNumber] = strconv.Itoa(*ch.LessonNumber)
		}
		docs = append(docs, chromem.Document{
			ID:       fmt.Sprintf("%s::%d", ch.CourseTitle, ch.Index),
			Content:  ch.Text,
			Metadata: meta,
		})
	}
	if len(docs) > 0 {
		if err := s.content.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
			return fmt.Errorf("adding chunks for %q: %w", c.Title, err)
		}
	}

	s.mu.Lock()
	s.titles[c.Title] = struct{}{}
	s.mu.Unlock()

	s.logger.Debug("course added", "title", c.Title, "chunks", len(docs))
	return nil
}

// CourseExists reports whether a course with exactly this title is in
// the catalog. Lets the coordinator skip re-ingestion.
func (s *Store) CourseExists(ctx context.Context, title string) bool {
	s.mu.RLock()
	_, known := s.titles[title]
	s.mu.RUnlock()
	if known {
		return true
	}

	if _, err := s.catalog.GetByID(ctx, title); err != nil {
		return false
	}
	s.mu.Lock()
	s.titles[title] = struct{}{}
	s.mu.Unlock()
	return true
}

// ResolveCourseName maps a possibly partial or misspelled course name
// to the canonical stored title via the catalog index. Returns a
// CourseNotFoundError when the catalog is empty or the best match
// falls below the configured confidence floor.
func (s *Store) ResolveCourseName(ctx context.Context, name string) (string, error) {
	if s.catalog.Count() == 0 {
		return "", &CourseNotFoundError{Name: name}
	}

	results, err := s.catalog.Query(ctx, name, 1, nil, nil)
	if err != nil {
		return "", fmt.Errorf("resolving course name %q: %w", name, err)
	}
	if len(results) == 0 || results[0].Similarity < s.minResolve {
		return "", &CourseNotFoundError{Name: name}
	}

	s.logger.Debug("course name resolved",
		"query", name, "title", results[0].ID, "similarity", results[0].Similarity)
	return results[0].ID, nil
}

// Search queries the content index for the chunks most relevant to
// query. A non-empty courseName is resolved first; an unresolvable
// name short-circuits with a CourseNotFoundError before the content
// index is touched. An empty result set is a valid outcome.
func (s *Store) Search(ctx context.Context, query, courseName string, lessonNumber *int) ([]SearchResult, error) {
	where := make(map[string]string)
	if courseName != "" {
		title, err := s.ResolveCourseName(ctx, courseName)
		if err != nil {
			return nil, err
		}
		where[metaCourseTitle] = title
	}
	if lessonNumber != nil {
		where[metaLessonNumber] = strconv.Itoa(*lessonNumber)
	}
	if len(where) == 0 {
		where = nil
	}

	// chromem rejects nResults larger than the collection size.
	n := s.maxResults
	if c := s.content.Count(); n > c {
		n = c
	}
	if n == 0 {
		return nil, nil
	}

	results, err := s.content.Query(ctx, query, n, where, nil)
	if err != nil {
		return nil, fmt.Errorf("searching content index: %w", err)
	}

	out := make([]SearchResult, 0, len(results))
	for _, r := range results {
		sr := SearchResult{
			Text:        r.Content,
			CourseTitle: r.Metadata[metaCourseTitle],
			Similarity:  r.Similarity,
		}
		if v, ok := r.Metadata[metaLessonNumber]; ok {
			if num, err := strconv.Atoi(v); err == nil {
				sr.LessonNumber = &num
			}
		}
		out = append(out, sr)
	}
	return out, nil
}

// GetLessonLink returns the link of a lesson from the catalog's
// serialized lesson table, or "" on any lookup miss. Absence of a link
// is not an error.
func (s *Store) GetLessonLink(ctx context.Context, courseTitle string, lessonNumber int) string {
	meta, err := s.GetCourseMeta(ctx, courseTitle)
	if err != nil {
		return ""
	}
	for _, l := range meta.Lessons {
		if l.Number == lessonNumber {
			return l.Link
		}
	}
	return ""
}

// GetCourseMeta returns the catalog view of a course by exact title.
func (s *Store) GetCourseMeta(ctx context.Context, title string) (*CourseMeta, error) {
	doc, err := s.catalog.GetByID(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("catalog lookup for %q: %w", title, err)
	}

	meta := &CourseMeta{
		Title:      doc.ID,
		Link:       doc.Metadata["link"],
		Instructor: doc.Metadata["instructor"],
	}
	if raw := doc.Metadata["lessons"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &meta.Lessons); err != nil {
			return nil, fmt.Errorf("decoding lesson table for %q: %w", title, err)
		}
	}
	return meta, nil
}

// CourseCount returns the number of cataloged courses.
func (s *Store) CourseCount() int {
	return s.catalog.Count()
}

// ChunkCount returns the number of indexed content chunks.
func (s *Store) ChunkCount() int {
	return s.content.Count()
}

// CourseTitles returns the known course titles sorted alphabetically.
// Complete after a startup ingestion pass has probed every document.
func (s *Store) CourseTitles() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	titles := make([]string, 0, len(s.titles))
	for t := range s.titles {
		titles = append(titles, t)
	}
	sort.Strings(titles)
	return titles
}

// ClearAll drops both indexes for a full rebuild.
func (s *Store) ClearAll(ctx context.Context) error {
	if err := s.db.DeleteCollection(catalogCollection); err != nil {
		return fmt.Errorf("dropping catalog index: %w", err)
	}
	if err := s.db.DeleteCollection(contentCollection); err != nil {
		return fmt.Errorf("dropping content index: %w", err)
	}
	if err := s.openCollections(); err != nil {
		return err
	}

	s.mu.Lock()
	s.titles = make(map[string]struct{})
	s.mu.Unlock()

	s.logger.Info("vector store cleared")
	return nil
}
