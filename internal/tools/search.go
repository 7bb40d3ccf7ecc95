package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/paulantoine/coursemate/internal/vectorstore"
)

// SearchStore is the slice of the vector store the search tool needs.
type SearchStore interface {
	Search(ctx context.Context, query, courseName string, lessonNumber *int) ([]vectorstore.SearchResult, error)
	GetLessonLink(ctx context.Context, courseTitle string, lessonNumber int) string
}

// CourseSearchTool answers search_course_content calls with formatted
// chunk matches and records one Source per returned chunk.
type CourseSearchTool struct {
	store SearchStore

	mu      sync.Mutex
	sources []Source
}

// NewCourseSearchTool creates the content search tool.
func NewCourseSearchTool(store SearchStore) *CourseSearchTool {
	return &CourseSearchTool{store: store}
}

func (t *CourseSearchTool) Definition() Definition {
	return Definition{
		Name:        "search_course_content",
		Description: "Search course materials with smart course name matching and lesson filtering",
		InputSchema: map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "What to search for in the course content",
			},
			"course_name": map[string]any{
				"type":        "string",
				"description": "Course title (partial matches work, e.g. 'MCP', 'Introduction')",
			},
			"lesson_number": map[string]any{
				"type":        "integer",
				"description": "Specific lesson number to search within (e.g. 1, 2, 3)",
			},
		},
		Required: []string{"query"},
	}
}

// Execute runs the content search. A failed course-name resolution and
// an empty result set both come back as explanatory text, not errors;
// only substrate failures surface as errors for the Manager to contain.
func (t *CourseSearchTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	query, ok := params["query"].(string)
	if !ok || query == "" {
		return "", fmt.Errorf("missing required parameter 'query'")
	}
	courseName, _ := params["course_name"].(string)
	lessonNumber := intParam(params, "lesson_number")

	results, err := t.store.Search(ctx, query, courseName, lessonNumber)
	if err != nil {
		var notFound *vectorstore.CourseNotFoundError
		if errors.As(err, &notFound) {
			return fmt.Sprintf("No course found matching '%s'", notFound.Name), nil
		}
		return "", err
	}

	if len(results) == 0 {
		return emptyResultMessage(courseName, lessonNumber), nil
	}
	return t.formatResults(ctx, results), nil
}

// formatResults renders each match under a course/lesson header and
// replaces the tool's source list with the matches just used.
func (t *CourseSearchTool) formatResults(ctx context.Context, results []vectorstore.SearchResult) string {
	var (
		parts   []string
		sources []Source
	)
	for _, r := range results {
		title := r.CourseTitle
		if title == "" {
			title = "unknown"
		}

		header := "[" + title
		src := Source{Text: title}
		if r.LessonNumber != nil {
			header += fmt.Sprintf(" - Lesson %d", *r.LessonNumber)
			src.Text += fmt.Sprintf(" - Lesson %d", *r.LessonNumber)
			src.Link = t.store.GetLessonLink(ctx, title, *r.LessonNumber)
		}
		header += "]"

		parts = append(parts, header+"\n"+r.Text)
		sources = append(sources, src)
	}

	t.mu.Lock()
	t.sources = sources
	t.mu.Unlock()

	return strings.Join(parts, "\n\n")
}

func (t *CourseSearchTool) LastSources() []Source {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sources
}

func (t *CourseSearchTool) ResetSources() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sources = nil
}

// emptyResultMessage decorates the "nothing found" message with the
// filters that were active, so the model can report them verbatim.
func emptyResultMessage(courseName string, lessonNumber *int) string {
	msg := "No relevant content found"
	if courseName != "" {
		msg += fmt.Sprintf(" in course '%s'", courseName)
	}
	if lessonNumber != nil {
		msg += fmt.Sprintf(" in lesson %d", *lessonNumber)
	}
	return msg + "."
}

// intParam reads an optional integer parameter. JSON decoding hands
// numbers over as float64.
func intParam(params map[string]any, key string) *int {
	switch v := params[key].(type) {
	case float64:
		n := int(v)
		return &n
	case int:
		n := v
		return &n
	default:
		return nil
	}
}
