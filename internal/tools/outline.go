package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/paulantoine/coursemate/internal/vectorstore"
)

// OutlineStore is the slice of the vector store the outline tool needs.
type OutlineStore interface {
	ResolveCourseName(ctx context.Context, name string) (string, error)
	GetCourseMeta(ctx context.Context, title string) (*vectorstore.CourseMeta, error)
}

// CourseOutlineTool answers get_course_outline calls with the course
// title, link, and numbered lesson list from the catalog.
type CourseOutlineTool struct {
	store OutlineStore

	mu      sync.Mutex
	sources []Source
}

// NewCourseOutlineTool creates the outline tool.
func NewCourseOutlineTool(store OutlineStore) *CourseOutlineTool {
	return &CourseOutlineTool{store: store}
}

func (t *CourseOutlineTool) Definition() Definition {
	return Definition{
		Name:        "get_course_outline",
		Description: "Get a course overview with its title, link, and complete lesson list",
		InputSchema: map[string]any{
			"course_name": map[string]any{
				"type":        "string",
				"description": "Course title (partial matches work)",
			},
		},
		Required: []string{"course_name"},
	}
}

// Execute resolves the course name and renders its outline. A failed
// resolution is an explanatory result, not an error.
func (t *CourseOutlineTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	name, ok := params["course_name"].(string)
	if !ok || name == "" {
		return "", fmt.Errorf("missing required parameter 'course_name'")
	}

	title, err := t.store.ResolveCourseName(ctx, name)
	if err != nil {
		var notFound *vectorstore.CourseNotFoundError
		if errors.As(err, &notFound) {
			return fmt.Sprintf("No course found matching '%s'", notFound.Name), nil
		}
		return "", err
	}

	meta, err := t.store.GetCourseMeta(ctx, title)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Course: %s\n", meta.Title)
	if meta.Link != "" {
		fmt.Fprintf(&b, "Course Link: %s\n", meta.Link)
	}
	if meta.Instructor != "" {
		fmt.Fprintf(&b, "Instructor: %s\n", meta.Instructor)
	}
	b.WriteString("Lessons:\n")
	for _, l := range meta.Lessons {
		fmt.Fprintf(&b, "  Lesson %d: %s\n", l.Number, l.Title)
	}

	t.mu.Lock()
	t.sources = []Source{{Text: meta.Title, Link: meta.Link}}
	t.mu.Unlock()

	return strings.TrimRight(b.String(), "\n"), nil
}

func (t *CourseOutlineTool) LastSources() []Source {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sources
}

func (t *CourseOutlineTool) ResetSources() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sources = nil
}
