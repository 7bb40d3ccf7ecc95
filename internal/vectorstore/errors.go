package vectorstore

import "fmt"

// CourseNotFoundError reports that fuzzy course-name resolution found
// no plausible catalog match. Callers surface it as an informative
// result rather than a fault; check with errors.As.
type CourseNotFoundError struct {
	Name string
}

func (e *CourseNotFoundError) Error() string {
	return fmt.Sprintf("no course found matching %q", e.Name)
}
