package course

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ParseError reports a malformed course document. It is fatal for the
// single document but must not abort a batch ingestion; callers check
// for it with errors.As and skip the file.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error: %s", e.Reason)
}

// Document header prefixes. The first lines of a course file are
// prefix-keyed; only the title is required.
const (
	titlePrefix      = "Course Title:"
	linkPrefix       = "Course Link:"
	instructorPrefix = "Course Instructor:"
	lessonLinkPrefix = "Lesson Link:"
)

// lessonMarker matches a lesson boundary line: "Lesson 3: Advanced Topics".
var lessonMarker = regexp.MustCompile(`^Lesson\s+(\d+):\s*(.*)$`)

// lessonContent pairs a parsed lesson with its raw body text. A nil
// number marks the implicit lesson of a document without markers.
type lessonContent struct {
	lesson Lesson
	number *int
	body   string
}

// parseDocument splits raw course text into a Course and the per-lesson
// bodies to be chunked. A missing course title is a ParseError.
func parseDocument(raw string) (*Course, []lessonContent, error) {
	lines := strings.Split(raw, "\n")

	c := &Course{}
	i := 0

	// Header block: up to three prefix-keyed lines before the first
	// lesson marker. Only the title is mandatory.
header:
	for ; i < len(lines) && i < 3; i++ {
		line := strings.TrimSpace(lines[i])
		switch {
		case strings.HasPrefix(line, titlePrefix):
			c.Title = strings.TrimSpace(strings.TrimPrefix(line, titlePrefix))
		case strings.HasPrefix(line, linkPrefix):
			c.Link = strings.TrimSpace(strings.TrimPrefix(line, linkPrefix))
		case strings.HasPrefix(line, instructorPrefix):
			c.Instructor = strings.TrimSpace(strings.TrimPrefix(line, instructorPrefix))
		default:
			// Not a header line; the body starts here.
			break header
		}
	}

	if c.Title == "" {
		return nil, nil, &ParseError{Reason: "missing course title header"}
	}

	var (
		contents []lessonContent
		current  *lessonContent
		implicit strings.Builder
	)

	flush := func() {
		if current != nil {
			contents = append(contents, *current)
			current = nil
		}
	}

	for ; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		if m := lessonMarker.FindStringSubmatch(trimmed); m != nil {
			flush()
			num, _ := strconv.Atoi(m[1])
			current = &lessonContent{
				lesson: Lesson{Number: num, Title: strings.TrimSpace(m[2])},
				number: &num,
			}
			// An optional "Lesson Link:" line directly follows the marker.
			if i+1 < len(lines) {
				next := strings.TrimSpace(lines[i+1])
				if strings.HasPrefix(next, lessonLinkPrefix) {
					current.lesson.Link = strings.TrimSpace(strings.TrimPrefix(next, lessonLinkPrefix))
					i++
				}
			}
			continue
		}

		if current != nil {
			current.body += line + "\n"
		} else {
			implicit.WriteString(line)
			implicit.WriteString("\n")
		}
	}
	flush()

	if len(contents) == 0 {
		// No lesson markers: the whole body is one implicit lesson
		// with no number.
		contents = append(contents, lessonContent{body: implicit.String()})
	} else {
		for _, lc := range contents {
			c.Lessons = append(c.Lessons, lc.lesson)
		}
	}

	return c, contents, nil
}
