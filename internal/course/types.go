// Package course defines the course data model and the document
// processor that turns raw course text into structured entities and
// retrieval chunks.
package course

// Course represents one course document. The title is the sole
// deduplication key across ingestion runs.
type Course struct {
	Title      string
	Link       string
	Instructor string
	Lessons    []Lesson
}

// Lesson is a numbered section of a course. Numbers are unique within
// a course but need not be contiguous.
type Lesson struct {
	Number int
	Title  string
	Link   string
}

// Chunk is the unit of semantic retrieval. Text carries a generated
// context header naming the course and lesson, so a chunk is
// self-describing without external joins. Chunks are immutable once
// created.
type Chunk struct {
	Text         string
	CourseTitle  string
	LessonNumber *int // nil when the document has no lesson markers
	Index        int  // position within the course, stable across lessons
}
