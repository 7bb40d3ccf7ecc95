package course

import "fmt"

// Processor turns raw course text into a Course and its ordered chunk
// sequence. It is stateless and safe for reuse across documents.
type Processor struct {
	chunker *chunker
}

// NewProcessor creates a processor with the given chunk character
// budget and overlap.
func NewProcessor(chunkSize, chunkOverlap int) *Processor {
	return &Processor{chunker: newChunker(chunkSize, chunkOverlap)}
}

// Process parses one document and chunks every lesson body. Chunk
// indexes are assigned across the whole course so they form stable
// per-course identifiers. A document without lesson markers produces
// chunks with a nil lesson number.
func (p *Processor) Process(raw string) (*Course, []Chunk, error) {
	c, contents, err := parseDocument(raw)
	if err != nil {
		return nil, nil, err
	}

	var chunks []Chunk
	for _, lc := range contents {
		for _, text := range p.chunker.split(lc.body) {
			chunks = append(chunks, Chunk{
				Text:         contextHeader(c.Title, lc.number) + text,
				CourseTitle:  c.Title,
				LessonNumber: lc.number,
				Index:        len(chunks),
			})
		}
	}
	return c, chunks, nil
}

// contextHeader prefixes chunk text so each chunk names its origin
// even when read in isolation.
func contextHeader(title string, lesson *int) string {
	if lesson == nil {
		return fmt.Sprintf("Course %s content: ", title)
	}
	return fmt.Sprintf("Course %s Lesson %d content: ", title, *lesson)
}
