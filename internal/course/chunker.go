package course

import (
	"regexp"
	"strings"
)

// chunker packs whole sentences into chunks bounded by a character
// budget, with a sentence-aligned overlap between consecutive chunks.
// Sentences are never split; a single sentence longer than the budget
// becomes its own oversized chunk.
type chunker struct {
	size     int
	overlap  int
	splitter *regexp.Regexp
}

func newChunker(size, overlap int) *chunker {
	if size <= 0 {
		size = 800
	}
	if overlap < 0 {
		overlap = 0
	}
	return &chunker{
		size:     size,
		overlap:  overlap,
		splitter: regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`),
	}
}

// split returns the chunk texts for one lesson body. An empty or
// whitespace-only body yields no chunks.
func (c *chunker) split(text string) []string {
	sentences := c.splitter.FindAllString(text, -1)
	if len(sentences) == 0 {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		sentences = []string{trimmed}
	}
	for i := range sentences {
		sentences[i] = normalizeSpace(sentences[i])
	}

	var chunks []string
	i := 0
	for i < len(sentences) {
		// Greedy pack: take sentences until the next one would
		// overflow the budget. Always take at least one.
		j := i
		length := 0
		for j < len(sentences) {
			add := len(sentences[j])
			if j > i {
				add++ // joining space
			}
			if length+add > c.size && j > i {
				break
			}
			length += add
			j++
		}
		chunks = append(chunks, strings.Join(sentences[i:j], " "))
		if j >= len(sentences) {
			break
		}

		// Step back over trailing sentences of the emitted chunk to
		// form the overlap, keeping at least one sentence of progress.
		next := j
		olen := 0
		for next-1 > i {
			s := len(sentences[next-1])
			if olen+s > c.overlap {
				break
			}
			olen += s + 1
			next--
		}
		i = next
	}
	return chunks
}

// normalizeSpace collapses internal whitespace runs, including the
// newlines left over from line-based parsing, into single spaces.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
