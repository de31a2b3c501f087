package chunker

import (
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

// Splitter cuts text into retrieval-sized chunks, preferring paragraph,
// line, sentence and word boundaries over raw character splits. Splitting
// is deterministic: the same input always produces the same boundaries.
type Splitter struct {
	size    int
	overlap int
}

func New(size, overlap int) *Splitter {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 5
	}
	return &Splitter{size: size, overlap: overlap}
}

// Split never discards content: if the underlying splitter fails or yields
// no usable chunks, the whole input is returned as a single chunk. Empty
// input is the caller's problem and is validated before this stage.
func (s *Splitter) Split(text string) []string {
	inner := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(s.size),
		textsplitter.WithChunkOverlap(s.overlap),
		textsplitter.WithSeparators([]string{"\n\n", "\n", ". ", " ", ""}),
	)
	parts, err := inner.SplitText(text)
	if err != nil {
		return []string{text}
	}
	chunks := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		chunks = append(chunks, part)
	}
	if len(chunks) == 0 {
		return []string{text}
	}
	return chunks
}
