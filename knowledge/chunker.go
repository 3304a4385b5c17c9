package knowledge

import (
	"strings"
	"unicode"
)

// Chunker splits text into overlapping windows measured in runes.
type Chunker struct {
	Size    int
	Overlap int
}

// DefaultChunker returns 1000 rune chunks overlapping by 100 runes.
func DefaultChunker() Chunker { return Chunker{Size: 1000, Overlap: 100} }

// Split cleans whitespace and cuts text into chunks. Chunks end on a space
// when one exists in the last quarter of the window.
func (c Chunker) Split(text string) []string {
	runes := []rune(normalizeSpace(text))
	if len(runes) == 0 {
		return nil
	}

	size := c.Size
	if size <= 0 {
		size = 1000
	}
	overlap := c.Overlap
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	var chunks []string
	for start := 0; start < len(runes); {
		end := min(start+size, len(runes))
		if end < len(runes) {
			for i := end; i > start+size*3/4; i-- {
				if runes[i-1] == ' ' {
					end = i
					break
				}
			}
		}

		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
		start = max(end-overlap, start+1)
	}
	return chunks
}

// normalizeSpace collapses whitespace runs into a single space.
func normalizeSpace(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}
