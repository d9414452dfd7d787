// Package chunker splits normalized text into overlapping fixed-size windows.
// Splitting is a pure function with no I/O; window boundaries are counted in
// runes so multi-byte characters are never cut in half.
package chunker

import "errors"

var (
	// ErrInvalidChunkSize is returned when chunkSize is not positive
	ErrInvalidChunkSize = errors.New("chunk size must be positive")

	// ErrInvalidOverlap is returned when overlap is negative or not smaller than chunkSize
	ErrInvalidOverlap = errors.New("overlap must be non-negative and smaller than chunk size")
)

// Chunk is one window of a document's text. Position is the ordinal of the
// window within the document and is used for overlap reconstruction and
// deterministic ordering downstream.
type Chunk struct {
	Text     string
	Position int
}

// Split cuts text into sequential sliding windows of chunkSize runes where
// window i starts at i*(chunkSize-overlap). The final window may be shorter
// than chunkSize. Concatenating the windows with the first overlap runes of
// every window after the first removed reconstructs the input exactly.
func Split(text string, chunkSize, overlap int) ([]Chunk, error) {
	if chunkSize <= 0 {
		return nil, ErrInvalidChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, ErrInvalidOverlap
	}

	if text == "" {
		return []Chunk{}, nil
	}

	runes := []rune(text)
	total := len(runes)

	if total <= chunkSize {
		return []Chunk{{Text: text, Position: 0}}, nil
	}

	step := chunkSize - overlap
	chunks := make([]Chunk, 0, (total+step-1)/step)

	for start, pos := 0, 0; start < total; start, pos = start+step, pos+1 {
		end := start + chunkSize
		if end > total {
			end = total
		}
		chunks = append(chunks, Chunk{Text: string(runes[start:end]), Position: pos})
		if end == total {
			break
		}
	}

	return chunks, nil
}
