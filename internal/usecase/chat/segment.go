package chat

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Chunk is one display-ready piece of a reply and the pause to take before
// sending it.
type Chunk struct {
	Text  string
	Delay time.Duration
}

// Segmenter splits raw replies into chunks and paces them by length.
type Segmenter struct {
	Delimiter      string
	CharsPerSecond float64
	MaxDelay       time.Duration
}

func NewSegmenter(delimiter string, charsPerSecond float64, maxDelay time.Duration) Segmenter {
	return Segmenter{
		Delimiter:      delimiter,
		CharsPerSecond: charsPerSecond,
		MaxDelay:       maxDelay,
	}
}

// Segment splits raw on the delimiter, trims each piece and drops empty
// ones. Pieces are only paced when more than one survives; an input with no
// visible text yields no chunks.
func (s Segmenter) Segment(raw string) []Chunk {
	pieces := []string{raw}
	if s.Delimiter != "" {
		pieces = strings.Split(raw, s.Delimiter)
	}

	chunks := make([]Chunk, 0, len(pieces))
	for _, p := range pieces {
		if p = strings.TrimSpace(p); p != "" {
			chunks = append(chunks, Chunk{Text: p})
		}
	}

	if len(chunks) > 1 {
		for i := range chunks {
			chunks[i].Delay = s.delay(chunks[i].Text)
		}
	}
	return chunks
}

func (s Segmenter) delay(text string) time.Duration {
	if s.CharsPerSecond <= 0 {
		return s.MaxDelay
	}
	chars := float64(utf8.RuneCountInString(text))
	d := time.Duration(chars * float64(time.Second) / s.CharsPerSecond)
	if d > s.MaxDelay {
		return s.MaxDelay
	}
	return d
}
