// Package text implements the chunking engine: documents are split into
// overlapping fixed-size chunks before embedding. Splitting is recursive on
// structural separators (paragraphs, lines, spaces, characters) so chunks
// prefer the largest unit that still fits the size budget. The output is
// fully deterministic for a given input and configuration; the folder
// monitor's rebuild invariant depends on that.
package text

import (
	"strings"

	"docseek/apps/backend/internal/document"
)

// defaultSeparators is ordered from the largest structural unit to the
// smallest. The empty separator means character-level splitting.
var defaultSeparators = []string{"\n\n", "\n", " ", ""}

type Splitter struct {
	ChunkSize    int
	ChunkOverlap int
}

func NewSplitter(size, overlap int) *Splitter {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	return &Splitter{ChunkSize: size, ChunkOverlap: overlap}
}

// SplitDocuments chunks every document and stamps each chunk with the
// parent's metadata, unchanged. Empty input yields empty output.
func (s *Splitter) SplitDocuments(docs []document.Document) []document.Document {
	var chunks []document.Document
	for _, doc := range docs {
		for _, piece := range s.Split(doc.Content) {
			chunks = append(chunks, document.New(piece, doc.Metadata))
		}
	}
	return chunks
}

// Split cuts text into chunks of at most ChunkSize characters, with
// consecutive chunks overlapping by roughly ChunkOverlap characters.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return s.splitRecursive(text, defaultSeparators)
}

func (s *Splitter) splitRecursive(text string, separators []string) []string {
	// Pick the first separator actually present; the empty separator
	// always matches and is the terminal case.
	sep := separators[len(separators)-1]
	var remaining []string
	for i, candidate := range separators {
		if candidate == "" || strings.Contains(text, candidate) {
			sep = candidate
			remaining = separators[i+1:]
			break
		}
	}

	var parts []string
	if sep == "" {
		parts = splitChars(text)
	} else {
		parts = strings.Split(text, sep)
	}

	// Pieces that fit are merged below; oversized pieces recurse with the
	// finer separators first.
	var final []string
	var pending []string
	for _, part := range parts {
		if len(part) <= s.ChunkSize {
			pending = append(pending, part)
			continue
		}
		final = append(final, s.merge(pending, sep)...)
		pending = nil
		if len(remaining) == 0 {
			final = append(final, part)
		} else {
			final = append(final, s.splitRecursive(part, remaining)...)
		}
	}
	final = append(final, s.merge(pending, sep)...)
	return final
}

// merge greedily joins adjacent pieces up to ChunkSize, carrying the last
// ChunkOverlap characters' worth of pieces into the next chunk.
func (s *Splitter) merge(parts []string, sep string) []string {
	sepLen := len(sep)

	var chunks []string
	var window []string
	total := 0
	for _, part := range parts {
		extra := len(part)
		if len(window) > 0 {
			extra += sepLen
		}
		if total+extra > s.ChunkSize && len(window) > 0 {
			if chunk := s.join(window, sep); chunk != "" {
				chunks = append(chunks, chunk)
			}
			// Shrink the window until it fits within the overlap budget
			// and leaves room for the incoming piece.
			for len(window) > 0 &&
				(total > s.ChunkOverlap || total+len(part)+sepLen > s.ChunkSize) {
				total -= len(window[0])
				if len(window) > 1 {
					total -= sepLen
				}
				window = window[1:]
			}
		}
		window = append(window, part)
		total += len(part)
		if len(window) > 1 {
			total += sepLen
		}
	}
	if chunk := s.join(window, sep); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}

func (s *Splitter) join(parts []string, sep string) string {
	return strings.TrimSpace(strings.Join(parts, sep))
}

func splitChars(text string) []string {
	out := make([]string, 0, len(text))
	for _, r := range text {
		out = append(out, string(r))
	}
	return out
}
