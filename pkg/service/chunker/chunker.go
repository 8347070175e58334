package chunker

import (
	"strings"

	"github.com/secmon-lab/gapcheck/pkg/domain/model"
)

const (
	DefaultSize    = 400
	DefaultOverlap = 80
)

// Chunker turns documents into overlapping word windows
type Chunker struct {
	size    int
	overlap int
}

// Option is a functional option for Chunker configuration
type Option func(*Chunker)

// WithSize sets the window size in words
func WithSize(size int) Option {
	return func(c *Chunker) {
		c.size = size
	}
}

// WithOverlap sets how many words consecutive windows share
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		c.overlap = overlap
	}
}

// New creates a Chunker with 400-word windows overlapping by 80 words unless overridden
func New(opts ...Option) *Chunker {
	c := &Chunker{
		size:    DefaultSize,
		overlap: DefaultOverlap,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Build splits a document into deduplicated chunks that carry the document's metadata
// and the content hash of the whole document
func (c *Chunker) Build(doc *model.Document) []*model.Chunk {
	hash := doc.ContentHash()
	texts := Dedupe(Split(doc.NormalizedText(), c.size, c.overlap))

	chunks := make([]*model.Chunk, 0, len(texts))
	for i, text := range texts {
		chunks = append(chunks, &model.Chunk{
			ID:          model.NewChunkID(doc.Source, doc.SourceID, i),
			Source:      doc.Source,
			SourceID:    doc.SourceID,
			Index:       i,
			Title:       doc.Title,
			URL:         doc.URL,
			Scope:       doc.Scope,
			UpdatedAt:   doc.UpdatedAt,
			ContentHash: hash,
			Text:        text,
		})
	}
	return chunks
}

// Split slides a window of size words over text with stride size-overlap (at least 1).
// Windows are joined with single spaces and empty windows are dropped.
func Split(text string, size, overlap int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if size < 1 {
		size = 1
	}
	step := max(size-overlap, 1)

	var chunks []string
	for start := 0; start < len(words); start += step {
		end := min(start+size, len(words))
		if chunk := strings.TrimSpace(strings.Join(words[start:end], " ")); chunk != "" {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}

// Dedupe drops empty and repeated chunks by trimmed text, keeping first occurrences in order
func Dedupe(chunks []string) []string {
	seen := make(map[string]struct{}, len(chunks))
	out := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		key := strings.TrimSpace(chunk)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}
