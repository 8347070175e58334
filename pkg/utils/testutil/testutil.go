// Package testutil provides deterministic collaborators for tests that must not call a hosted provider.
package testutil

import (
	"context"
	"hash/fnv"
	"iter"
	"strings"
	"sync"

	"github.com/secmon-lab/gapcheck/pkg/domain/interfaces"
	"github.com/secmon-lab/gapcheck/pkg/domain/model"
	"github.com/secmon-lab/gapcheck/pkg/domain/types"
	"github.com/secmon-lab/gapcheck/pkg/service/lexical"
)

// HashEmbedder maps each normalized word to a hashed bucket. Identical texts get identical vectors.
type HashEmbedder struct {
	fp  model.EmbeddingFingerprint
	Err error
	// Check, when set, can fail a call based on its input
	Check func(texts []string) error

	mu    sync.Mutex
	calls int
}

var _ interfaces.Embedder = &HashEmbedder{}

func NewHashEmbedder(fp model.EmbeddingFingerprint) *HashEmbedder {
	return &HashEmbedder{fp: fp}
}

func (e *HashEmbedder) Fingerprint() model.EmbeddingFingerprint {
	return e.fp
}

// Calls returns how many times Embed was invoked
func (e *HashEmbedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func (e *HashEmbedder) Embed(ctx context.Context, texts []string, taskType types.TaskType) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	if e.Err != nil {
		return nil, e.Err
	}
	if e.Check != nil {
		if err := e.Check(texts); err != nil {
			return nil, err
		}
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, e.fp.Dimension)
		for _, word := range strings.Fields(lexical.Normalize(text)) {
			h := fnv.New32a()
			_, _ = h.Write([]byte(word))
			vec[int(h.Sum32())%e.fp.Dimension]++
		}
		out[i] = vec
	}
	return out, nil
}

// StaticJudge answers prompts through Fn, or with Answer when Fn is nil, and records every prompt
type StaticJudge struct {
	Answer string
	Err    error
	Fn     func(prompt string) (string, error)

	mu      sync.Mutex
	prompts []string
}

var _ interfaces.Judge = &StaticJudge{}

func (j *StaticJudge) Judge(ctx context.Context, prompt string) (string, error) {
	j.mu.Lock()
	j.prompts = append(j.prompts, prompt)
	j.mu.Unlock()

	if j.Fn != nil {
		return j.Fn(prompt)
	}
	if j.Err != nil {
		return "", j.Err
	}
	return j.Answer, nil
}

// Prompts returns a copy of the received prompts in call order
func (j *StaticJudge) Prompts() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.prompts...)
}

// SourceItem is one value yielded by StaticSource
type SourceItem struct {
	Doc *model.Document
	Err error
}

// StaticSource yields a fixed list of documents and errors
type StaticSource struct {
	SourceName string
	Items      []SourceItem
}

var _ interfaces.DocumentSource = &StaticSource{}

// NewStaticSource yields docs in order
func NewStaticSource(name string, docs ...*model.Document) *StaticSource {
	s := &StaticSource{SourceName: name}
	for _, d := range docs {
		s.Items = append(s.Items, SourceItem{Doc: d})
	}
	return s
}

func (s *StaticSource) Name() string {
	return s.SourceName
}

func (s *StaticSource) Documents(ctx context.Context) iter.Seq2[*model.Document, error] {
	return func(yield func(*model.Document, error) bool) {
		for _, item := range s.Items {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if !yield(item.Doc, item.Err) {
				return
			}
		}
	}
}
