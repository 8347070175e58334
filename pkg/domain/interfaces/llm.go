package interfaces

import (
	"context"

	"github.com/secmon-lab/gapcheck/pkg/domain/model"
	"github.com/secmon-lab/gapcheck/pkg/domain/types"
)

// Embedder turns texts into vectors of a fixed embedding space
type Embedder interface {
	// Embed returns one vector per input text, in input order
	Embed(ctx context.Context, texts []string, taskType types.TaskType) ([][]float32, error)

	// Fingerprint identifies the embedding space of returned vectors
	Fingerprint() model.EmbeddingFingerprint
}

// Judge answers a prompt with free text
type Judge interface {
	Judge(ctx context.Context, prompt string) (string, error)
}
