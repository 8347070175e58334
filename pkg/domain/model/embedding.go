package model

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

var collectionNameReplacer = regexp.MustCompile(`[^a-z0-9]+`)

// EmbeddingFingerprint identifies the embedding space a collection was built in.
// Vectors from different fingerprints are never mixed in one collection.
type EmbeddingFingerprint struct {
	Provider  string
	Model     string
	Dimension int
}

// CollectionName derives a collection name unique to the fingerprint
func (f EmbeddingFingerprint) CollectionName() string {
	clean := func(s string) string {
		return strings.Trim(collectionNameReplacer.ReplaceAllString(strings.ToLower(s), "_"), "_")
	}
	return fmt.Sprintf("chunks_%s_%s_%d", clean(f.Provider), clean(f.Model), f.Dimension)
}

// Validate checks the fingerprint is complete
func (f EmbeddingFingerprint) Validate() error {
	if f.Provider == "" || f.Model == "" || f.Dimension <= 0 {
		return goerr.Wrap(ErrInvalidConfig, "incomplete embedding fingerprint",
			goerr.V("provider", f.Provider),
			goerr.V("model", f.Model),
			goerr.V("dimension", f.Dimension))
	}
	return nil
}

// CheckCompatible returns ErrEmbeddingMismatch when other describes a different embedding space
func (f EmbeddingFingerprint) CheckCompatible(collection string, other EmbeddingFingerprint) error {
	if f == other {
		return nil
	}
	return goerr.Wrap(ErrEmbeddingMismatch, "embedding space differs from collection",
		goerr.V("collection", collection),
		goerr.V("expected_provider", f.Provider),
		goerr.V("expected_model", f.Model),
		goerr.V("expected_dimension", f.Dimension),
		goerr.V("observed_provider", other.Provider),
		goerr.V("observed_model", other.Model),
		goerr.V("observed_dimension", other.Dimension))
}

// CheckDimension returns ErrEmbeddingMismatch when vec does not have the fingerprint's dimensionality
func (f EmbeddingFingerprint) CheckDimension(collection string, vec []float32) error {
	if len(vec) == f.Dimension {
		return nil
	}
	return goerr.Wrap(ErrEmbeddingMismatch, "embedding dimension differs from collection",
		goerr.V("collection", collection),
		goerr.V("provider", f.Provider),
		goerr.V("model", f.Model),
		goerr.V("expected_dimension", f.Dimension),
		goerr.V("observed_dimension", len(vec)))
}
