package model

import "github.com/m-mizutani/goerr/v2"

var (
	// ErrEmbeddingMismatch is returned when an embedding's provider, model or dimension
	// disagrees with what the target collection was built with
	ErrEmbeddingMismatch = goerr.New("embedding does not match collection")

	// ErrInvalidConfig is returned for missing or contradictory settings
	ErrInvalidConfig = goerr.New("invalid configuration")

	// ErrProviderExhausted is returned when a provider call keeps failing after all retries
	ErrProviderExhausted = goerr.New("provider retries exhausted")

	// ErrProviderRejected is returned for provider failures that retrying cannot fix
	ErrProviderRejected = goerr.New("provider rejected request")

	ErrEmptyRequirements   = goerr.New("no requirements provided")
	ErrInvalidInput        = goerr.New("invalid input")
	ErrInvalidBaselineName = goerr.New("baseline name is required")
	ErrBaselineNotFound    = goerr.New("baseline not found")
)
