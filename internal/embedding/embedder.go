package embedding

import (
	"context"
	"errors"
	"strings"
)

// ErrEmbeddingUnavailable is returned when neither tier could produce a vector.
// Callers store the memory without an embedding instead of failing.
var ErrEmbeddingUnavailable = errors.New("embedding unavailable")

// Embedder turns text into a vector using a single model.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// Model identifies the vectors this embedder produces. Vectors from
	// different models are never compared.
	Model() string
}

// Tier names which embedder produced a vector.
type Tier string

const (
	TierRemote Tier = "remote"
	TierLocal  Tier = "local"
)

// Result is a vector together with the model that produced it.
type Result struct {
	Vector []float32
	Model  string
	Tier   Tier
}

var newlineReplacer = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// NormalizeText flattens embedded line breaks into spaces.
func NormalizeText(text string) string {
	return newlineReplacer.Replace(text)
}
