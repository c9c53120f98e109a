// Package embeddings provides a local, deterministic embedding client for
// development and tests when no provider credential is configured.
package embeddings

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"unicode"

	pkgembeddings "github.com/tablebite/ordering/pkg/embeddings"
)

// HashingModel is the model name recorded for hashing embeddings.
const HashingModel = "hashing-v1"

const defaultDimensions = 256

var (
	// ErrEmptyInput is returned for blank input.
	ErrEmptyInput = errors.New("embeddings: input text is empty")
	// ErrNoTokens is returned when the input has no indexable words.
	ErrNoTokens = errors.New("embeddings: input has no tokens")
)

// HashingClient embeds text as an L2-normalized bag of hashed word features.
// Texts sharing words get positive cosine similarity; it has no notion of synonyms.
type HashingClient struct {
	dimensions int
}

// NewHashingClient creates a hashing client. Non-positive dimensions use the default.
func NewHashingClient(dimensions int) *HashingClient {
	if dimensions <= 0 {
		dimensions = defaultDimensions
	}

	return &HashingClient{dimensions: dimensions}
}

// EmbeddingModel returns HashingModel.
func (c *HashingClient) EmbeddingModel() string {
	return HashingModel
}

// CreateEmbedding returns the hashed feature vector for input.
func (c *HashingClient) CreateEmbedding(_ context.Context, input string) ([]float32, error) {
	if strings.TrimSpace(input) == "" {
		return nil, ErrEmptyInput
	}

	tokens := Tokenize(input)
	if len(tokens) == 0 {
		return nil, ErrNoTokens
	}

	vec := make([]float32, c.dimensions)

	for _, tok := range tokens {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		vec[h.Sum32()%uint32(c.dimensions)]++ //nolint:gosec // dimensions is positive
	}

	pkgembeddings.NormalizeL2(vec)

	return vec, nil
}

// Tokenize lowercases text and splits it into words of at least two letters or digits.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) >= 2 {
			out = append(out, f)
		}
	}

	return out
}
