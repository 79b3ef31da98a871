package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// DefaultMockDimensions is the vector size of the mock backend.
const DefaultMockDimensions = 256

// MockBackend is a deterministic bag-of-words embedder based on feature
// hashing. Texts sharing vocabulary end up close in cosine space, which is
// enough to exercise retrieval and reranking without a remote model.
type MockBackend struct {
	dimensions int
}

// NewMock creates a mock backend. dimensions <= 0 uses DefaultMockDimensions.
func NewMock(dimensions int) *MockBackend {
	if dimensions <= 0 {
		dimensions = DefaultMockDimensions
	}
	return &MockBackend{dimensions: dimensions}
}

func (m *MockBackend) Name() string  { return "mock" }
func (m *MockBackend) Model() string { return "feature-hashing" }

// EmbedText hashes every lower-cased token into a signed bucket and
// L2-normalises the result.
func (m *MockBackend) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vector := make([]float32, m.dimensions)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	})

	for _, token := range tokens {
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		sum := h.Sum32()

		bucket := int(sum % uint32(m.dimensions))
		if sum&(1<<31) != 0 {
			vector[bucket]--
		} else {
			vector[bucket]++
		}
	}

	var norm float64
	for _, v := range vector {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		// Punctuation-only input still gets a unit vector.
		vector[0] = 1
		return vector, nil
	}

	scale := float32(1 / math.Sqrt(norm))
	for i := range vector {
		vector[i] *= scale
	}

	return vector, nil
}
